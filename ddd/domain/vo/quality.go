package vo

import (
	"fmt"
	"regexp"
	"sort"
)

// Quality is one adaptive rendition: a fixed resolution and bitrate pair.
type Quality struct {
	Name             string `json:"name"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	VideoBitrateKbps int    `json:"video_bitrate_kbps"`
	AudioBitrateKbps int    `json:"audio_bitrate_kbps"`
}

// BandwidthBps is the master playlist BANDWIDTH attribute value.
func (q Quality) BandwidthBps() int {
	return (q.VideoBitrateKbps + q.AudioBitrateKbps) * 1000
}

// Resolution formats the RESOLUTION attribute value.
func (q Quality) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// Catalog is the fixed rendition ladder, ascending by bitrate.
func Catalog() []Quality {
	return []Quality{
		{Name: "480p", Width: 854, Height: 480, VideoBitrateKbps: 800, AudioBitrateKbps: 96},
		{Name: "720p", Width: 1280, Height: 720, VideoBitrateKbps: 2000, AudioBitrateKbps: 128},
		{Name: "1080p", Width: 1920, Height: 1080, VideoBitrateKbps: 4500, AudioBitrateKbps: 160},
	}
}

// Two to four digits: the native fallback can name a rendition after a
// source height below 100.
var qualityNameRe = regexp.MustCompile(`^\d{2,4}p$`)

// ValidQualityName reports whether s looks like a rendition directory name.
func ValidQualityName(s string) bool {
	return qualityNameRe.MatchString(s)
}

// SelectQualities filters the catalog down to renditions that do not upscale
// the source. A source smaller than every catalog entry still yields one
// rendition at its native resolution, so processing never produces an empty
// ladder. The result is ordered by ascending combined bitrate.
func SelectQualities(sourceWidth, sourceHeight int) []Quality {
	selected := make([]Quality, 0, 3)
	for _, q := range Catalog() {
		if q.Width <= sourceWidth && q.Height <= sourceHeight {
			selected = append(selected, q)
		}
	}

	if len(selected) == 0 {
		native := Catalog()[0]
		native.Width = evenDimension(sourceWidth)
		native.Height = evenDimension(sourceHeight)
		native.Name = fmt.Sprintf("%dp", native.Height)
		selected = append(selected, native)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].BandwidthBps() < selected[j].BandwidthBps()
	})
	return selected
}

// Encoders reject odd frame dimensions for yuv420p output.
func evenDimension(v int) int {
	if v <= 1 {
		return 2
	}
	if v%2 != 0 {
		return v - 1
	}
	return v
}
