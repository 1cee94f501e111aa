package service

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"video-service/ddd/domain/vo"
	"video-service/pkg/errno"
)

// SegmentNameRe is the only segment filename shape the gateway will serve.
var SegmentNameRe = regexp.MustCompile(`^segment_\d+\.ts$`)

var variantLineRe = regexp.MustCompile(`^\d{2,4}p/index\.m3u8$`)

// WriteKeyInfo writes the engine's key-info descriptor: the key retrieval
// URI and the local key file path. The descriptor must stay at exactly two
// lines; a third line is read as an explicit IV and the engine copies it
// into every #EXT-X-KEY directive of the published sub-manifests.
func WriteKeyInfo(path, keyURI, keyFilePath string) error {
	content := fmt.Sprintf("%s\n%s\n", keyURI, keyFilePath)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("%w: write key info: %v", errno.ErrStorageFailed, err)
	}
	return nil
}

// ParseKeyInfo reads back a key-info descriptor written by WriteKeyInfo.
func ParseKeyInfo(content string) (keyURI, keyFilePath string, err error) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) < 2 {
		return "", "", fmt.Errorf("%w: key info needs at least uri and path lines", errno.ErrInvalidParam)
	}
	return lines[0], lines[1], nil
}

// BuildMasterManifest renders the variant playlist for the selected
// renditions, one stream-info line per quality with a relative sub-manifest
// URL. Qualities must already be in ascending bitrate order.
func BuildMasterManifest(qualities []vo.Quality) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, q := range qualities {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", q.BandwidthBps(), q.Resolution()))
		b.WriteString(q.Name + "/index.m3u8\n")
	}
	return b.String()
}

// RewriteSegmentReferences replaces bare segment filenames in a sub-manifest
// with delivery URLs under prefix, leaving every other line untouched.
func RewriteSegmentReferences(subManifest, prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	lines := strings.Split(subManifest, "\n")
	for i, line := range lines {
		if SegmentNameRe.MatchString(strings.TrimSpace(line)) {
			lines[i] = prefix + "/" + strings.TrimSpace(line)
		}
	}
	return strings.Join(lines, "\n")
}

// RewriteVariantReferences replaces the relative sub-manifest URLs of a
// master manifest with delivery URLs under prefix.
func RewriteVariantReferences(master, prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	lines := strings.Split(master, "\n")
	for i, line := range lines {
		if variantLineRe.MatchString(strings.TrimSpace(line)) {
			lines[i] = prefix + "/" + strings.TrimSpace(line)
		}
	}
	return strings.Join(lines, "\n")
}

// RewriteKeyURI swaps the key retrieval URI inside an #EXT-X-KEY directive,
// used when the public API base differs from the URI baked in at transcode
// time.
func RewriteKeyURI(subManifest, keyURI string) string {
	lines := strings.Split(subManifest, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "#EXT-X-KEY:") {
			continue
		}
		start := strings.Index(line, `URI="`)
		if start < 0 {
			continue
		}
		end := strings.Index(line[start+5:], `"`)
		if end < 0 {
			continue
		}
		lines[i] = line[:start+5] + keyURI + line[start+5+end:]
	}
	return strings.Join(lines, "\n")
}
