package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"video-service/ddd/domain/port"
	"video-service/pkg/config"
	"video-service/pkg/errno"
	"video-service/pkg/logger"
)

const stderrTailLines = 50

// FFmpegExecutor implements port.TranscodeEngine on local ffmpeg/ffprobe
// binaries.
type FFmpegExecutor struct {
	cfg *config.Config
}

func NewFFmpegExecutor(cfg *config.Config) *FFmpegExecutor {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &FFmpegExecutor{cfg: cfg}
}

func (e *FFmpegExecutor) binary() string {
	if e.cfg != nil && e.cfg.Transcode.FFmpeg.BinaryPath != "" {
		return e.cfg.Transcode.FFmpeg.BinaryPath
	}
	return "ffmpeg"
}

func (e *FFmpegExecutor) probeBinary() string {
	if e.cfg != nil && e.cfg.Transcode.FFmpeg.ProbePath != "" {
		return e.cfg.Transcode.FFmpeg.ProbePath
	}
	return "ffprobe"
}

// withTimeout bounds one engine invocation. A wedged process would otherwise
// hold the pipeline worker forever.
func (e *FFmpegExecutor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg != nil && e.cfg.Transcode.FFmpeg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Transcode.FFmpeg.Timeout)
	}
	return context.WithCancel(ctx)
}

// Probe returns the container duration and the dimensions of the first video
// stream. A file with no video stream is rejected.
func (e *FFmpegExecutor) Probe(ctx context.Context, sourcePath string) (*port.SourceInfo, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	durationOut, err := exec.CommandContext(ctx, e.probeBinary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sourcePath,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrProbeFailed, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(durationOut)), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse duration: %v", errno.ErrProbeFailed, err)
	}

	dimsOut, err := exec.CommandContext(ctx, e.probeBinary(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		sourcePath,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrProbeFailed, err)
	}
	parts := strings.Split(strings.TrimSpace(string(dimsOut)), ",")
	if len(parts) < 2 {
		return nil, errno.ErrNoVideoStream
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return nil, errno.ErrNoVideoStream
	}

	return &port.SourceInfo{
		DurationSeconds: duration,
		Width:           width,
		Height:          height,
	}, nil
}

// Thumbnail extracts a single poster frame, scaled to 640x360 webp.
func (e *FFmpegExecutor) Thumbnail(ctx context.Context, sourcePath, outPath string) error {
	args := []string{
		"-i", sourcePath,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-vf", "scale=640:360:force_original_aspect_ratio=decrease,pad=640:360:(ow-iw)/2:(oh-ih)/2",
		"-y",
		outPath,
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	return e.run(ctx, cmd)
}

// TranscodeRendition runs one full encrypted HLS rendition to completion.
func (e *FFmpegExecutor) TranscodeRendition(ctx context.Context, job port.RenditionJob) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	cmd := exec.CommandContext(ctx, e.binary(), e.buildRenditionArgs(job)...)
	logger.Infof("ffmpeg rendition quality=%s command=%s", job.Quality.Name, strings.Join(cmd.Args, " "))
	return e.run(ctx, cmd)
}

func (e *FFmpegExecutor) buildRenditionArgs(job port.RenditionJob) []string {
	videoCodec := "libx264"
	videoPreset := "fast"
	threads := 0
	if e.cfg != nil {
		if strings.TrimSpace(e.cfg.Transcode.FFmpeg.VideoCodec) != "" {
			videoCodec = e.cfg.Transcode.FFmpeg.VideoCodec
		}
		if strings.TrimSpace(e.cfg.Transcode.FFmpeg.VideoPreset) != "" {
			videoPreset = e.cfg.Transcode.FFmpeg.VideoPreset
		}
		if e.cfg.Transcode.FFmpeg.Threads > 0 {
			threads = e.cfg.Transcode.FFmpeg.Threads
		}
	}

	q := job.Quality
	segDur := job.SegmentDuration

	args := []string{
		"-i", job.SourcePath,
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-vf", fmt.Sprintf("scale=%d:%d,format=yuv420p", q.Width, q.Height),
		"-b:v", fmt.Sprintf("%dk", q.VideoBitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", q.VideoBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", q.VideoBitrateKbps*2),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", q.AudioBitrateKbps),
		"-ar", "44100",
		"-ac", "2",
		// Identical keyframe cadence across renditions keeps segment
		// boundaries aligned so quality switches stay seamless.
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", segDur),
		"-sc_threshold", "0",
		"-g", "48",
		"-keyint_min", "48",
		"-hls_time", strconv.Itoa(segDur),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_key_info_file", job.KeyInfoPath,
		"-hls_segment_filename", filepath.Join(job.OutputDir, "segment_%03d.ts"),
	}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	args = append(args,
		"-y",
		filepath.Join(job.OutputDir, "index.m3u8"),
	)
	return args
}

// run executes cmd, capturing a stderr tail so a nonzero exit carries the
// actual engine diagnostics. Cancellation kills the process.
func (e *FFmpegExecutor) run(ctx context.Context, cmd *exec.Cmd) error {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &port.EngineError{Err: fmt.Errorf("%w: stderr pipe: %v", errno.ErrEngineFailed, err)}
	}

	if err := cmd.Start(); err != nil {
		return &port.EngineError{Err: fmt.Errorf("%w: start engine: %v", errno.ErrEngineFailed, err)}
	}

	tailDone := make(chan struct{})
	tail := make([]string, 0, stderrTailLines)
	go func() {
		defer close(tailDone)
		captureTail(stderr, &tail)
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-tailDone
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			joined := strings.Join(tail, "\n")
			logger.Errorf("ffmpeg timed out, killed tail_stderr=%s", joined)
			return &port.EngineError{
				ExitCode:   -1,
				StderrTail: joined,
				Err:        fmt.Errorf("%w: engine timed out", errno.ErrEngineFailed),
			}
		}
		return ctx.Err()
	case err := <-done:
		<-tailDone
		if err != nil {
			exitCode := -1
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			}
			joined := strings.Join(tail, "\n")
			logger.Errorf("ffmpeg failed exit_code=%d tail_stderr=%s", exitCode, joined)
			return &port.EngineError{
				ExitCode:   exitCode,
				StderrTail: joined,
				Err:        fmt.Errorf("%w: %v", errno.ErrEngineFailed, err),
			}
		}
		return nil
	}
}

func captureTail(r io.Reader, capture *[]string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		b := *capture
		if len(b) >= stderrTailLines {
			b = b[1:]
		}
		b = append(b, scanner.Text())
		*capture = b
	}
}
