package port

import (
	"context"
	"fmt"

	"video-service/ddd/domain/vo"
)

// SourceInfo is what probing an uploaded file yields.
type SourceInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
}

// RenditionJob describes one engine invocation: transcode the source into an
// encrypted HLS rendition inside OutputDir.
type RenditionJob struct {
	SourcePath      string
	OutputDir       string
	KeyInfoPath     string
	Quality         vo.Quality
	SegmentDuration int
}

// TranscodeEngine abstracts the external media tool so the pipeline can be
// exercised with a fake in tests.
type TranscodeEngine interface {
	// Probe inspects the source; it fails when the file is unreadable or has
	// no video stream.
	Probe(ctx context.Context, sourcePath string) (*SourceInfo, error)
	// Thumbnail extracts a single poster frame to outPath.
	Thumbnail(ctx context.Context, sourcePath, outPath string) error
	// TranscodeRendition runs one rendition to completion. The process is
	// killed when ctx is cancelled.
	TranscodeRendition(ctx context.Context, job RenditionJob) error
}

// EngineError carries the exit status and captured stderr tail of a failed
// engine process.
type EngineError struct {
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *EngineError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, e.StderrTail)
	}
	return fmt.Sprintf("engine exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
