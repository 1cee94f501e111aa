package service_test

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"video-service/ddd/domain/gateway"
	"video-service/ddd/domain/port"
	"video-service/ddd/domain/service"
	"video-service/ddd/infrastructure/keystore"
	"video-service/pkg/config"
	"video-service/pkg/errno"
)

// fakeEngine produces playlist and segment files without running ffmpeg.
type fakeEngine struct {
	mu          sync.Mutex
	info        port.SourceInfo
	segments    int
	failQuality string
	runs        []string
	keyInfoRaw  string
}

func (e *fakeEngine) Probe(ctx context.Context, sourcePath string) (*port.SourceInfo, error) {
	info := e.info
	return &info, nil
}

func (e *fakeEngine) Thumbnail(ctx context.Context, sourcePath, outPath string) error {
	return os.WriteFile(outPath, []byte("webp"), 0o644)
}

func (e *fakeEngine) TranscodeRendition(ctx context.Context, job port.RenditionJob) error {
	e.mu.Lock()
	e.runs = append(e.runs, job.Quality.Name)
	e.mu.Unlock()

	if job.Quality.Name == e.failQuality {
		return &port.EngineError{ExitCode: 1, StderrTail: "injected failure", Err: errno.ErrEngineFailed}
	}

	raw, err := os.ReadFile(job.KeyInfoPath)
	if err != nil {
		return fmt.Errorf("key info must exist during transcode: %w", err)
	}
	e.mu.Lock()
	e.keyInfoRaw = string(raw)
	e.mu.Unlock()
	keyURI, _, err := service.ParseKeyInfo(string(raw))
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", job.SegmentDuration)
	fmt.Fprintf(&b, "#EXT-X-KEY:METHOD=AES-128,URI=%q,IV=0x00000000000000000000000000000000\n", keyURI)
	for i := 0; i < e.segments; i++ {
		name := fmt.Sprintf("segment_%03d.ts", i)
		fmt.Fprintf(&b, "#EXTINF:%d.000000,\n%s\n", job.SegmentDuration, name)
		if err := os.WriteFile(filepath.Join(job.OutputDir, name), []byte("ts"), 0o644); err != nil {
			return err
		}
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(filepath.Join(job.OutputDir, "index.m3u8"), []byte(b.String()), 0o644)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) Publish(ctx context.Context, eventType, assetID string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *eventRecorder) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == eventType {
			return true
		}
	}
	return false
}

func newPipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.StorageRoot = t.TempDir()
	cfg.Storage.KeysRoot = t.TempDir()
	cfg.Access.APIBase = "/api/video"
	cfg.Transcode.HLS.SegmentDuration = 6
	cfg.Transcode.HLS.MaxConcurrentRenditions = 2
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, engine port.TranscodeEngine, events *eventRecorder) *service.PipelineService {
	t.Helper()
	store, err := keystore.NewFileKeyStore(cfg)
	if err != nil {
		t.Fatalf("NewFileKeyStore: %v", err)
	}
	var publisher gateway.EventPublisher
	if events != nil {
		publisher = events
	}
	return service.NewPipelineService(engine, service.NewKeyService(store), publisher, nil, cfg)
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestProcessFullPipeline(t *testing.T) {
	cfg := newPipelineConfig(t)
	engine := &fakeEngine{
		info:     port.SourceInfo{DurationSeconds: 10, Width: 1920, Height: 1080},
		segments: 2,
	}
	events := &eventRecorder{}
	pipeline := newPipeline(t, cfg, engine, events)
	source := writeSource(t)

	result, err := pipeline.Process(context.Background(), source, "asset-1", "Intro")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	wantRenditions := []string{"480p", "720p", "1080p"}
	if len(result.Renditions) != len(wantRenditions) {
		t.Fatalf("renditions: got %v", result.Renditions)
	}
	for i, name := range wantRenditions {
		if result.Renditions[i] != name {
			t.Fatalf("renditions: got %v want %v", result.Renditions, wantRenditions)
		}
	}
	if result.VideoURL != "/api/video/stream/asset-1" {
		t.Fatalf("video url: %q", result.VideoURL)
	}
	if result.DurationSeconds != 10 {
		t.Fatalf("duration: %v", result.DurationSeconds)
	}
	if result.KeyID == "" {
		t.Fatal("empty key id")
	}

	outputRoot := pipeline.OutputRoot("asset-1")
	for _, name := range wantRenditions {
		dir := filepath.Join(outputRoot, name)
		if _, err := os.Stat(filepath.Join(dir, "index.m3u8")); err != nil {
			t.Fatalf("missing %s playlist: %v", name, err)
		}
		for i := 0; i < 2; i++ {
			segPath := filepath.Join(dir, fmt.Sprintf("segment_%03d.ts", i))
			if _, err := os.Stat(segPath); err != nil {
				t.Fatalf("missing segment: %v", err)
			}
		}
	}

	master, err := os.ReadFile(filepath.Join(outputRoot, "master.m3u8"))
	if err != nil {
		t.Fatalf("missing master manifest: %v", err)
	}
	if got := strings.Count(string(master), "#EXT-X-STREAM-INF:"); got != 3 {
		t.Fatalf("master stream-inf lines: got %d", got)
	}
	if _, err := os.Stat(filepath.Join(outputRoot, "thumbnail.webp")); err != nil {
		t.Fatalf("missing thumbnail: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputRoot, "key.info")); !os.IsNotExist(err) {
		t.Fatal("key.info must not be published")
	}
	if _, err := os.Stat(outputRoot + ".processing"); !os.IsNotExist(err) {
		t.Fatal("staging dir must be gone")
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("source must be removed after success")
	}

	keyPath := filepath.Join(cfg.Storage.KeysRoot, result.KeyID+".key")
	key, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("key must survive processing: %v", err)
	}
	if len(key) != service.KeySize {
		t.Fatalf("key length: %d", len(key))
	}

	// The descriptor handed to the engine must stay at two lines; a third
	// line is an explicit IV the engine copies into published playlists.
	descLines := strings.Split(strings.TrimRight(engine.keyInfoRaw, "\n"), "\n")
	if len(descLines) != 2 {
		t.Fatalf("key info descriptor lines: got %d (%q)", len(descLines), engine.keyInfoRaw)
	}
	if strings.Contains(engine.keyInfoRaw, hex.EncodeToString(key)) {
		t.Fatal("key bytes leaked into the key info descriptor")
	}

	if !events.has("video.processing.completed") {
		t.Fatalf("missing completed event, got %v", events.events)
	}
}

func TestProcessSmallSourceSingleRendition(t *testing.T) {
	cfg := newPipelineConfig(t)
	engine := &fakeEngine{
		info:     port.SourceInfo{DurationSeconds: 8, Width: 640, Height: 360},
		segments: 2,
	}
	pipeline := newPipeline(t, cfg, engine, nil)

	result, err := pipeline.Process(context.Background(), writeSource(t), "asset-2", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.Renditions) != 1 || result.Renditions[0] != "360p" {
		t.Fatalf("renditions: got %v want [360p]", result.Renditions)
	}

	master, err := os.ReadFile(filepath.Join(pipeline.OutputRoot("asset-2"), "master.m3u8"))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if got := strings.Count(string(master), "#EXT-X-STREAM-INF:"); got != 1 {
		t.Fatalf("master stream-inf lines: got %d", got)
	}
}

func TestProcessRenditionFailureLeavesNothingBehind(t *testing.T) {
	cfg := newPipelineConfig(t)
	engine := &fakeEngine{
		info:        port.SourceInfo{DurationSeconds: 10, Width: 1920, Height: 1080},
		segments:    2,
		failQuality: "720p",
	}
	events := &eventRecorder{}
	pipeline := newPipeline(t, cfg, engine, events)
	source := writeSource(t)

	_, err := pipeline.Process(context.Background(), source, "asset-3", "")
	if err == nil {
		t.Fatal("expected pipeline failure")
	}
	var engineErr *port.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}

	outputRoot := pipeline.OutputRoot("asset-3")
	if _, err := os.Stat(outputRoot); !os.IsNotExist(err) {
		t.Fatal("output dir must not exist after failure")
	}
	if _, err := os.Stat(outputRoot + ".processing"); !os.IsNotExist(err) {
		t.Fatal("staging dir must be removed on failure")
	}

	entries, err := os.ReadDir(cfg.Storage.KeysRoot)
	if err != nil {
		t.Fatalf("read keys dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("key must be invalidated on failure, found %d entries", len(entries))
	}

	if _, err := os.Stat(source); err != nil {
		t.Fatal("source must be kept on failure for retry")
	}
	if !events.has("video.processing.failed") {
		t.Fatalf("missing failed event, got %v", events.events)
	}
}

func TestProcessMissingSource(t *testing.T) {
	cfg := newPipelineConfig(t)
	pipeline := newPipeline(t, cfg, &fakeEngine{segments: 1}, nil)

	_, err := pipeline.Process(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "asset-4", "")
	if !errors.Is(err, errno.ErrUploadIllegal) {
		t.Fatalf("expected ErrUploadIllegal, got %v", err)
	}
}

func TestDeleteAssetIdempotent(t *testing.T) {
	cfg := newPipelineConfig(t)
	engine := &fakeEngine{
		info:     port.SourceInfo{DurationSeconds: 10, Width: 1920, Height: 1080},
		segments: 2,
	}
	pipeline := newPipeline(t, cfg, engine, nil)

	result, err := pipeline.Process(context.Background(), writeSource(t), "asset-5", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if err := pipeline.DeleteAsset(context.Background(), "asset-5", result.KeyID); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}
	if _, err := os.Stat(pipeline.OutputRoot("asset-5")); !os.IsNotExist(err) {
		t.Fatal("output dir must be removed")
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.KeysRoot, result.KeyID+".key")); !os.IsNotExist(err) {
		t.Fatal("key must be removed with the asset")
	}

	if err := pipeline.DeleteAsset(context.Background(), "asset-5", result.KeyID); err != nil {
		t.Fatalf("repeated DeleteAsset must succeed: %v", err)
	}
}
