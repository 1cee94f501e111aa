package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"video-service/ddd/domain/entity"
	"video-service/ddd/domain/gateway"
	"video-service/ddd/domain/port"
	"video-service/ddd/domain/vo"
	"video-service/pkg/config"
	"video-service/pkg/errno"
	"video-service/pkg/logger"
	"video-service/pkg/metrics"
)

const (
	masterManifestName = "master.m3u8"
	thumbnailName      = "thumbnail.webp"
	keyInfoName        = "key.info"
	stagingSuffix      = ".processing"
)

// PipelineService runs the full asset pipeline: probe, ladder selection, key
// mint, per-rendition transcode, manifest composition. All output is built in
// a staging directory renamed into place on success, so a half-built asset is
// never visible to the gateway; any failure removes the staging tree and the
// minted key before the error surfaces.
type PipelineService struct {
	engine   port.TranscodeEngine
	keys     *KeyService
	events   gateway.EventPublisher
	archiver gateway.SourceArchiver

	storageRoot     string
	apiBase         string
	segmentDuration int
	maxConcurrent   int
	archiveSource   bool
}

// NewPipelineService wires the pipeline from explicit dependencies; events
// and archiver may be nil.
func NewPipelineService(engine port.TranscodeEngine, keys *KeyService, events gateway.EventPublisher, archiver gateway.SourceArchiver, cfg *config.Config) *PipelineService {
	return &PipelineService{
		engine:          engine,
		keys:            keys,
		events:          events,
		archiver:        archiver,
		storageRoot:     cfg.Storage.StorageRoot,
		apiBase:         cfg.Access.APIBase,
		segmentDuration: cfg.Transcode.HLS.SegmentDuration,
		maxConcurrent:   cfg.Transcode.HLS.MaxConcurrentRenditions,
		archiveSource:   cfg.Storage.ArchiveSource,
	}
}

// OutputRoot is the asset's final on-disk directory.
func (p *PipelineService) OutputRoot(assetID string) string {
	return filepath.Join(p.storageRoot, "videos", assetID)
}

// Process transcodes sourcePath into an encrypted adaptive streaming asset
// and returns the metadata to persist on the owning lesson. The source file
// is consumed: deleted after successful processing.
func (p *PipelineService) Process(ctx context.Context, sourcePath, assetID, title string) (*entity.ProcessingResult, error) {
	started := time.Now()
	metrics.ActivePipelines.Inc()
	defer metrics.ActivePipelines.Dec()

	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("%w: source not readable: %v", errno.ErrUploadIllegal, err)
	}

	p.publish(ctx, "video.processing.started", assetID, map[string]interface{}{"title": title})

	info, err := p.engine.Probe(ctx, sourcePath)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("probe_failed").Inc()
		p.publish(ctx, "video.processing.failed", assetID, map[string]interface{}{"stage": "probe"})
		return nil, err
	}

	qualities := vo.SelectQualities(info.Width, info.Height)
	logger.Infof("pipeline start asset_id=%s duration=%.1fs source=%dx%d renditions=%d",
		assetID, info.DurationSeconds, info.Width, info.Height, len(qualities))

	keyID, key, err := p.keys.GenerateKey()
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("key_failed").Inc()
		return nil, err
	}
	keyFilePath, err := p.keys.PersistKey(keyID, key)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("key_failed").Inc()
		return nil, err
	}

	staging := p.OutputRoot(assetID) + stagingSuffix
	_ = os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		_ = p.keys.DeleteKey(keyID)
		return nil, fmt.Errorf("%w: create staging dir: %v", errno.ErrStorageFailed, err)
	}

	result, err := p.build(ctx, sourcePath, assetID, staging, keyID, keyFilePath, info, qualities)
	if err != nil {
		_ = os.RemoveAll(staging)
		_ = p.keys.DeleteKey(keyID)
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		p.publish(ctx, "video.processing.failed", assetID, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	outputRoot := p.OutputRoot(assetID)
	_ = os.RemoveAll(outputRoot)
	if err := os.Rename(staging, outputRoot); err != nil {
		_ = os.RemoveAll(staging)
		_ = p.keys.DeleteKey(keyID)
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: publish output dir: %v", errno.ErrStorageFailed, err)
	}

	p.retireSource(ctx, sourcePath, assetID)

	metrics.PipelineRuns.WithLabelValues("completed").Inc()
	metrics.TranscodeDuration.Observe(time.Since(started).Seconds())
	p.publish(ctx, "video.processing.completed", assetID, result)
	logger.Infof("pipeline done asset_id=%s key_id=%s elapsed=%s", assetID, keyID, time.Since(started).Round(time.Millisecond))

	return result, nil
}

func (p *PipelineService) build(ctx context.Context, sourcePath, assetID, staging, keyID, keyFilePath string, info *port.SourceInfo, qualities []vo.Quality) (*entity.ProcessingResult, error) {
	keyURI := p.apiBase + "/key/" + keyID
	keyInfoPath := filepath.Join(staging, keyInfoName)
	if err := WriteKeyInfo(keyInfoPath, keyURI, keyFilePath); err != nil {
		return nil, err
	}

	if err := p.engine.Thumbnail(ctx, sourcePath, filepath.Join(staging, thumbnailName)); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for _, q := range qualities {
		g.Go(func() error {
			outDir := filepath.Join(staging, q.Name)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("%w: create rendition dir: %v", errno.ErrStorageFailed, err)
			}
			renditionStart := time.Now()
			err := p.engine.TranscodeRendition(gctx, port.RenditionJob{
				SourcePath:      sourcePath,
				OutputDir:       outDir,
				KeyInfoPath:     keyInfoPath,
				Quality:         q,
				SegmentDuration: p.segmentDuration,
			})
			if err != nil {
				return err
			}
			metrics.RenditionDuration.WithLabelValues(q.Name).Observe(time.Since(renditionStart).Seconds())
			return nil
		})
	}
	// Single join point: the master manifest only exists once every
	// rendition succeeded; a failed sibling cancels the in-flight ones.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	master := BuildMasterManifest(qualities)
	if err := os.WriteFile(filepath.Join(staging, masterManifestName), []byte(master), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write master manifest: %v", errno.ErrStorageFailed, err)
	}

	// The descriptor points at the local key file; it must not outlive the
	// engine runs.
	_ = os.Remove(keyInfoPath)

	names := make([]string, 0, len(qualities))
	for _, q := range qualities {
		names = append(names, q.Name)
	}

	return &entity.ProcessingResult{
		AssetID:         assetID,
		VideoURL:        p.apiBase + "/stream/" + assetID,
		ThumbnailURL:    p.apiBase + "/thumbnail/" + assetID,
		DurationSeconds: info.DurationSeconds,
		KeyID:           keyID,
		Renditions:      names,
		CompletedAt:     time.Now().UTC(),
	}, nil
}

func (p *PipelineService) retireSource(ctx context.Context, sourcePath, assetID string) {
	if p.archiveSource && p.archiver != nil {
		if objectKey, err := p.archiver.ArchiveSource(ctx, sourcePath, assetID); err != nil {
			logger.Warnf("source archive failed asset_id=%s error=%v", assetID, err)
		} else {
			logger.Infof("source archived asset_id=%s object_key=%s", assetID, objectKey)
		}
	}
	if err := os.Remove(sourcePath); err != nil {
		logger.Warnf("remove source failed path=%s error=%v", sourcePath, err)
	}
}

// DeleteAsset removes the asset's directory tree (and any staging leftovers)
// and invalidates its key. Deleting an absent asset is a no-op.
func (p *PipelineService) DeleteAsset(ctx context.Context, assetID, keyID string) error {
	outputRoot := p.OutputRoot(assetID)
	if err := os.RemoveAll(outputRoot); err != nil {
		return fmt.Errorf("%w: remove asset dir: %v", errno.ErrStorageFailed, err)
	}
	_ = os.RemoveAll(outputRoot + stagingSuffix)
	if keyID != "" {
		_ = p.keys.DeleteKey(keyID)
	}
	p.publish(ctx, "video.asset.deleted", assetID, nil)
	return nil
}

func (p *PipelineService) publish(ctx context.Context, eventType, assetID string, payload interface{}) {
	if p.events == nil {
		return
	}
	p.events.Publish(ctx, eventType, assetID, payload)
}
