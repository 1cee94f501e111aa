package app

import (
	"context"
	"fmt"
	"sync"

	"video-service/ddd/application/dto"
	"video-service/ddd/domain/repo"
	"video-service/ddd/domain/service"
	"video-service/pkg/errno"
	"video-service/pkg/logger"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
	StatusNone       = "none"
)

// VideoApp is the application service behind the asset management endpoints:
// it feeds uploaded sources into the pipeline through a bounded queue and
// writes results back to the owning lesson.
type VideoApp interface {
	EnqueueProcess(ctx context.Context, assetID string, req *dto.ProcessVideoRequest) (*dto.ProcessVideoResponse, error)
	Status(ctx context.Context, assetID string) (*dto.LessonStatusResponse, error)
	Delete(ctx context.Context, assetID string) error
}

type processJob struct {
	assetID    string
	sourcePath string
	title      string
}

type VideoAppService struct {
	pipeline *service.PipelineService
	lessons  repo.LessonRepository

	queue    chan processJob
	inflight sync.Map // assetID -> status string
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewVideoApp(pipeline *service.PipelineService, lessons repo.LessonRepository, queueCapacity int) *VideoAppService {
	if queueCapacity <= 0 {
		queueCapacity = 32
	}
	return &VideoAppService{
		pipeline: pipeline,
		lessons:  lessons,
		queue:    make(chan processJob, queueCapacity),
	}
}

// EnqueueProcess validates the request and queues the asset; the pipeline
// runs on the background worker. An asset already queued or processing is
// rejected.
func (a *VideoAppService) EnqueueProcess(ctx context.Context, assetID string, req *dto.ProcessVideoRequest) (*dto.ProcessVideoResponse, error) {
	if assetID == "" || req.SourcePath == "" {
		return nil, fmt.Errorf("%w: asset id and source path are required", errno.ErrInvalidParam)
	}
	if _, err := a.lessons.FindByAssetID(ctx, assetID); err != nil {
		return nil, err
	}
	if _, busy := a.inflight.LoadOrStore(assetID, StatusQueued); busy {
		return nil, fmt.Errorf("%w: asset %s", errno.ErrAssetProcessing, assetID)
	}

	select {
	case a.queue <- processJob{assetID: assetID, sourcePath: req.SourcePath, title: req.Title}:
		return &dto.ProcessVideoResponse{AssetID: assetID, Status: StatusQueued}, nil
	default:
		a.inflight.Delete(assetID)
		return nil, fmt.Errorf("%w: processing queue full", errno.ErrInternalServer)
	}
}

// Status reports the asset's pipeline state, falling back to the persisted
// lesson record for assets not currently in flight.
func (a *VideoAppService) Status(ctx context.Context, assetID string) (*dto.LessonStatusResponse, error) {
	if v, ok := a.inflight.Load(assetID); ok {
		return &dto.LessonStatusResponse{AssetID: assetID, Status: v.(string)}, nil
	}

	lesson, err := a.lessons.FindByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !lesson.HasVideo() {
		return &dto.LessonStatusResponse{AssetID: assetID, Status: StatusNone}, nil
	}
	return &dto.LessonStatusResponse{
		AssetID:         assetID,
		Status:          StatusReady,
		DurationSeconds: lesson.DurationSeconds,
		VideoURL:        lesson.VideoURL,
		ThumbnailURL:    lesson.ThumbnailURL,
		Renditions:      lesson.Renditions,
	}, nil
}

// Delete removes the asset's files, invalidates its key, and clears the
// lesson's video fields. Safe to repeat.
func (a *VideoAppService) Delete(ctx context.Context, assetID string) error {
	if _, busy := a.inflight.Load(assetID); busy {
		return fmt.Errorf("%w: asset %s", errno.ErrAssetProcessing, assetID)
	}

	lesson, err := a.lessons.FindByAssetID(ctx, assetID)
	if err != nil {
		return err
	}
	if err := a.pipeline.DeleteAsset(ctx, assetID, lesson.KeyID); err != nil {
		return err
	}
	return a.lessons.ClearVideo(ctx, assetID)
}

// Name implements task.BackgroundTask.
func (a *VideoAppService) Name() string { return "video-process-worker" }

// Start launches the single queue worker. Renditions inside one job already
// run in parallel; one job at a time keeps engine load predictable.
func (a *VideoAppService) Start(ctx context.Context) error {
	a.wg.Add(1)
	go a.worker(ctx)
	return nil
}

// Stop closes the queue and waits for the in-flight job to finish.
func (a *VideoAppService) Stop() error {
	a.stopOnce.Do(func() { close(a.queue) })
	a.wg.Wait()
	return nil
}

func (a *VideoAppService) worker(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-a.queue:
			if !ok {
				return
			}
			a.runJob(ctx, job)
		}
	}
}

func (a *VideoAppService) runJob(ctx context.Context, job processJob) {
	defer a.inflight.Delete(job.assetID)
	a.inflight.Store(job.assetID, StatusProcessing)

	result, err := a.pipeline.Process(ctx, job.sourcePath, job.assetID, job.title)
	if err != nil {
		logger.Errorf("processing failed asset_id=%s error=%v", job.assetID, err)
		return
	}
	if err := a.lessons.SaveProcessingResult(ctx, result); err != nil {
		logger.Errorf("persist processing result failed asset_id=%s error=%v", job.assetID, err)
	}
}
