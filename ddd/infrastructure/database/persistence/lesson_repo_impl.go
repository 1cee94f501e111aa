package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"video-service/ddd/domain/entity"
	"video-service/ddd/domain/repo"
	"video-service/ddd/infrastructure/database/convertor"
	"video-service/ddd/infrastructure/database/dao"
	"video-service/pkg/errno"
)

type lessonRepositoryImpl struct {
	dao *dao.LessonDAO
	cvt *convertor.LessonConvertor
}

func NewLessonRepository(db *gorm.DB) repo.LessonRepository {
	return &lessonRepositoryImpl{dao: dao.NewLessonDAO(db), cvt: convertor.NewLessonConvertor()}
}

func (r *lessonRepositoryImpl) FindByAssetID(ctx context.Context, assetID string) (*entity.Lesson, error) {
	lessonPo, err := r.dao.FindByAssetID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: asset %s", errno.ErrAssetNotFound, assetID)
		}
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return r.cvt.ToEntity(lessonPo), nil
}

func (r *lessonRepositoryImpl) FindByKeyID(ctx context.Context, keyID string) (*entity.Lesson, error) {
	lessonPo, err := r.dao.FindByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: key %s", errno.ErrKeyNotFound, keyID)
		}
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return r.cvt.ToEntity(lessonPo), nil
}

func (r *lessonRepositoryImpl) SaveProcessingResult(ctx context.Context, result *entity.ProcessingResult) error {
	err := r.dao.UpdateVideoFields(ctx, result.AssetID, map[string]interface{}{
		"video_url":        result.VideoURL,
		"thumbnail_url":    result.ThumbnailURL,
		"key_id":           result.KeyID,
		"renditions_json":  convertor.RenditionsColumn(result.Renditions),
		"duration_seconds": result.DurationSeconds,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: save processing result: %v", errno.ErrDatabase, err)
	}
	return nil
}

func (r *lessonRepositoryImpl) ClearVideo(ctx context.Context, assetID string) error {
	if err := r.dao.ClearVideoFields(ctx, assetID); err != nil {
		return fmt.Errorf("%w: clear video fields: %v", errno.ErrDatabase, err)
	}
	return nil
}
