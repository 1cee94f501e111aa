package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"video-service/ddd/infrastructure/database/po"
)

type LessonDAO struct{ db *gorm.DB }

func NewLessonDAO(db *gorm.DB) *LessonDAO { return &LessonDAO{db: db} }

func (d *LessonDAO) FindByAssetID(ctx context.Context, assetID string) (*po.Lesson, error) {
	var lesson po.Lesson
	if err := d.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (d *LessonDAO) FindByKeyID(ctx context.Context, keyID string) (*po.Lesson, error) {
	var lesson po.Lesson
	if err := d.db.WithContext(ctx).Where("key_id = ?", keyID).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (d *LessonDAO) UpdateVideoFields(ctx context.Context, assetID string, fields map[string]interface{}) error {
	return d.db.WithContext(ctx).Model(&po.Lesson{}).Where("asset_id = ?", assetID).Updates(fields).Error
}

func (d *LessonDAO) ClearVideoFields(ctx context.Context, assetID string) error {
	return d.db.WithContext(ctx).Model(&po.Lesson{}).Where("asset_id = ?", assetID).Updates(map[string]interface{}{
		"video_url":        "",
		"thumbnail_url":    "",
		"key_id":           "",
		"renditions_json":  "",
		"duration_seconds": 0,
		"updated_at":       time.Now().UTC(),
	}).Error
}
