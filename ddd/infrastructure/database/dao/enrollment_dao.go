package dao

import (
	"context"
	"time"

	"gorm.io/gorm"

	"video-service/ddd/infrastructure/database/po"
)

type EnrollmentDAO struct{ db *gorm.DB }

func NewEnrollmentDAO(db *gorm.DB) *EnrollmentDAO { return &EnrollmentDAO{db: db} }

func (d *EnrollmentDAO) FindActive(ctx context.Context, studentID, courseID string) (*po.Enrollment, error) {
	var enrollment po.Enrollment
	err := d.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (d *EnrollmentDAO) TouchLastAccessed(ctx context.Context, id uint, assetID string, at time.Time) error {
	return d.db.WithContext(ctx).Model(&po.Enrollment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_accessed_lesson": assetID,
		"last_accessed_at":     at,
	}).Error
}
