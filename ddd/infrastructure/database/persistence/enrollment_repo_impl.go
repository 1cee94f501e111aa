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

type enrollmentRepositoryImpl struct {
	dao *dao.EnrollmentDAO
	cvt *convertor.LessonConvertor
}

func NewEnrollmentRepository(db *gorm.DB) repo.EnrollmentRepository {
	return &enrollmentRepositoryImpl{dao: dao.NewEnrollmentDAO(db), cvt: convertor.NewLessonConvertor()}
}

func (r *enrollmentRepositoryImpl) FindActive(ctx context.Context, studentID, courseID string) (*entity.Enrollment, error) {
	enrollmentPo, err := r.dao.FindActive(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: student %s course %s", errno.ErrNoEnrollment, studentID, courseID)
		}
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return r.cvt.ToEnrollmentEntity(enrollmentPo), nil
}

func (r *enrollmentRepositoryImpl) TouchLastAccessed(ctx context.Context, enrollmentID uint, assetID string, at time.Time) error {
	if err := r.dao.TouchLastAccessed(ctx, enrollmentID, assetID, at); err != nil {
		return fmt.Errorf("%w: touch enrollment: %v", errno.ErrDatabase, err)
	}
	return nil
}
