package repo

import (
	"context"
	"time"

	"video-service/ddd/domain/entity"
)

// LessonRepository resolves lesson metadata for the gateway and persists
// pipeline results. Implementations return errno.ErrAssetNotFound when no
// record exists.
type LessonRepository interface {
	FindByAssetID(ctx context.Context, assetID string) (*entity.Lesson, error)
	FindByKeyID(ctx context.Context, keyID string) (*entity.Lesson, error)
	SaveProcessingResult(ctx context.Context, result *entity.ProcessingResult) error
	ClearVideo(ctx context.Context, assetID string) error
}

// EnrollmentRepository answers the single authorization question the gateway
// asks: does this student hold an active enrollment in this course.
type EnrollmentRepository interface {
	FindActive(ctx context.Context, studentID, courseID string) (*entity.Enrollment, error)
	TouchLastAccessed(ctx context.Context, enrollmentID uint, assetID string, at time.Time) error
}

// KeyStore persists raw AES key bytes privately, addressable only by key id.
type KeyStore interface {
	Save(keyID string, key []byte) (string, error)
	Load(keyID string) ([]byte, error)
	Delete(keyID string) error
	// Path returns where the key for keyID lives (or would live); needed by
	// the engine key-info descriptor.
	Path(keyID string) string
}
