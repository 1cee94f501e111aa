package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"video-service/ddd/domain/entity"
	"video-service/ddd/domain/service"
	"video-service/pkg/config"
	"video-service/pkg/errno"
)

type fakeLessonRepo struct {
	lessons map[string]*entity.Lesson
}

func (r *fakeLessonRepo) FindByAssetID(ctx context.Context, assetID string) (*entity.Lesson, error) {
	if l, ok := r.lessons[assetID]; ok {
		return l, nil
	}
	return nil, errno.ErrAssetNotFound
}

func (r *fakeLessonRepo) FindByKeyID(ctx context.Context, keyID string) (*entity.Lesson, error) {
	for _, l := range r.lessons {
		if l.KeyID == keyID {
			return l, nil
		}
	}
	return nil, errno.ErrKeyNotFound
}

func (r *fakeLessonRepo) SaveProcessingResult(ctx context.Context, result *entity.ProcessingResult) error {
	return nil
}

func (r *fakeLessonRepo) ClearVideo(ctx context.Context, assetID string) error { return nil }

type fakeEnrollmentRepo struct {
	enrollments []*entity.Enrollment
	touched     []string
}

func (r *fakeEnrollmentRepo) FindActive(ctx context.Context, studentID, courseID string) (*entity.Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.IsActive {
			return e, nil
		}
	}
	return nil, errno.ErrNoEnrollment
}

func (r *fakeEnrollmentRepo) TouchLastAccessed(ctx context.Context, enrollmentID uint, assetID string, at time.Time) error {
	r.touched = append(r.touched, assetID)
	return nil
}

func accessFixture(enforce bool) (*service.AccessService, *fakeEnrollmentRepo) {
	lessons := &fakeLessonRepo{lessons: map[string]*entity.Lesson{
		"asset-1": {ID: 1, AssetID: "asset-1", CourseID: "course-1", KeyID: "key-1", VideoURL: "/api/video/stream/asset-1"},
	}}
	// Two students, same course, differing only in the active flag.
	enrollments := &fakeEnrollmentRepo{enrollments: []*entity.Enrollment{
		{ID: 10, StudentID: "active-student", CourseID: "course-1", IsActive: true},
		{ID: 11, StudentID: "inactive-student", CourseID: "course-1", IsActive: false},
	}}

	cfg := &config.Config{}
	cfg.Access.EnforceEnrollment = enforce
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "video-service"
	cfg.JWT.PlaybackTokenTTL = time.Hour
	return service.NewAccessService(lessons, enrollments, nil, cfg), enrollments
}

func TestAuthorizeActiveEnrollment(t *testing.T) {
	access, enrollments := accessFixture(true)

	lesson, err := access.AuthorizeByAsset(context.Background(), "active-student", "asset-1")
	if err != nil {
		t.Fatalf("AuthorizeByAsset: %v", err)
	}
	if lesson.AssetID != "asset-1" {
		t.Fatalf("wrong lesson: %q", lesson.AssetID)
	}
	if len(enrollments.touched) != 1 || enrollments.touched[0] != "asset-1" {
		t.Fatalf("access telemetry not recorded: %v", enrollments.touched)
	}
}

func TestAuthorizeInactiveEnrollmentDenied(t *testing.T) {
	access, enrollments := accessFixture(true)

	_, err := access.AuthorizeByAsset(context.Background(), "inactive-student", "asset-1")
	if !errors.Is(err, errno.ErrNoEnrollment) {
		t.Fatalf("expected ErrNoEnrollment, got %v", err)
	}
	if len(enrollments.touched) != 0 {
		t.Fatal("denied request must not touch enrollment telemetry")
	}
}

func TestAuthorizeUnknownStudentDenied(t *testing.T) {
	access, _ := accessFixture(true)
	_, err := access.AuthorizeByAsset(context.Background(), "stranger", "asset-1")
	if !errors.Is(err, errno.ErrNoEnrollment) {
		t.Fatalf("expected ErrNoEnrollment, got %v", err)
	}
}

func TestAuthorizeAnonymousDenied(t *testing.T) {
	access, _ := accessFixture(true)
	_, err := access.AuthorizeByAsset(context.Background(), "", "asset-1")
	if !errors.Is(err, errno.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizeEnforcementDisabled(t *testing.T) {
	access, _ := accessFixture(false)
	if _, err := access.AuthorizeByAsset(context.Background(), "", "asset-1"); err != nil {
		t.Fatalf("open mode must allow anonymous playback: %v", err)
	}
}

func TestAuthorizeByKey(t *testing.T) {
	access, _ := accessFixture(true)

	lesson, err := access.AuthorizeByKey(context.Background(), "active-student", "key-1")
	if err != nil {
		t.Fatalf("AuthorizeByKey: %v", err)
	}
	if lesson.AssetID != "asset-1" {
		t.Fatalf("wrong lesson: %q", lesson.AssetID)
	}

	_, err = access.AuthorizeByKey(context.Background(), "active-student", "unknown-key")
	if !errors.Is(err, errno.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestUnknownAssetNotFound(t *testing.T) {
	access, _ := accessFixture(true)
	_, err := access.AuthorizeByAsset(context.Background(), "active-student", "no-such-asset")
	if !errors.Is(err, errno.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestPlaybackTokenRoundTrip(t *testing.T) {
	access, _ := accessFixture(true)

	token, err := access.IssuePlaybackToken("active-student", "asset-1", "course-1")
	if err != nil {
		t.Fatalf("IssuePlaybackToken: %v", err)
	}

	claims, err := access.VerifyPlaybackToken(token)
	if err != nil {
		t.Fatalf("VerifyPlaybackToken: %v", err)
	}
	if claims.UserID != "active-student" || claims.AssetID != "asset-1" || claims.CourseID != "course-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestPlaybackTokenTamperedRejected(t *testing.T) {
	access, _ := accessFixture(true)

	token, err := access.IssuePlaybackToken("active-student", "asset-1", "course-1")
	if err != nil {
		t.Fatalf("IssuePlaybackToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = access.VerifyPlaybackToken(tampered)
	if !errors.Is(err, errno.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
