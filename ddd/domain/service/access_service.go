package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"video-service/ddd/domain/entity"
	"video-service/ddd/domain/repo"
	"video-service/pkg/config"
	"video-service/pkg/errno"
	"video-service/pkg/logger"
)

// AuthCache remembers positive authorization decisions for a short window so
// segment-heavy playback does not hit the database on every request. A miss
// is never an error; implementations may be nil'd out entirely.
type AuthCache interface {
	GetDecision(ctx context.Context, userID, courseID string) (allowed bool, found bool)
	SetDecision(ctx context.Context, userID, courseID string, allowed bool)
}

// PlaybackClaims are the signed claims of a short-lived playback token.
type PlaybackClaims struct {
	UserID   string `json:"uid"`
	AssetID  string `json:"aid"`
	CourseID string `json:"cid"`
	jwt.RegisteredClaims
}

// AccessService is the authorization gate in front of every delivery route:
// it resolves the owning lesson, checks the caller's active enrollment in
// the lesson's course, and records access telemetry.
type AccessService struct {
	lessons     repo.LessonRepository
	enrollments repo.EnrollmentRepository
	cache       AuthCache

	enforceEnrollment bool
	jwtSecret         []byte
	jwtIssuer         string
	tokenTTL          time.Duration
}

func NewAccessService(lessons repo.LessonRepository, enrollments repo.EnrollmentRepository, cache AuthCache, cfg *config.Config) *AccessService {
	return &AccessService{
		lessons:           lessons,
		enrollments:       enrollments,
		cache:             cache,
		enforceEnrollment: cfg.Access.EnforceEnrollment,
		jwtSecret:         []byte(cfg.JWT.Secret),
		jwtIssuer:         cfg.JWT.Issuer,
		tokenTTL:          cfg.JWT.PlaybackTokenTTL,
	}
}

// AuthorizeByAsset resolves the lesson owning assetID and verifies userID may
// play it. Returns errno.ErrAssetNotFound when no lesson owns the asset and
// errno.ErrNoEnrollment when the caller holds no active enrollment.
func (s *AccessService) AuthorizeByAsset(ctx context.Context, userID, assetID string) (*entity.Lesson, error) {
	lesson, err := s.lessons.FindByAssetID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// AuthorizeByKey is AuthorizeByAsset addressed by key id: key requests carry
// only the key id, so the owning lesson is resolved through it.
func (s *AccessService) AuthorizeByKey(ctx context.Context, userID, keyID string) (*entity.Lesson, error) {
	lesson, err := s.lessons.FindByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *AccessService) authorize(ctx context.Context, userID string, lesson *entity.Lesson) error {
	if !s.enforceEnrollment {
		return nil
	}
	if userID == "" {
		return fmt.Errorf("%w: missing identity", errno.ErrUnauthorized)
	}

	if s.cache != nil {
		if allowed, found := s.cache.GetDecision(ctx, userID, lesson.CourseID); found {
			if allowed {
				return nil
			}
			return fmt.Errorf("%w: no active enrollment in course %s", errno.ErrNoEnrollment, lesson.CourseID)
		}
	}

	enrollment, err := s.enrollments.FindActive(ctx, userID, lesson.CourseID)
	if err != nil {
		if s.cache != nil {
			s.cache.SetDecision(ctx, userID, lesson.CourseID, false)
		}
		return err
	}

	if s.cache != nil {
		s.cache.SetDecision(ctx, userID, lesson.CourseID, true)
	}
	s.touch(ctx, enrollment, lesson.AssetID)
	return nil
}

// touch records which lesson the student last watched. Telemetry only; a
// write failure never breaks playback.
func (s *AccessService) touch(ctx context.Context, enrollment *entity.Enrollment, assetID string) {
	if err := s.enrollments.TouchLastAccessed(ctx, enrollment.ID, assetID, time.Now().UTC()); err != nil {
		logger.Warnf("touch enrollment failed enrollment_id=%d error=%v", enrollment.ID, err)
	}
}

// IssuePlaybackToken signs a short-lived token binding userID to a single
// asset, for players that cannot attach the session header to media requests.
func (s *AccessService) IssuePlaybackToken(userID, assetID, courseID string) (string, error) {
	now := time.Now()
	claims := PlaybackClaims{
		UserID:   userID,
		AssetID:  assetID,
		CourseID: courseID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("%w: sign playback token: %v", errno.ErrInternalServer, err)
	}
	return signed, nil
}

// VerifyPlaybackToken parses and validates a playback token, rejecting
// expired tokens and any signing method other than HS256.
func (s *AccessService) VerifyPlaybackToken(tokenString string) (*PlaybackClaims, error) {
	claims := &PlaybackClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(s.jwtIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errno.ErrTokenInvalid, err)
	}
	return claims, nil
}
