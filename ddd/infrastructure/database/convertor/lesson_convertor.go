package convertor

import (
	"strings"

	"video-service/ddd/domain/entity"
	"video-service/ddd/infrastructure/database/po"
)

type LessonConvertor struct{}

func NewLessonConvertor() *LessonConvertor { return &LessonConvertor{} }

func (c *LessonConvertor) ToEntity(p *po.Lesson) *entity.Lesson {
	if p == nil {
		return nil
	}
	var renditions []string
	if p.RenditionsJSON != "" {
		renditions = strings.Split(p.RenditionsJSON, ",")
	}
	return &entity.Lesson{
		ID:              p.Id,
		AssetID:         p.AssetID,
		CourseID:        p.CourseID,
		Title:           p.Title,
		DurationSeconds: p.DurationSeconds,
		VideoURL:        p.VideoURL,
		ThumbnailURL:    p.ThumbnailURL,
		KeyID:           p.KeyID,
		Renditions:      renditions,
		IsPublished:     p.IsPublished,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (c *LessonConvertor) ToEnrollmentEntity(p *po.Enrollment) *entity.Enrollment {
	if p == nil {
		return nil
	}
	return &entity.Enrollment{
		ID:                 p.Id,
		StudentID:          p.StudentID,
		CourseID:           p.CourseID,
		IsActive:           p.IsActive,
		LastAccessedLesson: p.LastAccessedLesson,
		LastAccessedAt:     p.LastAccessedAt,
	}
}

// RenditionsColumn encodes the rendition name list for storage.
func RenditionsColumn(renditions []string) string {
	return strings.Join(renditions, ",")
}
