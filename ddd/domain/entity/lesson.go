package entity

import "time"

// Lesson is the metadata record for one course lesson and its video asset.
// The video-specific fields are owned by the processing pipeline; the rest
// belongs to the course collaborator.
type Lesson struct {
	ID              uint
	AssetID         string
	CourseID        string
	Title           string
	DurationSeconds float64
	VideoURL        string
	ThumbnailURL    string
	KeyID           string
	Renditions      []string
	IsPublished     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasVideo reports whether processing has completed for this lesson.
func (l *Lesson) HasVideo() bool {
	return l != nil && l.VideoURL != ""
}

// Enrollment links a student to a course. Only active enrollments grant
// access to protected video content.
type Enrollment struct {
	ID                 uint
	StudentID          string
	CourseID           string
	IsActive           bool
	LastAccessedLesson string
	LastAccessedAt     *time.Time
}

// ProcessingResult is what one successful pipeline run produces, written back
// to the lesson record by the application layer.
type ProcessingResult struct {
	AssetID         string    `json:"asset_id"`
	VideoURL        string    `json:"video_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	DurationSeconds float64   `json:"duration_seconds"`
	KeyID           string    `json:"key_id"`
	Renditions      []string  `json:"renditions"`
	CompletedAt     time.Time `json:"completed_at"`
}
