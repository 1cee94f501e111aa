package po

import "time"

// Enrollment persistence object. An (student, course) pair may hold at most
// one active row.
type Enrollment struct {
	BaseModel
	StudentID          string     `gorm:"column:student_id;type:varchar(36);index:idx_student_course" json:"student_id"`
	CourseID           string     `gorm:"column:course_id;type:varchar(36);index:idx_student_course" json:"course_id"`
	IsActive           bool       `gorm:"column:is_active;index;default:true" json:"is_active"`
	LastAccessedLesson string     `gorm:"column:last_accessed_lesson;type:varchar(36)" json:"last_accessed_lesson"`
	LastAccessedAt     *time.Time `gorm:"column:last_accessed_at;type:timestamp" json:"last_accessed_at,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
