package po

import "time"

// BaseModel is the shared gorm column set.
type BaseModel struct {
	Id        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Lesson persistence object.
type Lesson struct {
	BaseModel
	AssetID         string  `gorm:"column:asset_id;type:varchar(36);uniqueIndex" json:"asset_id"`
	CourseID        string  `gorm:"column:course_id;type:varchar(36);index" json:"course_id"`
	Title           string  `gorm:"column:title;type:varchar(255)" json:"title"`
	DurationSeconds float64 `gorm:"column:duration_seconds;type:double;default:0" json:"duration_seconds"`
	VideoURL        string  `gorm:"column:video_url;type:varchar(512)" json:"video_url"`
	ThumbnailURL    string  `gorm:"column:thumbnail_url;type:varchar(512)" json:"thumbnail_url"`
	KeyID           string  `gorm:"column:key_id;type:varchar(36);index" json:"key_id"`
	RenditionsJSON  string  `gorm:"column:renditions_json;type:varchar(255)" json:"renditions_json"`
	IsPublished     bool    `gorm:"column:is_published;default:false" json:"is_published"`
}

func (Lesson) TableName() string {
	return "lessons"
}
