package dto

// ProcessVideoRequest enqueues processing of an already-uploaded source file.
type ProcessVideoRequest struct {
	SourcePath string `json:"source_path" binding:"required"`
	Title      string `json:"title"`
}

// ProcessVideoResponse acknowledges an accepted pipeline job.
type ProcessVideoResponse struct {
	AssetID string `json:"asset_id"`
	Status  string `json:"status"`
}

// LessonStatusResponse reports a lesson's video state to callers polling
// for pipeline completion.
type LessonStatusResponse struct {
	AssetID         string   `json:"asset_id"`
	Status          string   `json:"status"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	VideoURL        string   `json:"video_url,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	Renditions      []string `json:"renditions,omitempty"`
}

// PlaybackTokenResponse carries a freshly signed playback token together
// with the canonical manifest URL it unlocks.
type PlaybackTokenResponse struct {
	VideoURL  string `json:"video_url"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
