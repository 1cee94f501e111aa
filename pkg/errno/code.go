package errno

// code=0 success
// code=4xx client errors
// code=5xx server errors
// code=2xxxx business errors

type Errno struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Authentication required"}
	ErrAccessDenied = &Errno{Code: 403, Message: "Access denied"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}

	// Pipeline errors.
	ErrUploadIllegal   = &Errno{Code: 20004, Message: "Upload file is illegal"}
	ErrProbeFailed     = &Errno{Code: 20030, Message: "Source probe failed"}
	ErrNoVideoStream   = &Errno{Code: 20031, Message: "Source has no video stream"}
	ErrEngineFailed    = &Errno{Code: 20032, Message: "Transcode engine failed"}
	ErrStorageFailed   = &Errno{Code: 20033, Message: "Storage write failed"}
	ErrKeyNotFound     = &Errno{Code: 20034, Message: "Encryption key not found"}
	ErrAssetNotFound   = &Errno{Code: 20035, Message: "Video asset not found"}
	ErrSegmentNotFound = &Errno{Code: 20036, Message: "Segment not found"}
	ErrSegmentNameBad  = &Errno{Code: 20037, Message: "Segment name is illegal"}
	ErrAssetProcessing = &Errno{Code: 20038, Message: "Video asset is still processing"}
	ErrNoEnrollment    = &Errno{Code: 20039, Message: "No active enrollment for this course"}
	ErrTokenInvalid    = &Errno{Code: 20040, Message: "Playback token is invalid or expired"}
	ErrQualityUnknown  = &Errno{Code: 20041, Message: "Unknown rendition quality"}
)
