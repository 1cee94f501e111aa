package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"video-service/pkg/errno"
)

// Response is the uniform JSON envelope for API endpoints that return data
// rather than media bytes.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed writes an error envelope, mapping errno values to HTTP statuses.
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = errno.ErrInternalServer
	}
	ctx.JSON(httpStatus(e), Response{
		Code:    e.Code,
		Message: e.Message,
	})
}

func httpStatus(e *errno.Errno) int {
	switch e.Code {
	case errno.ErrInvalidParam.Code, errno.ErrUploadIllegal.Code, errno.ErrSegmentNameBad.Code, errno.ErrQualityUnknown.Code:
		return http.StatusBadRequest
	case errno.ErrUnauthorized.Code, errno.ErrTokenInvalid.Code:
		return http.StatusUnauthorized
	case errno.ErrAccessDenied.Code, errno.ErrNoEnrollment.Code:
		return http.StatusForbidden
	case errno.ErrNotFound.Code, errno.ErrAssetNotFound.Code, errno.ErrKeyNotFound.Code, errno.ErrSegmentNotFound.Code:
		return http.StatusNotFound
	case errno.ErrAssetProcessing.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
