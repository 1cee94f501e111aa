package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"video-service/ddd/application/app"
	"video-service/ddd/application/dto"
	"video-service/pkg/errno"
	"video-service/pkg/restapi"
)

// LessonController covers the management endpoints: enqueue processing,
// poll status, delete an asset.
type LessonController struct {
	videoApp app.VideoApp
}

func NewLessonController(videoApp app.VideoApp) *LessonController {
	return &LessonController{videoApp: videoApp}
}

func (c *LessonController) ProcessVideo(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	var req dto.ProcessVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, fmt.Errorf("%w: %v", errno.ErrInvalidParam, err))
		return
	}

	resp, err := c.videoApp.EnqueueProcess(ctx.Request.Context(), assetID, &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

func (c *LessonController) GetStatus(ctx *gin.Context) {
	resp, err := c.videoApp.Status(ctx.Request.Context(), ctx.Param("asset_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

func (c *LessonController) DeleteVideo(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	if err := c.videoApp.Delete(ctx.Request.Context(), assetID); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, gin.H{"asset_id": assetID, "deleted": true})
}
