package http

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-service/ddd/application/app"
	"video-service/ddd/domain/repo"
	"video-service/ddd/domain/service"
	"video-service/pkg/config"
)

// Router wires controllers onto the gin engine.
type Router struct {
	cfg      *config.Config
	access   *service.AccessService
	keys     repo.KeyStore
	videoApp app.VideoApp
}

func NewRouter(cfg *config.Config, access *service.AccessService, keys repo.KeyStore, videoApp app.VideoApp) *Router {
	return &Router{cfg: cfg, access: access, keys: keys, videoApp: videoApp}
}

// SetupMiddleware installs the shared middleware chain.
func (r *Router) SetupMiddleware(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(CORS(r.cfg))
	engine.Use(Identity(r.cfg))
}

// SetupRoutes registers all endpoints.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	videoController := NewVideoController(r.access, r.keys, r.cfg)
	lessonController := NewLessonController(r.videoApp)

	api := engine.Group(r.cfg.Access.APIBase)
	{
		api.GET("/stream/:asset_id", videoController.GetMasterManifest)
		api.GET("/stream/:asset_id/:quality/index.m3u8", videoController.GetSubManifest)
		api.GET("/segment/:asset_id/:quality/:segment_name", videoController.GetSegment)
		api.GET("/key/:key_id", videoController.GetKey)
		api.GET("/thumbnail/:asset_id", videoController.GetThumbnail)
		api.POST("/token/:asset_id", videoController.IssuePlaybackToken)

		lessons := api.Group("/lessons")
		{
			lessons.POST("/:asset_id/process", lessonController.ProcessVideo)
			lessons.GET("/:asset_id/status", lessonController.GetStatus)
			lessons.DELETE("/:asset_id", lessonController.DeleteVideo)
		}
	}

	// Static delivery mode: segment files bypass the gateway and are served
	// directly; playlists and keys always stay behind authorization.
	if !r.cfg.Access.ServeSegmentsViaGateway {
		engine.Static("/storage/videos", filepath.Join(r.cfg.Storage.StorageRoot, "videos"))
	}

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "video-service",
		})
	})
}
