package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"video-service/ddd/application/dto"
	"video-service/ddd/domain/entity"
	"video-service/ddd/domain/repo"
	"video-service/ddd/domain/service"
	"video-service/ddd/domain/vo"
	"video-service/pkg/config"
	"video-service/pkg/errno"
	"video-service/pkg/metrics"
	"video-service/pkg/restapi"
)

// VideoController is the delivery gateway: every playlist, segment, and key
// request passes through its authorization check before any bytes leave
// disk. Thumbnails are the only unauthenticated delivery route.
type VideoController struct {
	access *service.AccessService
	keys   repo.KeyStore

	storageRoot      string
	apiBase          string
	segmentsViaGW    bool
	allowQueryToken  bool
	playbackTokenTTL int
}

func NewVideoController(access *service.AccessService, keys repo.KeyStore, cfg *config.Config) *VideoController {
	return &VideoController{
		access:           access,
		keys:             keys,
		storageRoot:      cfg.Storage.StorageRoot,
		apiBase:          cfg.Access.APIBase,
		segmentsViaGW:    cfg.Access.ServeSegmentsViaGateway,
		allowQueryToken:  cfg.JWT.AllowQueryToken,
		playbackTokenTTL: int(cfg.JWT.PlaybackTokenTTL.Seconds()),
	}
}

func (c *VideoController) assetDir(assetID string) string {
	return filepath.Join(c.storageRoot, "videos", assetID)
}

// authorizeAsset resolves the caller identity (session or playback token)
// and runs the enrollment check for assetID.
func (c *VideoController) authorizeAsset(ctx *gin.Context, assetID string) (*entity.Lesson, error) {
	uid := userID(ctx)
	if uid == "" && c.allowQueryToken {
		if tokenString := ctx.Query("token"); tokenString != "" {
			claims, err := c.access.VerifyPlaybackToken(tokenString)
			if err != nil {
				return nil, err
			}
			if claims.AssetID != assetID {
				return nil, fmt.Errorf("%w: token not valid for this asset", errno.ErrAccessDenied)
			}
			uid = claims.UserID
		}
	}
	return c.access.AuthorizeByAsset(ctx.Request.Context(), uid, assetID)
}

// GetMasterManifest serves the variant playlist with sub-manifest references
// rewritten to gateway delivery URLs.
func (c *VideoController) GetMasterManifest(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	lesson, err := c.authorizeAsset(ctx, assetID)
	if err != nil {
		metrics.DeliveryRequests.WithLabelValues("master", "denied").Inc()
		restapi.Failed(ctx, err)
		return
	}
	if !lesson.HasVideo() {
		metrics.DeliveryRequests.WithLabelValues("master", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: asset %s has no processed video", errno.ErrAssetNotFound, assetID))
		return
	}

	raw, err := os.ReadFile(filepath.Join(c.assetDir(assetID), "master.m3u8"))
	if err != nil {
		metrics.DeliveryRequests.WithLabelValues("master", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: master manifest missing", errno.ErrAssetNotFound))
		return
	}

	body := service.RewriteVariantReferences(string(raw), c.apiBase+"/stream/"+assetID)
	metrics.DeliveryRequests.WithLabelValues("master", "ok").Inc()
	c.setManifestHeaders(ctx)
	ctx.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(body))
}

// GetSubManifest serves one rendition's playlist. Segment references are
// rewritten to gateway URLs or to the static storage prefix depending on the
// deployment mode.
func (c *VideoController) GetSubManifest(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	quality := ctx.Param("quality")
	if !vo.ValidQualityName(quality) {
		restapi.Failed(ctx, fmt.Errorf("%w: %s", errno.ErrQualityUnknown, quality))
		return
	}
	if _, err := c.authorizeAsset(ctx, assetID); err != nil {
		metrics.DeliveryRequests.WithLabelValues("variant", "denied").Inc()
		restapi.Failed(ctx, err)
		return
	}

	raw, err := os.ReadFile(filepath.Join(c.assetDir(assetID), quality, "index.m3u8"))
	if err != nil {
		metrics.DeliveryRequests.WithLabelValues("variant", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: quality %s", errno.ErrQualityUnknown, quality))
		return
	}

	var prefix string
	if c.segmentsViaGW {
		prefix = c.apiBase + "/segment/" + assetID + "/" + quality
	} else {
		prefix = "/storage/videos/" + assetID + "/" + quality
	}
	body := service.RewriteSegmentReferences(string(raw), prefix)

	metrics.DeliveryRequests.WithLabelValues("variant", "ok").Inc()
	c.setManifestHeaders(ctx)
	ctx.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(body))
}

// GetSegment serves one media segment after validating the requested name
// against the strict segment pattern. Path traversal never reaches the
// filesystem.
func (c *VideoController) GetSegment(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	quality := ctx.Param("quality")
	segmentName := ctx.Param("segment_name")

	if !vo.ValidQualityName(quality) {
		restapi.Failed(ctx, fmt.Errorf("%w: %s", errno.ErrQualityUnknown, quality))
		return
	}
	if !service.SegmentNameRe.MatchString(segmentName) {
		metrics.DeliveryRequests.WithLabelValues("segment", "bad_name").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: %s", errno.ErrSegmentNameBad, segmentName))
		return
	}
	if _, err := c.authorizeAsset(ctx, assetID); err != nil {
		metrics.DeliveryRequests.WithLabelValues("segment", "denied").Inc()
		restapi.Failed(ctx, err)
		return
	}

	path := filepath.Join(c.assetDir(assetID), quality, segmentName)
	if _, err := os.Stat(path); err != nil {
		metrics.DeliveryRequests.WithLabelValues("segment", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: %s", errno.ErrSegmentNotFound, segmentName))
		return
	}

	metrics.DeliveryRequests.WithLabelValues("segment", "ok").Inc()
	ctx.Header("Content-Type", "video/mp2t")
	ctx.Header("Cache-Control", "private, max-age=3600")
	ctx.File(path)
}

// GetKey serves raw AES key bytes. The strictest header policy of any route:
// no caching anywhere, no framing, no referrer leakage.
func (c *VideoController) GetKey(ctx *gin.Context) {
	keyID := ctx.Param("key_id")

	uid := userID(ctx)
	var tokenAssetID string
	if uid == "" && c.allowQueryToken {
		if tokenString := ctx.Query("token"); tokenString != "" {
			claims, err := c.access.VerifyPlaybackToken(tokenString)
			if err != nil {
				metrics.DeliveryRequests.WithLabelValues("key", "denied").Inc()
				restapi.Failed(ctx, err)
				return
			}
			uid = claims.UserID
			tokenAssetID = claims.AssetID
		}
	}

	lesson, err := c.access.AuthorizeByKey(ctx.Request.Context(), uid, keyID)
	if err != nil {
		metrics.DeliveryRequests.WithLabelValues("key", "denied").Inc()
		restapi.Failed(ctx, err)
		return
	}
	if tokenAssetID != "" && tokenAssetID != lesson.AssetID {
		metrics.DeliveryRequests.WithLabelValues("key", "denied").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: token not valid for this asset", errno.ErrAccessDenied))
		return
	}

	key, err := c.keys.Load(keyID)
	if err != nil {
		metrics.DeliveryRequests.WithLabelValues("key", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: key %s", errno.ErrKeyNotFound, keyID))
		return
	}

	metrics.DeliveryRequests.WithLabelValues("key", "ok").Inc()
	ctx.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	ctx.Header("Pragma", "no-cache")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Data(http.StatusOK, "application/octet-stream", key)
}

// GetThumbnail serves the poster frame. Thumbnails carry no protected
// content, so the route skips the enrollment check and is the one
// long-cacheable delivery path.
func (c *VideoController) GetThumbnail(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	path := filepath.Join(c.assetDir(assetID), "thumbnail.webp")
	if _, err := os.Stat(path); err != nil {
		metrics.DeliveryRequests.WithLabelValues("thumbnail", "not_found").Inc()
		restapi.Failed(ctx, fmt.Errorf("%w: thumbnail for asset %s", errno.ErrNotFound, assetID))
		return
	}

	metrics.DeliveryRequests.WithLabelValues("thumbnail", "ok").Inc()
	ctx.Header("Content-Type", "image/webp")
	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.File(path)
}

// IssuePlaybackToken mints a short-lived token for the requested asset once
// the session identity passes the enrollment check.
func (c *VideoController) IssuePlaybackToken(ctx *gin.Context) {
	assetID := ctx.Param("asset_id")
	uid := userID(ctx)
	if uid == "" {
		restapi.Failed(ctx, fmt.Errorf("%w: session required", errno.ErrUnauthorized))
		return
	}

	lesson, err := c.access.AuthorizeByAsset(ctx.Request.Context(), uid, assetID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	token, err := c.access.IssuePlaybackToken(uid, assetID, lesson.CourseID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, dto.PlaybackTokenResponse{
		VideoURL:  c.apiBase + "/stream/" + assetID,
		Token:     token,
		ExpiresIn: c.playbackTokenTTL,
	})
}

func (c *VideoController) setManifestHeaders(ctx *gin.Context) {
	ctx.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Header("Pragma", "no-cache")
}
