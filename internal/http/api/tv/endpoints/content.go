package endpoints

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/metrics"
	"github.com/Nixie-Tech-LLC/mesophy/internal/schedule"
)

// ContentResolver answers "what should this screen show now".
type ContentResolver interface {
	Resolve(screenID string) (*schedule.Result, error)
}

type ContentController struct {
	store    db.Store
	resolver ContentResolver
}

func newContentController(store db.Store, resolver ContentResolver) *ContentController {
	return &ContentController{store: store, resolver: resolver}
}

// ContentModule mounts the unauthenticated player reads under /screens/:id.
func ContentModule(store db.Store, resolver ContentResolver) api.Module {
	ctl := newContentController(store, resolver)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/screens/:id/current-content", ctl.currentContent)
		c.PUBLIC_GET("/screens/:id/notifications", ctl.listNotifications)
		c.PUBLIC_POST("/screens/:id/notifications/ack", ctl.ackNotifications)
	})
}

// weakETag hashes the response body.
func weakETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:12])
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

// GET /api/screens/:id/current-content
func (c *ContentController) currentContent(ctx *gin.Context) (any, *api.APIError) {
	screenID := ctx.Param("id")
	result, err := c.resolver.Resolve(screenID)
	if err != nil {
		metrics.ContentResolutions.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("screen_id", screenID).Msg("failed to resolve current content")
		return nil, api.FromStore(err, "screen")
	}
	if result.ScheduleID == nil {
		metrics.ContentResolutions.WithLabelValues("empty").Inc()
	} else {
		metrics.ContentResolutions.WithLabelValues("scheduled").Inc()
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, api.Internal(err)
	}
	etag := weakETag(body)
	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "no-cache")

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.AbortWithStatus(http.StatusNotModified)
		return nil, nil
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
	return nil, nil
}

// GET /api/screens/:id/notifications[?limit=]
func (c *ContentController) listNotifications(ctx *gin.Context) (any, *api.APIError) {
	screen, err := c.store.GetScreenByID(ctx.Param("id"))
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	notifications, err := c.store.ListPendingNotifications(screen.ID, queryLimit(ctx, 20, 100))
	if err != nil {
		return nil, api.FromStore(err, "notifications")
	}
	return packets.NotificationsResponse{
		ScreenID:      screen.ID,
		Notifications: notifications,
		Count:         len(notifications),
	}, nil
}

// POST /api/screens/:id/notifications/ack {ids}
func (c *ContentController) ackNotifications(ctx *gin.Context) (any, *api.APIError) {
	var req packets.AckNotificationsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid request body", Details: err.Error()}
	}
	screen, err := c.store.GetScreenByID(ctx.Param("id"))
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	n, err := c.store.MarkNotificationsProcessed(screen.ID, req.IDs)
	if err != nil {
		return nil, api.FromStore(err, "notifications")
	}
	log.Debug().Str("screen_id", screen.ID).Int64("acknowledged", n).Msg("notifications acknowledged")
	return packets.AckResponse{Success: true, Acknowledged: n}, nil
}
