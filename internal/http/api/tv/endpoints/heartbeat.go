package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// POST /api/devices/:device_id/heartbeat
func (t *TvController) heartbeatByDeviceID(ctx *gin.Context) (any, *api.APIError) {
	screen, err := t.store.GetScreenByDeviceID(ctx.Param("device_id"))
	if err != nil {
		log.Warn().Str("device_id", ctx.Param("device_id")).Msg("heartbeat from unknown device")
		return nil, api.FromStore(err, "screen")
	}
	return t.recordHeartbeat(ctx, screen)
}

// POST /api/devices/heartbeat (device token)
func (t *TvController) heartbeatByToken(ctx *gin.Context) (any, *api.APIError) {
	screen, ok := middleware.GetCurrentScreen(ctx)
	if !ok {
		return nil, api.Unauthorized("missing device token")
	}
	return t.recordHeartbeat(ctx, *screen)
}

func (t *TvController) recordHeartbeat(ctx *gin.Context, screen model.Screen) (any, *api.APIError) {
	var req packets.HeartbeatRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid heartbeat", Details: err.Error()}
		}
	}
	if req.Status == "" {
		req.Status = model.DeviceOnline
	}
	if req.IPAddress == nil {
		ip := ctx.ClientIP()
		req.IPAddress = &ip
	}

	metadata, err := json.Marshal(map[string]any{
		"system_info":  rawOrNil(req.SystemInfo),
		"display_info": rawOrNil(req.DisplayInfo),
		"reported_at":  req.Timestamp,
	})
	if err != nil {
		return nil, api.Internal(err)
	}

	if err := t.store.RecordHeartbeat(screen.ID, model.Heartbeat{
		Status:          req.Status,
		IPAddress:       req.IPAddress,
		FirmwareVersion: req.FirmwareVersion,
		Metadata:        metadata,
	}); err != nil {
		return nil, api.FromStore(err, "screen")
	}

	pending, err := t.store.CountPendingNotifications(screen.ID)
	if err != nil {
		// the heartbeat itself was stored
		log.Warn().Err(err).Str("screen_id", screen.ID).Msg("could not count pending notifications")
	}

	log.Debug().Str("screen_id", screen.ID).Str("status", req.Status).Msg("heartbeat recorded")
	return packets.HeartbeatResponse{
		Success:         true,
		ScreenID:        screen.ID,
		SyncRecommended: pending > 0,
		ServerTime:      t.now().UTC().Format(time.RFC3339),
	}, nil
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// GET /api/devices/:device_id/heartbeat
func (t *TvController) heartbeatStatus(ctx *gin.Context) (any, *api.APIError) {
	screen, err := t.store.GetScreenByDeviceID(ctx.Param("device_id"))
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	secs, stale := screen.HeartbeatAge(t.now())
	return packets.HeartbeatStatusResponse{
		ScreenID:              screen.ID,
		DeviceStatus:          screen.DeviceStatus,
		LastHeartbeatAt:       screen.LastHeartbeatAt,
		SecondsSinceHeartbeat: secs,
		IsStale:               stale,
	}, nil
}
