package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
	"github.com/Nixie-Tech-LLC/mesophy/internal/redis"
)

// PairingStore is the slice of the pairing code store devices use.
type PairingStore interface {
	Create(ctx context.Context, s redis.PairingSession) (redis.PairingSession, error)
	Get(ctx context.Context, code string) (*redis.PairingSession, error)
	Consume(ctx context.Context, code string) error
}

type TvController struct {
	store   db.Store
	pairing PairingStore
	polling *polling.Config
	siteURL string
	now     func() time.Time
}

func newTvController(store db.Store, pairing PairingStore, pollingConfig *polling.Config, siteURL string) *TvController {
	return &TvController{
		store:   store,
		pairing: pairing,
		polling: pollingConfig,
		siteURL: strings.TrimRight(siteURL, "/"),
		now:     time.Now,
	}
}

// DeviceModule mounts the /devices endpoints players call.
func DeviceModule(store db.Store, pairing PairingStore, pollingConfig *polling.Config, siteURL string) api.Module {
	ctl := newTvController(store, pairing, pollingConfig, siteURL)
	return api.ModuleFunc(func(c *api.Controller) {
		// pairing
		c.PUBLIC_POST("/devices/generate-code", ctl.generateCode)
		c.PUBLIC_GET("/devices/check-pairing/:code", ctl.checkPairing)

		// heartbeat by device id
		c.PUBLIC_POST("/devices/:device_id/heartbeat", ctl.heartbeatByDeviceID)
		c.PUBLIC_GET("/devices/:device_id/heartbeat", ctl.heartbeatStatus)

		// device token
		paired := c.With(middleware.DeviceAuth(store))
		paired.PUBLIC_POST("/devices/heartbeat", ctl.heartbeatByToken)
		paired.PUBLIC_GET("/devices/sync", ctl.sync)
	})
}

// QRCodeURL is where the dashboard claims a code.
func QRCodeURL(siteURL, code string) string {
	return siteURL + "/dashboard/screens/pair?code=" + url.QueryEscape(code)
}

// POST /api/devices/generate-code
func (t *TvController) generateCode(ctx *gin.Context) (any, *api.APIError) {
	var req packets.GenerateCodeRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid request body", Details: err.Error()}
		}
	}

	if req.DeviceID == "" {
		req.DeviceID = uuid.NewString()
	} else if screen, err := t.store.GetScreenByDeviceID(req.DeviceID); err == nil {
		log.Warn().Str("device_id", req.DeviceID).Str("screen_id", screen.ID).Msg("device is already paired")
		return nil, api.Conflict("device is already paired")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, api.FromStore(err, "screen")
	}
	if req.DeviceIP == "" {
		req.DeviceIP = ctx.ClientIP()
	}

	session, err := t.pairing.Create(ctx, redis.PairingSession{
		DeviceID:   req.DeviceID,
		DeviceInfo: req.DeviceInfo,
		DeviceIP:   req.DeviceIP,
	})
	if err != nil {
		log.Error().Err(err).Str("device_id", req.DeviceID).Msg("failed to create pairing code")
		return nil, api.Unavailable("could not create pairing code")
	}

	log.Info().Str("device_id", session.DeviceID).Str("code", session.Code).Msg("pairing code issued")
	return packets.GenerateCodeResponse{
		Success:     true,
		PairingCode: session.Code,
		DeviceID:    session.DeviceID,
		ExpiresAt:   session.ExpiresAt.Format(time.RFC3339),
		QRCodeURL:   QRCodeURL(t.siteURL, session.Code),
	}, nil
}

// GET /api/devices/check-pairing/:code
func (t *TvController) checkPairing(ctx *gin.Context) (any, *api.APIError) {
	code := strings.ToUpper(strings.TrimSpace(ctx.Param("code")))
	session, err := t.pairing.Get(ctx, code)
	if errors.Is(err, redis.ErrCodeNotFound) {
		return nil, api.NotFound("pairing code")
	}
	if err != nil {
		return nil, api.Internal(err)
	}
	if !session.Paired {
		return packets.CheckPairingResponse{Paired: false, ExpiresAt: session.ExpiresAt.Format(time.RFC3339)}, nil
	}

	screen, err := t.store.GetScreenByID(session.ScreenID)
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	// the token is handed out once
	if err := t.pairing.Consume(ctx, code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to consume pairing code")
	}

	log.Info().Str("screen_id", screen.ID).Str("device_id", session.DeviceID).Msg("device collected its token")
	return packets.CheckPairingResponse{
		Paired:         true,
		DeviceID:       session.DeviceID,
		DeviceToken:    session.DeviceToken,
		ScreenID:       screen.ID,
		ScreenName:     screen.Name,
		LocationID:     screen.LocationID,
		OrganizationID: screen.OrganizationID,
	}, nil
}

// GET /api/devices/sync (device token)
func (t *TvController) sync(ctx *gin.Context) (any, *api.APIError) {
	screen, ok := middleware.GetCurrentScreen(ctx)
	if !ok {
		return nil, api.Unauthorized("missing device token")
	}
	notifications, err := t.store.ListPendingNotifications(screen.ID, 20)
	if err != nil {
		return nil, api.FromStore(err, "notifications")
	}
	interval, window := t.polling.IntervalAt(t.now())
	return packets.SyncResponse{
		ScreenID:               screen.ID,
		ScreenName:             screen.Name,
		ContentURL:             "/api/screens/" + screen.ID + "/current-content",
		PollingIntervalSeconds: interval,
		PollingWindow:          window,
		Notifications:          notifications,
	}, nil
}
