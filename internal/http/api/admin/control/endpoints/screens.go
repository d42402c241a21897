package endpoints

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/access"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
	"github.com/Nixie-Tech-LLC/mesophy/internal/redis"
)

// PairingStore is the slice of the pairing code store the dashboard side uses.
type PairingStore interface {
	Get(ctx context.Context, code string) (*redis.PairingSession, error)
	MarkPaired(ctx context.Context, code, screenID, deviceToken, pairedBy string) (*redis.PairingSession, error)
}

type ScreenController struct {
	store    db.Store
	notifier Notifier
	pairing  PairingStore
	now      func() time.Time
}

func newScreenController(store db.Store, notifier Notifier, pairing PairingStore) *ScreenController {
	return &ScreenController{store: store, notifier: notifier, pairing: pairing, now: time.Now}
}

// ScreenModule mounts all authenticated /screens endpoints plus device pairing.
func ScreenModule(store db.Store, notifier Notifier, pairing PairingStore) api.Module {
	ctl := newScreenController(store, notifier, pairing)
	return api.ModuleFunc(func(c *api.Controller) {
		// CRUD
		c.GET("/screens", ctl.listScreens)
		c.POST("/screens", ctl.createScreen)
		c.GET("/screens/:id", ctl.getScreen)
		c.PUT("/screens/:id", ctl.updateScreen)
		c.DELETE("/screens/:id", ctl.deleteScreen)
		c.GET("/screens/:id/logs", ctl.listLogs)

		// pairing
		c.POST("/devices/pair", ctl.pairDevice)
	})
}

// GET /api/screens[?location_id=]
func (t *ScreenController) listScreens(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	scope := access.ListScope(user)
	if locationID := queryString(ctx, "location_id"); locationID != nil {
		if scope.LocationID != nil && *scope.LocationID != *locationID {
			return []packets.ScreenResponse{}, nil
		}
		scope.LocationID = locationID
	}

	all, err := t.store.ListScreens(scope)
	if err != nil {
		return nil, api.FromStore(err, "screens")
	}

	now := t.now()
	out := make([]packets.ScreenResponse, 0, len(all))
	for _, s := range all {
		out = append(out, packets.NewScreenResponse(s, now))
	}
	return out, nil
}

func (t *ScreenController) writableLocation(user *model.User, locationID string) (model.Location, *api.APIError) {
	l, err := t.store.GetLocation(locationID)
	if err != nil || l.OrganizationID != user.OrganizationID {
		return l, api.BadRequest("location not found in organization")
	}
	if !access.CanWrite(user, access.LocationTarget(l), model.RoleDistrictManager) {
		return l, api.Forbidden("location is outside your scope")
	}
	return l, nil
}

// POST /api/screens
func (t *ScreenController) createScreen(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreateScreenRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if _, e := t.writableLocation(user, req.LocationID); e != nil {
		return nil, e
	}

	screen, err := t.store.CreateScreen(model.Screen{
		LocationID:  req.LocationID,
		Name:        req.Name,
		ScreenType:  req.ScreenType,
		Resolution:  req.Resolution,
		Orientation: req.Orientation,
	})
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	log.Info().Str("screen_id", screen.ID).Str("location_id", screen.LocationID).Msg("screen created")
	return api.Created(packets.NewScreenResponse(screen, t.now())), nil
}

func (t *ScreenController) loadScreen(user *model.User, id string) (model.Screen, *api.APIError) {
	screen, err := t.store.GetScreenByID(id)
	if err != nil {
		return screen, api.FromStore(err, "screen")
	}
	if e := sameOrg(user, screen.OrganizationID, "screen"); e != nil {
		return screen, e
	}
	if !access.Visible(user, access.ScreenTarget(screen)) {
		log.Warn().Str("user_id", user.ID).Str("screen_id", screen.ID).Msg("forbidden access to screen")
		return screen, api.Forbidden("screen is outside your scope")
	}
	return screen, nil
}

// GET /api/screens/:id
func (t *ScreenController) getScreen(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	screen, e := t.loadScreen(user, ctx.Param("id"))
	if e != nil {
		return nil, e
	}
	return packets.NewScreenResponse(screen, t.now()), nil
}

// PUT /api/screens/:id
func (t *ScreenController) updateScreen(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	screen, e := t.loadScreen(user, ctx.Param("id"))
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.ScreenTarget(screen), model.RoleLocationManager) {
		return nil, api.Forbidden("screen is outside your scope")
	}

	var req packets.UpdateScreenRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if req.LocationID != nil && *req.LocationID != screen.LocationID {
		if _, e := t.writableLocation(user, *req.LocationID); e != nil {
			return nil, e
		}
	}

	if err := t.store.UpdateScreen(screen.ID, db.ScreenPatch{
		LocationID:   req.LocationID,
		Name:         req.Name,
		ScreenType:   req.ScreenType,
		Resolution:   req.Resolution,
		Orientation:  req.Orientation,
		DeviceStatus: req.DeviceStatus,
		IsActive:     req.IsActive,
	}); err != nil {
		return nil, api.FromStore(err, "screen")
	}

	updated, err := t.store.GetScreenByID(screen.ID)
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	t.notifier.ScreenUpdated(screen.ID, "updated")
	return packets.NewScreenResponse(updated, t.now()), nil
}

// DELETE /api/screens/:id
func (t *ScreenController) deleteScreen(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	screen, e := t.loadScreen(user, ctx.Param("id"))
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.ScreenTarget(screen), model.RoleDistrictManager) {
		return nil, api.Forbidden("screen is outside your scope")
	}

	n, err := t.store.CountSchedulesForScreen(screen.ID)
	if err != nil {
		return nil, api.FromStore(err, "screen")
	}
	if n > 0 {
		return nil, api.Conflict("screen is referenced by schedules")
	}
	if err := t.store.DeleteScreen(screen.ID); err != nil {
		return nil, api.FromStore(err, "screen")
	}
	log.Info().Str("screen_id", screen.ID).Str("user_id", user.ID).Msg("screen deleted")
	return gin.H{"success": true}, nil
}

// GET /api/screens/:id/logs[?limit=]
func (t *ScreenController) listLogs(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	screen, e := t.loadScreen(user, ctx.Param("id"))
	if e != nil {
		return nil, e
	}
	logs, err := t.store.ListScreenLogs(screen.ID, queryLimit(ctx, 50, 500))
	if err != nil {
		return nil, api.FromStore(err, "screen logs")
	}
	return logs, nil
}

func newDeviceToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// POST /api/devices/pair
func (t *ScreenController) pairDevice(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.PairDeviceRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	code := strings.ToUpper(strings.TrimSpace(req.PairingCode))

	session, err := t.pairing.Get(ctx, code)
	if errors.Is(err, redis.ErrCodeNotFound) {
		return nil, api.NotFound("pairing code")
	}
	if err != nil {
		return nil, api.Internal(err)
	}
	if session.Paired {
		return nil, api.Conflict("pairing code already used")
	}

	screen, e := t.loadScreen(user, req.ScreenID)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.ScreenTarget(screen), model.RoleLocationManager) {
		return nil, api.Forbidden("screen is outside your scope")
	}

	deviceID := session.DeviceID
	if deviceID == "" {
		return nil, api.BadRequest("pairing session carries no device id")
	}
	if screen.Paired() && *screen.DeviceID != deviceID {
		return nil, api.Conflict("screen is already paired to another device")
	}
	if other, err := t.store.GetScreenByDeviceID(deviceID); err == nil && other.ID != screen.ID {
		return nil, api.Conflict("device is already paired to another screen")
	} else if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, api.FromStore(err, "screen")
	}

	token := newDeviceToken()
	if err := t.store.PairDevice(screen.ID, deviceID, token); err != nil {
		return nil, api.FromStore(err, "screen")
	}
	if _, err := t.pairing.MarkPaired(ctx, code, screen.ID, token, user.ID); err != nil {
		if errors.Is(err, redis.ErrCodeUsed) || errors.Is(err, redis.ErrCodeNotFound) {
			return nil, api.Conflict("pairing code expired or already used")
		}
		return nil, api.Internal(err)
	}

	log.Info().Str("screen_id", screen.ID).Str("device_id", deviceID).Str("user_id", user.ID).
		Msg("device paired to screen")
	t.notifier.ScreenUpdated(screen.ID, "paired")
	return packets.PairDeviceResponse{Success: true, ScreenID: screen.ID, DeviceID: deviceID}, nil
}
