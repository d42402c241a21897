package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
	"github.com/Nixie-Tech-LLC/mesophy/internal/redis"
	"github.com/Nixie-Tech-LLC/mesophy/internal/schedule"
)

const siteURL = "https://signage.example.com"

// fakeStore serves the handful of store calls devices make; anything else
// panics on the nil embedded Store.
type fakeStore struct {
	db.Store

	mu            sync.Mutex
	screens       map[string]model.Screen
	heartbeats    []model.Heartbeat
	notifications map[string][]model.DeviceNotification
	acked         []string
}

func newFakeStore(screens ...model.Screen) *fakeStore {
	f := &fakeStore{screens: map[string]model.Screen{}, notifications: map[string][]model.DeviceNotification{}}
	for _, s := range screens {
		f.screens[s.ID] = s
	}
	return f
}

func (f *fakeStore) GetScreenByID(id string) (model.Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.screens[id]; ok {
		return s, nil
	}
	return model.Screen{}, db.ErrNotFound
}

func (f *fakeStore) GetScreenByDeviceID(deviceID string) (model.Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.screens {
		if s.DeviceID != nil && *s.DeviceID == deviceID {
			return s, nil
		}
	}
	return model.Screen{}, db.ErrNotFound
}

func (f *fakeStore) GetScreenByDeviceToken(token string) (model.Screen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.screens {
		if s.DeviceToken != nil && *s.DeviceToken == token {
			return s, nil
		}
	}
	return model.Screen{}, db.ErrNotFound
}

func (f *fakeStore) RecordHeartbeat(screenID string, hb model.Heartbeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.screens[screenID]
	if !ok {
		return db.ErrNotFound
	}
	now := time.Now()
	s.LastHeartbeatAt = &now
	s.DeviceStatus = hb.Status
	f.screens[screenID] = s
	f.heartbeats = append(f.heartbeats, hb)
	return nil
}

func (f *fakeStore) ListPendingNotifications(screenID string, limit int) ([]model.DeviceNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.DeviceNotification{}
	for _, n := range f.notifications[screenID] {
		if n.ProcessedAt == nil && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) CountPendingNotifications(screenID string) (int, error) {
	pending, _ := f.ListPendingNotifications(screenID, 1000)
	return len(pending), nil
}

func (f *fakeStore) MarkNotificationsProcessed(screenID string, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for i, row := range f.notifications[screenID] {
		for _, id := range ids {
			if row.ID == id && row.ProcessedAt == nil {
				f.notifications[screenID][i].ProcessedAt = &now
				f.acked = append(f.acked, id)
				n++
			}
		}
	}
	return n, nil
}

type fakeResolver struct {
	result *schedule.Result
	err    error
}

func (r *fakeResolver) Resolve(screenID string) (*schedule.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := *r.result
	out.ScreenID = screenID
	return &out, nil
}

func strPtr(s string) *string { return &s }

func pairedScreen() model.Screen {
	return model.Screen{
		ID:             "scr-1",
		LocationID:     "loc-1",
		OrganizationID: "org-1",
		Name:           "Lobby",
		ScreenType:     model.ScreenTypeMenuBoard,
		DeviceID:       strPtr("pi-1"),
		DeviceToken:    strPtr("tok-1"),
		DeviceStatus:   model.DeviceOffline,
		IsActive:       true,
	}
}

type harness struct {
	router  *gin.Engine
	store   *fakeStore
	pairing *redis.PairingStore
	mr      *miniredis.Miniredis
}

func setup(t *testing.T, resolver ContentResolver, screens ...model.Screen) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pairing := redis.NewPairingStore(client)

	cfg, err := polling.Load("")
	require.NoError(t, err)

	store := newFakeStore(screens...)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"},
		ContentModule(store, resolver),
		DeviceModule(store, pairing, cfg, siteURL+"/"),
	)
	return &harness{router: r, store: store, pairing: pairing, mr: mr}
}

func (h *harness) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCurrentContentETag(t *testing.T) {
	scheduleID := "sch-1"
	h := setup(t, &fakeResolver{result: &schedule.Result{
		ScheduleID:  &scheduleID,
		MediaAssets: []schedule.ResolvedMedia{},
		CurrentTime: "09:30",
		CurrentDay:  "monday",
	}}, pairedScreen())

	w := h.do(http.MethodGet, "/api/screens/scr-1/current-content", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	res := decode[schedule.Result](t, w)
	assert.Equal(t, "scr-1", res.ScreenID)
	require.NotNil(t, res.ScheduleID)
	assert.Equal(t, "sch-1", *res.ScheduleID)

	w = h.do(http.MethodGet, "/api/screens/scr-1/current-content", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())

	w = h.do(http.MethodGet, "/api/screens/scr-1/current-content", nil, "If-None-Match", `W/"stale"`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCurrentContentErrors(t *testing.T) {
	h := setup(t, &fakeResolver{err: db.ErrNotFound})
	w := h.do(http.MethodGet, "/api/screens/nope/current-content", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	h = setup(t, &fakeResolver{err: errors.New("db down")})
	w = h.do(http.MethodGet, "/api/screens/scr-1/current-content", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEtagMatches(t *testing.T) {
	etag := `W/"abc"`
	assert.True(t, etagMatches(`W/"abc"`, etag))
	assert.True(t, etagMatches(`"abc"`, etag))
	assert.True(t, etagMatches(`"x", W/"abc"`, etag))
	assert.True(t, etagMatches("*", etag))
	assert.False(t, etagMatches("", etag))
	assert.False(t, etagMatches(`W/"abd"`, etag))
}

func TestNotificationsAndAck(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())
	h.store.notifications["scr-1"] = []model.DeviceNotification{
		{ID: "11111111-1111-1111-1111-111111111111", ScreenID: "scr-1", NotificationType: "playlist_change"},
		{ID: "22222222-2222-2222-2222-222222222222", ScreenID: "scr-1", NotificationType: "schedule_change"},
	}

	w := h.do(http.MethodGet, "/api/screens/scr-1/notifications?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, list["count"])

	w = h.do(http.MethodPost, "/api/screens/scr-1/notifications/ack", map[string]any{
		"ids": []string{"11111111-1111-1111-1111-111111111111", "33333333-3333-3333-3333-333333333333"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"acknowledged":1}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/screens/scr-1/notifications", nil)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

	w = h.do(http.MethodPost, "/api/screens/scr-1/notifications/ack", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/screens/missing/notifications", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeatByDeviceID(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())
	h.store.notifications["scr-1"] = []model.DeviceNotification{{ID: "n-1", ScreenID: "scr-1"}}

	w := h.do(http.MethodPost, "/api/devices/pi-1/heartbeat", map[string]any{
		"firmware_version": "1.4.2",
		"system_info":      map[string]any{"cpu": 12},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "scr-1", resp["screen_id"])
	assert.Equal(t, true, resp["sync_recommended"])

	require.Len(t, h.store.heartbeats, 1)
	hb := h.store.heartbeats[0]
	assert.Equal(t, model.DeviceOnline, hb.Status)
	require.NotNil(t, hb.IPAddress)
	assert.NotEmpty(t, *hb.IPAddress)
	assert.Contains(t, string(hb.Metadata), `"cpu":12`)

	w = h.do(http.MethodPost, "/api/devices/unknown/heartbeat", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/devices/pi-1/heartbeat", map[string]any{"status": "sleeping"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHeartbeatByToken(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())

	w := h.do(http.MethodPost, "/api/devices/heartbeat", map[string]any{"status": "maintenance"},
		"Authorization", "Bearer tok-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, w)["sync_recommended"])
	assert.Equal(t, model.DeviceMaintenance, h.store.heartbeats[0].Status)

	w = h.do(http.MethodPost, "/api/devices/heartbeat", map[string]any{}, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHeartbeatStatus(t *testing.T) {
	screen := pairedScreen()
	h := setup(t, &fakeResolver{}, screen)

	w := h.do(http.MethodGet, "/api/devices/pi-1/heartbeat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Nil(t, resp["seconds_since_heartbeat"])
	assert.Equal(t, true, resp["is_stale"])

	old := time.Now().Add(-10 * time.Minute)
	screen.LastHeartbeatAt = &old
	h.store.screens["scr-1"] = screen
	resp = decode[map[string]any](t, h.do(http.MethodGet, "/api/devices/pi-1/heartbeat", nil))
	assert.Equal(t, true, resp["is_stale"])
	assert.InDelta(t, 600, resp["seconds_since_heartbeat"], 5)

	h.do(http.MethodPost, "/api/devices/pi-1/heartbeat", nil)
	resp = decode[map[string]any](t, h.do(http.MethodGet, "/api/devices/pi-1/heartbeat", nil))
	assert.Equal(t, false, resp["is_stale"])
	assert.Equal(t, model.DeviceOnline, resp["device_status"])
}

func TestGenerateCode(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())

	w := h.do(http.MethodPost, "/api/devices/generate-code", map[string]any{
		"device_id":   "pi-new",
		"device_info": map[string]any{"model": "pi5"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	code := resp["pairing_code"].(string)
	assert.Len(t, code, redis.PairingCodeLen)
	assert.Equal(t, "pi-new", resp["device_id"])
	assert.Equal(t, siteURL+"/dashboard/screens/pair?code="+code, resp["qr_code_url"])

	expires, err := time.Parse(time.RFC3339, resp["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(redis.PairingTTL), expires, time.Minute)

	session, err := h.pairing.Get(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "pi-new", session.DeviceID)
	assert.NotEmpty(t, session.DeviceIP)

	// no device id: one is assigned
	w = h.do(http.MethodPost, "/api/devices/generate-code", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[map[string]any](t, w)["device_id"])

	// already paired
	w = h.do(http.MethodPost, "/api/devices/generate-code", map[string]any{"device_id": "pi-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckPairing(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())
	ctx := context.Background()

	w := h.do(http.MethodGet, "/api/devices/check-pairing/ZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	session, err := h.pairing.Create(ctx, redis.PairingSession{DeviceID: "pi-1"})
	require.NoError(t, err)

	w = h.do(http.MethodGet, "/api/devices/check-pairing/"+session.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[map[string]any](t, w)
	assert.Equal(t, false, pending["paired"])
	assert.NotEmpty(t, pending["expires_at"])
	assert.Nil(t, pending["device_token"])

	_, err = h.pairing.MarkPaired(ctx, session.Code, "scr-1", "tok-1", "u-1")
	require.NoError(t, err)

	w = h.do(http.MethodGet, "/api/devices/check-pairing/"+session.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	paired := decode[map[string]any](t, w)
	assert.Equal(t, true, paired["paired"])
	assert.Equal(t, "tok-1", paired["device_token"])
	assert.Equal(t, "scr-1", paired["screen_id"])
	assert.Equal(t, "Lobby", paired["screen_name"])
	assert.Equal(t, "org-1", paired["organization_id"])

	// the token is handed out once
	assert.False(t, h.mr.Exists("pairing:"+session.Code))
	w = h.do(http.MethodGet, "/api/devices/check-pairing/"+session.Code, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSync(t *testing.T) {
	h := setup(t, &fakeResolver{}, pairedScreen())
	h.store.notifications["scr-1"] = []model.DeviceNotification{{ID: "n-1", ScreenID: "scr-1"}}

	w := h.do(http.MethodGet, "/api/devices/sync", nil, "Authorization", "Bearer tok-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "/api/screens/scr-1/current-content", resp["content_url"])
	assert.Greater(t, resp["polling_interval_seconds"], float64(0))
	assert.Len(t, resp["notifications"], 1)

	w = h.do(http.MethodGet, "/api/devices/sync", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQRCodeURL(t *testing.T) {
	assert.Equal(t, "https://x.test/dashboard/screens/pair?code=AB+C%26", QRCodeURL("https://x.test", "AB C&"))
}
