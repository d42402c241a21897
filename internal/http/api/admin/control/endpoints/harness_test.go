package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const (
	org1      = "0a000000-0000-0000-0000-000000000001"
	org2      = "0a000000-0000-0000-0000-000000000002"
	district1 = "d1000000-0000-0000-0000-000000000001"
	district2 = "d2000000-0000-0000-0000-000000000002"
	location1 = "11000000-0000-0000-0000-000000000001"
	location2 = "22000000-0000-0000-0000-000000000002"
	screen1   = "5c000000-0000-0000-0000-000000000001"
	screen2   = "5c000000-0000-0000-0000-000000000002"
	foreignSc = "5c000000-0000-0000-0000-000000000009"
	playlist1 = "a1000000-0000-0000-0000-000000000001"
	foreignPl = "a1000000-0000-0000-0000-000000000009"
	media1    = "3e000000-0000-0000-0000-000000000001"
	media2    = "3e000000-0000-0000-0000-000000000002"
	foreignMd = "3e000000-0000-0000-0000-000000000009"
)

func strPtr(s string) *string { return &s }

var testUsers = map[string]*model.User{
	"admin":    {ID: "u-admin", Role: model.RoleSuperAdmin, OrganizationID: org1, IsActive: true},
	"dm":       {ID: "u-dm", Role: model.RoleDistrictManager, OrganizationID: org1, DistrictID: strPtr(district1), IsActive: true},
	"lm":       {ID: "u-lm", Role: model.RoleLocationManager, OrganizationID: org1, DistrictID: strPtr(district1), LocationID: strPtr(location1), IsActive: true},
	"outsider": {ID: "u-out", Role: model.RoleSuperAdmin, OrganizationID: org2, IsActive: true},
}

// memStore keeps just enough of the hierarchy in memory for the handlers
// under test. Unimplemented calls panic on the nil embedded Store.
type memStore struct {
	db.Store

	mu          sync.Mutex
	locations   map[string]model.Location
	screens     map[string]model.Screen
	playlists   map[string]model.Playlist
	schedules   map[string]model.Schedule
	scheduleRef map[string]int
	paired      map[string]string
	users       map[string]*model.User
	media       map[string]model.MediaAsset
	items       map[string][]model.PlaylistItem
	reorderErr  error
	seq         int
}

func newMemStore() *memStore {
	s := &memStore{
		locations: map[string]model.Location{
			location1: {ID: location1, DistrictID: district1, OrganizationID: org1, Name: "Downtown"},
			location2: {ID: location2, DistrictID: district2, OrganizationID: org1, Name: "Airport"},
		},
		screens: map[string]model.Screen{
			screen1:   {ID: screen1, LocationID: location1, DistrictID: district1, OrganizationID: org1, Name: "Lobby", ScreenType: model.ScreenTypeMenuBoard, IsActive: true},
			screen2:   {ID: screen2, LocationID: location2, DistrictID: district2, OrganizationID: org1, Name: "Gate", ScreenType: model.ScreenTypePromotional, IsActive: true},
			foreignSc: {ID: foreignSc, OrganizationID: org2, Name: "Elsewhere", IsActive: true},
		},
		playlists: map[string]model.Playlist{
			playlist1: {ID: playlist1, OrganizationID: org1, Name: "Breakfast", LoopMode: "loop"},
			foreignPl: {ID: foreignPl, OrganizationID: org2, Name: "Theirs", LoopMode: "loop"},
		},
		schedules:   map[string]model.Schedule{},
		scheduleRef: map[string]int{},
		paired:      map[string]string{},
		users:       map[string]*model.User{},
		media: map[string]model.MediaAsset{
			media1:    {ID: media1, OrganizationID: org1, Name: "Menu", MediaType: model.MediaImage, IsActive: true},
			media2:    {ID: media2, OrganizationID: org1, Name: "Promo", MediaType: model.MediaVideo, IsActive: true},
			foreignMd: {ID: foreignMd, OrganizationID: org2, Name: "Theirs", MediaType: model.MediaImage, IsActive: true},
		},
		items: map[string][]model.PlaylistItem{},
	}
	for _, u := range testUsers {
		cp := *u
		s.users[cp.ID] = &cp
	}
	return s
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) GetLocation(id string) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locations[id]; ok {
		return l, nil
	}
	return model.Location{}, db.ErrNotFound
}

func (m *memStore) GetScreenByID(id string) (model.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.screens[id]; ok {
		return s, nil
	}
	return model.Screen{}, db.ErrNotFound
}

func (m *memStore) GetScreenByDeviceID(deviceID string) (model.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.screens {
		if s.DeviceID != nil && *s.DeviceID == deviceID {
			return s, nil
		}
	}
	return model.Screen{}, db.ErrNotFound
}

func (m *memStore) CreateScreen(s model.Screen) (model.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.locations[s.LocationID]
	s.ID = m.nextID("screen")
	s.DistrictID = l.DistrictID
	s.OrganizationID = l.OrganizationID
	s.DeviceStatus = model.DeviceOffline
	s.IsActive = true
	m.screens[s.ID] = s
	return s, nil
}

func (m *memStore) UpdateScreen(id string, patch db.ScreenPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screens[id]
	if !ok {
		return db.ErrNotFound
	}
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.LocationID != nil {
		l := m.locations[*patch.LocationID]
		s.LocationID, s.DistrictID = l.ID, l.DistrictID
	}
	m.screens[id] = s
	return nil
}

func (m *memStore) DeleteScreen(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.screens, id)
	return nil
}

func (m *memStore) CountSchedulesForScreen(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduleRef[id], nil
}

func (m *memStore) PairDevice(screenID, deviceID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.screens[screenID]
	s.DeviceID, s.DeviceToken = &deviceID, &token
	m.screens[screenID] = s
	m.paired[screenID] = deviceID
	return nil
}

func (m *memStore) GetPlaylistByID(id string) (model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.playlists[id]; ok {
		return p, nil
	}
	return model.Playlist{}, db.ErrNotFound
}

func (m *memStore) ReorderPlaylistItems(playlistID string, itemIDs []string) error {
	return m.reorderErr
}

func (m *memStore) ListPlaylistItems(playlistID string) ([]model.PlaylistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PlaylistItem{}, m.items[playlistID]...), nil
}

// InsertPlaylistItem mirrors the store: clamp the position, shift the tail.
func (m *memStore) InsertPlaylistItem(item model.PlaylistItem, position *int) (model.PlaylistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[item.PlaylistID]
	idx := len(list)
	if position != nil && *position >= 0 && *position < len(list) {
		idx = *position
	}
	item.ID = m.nextID("item")
	list = append(list[:idx], append([]model.PlaylistItem{item}, list[idx:]...)...)
	for i := range list {
		list[i].OrderIndex = i
	}
	m.items[item.PlaylistID] = list
	return list[idx], nil
}

func (m *memStore) RemovePlaylistItem(playlistID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[playlistID]
	for i, it := range list {
		if it.ID != itemID {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		for j := range list {
			list[j].OrderIndex = j
		}
		m.items[playlistID] = list
		return nil
	}
	return db.ErrNotFound
}

func (m *memStore) GetMediaByID(id string) (model.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.media[id]; ok {
		return a, nil
	}
	return model.MediaAsset{}, db.ErrNotFound
}

func (m *memStore) CreateMedia(a model.MediaAsset) (model.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID("media")
	a.IsActive = true
	m.media[a.ID] = a
	return a, nil
}

func (m *memStore) CountPlaylistItemsForMedia(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, list := range m.items {
		for _, it := range list {
			if it.MediaAssetID == id {
				n++
			}
		}
	}
	return n, nil
}

func (m *memStore) DeactivateMedia(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.media[id]
	if !ok || !a.IsActive {
		return db.ErrNotFound
	}
	a.IsActive = false
	m.media[id] = a
	return nil
}

func (m *memStore) CountSchedulesForPlaylist(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduleRef[id], nil
}

func (m *memStore) DeletePlaylist(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playlists, id)
	return nil
}

func (m *memStore) CreateSchedule(sc model.Schedule) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc.ID = m.nextID("schedule")
	m.schedules[sc.ID] = sc
	return sc, nil
}

func (m *memStore) GetScheduleByID(id string) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sc, ok := m.schedules[id]; ok {
		return sc, nil
	}
	return model.Schedule{}, db.ErrNotFound
}

func (m *memStore) UpdateSchedule(id string, patch db.SchedulePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.schedules[id]
	if !ok {
		return db.ErrNotFound
	}
	if patch.Name != nil {
		sc.Name = *patch.Name
	}
	if patch.ScreenID != nil {
		if *patch.ScreenID == "" {
			sc.ScreenID = nil
		} else {
			sc.ScreenID = patch.ScreenID
		}
	}
	if patch.TargetScreenTypes != nil {
		sc.TargetScreenTypes = patch.TargetScreenTypes
	}
	if patch.EndTime != nil {
		sc.EndTime = *patch.EndTime
	}
	m.schedules[id] = sc
	return nil
}

func (m *memStore) DeleteSchedule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

type notice struct {
	kind   string
	id     string
	action string
}

type recorder struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recorder) add(n notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) PlaylistChanged(orgID, playlistID, action string, screenIDs ...string) {
	r.add(notice{"playlist", playlistID, action})
}

func (r *recorder) ScheduleChanged(sc model.Schedule, action string) {
	r.add(notice{"schedule", sc.ID, action})
}

func (r *recorder) MediaChanged(orgID, mediaID, action string) {
	r.add(notice{"media", mediaID, action})
}

func (r *recorder) ScreenUpdated(screenID, action string) {
	r.add(notice{"screen", screenID, action})
}

func (r *recorder) all() []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice(nil), r.notices...)
}

var registerOnce sync.Once

// asUser stands in for JWTMiddleware: X-Test-User picks a profile.
func asUser(c *gin.Context) {
	if u, ok := testUsers[c.GetHeader("X-Test-User")]; ok {
		c.Set("currentUser", u)
	}
	c.Next()
}

func newRouter(t *testing.T, modules ...api.Module) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerOnce.Do(func() { require.NoError(t, middleware.RegisterValidators()) })

	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api", Middleware: []gin.HandlerFunc{asUser}}, modules...)
	return r
}

func call(r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
