// exposes a Store interface that is passed to API calls w/ param requirements
package db

import (
	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// Scope narrows list queries to part of an organization.
// A nil DistrictID or LocationID means "every one the organization has".
type Scope struct {
	OrganizationID string
	DistrictID     *string
	LocationID     *string
}

type UserStore interface {
	CreateOrganization(name, slug string) (model.Organization, error)
	GetOrganization(id string) (model.Organization, error)

	CreateUser(u model.User) (model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id string) (*model.User, error)
	ListUsers(scope Scope) ([]model.User, error)
	UpdateUser(id string, patch UserPatch) error
}

type HierarchyStore interface {
	ListDistricts(scope Scope) ([]model.District, error)
	GetDistrict(id string) (model.District, error)
	CreateDistrict(d model.District) (model.District, error)
	UpdateDistrict(id string, patch DistrictPatch) error
	DeleteDistrict(id string) error
	CountLocationsInDistrict(id string) (int, error)

	ListLocations(scope Scope) ([]model.Location, error)
	GetLocation(id string) (model.Location, error)
	CreateLocation(l model.Location) (model.Location, error)
	UpdateLocation(id string, patch LocationPatch) error
	DeleteLocation(id string) error
	CountScreensAtLocation(id string) (int, error)
}

type ScreenStore interface {
	ListScreens(scope Scope) ([]model.Screen, error)
	GetScreenByID(id string) (model.Screen, error)
	GetScreenByDeviceID(deviceID string) (model.Screen, error)
	GetScreenByDeviceToken(token string) (model.Screen, error)
	CreateScreen(s model.Screen) (model.Screen, error)
	UpdateScreen(id string, patch ScreenPatch) error
	DeleteScreen(id string) error
	CountSchedulesForScreen(id string) (int, error)
	CountScreensInOrganization(orgID string) (int, error)

	RecordHeartbeat(screenID string, hb model.Heartbeat) error
	ListScreenLogs(screenID string, limit int) ([]model.ScreenLog, error)
	PairDevice(screenID, deviceID, deviceToken string) error
}

type MediaStore interface {
	ListMedia(filter MediaFilter) ([]model.MediaAsset, error)
	GetMediaByID(id string) (model.MediaAsset, error)
	CreateMedia(m model.MediaAsset) (model.MediaAsset, error)
	UpdateMedia(id string, patch MediaPatch) error
	DeactivateMedia(id string) error
	CountPlaylistItemsForMedia(id string) (int, error)

	ListCalendarMedia() ([]model.MediaAsset, error)
	UpdateCalendarMetadata(id string, metadata []byte) error

	ListFolders(orgID string, parentID *string) ([]model.MediaFolder, error)
	GetFolder(id string) (model.MediaFolder, error)
	CreateFolder(f model.MediaFolder) (model.MediaFolder, error)
	UpdateFolder(id string, name *string, parentID *string) error
	DeleteFolder(id string) error
	CountFolderDependents(id string) (int, error)
}

type PlaylistStore interface {
	ListPlaylists(orgID string) ([]model.Playlist, error)
	GetPlaylistByID(id string) (model.Playlist, error)
	CreatePlaylist(p model.Playlist) (model.Playlist, error)
	UpdatePlaylist(id string, patch PlaylistPatch) error
	DeletePlaylist(id string) error
	CountSchedulesForPlaylist(id string) (int, error)

	ListPlaylistItems(playlistID string) ([]model.PlaylistItem, error)
	GetPlaylistItem(playlistID, itemID string) (model.PlaylistItem, error)
	InsertPlaylistItem(item model.PlaylistItem, position *int) (model.PlaylistItem, error)
	UpdatePlaylistItem(itemID string, durationOverride *int, transition *string) error
	RemovePlaylistItem(playlistID, itemID string) error
	ReorderPlaylistItems(playlistID string, itemIDs []string) error
}

type ScheduleStore interface {
	ListSchedules(orgID string, screenID *string) ([]model.Schedule, error)
	GetScheduleByID(id string) (model.Schedule, error)
	CreateSchedule(s model.Schedule) (model.Schedule, error)
	UpdateSchedule(id string, patch SchedulePatch) error
	DeleteSchedule(id string) error
	ListActiveSchedulesForDate(orgID, date string) ([]model.Schedule, error)
}

type NotificationStore interface {
	CreateDeviceNotifications(notifications []model.DeviceNotification) ([]model.DeviceNotification, error)
	ListPendingNotifications(screenID string, limit int) ([]model.DeviceNotification, error)
	CountPendingNotifications(screenID string) (int, error)
	MarkNotificationsProcessed(screenID string, ids []string) (int64, error)

	ScreenIDsForPlaylist(playlistID string) ([]string, error)
	ScreenIDsForMedia(mediaID string) ([]string, error)
	ScreenIDsForSchedule(s model.Schedule) ([]string, error)
}

type Store interface {
	UserStore
	HierarchyStore
	ScreenStore
	MediaStore
	PlaylistStore
	ScheduleStore
	NotificationStore

	Ping() error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore(conn *sqlx.DB) Store {
	return &pgStore{db: conn}
}

func (s *pgStore) Ping() error {
	return s.db.Ping()
}
