package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	ScreenTypeMenuBoard    = "menu_board"
	ScreenTypePromotional  = "promotional"
	ScreenTypeQueueDisplay = "queue_display"
	ScreenTypeOutdoorSign  = "outdoor_sign"
	ScreenTypeOther        = "other"
)

var ScreenTypes = []string{
	ScreenTypeMenuBoard,
	ScreenTypePromotional,
	ScreenTypeQueueDisplay,
	ScreenTypeOutdoorSign,
	ScreenTypeOther,
}

const (
	DeviceOnline      = "online"
	DeviceOffline     = "offline"
	DeviceError       = "error"
	DeviceMaintenance = "maintenance"
)

// Screen represents a display device in the system.
// OrganizationID and DistrictID are resolved through the location on read.
type Screen struct {
	ID              string     `db:"id"                json:"id"`
	LocationID      string     `db:"location_id"       json:"location_id"`
	DistrictID      string     `db:"district_id"       json:"district_id"`
	OrganizationID  string     `db:"organization_id"   json:"organization_id"`
	Name            string     `db:"name"              json:"name"`
	ScreenType      string     `db:"screen_type"       json:"screen_type"`
	DeviceID        *string    `db:"device_id"         json:"device_id"`
	DeviceToken     *string    `db:"device_token"      json:"-"`
	DeviceStatus    string     `db:"device_status"     json:"device_status"`
	Resolution      *string    `db:"resolution"        json:"resolution"`
	Orientation     string     `db:"orientation"       json:"orientation"`
	IPAddress       *string    `db:"ip_address"        json:"ip_address"`
	FirmwareVersion *string    `db:"firmware_version"  json:"firmware_version"`
	LastHeartbeatAt *time.Time `db:"last_heartbeat_at" json:"last_heartbeat_at"`
	IsActive        bool       `db:"is_active"         json:"is_active"`
	CreatedAt       time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"        json:"updated_at"`
}

// Paired reports whether a device has been bound to the screen.
func (s Screen) Paired() bool {
	return s.DeviceID != nil && *s.DeviceID != ""
}

type ScreenLog struct {
	ID        string         `db:"id"         json:"id"`
	ScreenID  string         `db:"screen_id"  json:"screen_id"`
	LogLevel  string         `db:"log_level"  json:"log_level"`
	Message   string         `db:"message"    json:"message"`
	Metadata  types.JSONText `db:"metadata"   json:"metadata"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Heartbeat is what a paired device reports about itself.
type Heartbeat struct {
	Status          string
	IPAddress       *string
	FirmwareVersion *string
	Metadata        types.JSONText
}

// StaleAfter is how long a screen may go without a heartbeat before it is
// considered stale.
const StaleAfter = 300 * time.Second

// HeartbeatAge returns the whole seconds since the last heartbeat (nil when
// none was ever received) and whether the screen is stale at now.
func (s Screen) HeartbeatAge(now time.Time) (*int64, bool) {
	if s.LastHeartbeatAt == nil {
		return nil, true
	}
	age := now.Sub(*s.LastHeartbeatAt)
	secs := int64(age / time.Second)
	return &secs, age > StaleAfter
}
