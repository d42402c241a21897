package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// RESPONSES FOR /api/devices/*

type HeartbeatResponse struct {
	Success         bool   `json:"success"`
	ScreenID        string `json:"screen_id"`
	SyncRecommended bool   `json:"sync_recommended"`
	ServerTime      string `json:"server_time"`
}

type HeartbeatStatusResponse struct {
	ScreenID              string     `json:"screen_id"`
	DeviceStatus          string     `json:"device_status"`
	LastHeartbeatAt       *time.Time `json:"last_heartbeat_at"`
	SecondsSinceHeartbeat *int64     `json:"seconds_since_heartbeat"`
	IsStale               bool       `json:"is_stale"`
}

type GenerateCodeResponse struct {
	Success     bool   `json:"success"`
	PairingCode string `json:"pairing_code"`
	DeviceID    string `json:"device_id"`
	ExpiresAt   string `json:"expires_at"`
	QRCodeURL   string `json:"qr_code_url"`
}

type CheckPairingResponse struct {
	Paired         bool   `json:"paired"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	DeviceID       string `json:"device_id,omitempty"`
	DeviceToken    string `json:"device_token,omitempty"`
	ScreenID       string `json:"screen_id,omitempty"`
	ScreenName     string `json:"screen_name,omitempty"`
	LocationID     string `json:"location_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type SyncResponse struct {
	ScreenID               string                     `json:"screen_id"`
	ScreenName             string                     `json:"screen_name"`
	ContentURL             string                     `json:"content_url"`
	PollingIntervalSeconds int                        `json:"polling_interval_seconds"`
	PollingWindow          string                     `json:"polling_window"`
	Notifications          []model.DeviceNotification `json:"notifications"`
}

// RESPONSES FOR /api/screens/:id/notifications

type NotificationsResponse struct {
	ScreenID      string                     `json:"screen_id"`
	Notifications []model.DeviceNotification `json:"notifications"`
	Count         int                        `json:"count"`
}

type AckResponse struct {
	Success      bool  `json:"success"`
	Acknowledged int64 `json:"acknowledged"`
}
