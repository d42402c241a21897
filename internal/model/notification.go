package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	NotificationScheduleChange = "schedule_change"
	NotificationPlaylistChange = "playlist_change"
	NotificationMediaChange    = "media_change"
	NotificationScreenUpdate   = "screen_update"
)

type DeviceNotification struct {
	ID               string         `db:"id"                json:"id"`
	ScreenID         string         `db:"screen_id"         json:"screen_id"`
	NotificationType string         `db:"notification_type" json:"notification_type"`
	Title            string         `db:"title"             json:"title"`
	Message          *string        `db:"message"           json:"message"`
	Payload          types.JSONText `db:"payload"           json:"payload"`
	Priority         int            `db:"priority"          json:"priority"`
	ProcessedAt      *time.Time     `db:"processed_at"      json:"processed_at"`
	CreatedAt        time.Time      `db:"created_at"        json:"created_at"`
}
