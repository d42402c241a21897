package model

import "time"

const (
	LoopModeLoop    = "loop"
	LoopModeOnce    = "once"
	LoopModeShuffle = "shuffle"
)

type Playlist struct {
	ID             string         `db:"id"              json:"id"`
	OrganizationID string         `db:"organization_id" json:"organization_id"`
	Name           string         `db:"name"            json:"name"`
	Description    *string        `db:"description"     json:"description,omitempty"`
	LoopMode       string         `db:"loop_mode"       json:"loop_mode"`
	IsActive       bool           `db:"is_active"       json:"is_active"`
	CreatedBy      string         `db:"created_by"      json:"created_by"`
	CreatedAt      time.Time      `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"      json:"updated_at"`
	Items          []PlaylistItem `db:"-"               json:"items,omitempty"`
}

type PlaylistItem struct {
	ID               string      `db:"id"                json:"id"`
	PlaylistID       string      `db:"playlist_id"       json:"playlist_id"`
	MediaAssetID     string      `db:"media_asset_id"    json:"media_asset_id"`
	OrderIndex       int         `db:"order_index"       json:"order_index"`
	DurationOverride *int        `db:"duration_override" json:"duration_override"`
	TransitionType   string      `db:"transition_type"   json:"transition_type"`
	CreatedAt        time.Time   `db:"created_at"        json:"created_at"`
	Media            *MediaAsset `db:"-"                 json:"media,omitempty"`
}
