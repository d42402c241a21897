package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaCalendar = "calendar"
	MediaYouTube  = "youtube"
)

type MediaAsset struct {
	ID               string         `db:"id"                json:"id"`
	OrganizationID   string         `db:"organization_id"   json:"organization_id"`
	FolderID         *string        `db:"folder_id"         json:"folder_id"`
	Name             string         `db:"name"              json:"name"`
	Description      *string        `db:"description"       json:"description"`
	FileName         string         `db:"file_name"         json:"file_name"`
	FilePath         string         `db:"file_path"         json:"file_path"`
	FileURL          string         `db:"file_url"          json:"file_url"`
	FileSize         int64          `db:"file_size"         json:"file_size"`
	MimeType         string         `db:"mime_type"         json:"mime_type"`
	MediaType        string         `db:"media_type"        json:"media_type"`
	Duration         *int           `db:"duration"          json:"duration"`
	Width            *int           `db:"width"             json:"width"`
	Height           *int           `db:"height"            json:"height"`
	ThumbnailURL     *string        `db:"thumbnail_url"     json:"thumbnail_url"`
	PreviewURL       *string        `db:"preview_url"       json:"preview_url"`
	OptimizedURL     *string        `db:"optimized_url"     json:"optimized_url"`
	YouTubeURL       *string        `db:"youtube_url"       json:"youtube_url"`
	CalendarMetadata types.JSONText `db:"calendar_metadata" json:"-"`
	Tags             pq.StringArray `db:"tags"              json:"tags"`
	IsActive         bool           `db:"is_active"         json:"is_active"`
	CreatedBy        string         `db:"created_by"        json:"created_by"`
	CreatedAt        time.Time      `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"        json:"updated_at"`
}

type MediaFolder struct {
	ID             string    `db:"id"               json:"id"`
	OrganizationID string    `db:"organization_id"  json:"organization_id"`
	Name           string    `db:"name"             json:"name"`
	ParentFolderID *string   `db:"parent_folder_id" json:"parent_folder_id"`
	CreatedBy      string    `db:"created_by"       json:"created_by"`
	CreatedAt      time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"       json:"updated_at"`
}

// CalendarMetadata is stored as JSON on calendar assets.
type CalendarMetadata struct {
	Provider       string    `json:"provider"`
	CalendarID     string    `json:"calendar_id"`
	CalendarName   string    `json:"calendar_name,omitempty"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}
