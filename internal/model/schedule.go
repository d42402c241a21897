package model

import (
	"time"

	"github.com/lib/pq"
)

type Schedule struct {
	ID                string         `db:"id"                  json:"id"`
	OrganizationID    string         `db:"organization_id"     json:"organization_id"`
	Name              string         `db:"name"                json:"name"`
	PlaylistID        string         `db:"playlist_id"         json:"playlist_id"`
	ScreenID          *string        `db:"screen_id"           json:"screen_id"`
	TargetScreenTypes pq.StringArray `db:"target_screen_types" json:"target_screen_types"`
	StartDate         string         `db:"start_date"          json:"start_date"`
	EndDate           *string        `db:"end_date"            json:"end_date"`
	StartTime         string         `db:"start_time"          json:"start_time"`
	EndTime           string         `db:"end_time"            json:"end_time"`
	DaysOfWeek        pq.Int64Array  `db:"days_of_week"        json:"days_of_week"`
	Priority          int            `db:"priority"            json:"priority"`
	IsActive          bool           `db:"is_active"           json:"is_active"`
	CreatedBy         string         `db:"created_by"          json:"created_by"`
	CreatedAt         time.Time      `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"          json:"updated_at"`
}
