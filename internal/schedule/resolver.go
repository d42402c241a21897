package schedule

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// Source is the slice of the store the resolver reads from.
type Source interface {
	GetScreenByID(id string) (model.Screen, error)
	ListActiveSchedulesForDate(orgID, date string) ([]model.Schedule, error)
	GetPlaylistByID(id string) (model.Playlist, error)
}

type PlaylistRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LoopMode string `json:"loop_mode"`
}

type ResolvedMedia struct {
	model.MediaAsset
	PlaylistItemID  string `json:"playlist_item_id"`
	TransitionType  string `json:"transition_type"`
	DisplayDuration int    `json:"display_duration"`
	DisplayOrder    int    `json:"display_order"`
}

// Result is what a player receives for "what should I show now".
type Result struct {
	ScheduleID        *string         `json:"schedule_id"`
	ScheduleName      *string         `json:"schedule_name"`
	ScreenID          string          `json:"screen_id"`
	ScreenName        string          `json:"screen_name"`
	Playlist          *PlaylistRef    `json:"playlist"`
	MediaAssets       []ResolvedMedia `json:"media_assets"`
	CurrentTime       string          `json:"current_time"`
	CurrentDay        string          `json:"current_day"`
	ScheduleTimeRange *string         `json:"schedule_time_range"`
	Message           string          `json:"message,omitempty"`
}

type Resolver struct {
	source Source
	loc    *time.Location
	now    func() time.Time
}

// NewResolver loads the reference zone. A nil clock means time.Now.
func NewResolver(source Source, now func() time.Time) (*Resolver, error) {
	loc, err := time.LoadLocation(ReferenceZone)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ReferenceZone, err)
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{source: source, loc: loc, now: now}, nil
}

// Resolve returns the active schedule and its media for the screen. A screen
// with nothing scheduled yields a Result with a nil ScheduleID and a Message.
// Store errors, including a missing screen, are returned as is.
func (r *Resolver) Resolve(screenID string) (*Result, error) {
	screen, err := r.source.GetScreenByID(screenID)
	if err != nil {
		return nil, err
	}

	m := MomentOf(r.now(), r.loc)
	result := &Result{
		ScreenID:    screen.ID,
		ScreenName:  screen.Name,
		MediaAssets: []ResolvedMedia{},
		CurrentTime: m.Clock,
		CurrentDay:  m.DayName(),
	}

	schedules, err := r.source.ListActiveSchedulesForDate(screen.OrganizationID, m.Date)
	if err != nil {
		return nil, err
	}

	active := Select(schedules, screen, m)
	if active == nil {
		log.Debug().Str("screen_id", screen.ID).Str("time", m.Clock).Str("day", result.CurrentDay).
			Int("candidates", len(schedules)).Msg("no schedule active for screen")
		result.Message = "No content scheduled for this screen at the current time"
		return result, nil
	}

	playlist, err := r.source.GetPlaylistByID(active.PlaylistID)
	if err != nil {
		return nil, fmt.Errorf("playlist %s of schedule %s: %w", active.PlaylistID, active.ID, err)
	}

	timeRange := active.StartTime + "-" + active.EndTime
	result.ScheduleID = &active.ID
	result.ScheduleName = &active.Name
	result.ScheduleTimeRange = &timeRange
	result.Playlist = &PlaylistRef{ID: playlist.ID, Name: playlist.Name, LoopMode: playlist.LoopMode}
	result.MediaAssets = Assemble(playlist.Items)

	log.Debug().Str("screen_id", screen.ID).Str("schedule_id", active.ID).
		Int("media", len(result.MediaAssets)).Msg("resolved content for screen")
	return result, nil
}

// Assemble zips ordered items with their assets. Items whose asset is
// missing or inactive are skipped; display_order stays contiguous.
func Assemble(items []model.PlaylistItem) []ResolvedMedia {
	out := make([]ResolvedMedia, 0, len(items))
	for _, it := range items {
		if it.Media == nil || !it.Media.IsActive {
			continue
		}
		out = append(out, ResolvedMedia{
			MediaAsset:      *it.Media,
			PlaylistItemID:  it.ID,
			TransitionType:  it.TransitionType,
			DisplayDuration: DisplayDuration(it, *it.Media),
			DisplayOrder:    len(out),
		})
	}
	return out
}
