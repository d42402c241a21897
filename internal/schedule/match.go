// Package schedule resolves which schedule a screen should be playing now and
// assembles the playlist that schedule points at.
package schedule

import (
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// ReferenceZone is the zone every screen is resolved in, regardless of the
// timezone recorded on its location.
const ReferenceZone = "America/Los_Angeles"

const (
	// DefaultDuration is the display time in seconds for assets without one.
	DefaultDuration = 10
	// DefaultYouTubeDuration replaces DefaultDuration for youtube assets.
	DefaultYouTubeDuration = 600
)

// Moment is a wall-clock instant expressed the way schedules are written.
type Moment struct {
	Date    string // YYYY-MM-DD
	Clock   string // HH:MM
	Weekday int    // 0 = Sunday
}

func (m Moment) DayName() string {
	return strings.ToLower(time.Weekday(m.Weekday).String())
}

// MomentOf converts t into loc and formats it for schedule matching.
func MomentOf(t time.Time, loc *time.Location) Moment {
	local := t.In(loc)
	return Moment{
		Date:    local.Format("2006-01-02"),
		Clock:   local.Format("15:04"),
		Weekday: int(local.Weekday()),
	}
}

// MatchScreen applies the targeting rule: the schedule is pinned to the
// screen, or lists its type, or targets nothing (and so applies to all).
func MatchScreen(s model.Schedule, screen model.Screen) bool {
	pinned := s.ScreenID != nil && *s.ScreenID != ""
	if pinned && *s.ScreenID == screen.ID {
		return true
	}
	for _, t := range s.TargetScreenTypes {
		if t == screen.ScreenType {
			return true
		}
	}
	return !pinned && len(s.TargetScreenTypes) == 0
}

// InDateRange reports whether m.Date is within the inclusive start/end dates.
func InDateRange(s model.Schedule, m Moment) bool {
	if s.StartDate != "" && m.Date < s.StartDate {
		return false
	}
	if s.EndDate != nil && *s.EndDate != "" && m.Date > *s.EndDate {
		return false
	}
	return true
}

// ActiveAt reports whether the weekday is listed and start <= now <= end
// by plain "HH:MM" string comparison. A window such as 22:00-02:00 never matches.
func ActiveAt(s model.Schedule, m Moment) bool {
	dayOK := false
	for _, d := range s.DaysOfWeek {
		if int(d) == m.Weekday {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}
	return s.StartTime <= m.Clock && m.Clock <= s.EndTime
}

// Select returns the first schedule, in input order, that targets the screen
// and is active at m. There is no priority field: with overlapping schedules
// the store order (created_at, id) decides.
func Select(schedules []model.Schedule, screen model.Screen, m Moment) *model.Schedule {
	for i := range schedules {
		s := &schedules[i]
		if !s.IsActive || !InDateRange(*s, m) || !MatchScreen(*s, screen) {
			continue
		}
		if ActiveAt(*s, m) {
			return s
		}
	}
	return nil
}

// DisplayDuration picks the override, then the asset's own duration, then
// the per-type default. Zero or negative values count as unset.
func DisplayDuration(item model.PlaylistItem, asset model.MediaAsset) int {
	if item.DurationOverride != nil && *item.DurationOverride > 0 {
		return *item.DurationOverride
	}
	if asset.Duration != nil && *asset.Duration > 0 {
		return *asset.Duration
	}
	return DefaultDurationFor(asset.MediaType)
}

// DefaultDurationFor returns the fallback display time for a media type.
func DefaultDurationFor(mediaType string) int {
	if mediaType == model.MediaYouTube {
		return DefaultYouTubeDuration
	}
	return DefaultDuration
}
