package schedule

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func pacific(t *testing.T) *time.Location {
	loc, err := time.LoadLocation(ReferenceZone)
	require.NoError(t, err)
	return loc
}

func everyDay() pq.Int64Array { return pq.Int64Array{0, 1, 2, 3, 4, 5, 6} }

func TestMomentOf(t *testing.T) {
	// 2025-01-15 18:30 UTC is Wednesday 10:30 in Pacific standard time
	m := MomentOf(time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC), pacific(t))
	assert.Equal(t, "2025-01-15", m.Date)
	assert.Equal(t, "10:30", m.Clock)
	assert.Equal(t, 3, m.Weekday)
	assert.Equal(t, "wednesday", m.DayName())

	// the Pacific date lags UTC in the evening
	m = MomentOf(time.Date(2025, 1, 16, 3, 0, 0, 0, time.UTC), pacific(t))
	assert.Equal(t, "2025-01-15", m.Date)
	assert.Equal(t, "19:00", m.Clock)
}

func TestMatchScreen(t *testing.T) {
	screen := model.Screen{ID: "screen-1", ScreenType: model.ScreenTypeMenuBoard}

	assert.True(t, MatchScreen(model.Schedule{ScreenID: strPtr("screen-1")}, screen))
	assert.False(t, MatchScreen(model.Schedule{ScreenID: strPtr("screen-2")}, screen))
	assert.True(t, MatchScreen(model.Schedule{
		TargetScreenTypes: pq.StringArray{model.ScreenTypePromotional, model.ScreenTypeMenuBoard},
	}, screen))
	assert.True(t, MatchScreen(model.Schedule{}, screen))
	assert.True(t, MatchScreen(model.Schedule{ScreenID: strPtr("")}, screen))

	// pinned elsewhere but listing the type still matches by type
	assert.True(t, MatchScreen(model.Schedule{
		ScreenID:          strPtr("screen-2"),
		TargetScreenTypes: pq.StringArray{model.ScreenTypeMenuBoard},
	}, screen))
}

func TestTypedScheduleNeverMatchesOtherTypes(t *testing.T) {
	s := model.Schedule{
		IsActive:          true,
		StartDate:         "2020-01-01",
		StartTime:         "00:00",
		EndTime:           "23:59",
		DaysOfWeek:        everyDay(),
		TargetScreenTypes: pq.StringArray{model.ScreenTypePromotional},
	}
	screen := model.Screen{ID: "screen-1", ScreenType: model.ScreenTypeMenuBoard}

	for day := 0; day < 7; day++ {
		for _, clock := range []string{"00:00", "08:15", "12:00", "23:59"} {
			m := Moment{Date: "2025-06-01", Clock: clock, Weekday: day}
			assert.Nil(t, Select([]model.Schedule{s}, screen, m), "day %d at %s", day, clock)
		}
	}
}

func TestActiveAt(t *testing.T) {
	s := model.Schedule{StartTime: "08:00", EndTime: "17:00", DaysOfWeek: pq.Int64Array{1, 2, 3, 4, 5}}

	assert.True(t, ActiveAt(s, Moment{Clock: "08:00", Weekday: 3}))
	assert.True(t, ActiveAt(s, Moment{Clock: "17:00", Weekday: 3}))
	assert.False(t, ActiveAt(s, Moment{Clock: "17:01", Weekday: 3}))
	assert.False(t, ActiveAt(s, Moment{Clock: "07:59", Weekday: 3}))
	assert.False(t, ActiveAt(s, Moment{Clock: "10:00", Weekday: 0}))
}

func TestActiveAtDoesNotCrossMidnight(t *testing.T) {
	s := model.Schedule{StartTime: "22:00", EndTime: "02:00", DaysOfWeek: everyDay()}

	assert.False(t, ActiveAt(s, Moment{Clock: "23:00", Weekday: 1}))
	assert.False(t, ActiveAt(s, Moment{Clock: "01:00", Weekday: 2}))
}

func TestInDateRange(t *testing.T) {
	s := model.Schedule{StartDate: "2025-01-10", EndDate: strPtr("2025-01-20")}

	assert.True(t, InDateRange(s, Moment{Date: "2025-01-10"}))
	assert.True(t, InDateRange(s, Moment{Date: "2025-01-20"}))
	assert.False(t, InDateRange(s, Moment{Date: "2025-01-21"}))
	assert.False(t, InDateRange(s, Moment{Date: "2025-01-09"}))

	open := model.Schedule{StartDate: "2025-01-10"}
	assert.True(t, InDateRange(open, Moment{Date: "2030-12-31"}))
}

func TestSelectTakesFirstMatchInStoreOrder(t *testing.T) {
	screen := model.Screen{ID: "screen-s", ScreenType: model.ScreenTypeMenuBoard}
	unscoped := model.Schedule{
		ID: "all-day", IsActive: true, StartDate: "2025-01-01",
		StartTime: "00:00", EndTime: "23:59", DaysOfWeek: everyDay(),
	}
	pinned := model.Schedule{
		ID: "weekday", IsActive: true, StartDate: "2025-01-01", ScreenID: strPtr("screen-s"),
		StartTime: "08:00", EndTime: "17:00", DaysOfWeek: pq.Int64Array{1, 2, 3, 4, 5},
	}
	typed := model.Schedule{
		ID: "menus", IsActive: true, StartDate: "2025-01-01",
		TargetScreenTypes: pq.StringArray{model.ScreenTypeMenuBoard},
		StartTime:         "00:00", EndTime: "23:59", DaysOfWeek: everyDay(),
	}
	wednesday10 := Moment{Date: "2025-01-15", Clock: "10:00", Weekday: 3}

	got := Select([]model.Schedule{pinned, unscoped}, screen, wednesday10)
	require.NotNil(t, got)
	assert.Equal(t, "weekday", got.ID)

	got = Select([]model.Schedule{unscoped, pinned}, screen, wednesday10)
	require.NotNil(t, got)
	assert.Equal(t, "all-day", got.ID)

	got = Select([]model.Schedule{unscoped, typed}, screen, wednesday10)
	require.NotNil(t, got)
	assert.Equal(t, "all-day", got.ID)

	got = Select([]model.Schedule{typed, pinned}, screen, wednesday10)
	require.NotNil(t, got)
	assert.Equal(t, "menus", got.ID)

	// outside the pinned window the next match applies
	got = Select([]model.Schedule{pinned, unscoped}, screen, Moment{Date: "2025-01-15", Clock: "18:00", Weekday: 3})
	require.NotNil(t, got)
	assert.Equal(t, "all-day", got.ID)
}

func TestSelectSkipsSchedulesForOtherScreens(t *testing.T) {
	screen := model.Screen{ID: "screen-s", ScreenType: model.ScreenTypeMenuBoard}
	elsewhere := model.Schedule{ID: "other", IsActive: true, ScreenID: strPtr("screen-x"),
		StartTime: "00:00", EndTime: "23:59", DaysOfWeek: everyDay()}
	drive := model.Schedule{ID: "drive", IsActive: true, TargetScreenTypes: pq.StringArray{model.ScreenTypePromotional},
		StartTime: "00:00", EndTime: "23:59", DaysOfWeek: everyDay()}
	all := model.Schedule{ID: "all", IsActive: true, StartTime: "00:00", EndTime: "23:59", DaysOfWeek: everyDay()}

	got := Select([]model.Schedule{elsewhere, drive, all}, screen, Moment{Date: "2025-01-15", Clock: "12:00", Weekday: 3})
	require.NotNil(t, got)
	assert.Equal(t, "all", got.ID)
}

func TestSelectSkipsInactive(t *testing.T) {
	screen := model.Screen{ID: "screen-s"}
	s := model.Schedule{ID: "a", IsActive: false, StartTime: "00:00", EndTime: "23:59", DaysOfWeek: everyDay()}

	assert.Nil(t, Select([]model.Schedule{s}, screen, Moment{Date: "2025-01-15", Clock: "12:00", Weekday: 3}))
}

func TestDisplayDuration(t *testing.T) {
	tests := []struct {
		name     string
		item     model.PlaylistItem
		asset    model.MediaAsset
		expected int
	}{
		{"override wins", model.PlaylistItem{DurationOverride: intPtr(25)}, model.MediaAsset{Duration: intPtr(40), MediaType: model.MediaVideo}, 25},
		{"asset duration", model.PlaylistItem{}, model.MediaAsset{Duration: intPtr(40), MediaType: model.MediaVideo}, 40},
		{"image default", model.PlaylistItem{}, model.MediaAsset{MediaType: model.MediaImage}, 10},
		{"calendar default", model.PlaylistItem{}, model.MediaAsset{MediaType: model.MediaCalendar}, 10},
		{"youtube default", model.PlaylistItem{}, model.MediaAsset{MediaType: model.MediaYouTube}, 600},
		{"zero override ignored", model.PlaylistItem{DurationOverride: intPtr(0)}, model.MediaAsset{Duration: intPtr(12)}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayDuration(tt.item, tt.asset))
		})
	}
}
