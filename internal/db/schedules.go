package db

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// SchedulePatch is applied with COALESCE semantics. An empty ScreenID or
// EndDate clears the column.
type SchedulePatch struct {
	Name              *string
	PlaylistID        *string
	ScreenID          *string
	TargetScreenTypes []string
	StartDate         *string
	EndDate           *string
	StartTime         *string
	EndTime           *string
	DaysOfWeek        []int64
	Priority          *int
	IsActive          *bool
}

const scheduleColumns = `id, organization_id, name, playlist_id, screen_id, target_screen_types,
	to_char(start_date, 'YYYY-MM-DD') AS start_date,
	to_char(end_date, 'YYYY-MM-DD') AS end_date,
	to_char(start_time, 'HH24:MI') AS start_time,
	to_char(end_time, 'HH24:MI') AS end_time,
	days_of_week, priority, is_active, created_by, created_at, updated_at`

func (s *pgStore) ListSchedules(orgID string, screenID *string) ([]model.Schedule, error) {
	out := []model.Schedule{}
	err := s.db.Select(&out, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE organization_id = $1
		  AND ($2::uuid IS NULL OR screen_id = $2)
		ORDER BY created_at, id`, orgID, screenID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", orgID).Msg("failed to list schedules")
		return nil, fmt.Errorf("list schedules: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) GetScheduleByID(id string) (model.Schedule, error) {
	var sc model.Schedule
	if err := s.db.Get(&sc, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id); err != nil {
		return model.Schedule{}, fmt.Errorf("get schedule: %w", mapError(err))
	}
	return sc, nil
}

func (s *pgStore) CreateSchedule(sc model.Schedule) (model.Schedule, error) {
	types := sc.TargetScreenTypes
	if types == nil {
		types = pq.StringArray{}
	}
	days := sc.DaysOfWeek
	if days == nil {
		days = pq.Int64Array{0, 1, 2, 3, 4, 5, 6}
	}

	var out model.Schedule
	err := s.db.Get(&out, `
		INSERT INTO schedules
			(organization_id, name, playlist_id, screen_id, target_screen_types,
			 start_date, end_date, start_time, end_time, days_of_week, priority, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::date, $8::time, $9::time, $10, $11, $12, $13)
		RETURNING `+scheduleColumns,
		sc.OrganizationID, sc.Name, sc.PlaylistID, sc.ScreenID, types,
		sc.StartDate, sc.EndDate, sc.StartTime, sc.EndTime, days, sc.Priority, sc.IsActive, sc.CreatedBy)
	if err != nil {
		log.Error().Err(err).Str("organization_id", sc.OrganizationID).Msg("failed to create schedule")
		return model.Schedule{}, fmt.Errorf("create schedule: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) UpdateSchedule(id string, patch SchedulePatch) error {
	var types, days any
	if patch.TargetScreenTypes != nil {
		types = pq.StringArray(patch.TargetScreenTypes)
	}
	if patch.DaysOfWeek != nil {
		days = pq.Int64Array(patch.DaysOfWeek)
	}
	res, err := s.db.Exec(`
		UPDATE schedules
		SET name                = COALESCE($2, name),
		    playlist_id         = COALESCE($3::uuid, playlist_id),
		    screen_id           = CASE WHEN $4::text IS NULL THEN screen_id ELSE NULLIF($4, '')::uuid END,
		    target_screen_types = COALESCE($5::text[], target_screen_types),
		    start_date          = COALESCE($6::date, start_date),
		    end_date            = CASE WHEN $7::text IS NULL THEN end_date ELSE NULLIF($7, '')::date END,
		    start_time          = COALESCE($8::time, start_time),
		    end_time            = COALESCE($9::time, end_time),
		    days_of_week        = COALESCE($10::integer[], days_of_week),
		    priority            = COALESCE($11, priority),
		    is_active           = COALESCE($12, is_active),
		    updated_at          = now()
		WHERE id = $1`,
		id, patch.Name, patch.PlaylistID, patch.ScreenID, types, patch.StartDate, patch.EndDate,
		patch.StartTime, patch.EndTime, days, patch.Priority, patch.IsActive)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", id).Msg("failed to update schedule")
		return fmt.Errorf("update schedule: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeleteSchedule(id string) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", id).Msg("failed to delete schedule")
		return fmt.Errorf("delete schedule: %w", mapError(err))
	}
	return requireRow(res)
}

// ListActiveSchedulesForDate returns the organization's active schedules whose
// inclusive date range contains date (YYYY-MM-DD), oldest first.
func (s *pgStore) ListActiveSchedulesForDate(orgID, date string) ([]model.Schedule, error) {
	out := []model.Schedule{}
	err := s.db.Select(&out, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE organization_id = $1
		  AND is_active
		  AND start_date <= $2::date
		  AND (end_date IS NULL OR end_date >= $2::date)
		ORDER BY created_at, id`, orgID, date)
	if err != nil {
		log.Error().Err(err).Str("organization_id", orgID).Str("date", date).
			Msg("failed to list active schedules")
		return nil, fmt.Errorf("list active schedules: %w", mapError(err))
	}
	return out, nil
}
