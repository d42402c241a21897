package db

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const notificationColumns = `id, screen_id, notification_type, title, message, payload,
	priority, processed_at, created_at`

// screenMatchesSchedule is the SQL form of the resolver's targeting rule:
// pinned screen OR listed screen type OR untargeted.
const screenMatchesSchedule = `(
	s.id = sc.screen_id
	OR s.screen_type = ANY(sc.target_screen_types)
	OR (sc.screen_id IS NULL AND cardinality(sc.target_screen_types) = 0)
)`

const scheduledScreens = `
	SELECT DISTINCT s.id
	FROM schedules sc
	JOIN districts d ON d.organization_id = sc.organization_id
	JOIN locations l ON l.district_id = d.id
	JOIN screens s ON s.location_id = l.id
	WHERE sc.is_active AND s.is_active AND ` + screenMatchesSchedule

func (s *pgStore) CreateDeviceNotifications(notifications []model.DeviceNotification) ([]model.DeviceNotification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}
	out := make([]model.DeviceNotification, 0, len(notifications))
	for _, n := range notifications {
		payload := n.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		var stored model.DeviceNotification
		err := s.db.Get(&stored, `
			INSERT INTO device_notifications
				(screen_id, notification_type, title, message, payload, priority)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+notificationColumns,
			n.ScreenID, n.NotificationType, n.Title, n.Message, payload, n.Priority)
		if err != nil {
			log.Error().Err(err).Str("screen_id", n.ScreenID).Str("type", n.NotificationType).
				Msg("failed to insert device notification")
			return out, fmt.Errorf("create device notification: %w", mapError(err))
		}
		out = append(out, stored)
	}
	return out, nil
}

func (s *pgStore) ListPendingNotifications(screenID string, limit int) ([]model.DeviceNotification, error) {
	out := []model.DeviceNotification{}
	err := s.db.Select(&out, `
		SELECT `+notificationColumns+`
		FROM device_notifications
		WHERE screen_id = $1 AND processed_at IS NULL
		ORDER BY priority DESC, created_at
		LIMIT $2`, screenID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) CountPendingNotifications(screenID string) (int, error) {
	var n int
	err := s.db.Get(&n, `
		SELECT count(*) FROM device_notifications
		WHERE screen_id = $1 AND processed_at IS NULL`, screenID)
	if err != nil {
		return 0, fmt.Errorf("count pending notifications: %w", mapError(err))
	}
	return n, nil
}

func (s *pgStore) MarkNotificationsProcessed(screenID string, ids []string) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE device_notifications
		SET processed_at = now()
		WHERE screen_id = $1 AND id = ANY($2::uuid[]) AND processed_at IS NULL`,
		screenID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark notifications processed: %w", mapError(err))
	}
	return res.RowsAffected()
}

// ScreenIDsForPlaylist finds screens targeted by active schedules playing the playlist.
func (s *pgStore) ScreenIDsForPlaylist(playlistID string) ([]string, error) {
	ids := []string{}
	if err := s.db.Select(&ids, scheduledScreens+` AND sc.playlist_id = $1`, playlistID); err != nil {
		return nil, fmt.Errorf("screens for playlist: %w", mapError(err))
	}
	return ids, nil
}

// ScreenIDsForMedia walks media → playlist items → playlists → schedules → screens.
func (s *pgStore) ScreenIDsForMedia(mediaID string) ([]string, error) {
	ids := []string{}
	err := s.db.Select(&ids, scheduledScreens+`
		AND sc.playlist_id IN (
			SELECT DISTINCT playlist_id FROM playlist_items WHERE media_asset_id = $1
		)`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("screens for media: %w", mapError(err))
	}
	return ids, nil
}

// ScreenIDsForSchedule applies the targeting rule of a single schedule,
// active or not, so a deactivation still reaches the screens it used to cover.
func (s *pgStore) ScreenIDsForSchedule(sc model.Schedule) ([]string, error) {
	types := sc.TargetScreenTypes
	if types == nil {
		types = pq.StringArray{}
	}
	ids := []string{}
	err := s.db.Select(&ids, `
		SELECT s.id
		FROM screens s
		JOIN locations l ON l.id = s.location_id
		JOIN districts d ON d.id = l.district_id
		WHERE d.organization_id = $1
		  AND s.is_active
		  AND (
			s.id = $2::uuid
			OR s.screen_type = ANY($3::text[])
			OR ($2::uuid IS NULL AND cardinality($3::text[]) = 0)
		  )`, sc.OrganizationID, sc.ScreenID, types)
	if err != nil {
		return nil, fmt.Errorf("screens for schedule: %w", mapError(err))
	}
	return ids, nil
}
