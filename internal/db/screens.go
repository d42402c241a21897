package db

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type ScreenPatch struct {
	LocationID   *string
	Name         *string
	ScreenType   *string
	Resolution   *string
	Orientation  *string
	DeviceStatus *string
	IsActive     *bool
}

const screenSelect = `
	SELECT s.id, s.location_id, l.district_id, d.organization_id, s.name, s.screen_type,
	       s.device_id, s.device_token, s.device_status, s.resolution, s.orientation,
	       s.ip_address, s.firmware_version, s.last_heartbeat_at, s.is_active,
	       s.created_at, s.updated_at
	FROM screens s
	JOIN locations l ON l.id = s.location_id
	JOIN districts d ON d.id = l.district_id`

func (s *pgStore) ListScreens(scope Scope) ([]model.Screen, error) {
	screens := []model.Screen{}
	err := s.db.Select(&screens, screenSelect+`
		WHERE d.organization_id = $1
		  AND ($2::uuid IS NULL OR l.district_id = $2)
		  AND ($3::uuid IS NULL OR s.location_id = $3)
		ORDER BY s.name`, scope.OrganizationID, scope.DistrictID, scope.LocationID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", scope.OrganizationID).Msg("failed to list screens")
		return nil, fmt.Errorf("list screens: %w", mapError(err))
	}
	return screens, nil
}

func (s *pgStore) GetScreenByID(id string) (model.Screen, error) {
	var screen model.Screen
	if err := s.db.Get(&screen, screenSelect+` WHERE s.id = $1`, id); err != nil {
		return model.Screen{}, fmt.Errorf("get screen by id: %w", mapError(err))
	}
	return screen, nil
}

func (s *pgStore) GetScreenByDeviceID(deviceID string) (model.Screen, error) {
	var screen model.Screen
	if err := s.db.Get(&screen, screenSelect+` WHERE s.device_id = $1`, deviceID); err != nil {
		return model.Screen{}, fmt.Errorf("get screen by device id: %w", mapError(err))
	}
	return screen, nil
}

func (s *pgStore) GetScreenByDeviceToken(token string) (model.Screen, error) {
	var screen model.Screen
	if err := s.db.Get(&screen, screenSelect+` WHERE s.device_token = $1`, token); err != nil {
		return model.Screen{}, fmt.Errorf("get screen by device token: %w", mapError(err))
	}
	return screen, nil
}

func (s *pgStore) CreateScreen(screen model.Screen) (model.Screen, error) {
	var id string
	err := s.db.Get(&id, `
		INSERT INTO screens (location_id, name, screen_type, resolution, orientation)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'landscape'))
		RETURNING id`,
		screen.LocationID, screen.Name, screen.ScreenType, screen.Resolution, screen.Orientation)
	if err != nil {
		log.Error().Err(err).Str("location_id", screen.LocationID).Msg("failed to create screen")
		return model.Screen{}, fmt.Errorf("create screen: %w", mapError(err))
	}
	return s.GetScreenByID(id)
}

func (s *pgStore) UpdateScreen(id string, patch ScreenPatch) error {
	res, err := s.db.Exec(`
		UPDATE screens
		SET location_id   = COALESCE($2, location_id),
		    name          = COALESCE($3, name),
		    screen_type   = COALESCE($4, screen_type),
		    resolution    = COALESCE($5, resolution),
		    orientation   = COALESCE($6, orientation),
		    device_status = COALESCE($7, device_status),
		    is_active     = COALESCE($8, is_active),
		    updated_at    = now()
		WHERE id = $1`,
		id, patch.LocationID, patch.Name, patch.ScreenType, patch.Resolution,
		patch.Orientation, patch.DeviceStatus, patch.IsActive)
	if err != nil {
		log.Error().Err(err).Str("screen_id", id).Msg("failed to update screen")
		return fmt.Errorf("update screen: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeleteScreen(id string) error {
	res, err := s.db.Exec(`DELETE FROM screens WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("screen_id", id).Msg("failed to delete screen")
		return fmt.Errorf("delete screen: %w", mapError(err))
	}
	return requireRow(res)
}

// counts every schedule pinned to the screen, active or not.
func (s *pgStore) CountSchedulesForScreen(id string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT count(*) FROM schedules WHERE screen_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count schedules for screen: %w", mapError(err))
	}
	return n, nil
}

func (s *pgStore) CountScreensInOrganization(orgID string) (int, error) {
	var n int
	err := s.db.Get(&n, `
		SELECT count(*)
		FROM screens s
		JOIN locations l ON l.id = s.location_id
		JOIN districts d ON d.id = l.district_id
		WHERE d.organization_id = $1 AND s.is_active`, orgID)
	if err != nil {
		return 0, fmt.Errorf("count screens in organization: %w", mapError(err))
	}
	return n, nil
}

// RecordHeartbeat updates the screen's device fields and appends a log row.
// The two writes are not wrapped in a transaction.
func (s *pgStore) RecordHeartbeat(screenID string, hb model.Heartbeat) error {
	res, err := s.db.Exec(`
		UPDATE screens
		SET device_status     = $2,
		    ip_address        = COALESCE($3, ip_address),
		    firmware_version  = COALESCE($4, firmware_version),
		    last_heartbeat_at = now(),
		    updated_at        = now()
		WHERE id = $1`, screenID, hb.Status, hb.IPAddress, hb.FirmwareVersion)
	if err != nil {
		log.Error().Err(err).Str("screen_id", screenID).Msg("failed to update screen heartbeat")
		return fmt.Errorf("record heartbeat: %w", mapError(err))
	}
	if err := requireRow(res); err != nil {
		return err
	}

	metadata := hb.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	if _, err := s.db.Exec(`
		INSERT INTO screen_logs (screen_id, log_level, message, metadata)
		VALUES ($1, 'info', $2, $3)`,
		screenID, "heartbeat: "+hb.Status, metadata); err != nil {
		log.Error().Err(err).Str("screen_id", screenID).Msg("failed to append heartbeat log")
		return fmt.Errorf("append screen log: %w", mapError(err))
	}
	return nil
}

func (s *pgStore) ListScreenLogs(screenID string, limit int) ([]model.ScreenLog, error) {
	logs := []model.ScreenLog{}
	err := s.db.Select(&logs, `
		SELECT id, screen_id, log_level, message, metadata, created_at
		FROM screen_logs
		WHERE screen_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, screenID, limit)
	if err != nil {
		return nil, fmt.Errorf("list screen logs: %w", mapError(err))
	}
	return logs, nil
}

func (s *pgStore) PairDevice(screenID, deviceID, deviceToken string) error {
	res, err := s.db.Exec(`
		UPDATE screens
		SET device_id     = $2,
		    device_token  = $3,
		    device_status = 'online',
		    updated_at    = now()
		WHERE id = $1`, screenID, deviceID, deviceToken)
	if err != nil {
		log.Error().Err(err).Str("screen_id", screenID).Str("device_id", deviceID).
			Msg("failed to assign device to screen")
		return fmt.Errorf("pair device: %w", mapError(err))
	}
	return requireRow(res)
}
