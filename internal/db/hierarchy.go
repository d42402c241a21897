package db

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type DistrictPatch struct {
	Name        *string
	Description *string
	ManagerID   *string
}

type LocationPatch struct {
	Name      *string
	Address   *string
	Timezone  *string
	ManagerID *string
	IsActive  *bool
}

const districtColumns = `id, organization_id, name, description, manager_id, created_at, updated_at`

const locationSelect = `
	SELECT l.id, l.district_id, d.organization_id, l.name, l.address, l.timezone,
	       l.manager_id, l.is_active, l.created_at, l.updated_at
	FROM locations l
	JOIN districts d ON d.id = l.district_id`

// @ DISTRICTS
func (s *pgStore) ListDistricts(scope Scope) ([]model.District, error) {
	out := []model.District{}
	err := s.db.Select(&out, `
		SELECT `+districtColumns+`
		FROM districts
		WHERE organization_id = $1
		  AND ($2::uuid IS NULL OR id = $2)
		  AND ($3::uuid IS NULL OR id = (SELECT district_id FROM locations WHERE id = $3))
		ORDER BY name`, scope.OrganizationID, scope.DistrictID, scope.LocationID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", scope.OrganizationID).Msg("failed to list districts")
		return nil, fmt.Errorf("list districts: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) GetDistrict(id string) (model.District, error) {
	var d model.District
	if err := s.db.Get(&d, `SELECT `+districtColumns+` FROM districts WHERE id = $1`, id); err != nil {
		return model.District{}, fmt.Errorf("get district: %w", mapError(err))
	}
	return d, nil
}

func (s *pgStore) CreateDistrict(d model.District) (model.District, error) {
	var out model.District
	err := s.db.Get(&out, `
		INSERT INTO districts (organization_id, name, description, manager_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+districtColumns,
		d.OrganizationID, d.Name, d.Description, d.ManagerID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", d.OrganizationID).Msg("failed to create district")
		return model.District{}, fmt.Errorf("create district: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) UpdateDistrict(id string, patch DistrictPatch) error {
	res, err := s.db.Exec(`
		UPDATE districts
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    manager_id  = CASE WHEN $4::text IS NULL THEN manager_id ELSE NULLIF($4, '')::uuid END,
		    updated_at  = now()
		WHERE id = $1`, id, patch.Name, patch.Description, patch.ManagerID)
	if err != nil {
		log.Error().Err(err).Str("district_id", id).Msg("failed to update district")
		return fmt.Errorf("update district: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeleteDistrict(id string) error {
	res, err := s.db.Exec(`DELETE FROM districts WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("district_id", id).Msg("failed to delete district")
		return fmt.Errorf("delete district: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) CountLocationsInDistrict(id string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT count(*) FROM locations WHERE district_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count locations: %w", mapError(err))
	}
	return n, nil
}

// @ LOCATIONS
func (s *pgStore) ListLocations(scope Scope) ([]model.Location, error) {
	out := []model.Location{}
	err := s.db.Select(&out, locationSelect+`
		WHERE d.organization_id = $1
		  AND ($2::uuid IS NULL OR l.district_id = $2)
		  AND ($3::uuid IS NULL OR l.id = $3)
		ORDER BY l.name`, scope.OrganizationID, scope.DistrictID, scope.LocationID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", scope.OrganizationID).Msg("failed to list locations")
		return nil, fmt.Errorf("list locations: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) GetLocation(id string) (model.Location, error) {
	var l model.Location
	if err := s.db.Get(&l, locationSelect+` WHERE l.id = $1`, id); err != nil {
		return model.Location{}, fmt.Errorf("get location: %w", mapError(err))
	}
	return l, nil
}

func (s *pgStore) CreateLocation(l model.Location) (model.Location, error) {
	var id string
	err := s.db.Get(&id, `
		INSERT INTO locations (district_id, name, address, timezone, manager_id)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'America/Los_Angeles'), $5)
		RETURNING id`,
		l.DistrictID, l.Name, l.Address, l.Timezone, l.ManagerID)
	if err != nil {
		log.Error().Err(err).Str("district_id", l.DistrictID).Msg("failed to create location")
		return model.Location{}, fmt.Errorf("create location: %w", mapError(err))
	}
	return s.GetLocation(id)
}

func (s *pgStore) UpdateLocation(id string, patch LocationPatch) error {
	res, err := s.db.Exec(`
		UPDATE locations
		SET name       = COALESCE($2, name),
		    address    = COALESCE($3, address),
		    timezone   = COALESCE($4, timezone),
		    manager_id = CASE WHEN $5::text IS NULL THEN manager_id ELSE NULLIF($5, '')::uuid END,
		    is_active  = COALESCE($6, is_active),
		    updated_at = now()
		WHERE id = $1`, id, patch.Name, patch.Address, patch.Timezone, patch.ManagerID, patch.IsActive)
	if err != nil {
		log.Error().Err(err).Str("location_id", id).Msg("failed to update location")
		return fmt.Errorf("update location: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeleteLocation(id string) error {
	res, err := s.db.Exec(`DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("location_id", id).Msg("failed to delete location")
		return fmt.Errorf("delete location: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) CountScreensAtLocation(id string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT count(*) FROM screens WHERE location_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count screens: %w", mapError(err))
	}
	return n, nil
}
