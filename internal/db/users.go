package db

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const userColumns = `id, email, hashed_password, full_name, role, organization_id,
	district_id, location_id, is_active, created_at, updated_at`

type UserPatch struct {
	FullName       *string
	HashedPassword *string
	Role           *model.Role
	DistrictID     *string
	LocationID     *string
	IsActive       *bool
}

func (s *pgStore) CreateOrganization(name, slug string) (model.Organization, error) {
	var org model.Organization
	err := s.db.Get(&org, `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, created_at, updated_at`, name, slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to create organization")
		return model.Organization{}, fmt.Errorf("create organization: %w", mapError(err))
	}
	return org, nil
}

func (s *pgStore) GetOrganization(id string) (model.Organization, error) {
	var org model.Organization
	err := s.db.Get(&org, `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE id = $1`, id)
	if err != nil {
		return model.Organization{}, fmt.Errorf("get organization: %w", mapError(err))
	}
	return org, nil
}

// inserts a new user profile and returns the stored row.
func (s *pgStore) CreateUser(u model.User) (model.User, error) {
	var out model.User
	err := s.db.Get(&out, `
		INSERT INTO user_profiles
			(email, hashed_password, full_name, role, organization_id, district_id, location_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+userColumns,
		u.Email, u.HashedPassword, u.FullName, u.Role, u.OrganizationID, u.DistrictID, u.LocationID)
	if err != nil {
		log.Error().Err(err).Str("email", u.Email).Msg("failed to create user")
		return model.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	return out, nil
}

// fetches user by email. returns ErrNotFound if not found.
func (s *pgStore) GetUserByEmail(email string) (*model.User, error) {
	var u model.User
	err := s.db.Get(&u, `SELECT `+userColumns+` FROM user_profiles WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", mapError(err))
	}
	return &u, nil
}

func (s *pgStore) GetUserByID(id string) (*model.User, error) {
	var u model.User
	err := s.db.Get(&u, `SELECT `+userColumns+` FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", mapError(err))
	}
	return &u, nil
}

func (s *pgStore) ListUsers(scope Scope) ([]model.User, error) {
	users := []model.User{}
	err := s.db.Select(&users, `
		SELECT `+userColumns+`
		FROM user_profiles
		WHERE organization_id = $1
		  AND ($2::uuid IS NULL OR district_id = $2)
		  AND ($3::uuid IS NULL OR location_id = $3)
		ORDER BY email`,
		scope.OrganizationID, scope.DistrictID, scope.LocationID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", scope.OrganizationID).Msg("failed to list users")
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	return users, nil
}

// an empty DistrictID or LocationID clears the assignment.
func (s *pgStore) UpdateUser(id string, patch UserPatch) error {
	res, err := s.db.Exec(`
		UPDATE user_profiles
		SET full_name       = COALESCE($2, full_name),
		    role            = COALESCE($3, role),
		    district_id     = CASE WHEN $4::text IS NULL THEN district_id ELSE NULLIF($4, '')::uuid END,
		    location_id     = CASE WHEN $5::text IS NULL THEN location_id ELSE NULLIF($5, '')::uuid END,
		    is_active       = COALESCE($6, is_active),
		    hashed_password = COALESCE($7, hashed_password),
		    updated_at      = now()
		WHERE id = $1`,
		id, patch.FullName, patch.Role, patch.DistrictID, patch.LocationID, patch.IsActive, patch.HashedPassword)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("failed to update user")
		return fmt.Errorf("update user: %w", mapError(err))
	}
	return requireRow(res)
}
