package model

import "time"

type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleDistrictManager Role = "district_manager"
	RoleLocationManager Role = "location_manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleDistrictManager, RoleLocationManager:
		return true
	}
	return false
}

type User struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	FullName       *string   `db:"full_name"`
	Role           Role      `db:"role"`
	OrganizationID string    `db:"organization_id"`
	DistrictID     *string   `db:"district_id"`
	LocationID     *string   `db:"location_id"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
