package model

import "time"

type Organization struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Slug      string    `db:"slug"       json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type District struct {
	ID             string    `db:"id"              json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name"            json:"name"`
	Description    *string   `db:"description"     json:"description"`
	ManagerID      *string   `db:"manager_id"      json:"manager_id"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

type Location struct {
	ID             string    `db:"id"              json:"id"`
	DistrictID     string    `db:"district_id"     json:"district_id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name"            json:"name"`
	Address        *string   `db:"address"         json:"address"`
	Timezone       string    `db:"timezone"        json:"timezone"`
	ManagerID      *string   `db:"manager_id"      json:"manager_id"`
	IsActive       bool      `db:"is_active"       json:"is_active"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}
