package packets

import "github.com/Nixie-Tech-LLC/mesophy/internal/model"

type ProfileResponse struct {
	ID             string              `json:"id"`
	Email          string              `json:"email"`
	FullName       *string             `json:"full_name"`
	Role           model.Role          `json:"role"`
	OrganizationID string              `json:"organization_id"`
	DistrictID     *string             `json:"district_id"`
	LocationID     *string             `json:"location_id"`
	IsActive       bool                `json:"is_active"`
	Organization   *model.Organization `json:"organization,omitempty"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

func NewProfileResponse(u *model.User, org *model.Organization) ProfileResponse {
	return ProfileResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		DistrictID:     u.DistrictID,
		LocationID:     u.LocationID,
		IsActive:       u.IsActive,
		Organization:   org,
	}
}
