package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
)

// UserResponse mirrors model.User without the password hash.
type UserResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       *string    `json:"full_name"`
	Role           model.Role `json:"role"`
	OrganizationID string     `json:"organization_id"`
	DistrictID     *string    `json:"district_id"`
	LocationID     *string    `json:"location_id"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		DistrictID:     u.DistrictID,
		LocationID:     u.LocationID,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      u.UpdatedAt.Format(time.RFC3339),
	}
}

// ScreenResponse adds pairing and heartbeat state to the stored screen.
type ScreenResponse struct {
	model.Screen
	Paired  bool `json:"paired"`
	IsStale bool `json:"is_stale"`
}

func NewScreenResponse(s model.Screen, now time.Time) ScreenResponse {
	_, stale := s.HeartbeatAge(now)
	return ScreenResponse{Screen: s, Paired: s.Paired(), IsStale: stale}
}

type CalendarEventsResponse struct {
	MediaID string `json:"media_id"`
	Date    string `json:"date"`
	Events  any    `json:"events"`
}

type PairDeviceResponse struct {
	Success  bool   `json:"success"`
	ScreenID string `json:"screen_id"`
	DeviceID string `json:"device_id"`
}

type PollingConfigResponse struct {
	Config   *polling.Config  `json:"config"`
	Current  CurrentInterval  `json:"current"`
	Estimate polling.Estimate `json:"estimate"`
}

type CurrentInterval struct {
	Window          string `json:"window"`
	IntervalSeconds int    `json:"interval_seconds"`
}
