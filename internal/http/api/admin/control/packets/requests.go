package packets

import "github.com/Nixie-Tech-LLC/mesophy/internal/model"

// Nullable ids (manager_id, folder_id, screen_id, end_date ...) are cleared
// by sending an empty string; omitting the field leaves them untouched.

type CreateDistrictRequest struct {
	Name        string  `json:"name"        binding:"required"`
	Description *string `json:"description"`
	ManagerID   *string `json:"manager_id"  binding:"omitempty,uuid"`
}

type UpdateDistrictRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1"`
	Description *string `json:"description"`
	ManagerID   *string `json:"manager_id"`
}

type CreateLocationRequest struct {
	DistrictID string  `json:"district_id" binding:"required,uuid"`
	Name       string  `json:"name"        binding:"required"`
	Address    *string `json:"address"`
	Timezone   string  `json:"timezone"`
	ManagerID  *string `json:"manager_id"  binding:"omitempty,uuid"`
}

type UpdateLocationRequest struct {
	Name      *string `json:"name"      binding:"omitempty,min=1"`
	Address   *string `json:"address"`
	Timezone  *string `json:"timezone"  binding:"omitempty,min=1"`
	ManagerID *string `json:"manager_id"`
	IsActive  *bool   `json:"is_active"`
}

type CreateScreenRequest struct {
	LocationID  string  `json:"location_id" binding:"required,uuid"`
	Name        string  `json:"name"        binding:"required"`
	ScreenType  string  `json:"screen_type" binding:"required,screentype"`
	Resolution  *string `json:"resolution"`
	Orientation string  `json:"orientation" binding:"omitempty,oneof=landscape portrait"`
}

type UpdateScreenRequest struct {
	LocationID   *string `json:"location_id"   binding:"omitempty,uuid"`
	Name         *string `json:"name"          binding:"omitempty,min=1"`
	ScreenType   *string `json:"screen_type"   binding:"omitempty,screentype"`
	Resolution   *string `json:"resolution"`
	Orientation  *string `json:"orientation"   binding:"omitempty,oneof=landscape portrait"`
	DeviceStatus *string `json:"device_status" binding:"omitempty,oneof=online offline error maintenance"`
	IsActive     *bool   `json:"is_active"`
}

type CreateUserRequest struct {
	Email      string     `json:"email"       binding:"required,email"`
	Password   string     `json:"password"    binding:"required,min=8"`
	FullName   *string    `json:"full_name"`
	Role       model.Role `json:"role"        binding:"required,role"`
	DistrictID *string    `json:"district_id" binding:"omitempty,uuid"`
	LocationID *string    `json:"location_id" binding:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	FullName   *string     `json:"full_name"`
	Role       *model.Role `json:"role"        binding:"omitempty,role"`
	DistrictID *string     `json:"district_id"`
	LocationID *string     `json:"location_id"`
	IsActive   *bool       `json:"is_active"`
}

type UpdateMediaRequest struct {
	Name        *string  `json:"name"        binding:"omitempty,min=1"`
	Description *string  `json:"description"`
	FolderID    *string  `json:"folder_id"`
	Duration    *int     `json:"duration"    binding:"omitempty,min=1"`
	Tags        []string `json:"tags"`
}

type CreateYouTubeRequest struct {
	Name        string   `json:"name"        binding:"required"`
	URL         string   `json:"youtube_url" binding:"required,url"`
	Description *string  `json:"description"`
	FolderID    *string  `json:"folder_id"   binding:"omitempty,uuid"`
	Duration    *int     `json:"duration"    binding:"omitempty,min=1"`
	Tags        []string `json:"tags"`
}

// CreateCalendarRequest registers a calendar the dashboard already connected
// through the provider's OAuth consent screen.
type CreateCalendarRequest struct {
	Name         string  `json:"name"          binding:"required"`
	Provider     string  `json:"provider"      binding:"omitempty,oneof=microsoft"`
	CalendarID   string  `json:"calendar_id"`
	CalendarName string  `json:"calendar_name"`
	AccessToken  string  `json:"access_token"  binding:"required"`
	RefreshToken string  `json:"refresh_token" binding:"required"`
	ExpiresIn    int     `json:"expires_in"    binding:"omitempty,min=0"`
	FolderID     *string `json:"folder_id"     binding:"omitempty,uuid"`
	Duration     *int    `json:"duration"      binding:"omitempty,min=1"`
}

type CreateFolderRequest struct {
	Name           string  `json:"name"             binding:"required"`
	ParentFolderID *string `json:"parent_folder_id" binding:"omitempty,uuid"`
}

type UpdateFolderRequest struct {
	Name           *string `json:"name"             binding:"omitempty,min=1"`
	ParentFolderID *string `json:"parent_folder_id"`
}

type CreatePlaylistRequest struct {
	Name        string  `json:"name"        binding:"required"`
	Description *string `json:"description"`
	LoopMode    string  `json:"loop_mode"   binding:"omitempty,oneof=loop once shuffle"`
}

type UpdatePlaylistRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1"`
	Description *string `json:"description"`
	LoopMode    *string `json:"loop_mode"   binding:"omitempty,oneof=loop once shuffle"`
	IsActive    *bool   `json:"is_active"`
}

type AddPlaylistItemRequest struct {
	MediaAssetID     string `json:"media_asset_id"    binding:"required,uuid"`
	Position         *int   `json:"position"          binding:"omitempty,min=0"`
	DurationOverride *int   `json:"duration_override" binding:"omitempty,min=1"`
	TransitionType   string `json:"transition_type"   binding:"omitempty,oneof=fade slide cut dissolve"`
}

type UpdatePlaylistItemRequest struct {
	DurationOverride *int    `json:"duration_override" binding:"omitempty,min=1"`
	TransitionType   *string `json:"transition_type"   binding:"omitempty,oneof=fade slide cut dissolve"`
}

type ReorderItemsRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required,dive,uuid"`
}

type CreateScheduleRequest struct {
	Name              string   `json:"name"                binding:"required"`
	PlaylistID        string   `json:"playlist_id"         binding:"required,uuid"`
	ScreenID          *string  `json:"screen_id"           binding:"omitempty,uuid"`
	TargetScreenTypes []string `json:"target_screen_types" binding:"omitempty,dive,screentype"`
	StartDate         string   `json:"start_date"          binding:"required,datetime=2006-01-02"`
	EndDate           *string  `json:"end_date"            binding:"omitempty,datetime=2006-01-02"`
	StartTime         string   `json:"start_time"          binding:"required,hhmm"`
	EndTime           string   `json:"end_time"            binding:"required,hhmm"`
	DaysOfWeek        []int64  `json:"days_of_week"        binding:"omitempty,dive,weekday"`
	Priority          int      `json:"priority"`
	IsActive          *bool    `json:"is_active"`
}

type UpdateScheduleRequest struct {
	Name              *string  `json:"name"                binding:"omitempty,min=1"`
	PlaylistID        *string  `json:"playlist_id"         binding:"omitempty,uuid"`
	ScreenID          *string  `json:"screen_id"`
	TargetScreenTypes []string `json:"target_screen_types" binding:"omitempty,dive,screentype"`
	StartDate         *string  `json:"start_date"          binding:"omitempty,datetime=2006-01-02"`
	EndDate           *string  `json:"end_date"`
	StartTime         *string  `json:"start_time"          binding:"omitempty,hhmm"`
	EndTime           *string  `json:"end_time"            binding:"omitempty,hhmm"`
	DaysOfWeek        []int64  `json:"days_of_week"        binding:"omitempty,dive,weekday"`
	Priority          *int     `json:"priority"`
	IsActive          *bool    `json:"is_active"`
}

type PairDeviceRequest struct {
	PairingCode string `json:"pairing_code" binding:"required"`
	ScreenID    string `json:"screen_id"    binding:"required,uuid"`
}
