package packets

import "encoding/json"

// REQUESTS FOR /api/devices/*

type HeartbeatRequest struct {
	Status          string          `json:"status"           binding:"omitempty,oneof=online offline error maintenance"`
	IPAddress       *string         `json:"ip_address"       binding:"omitempty,ip"`
	FirmwareVersion *string         `json:"firmware_version"`
	Timestamp       *string         `json:"timestamp"`
	SystemInfo      json.RawMessage `json:"system_info"`
	DisplayInfo     json.RawMessage `json:"display_info"`
}

type GenerateCodeRequest struct {
	DeviceID   string          `json:"device_id"`
	DeviceInfo json.RawMessage `json:"device_info"`
	DeviceIP   string          `json:"device_ip" binding:"omitempty,ip"`
}

// REQUESTS FOR /api/screens/:id/notifications

type AckNotificationsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}
