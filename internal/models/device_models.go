package models

import "time"

// Device type constants.
const (
	DeviceTypeDrone = "drone"
	DeviceTypeRobot = "robot"
)

// Device status constants. The set is a flat enum: any status may be written
// over any other, there are no forbidden edges.
const (
	DeviceStatusAvailable   = "available"
	DeviceStatusBusy        = "busy"
	DeviceStatusMaintenance = "maintenance"
)

// Device represents a delivery drone or ground robot in the campus fleet.
type Device struct {
	ID              string    `json:"id"`
	Model           string    `json:"model"`
	Type            string    `json:"type"`
	CapacityKg      float64   `json:"capacity_kg"`
	BatteryAutonomy string    `json:"battery_autonomy"`
	SerialNumber    string    `json:"serial_number"`
	Status          string    `json:"status"`
	Address         string    `json:"address,omitempty"`
	Latitude        *float64  `json:"location_lat,omitempty"`
	Longitude       *float64  `json:"location_lng,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RegisterDeviceRequest represents the data needed to register a new device.
// Status is not accepted from the client; new devices always start available.
type RegisterDeviceRequest struct {
	Model           string   `json:"model" validate:"required"`
	Type            string   `json:"type" validate:"required,oneof=drone robot"`
	CapacityKg      float64  `json:"capacity_kg" validate:"required,gt=0"`
	BatteryAutonomy string   `json:"battery_autonomy" validate:"required"`
	SerialNumber    string   `json:"serial_number" validate:"required"`
	Address         string   `json:"address,omitempty"`
	Latitude        *float64 `json:"location_lat,omitempty"`
	Longitude       *float64 `json:"location_lng,omitempty"`
}

// DeviceStatusUpdateRequest represents a direct status write, e.g. toggling a
// device in and out of maintenance from the console.
type DeviceStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=available busy maintenance"`
}

// DeviceLocationUpdateRequest carries a position report for the live map.
type DeviceLocationUpdateRequest struct {
	Latitude  float64 `json:"location_lat" validate:"required,latitude"`
	Longitude float64 `json:"location_lng" validate:"required,longitude"`
	Address   string  `json:"address,omitempty"`
}

// DeviceFilter narrows device listings. Zero values mean "no filter".
type DeviceFilter struct {
	Status string // optional: available, busy or maintenance
	Search string // optional: fuzzy match on model or serial number
}
