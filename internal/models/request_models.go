package models

import "time"

// Request status constants forming the delivery state machine:
// pending -> assigned -> in_progress -> delivered, with pending -> cancelled.
const (
	RequestStatusPending    = "pending"
	RequestStatusAssigned   = "assigned"
	RequestStatusInProgress = "in_progress"
	RequestStatusDelivered  = "delivered"
	RequestStatusCancelled  = "cancelled"
)

// Request type constants.
const (
	RequestTypeDocument     = "document"
	RequestTypeSmallPackage = "small_package"
	RequestTypeRecording    = "recording"
)

// CampusLocations is the fixed set of named pickup/dropoff points on campus.
// Origins and destinations must be drawn from this list.
var CampusLocations = []string{
	"Cedro rosado",
	"Almendros",
	"Palmas",
	"Lagos",
	"Saman",
	"Educacion continua",
	"Guduales",
	"Guayacanes",
	"Facultad",
	"Edificio administrativo",
	"Edificio financiero",
	"Biblioteca",
	"Capilla",
}

// IsCampusLocation reports whether name is one of the known campus locations.
func IsCampusLocation(name string) bool {
	for _, loc := range CampusLocations {
		if loc == name {
			return true
		}
	}
	return false
}

// Request represents a delivery request between two campus locations.
// AssignedDeviceID stays populated after delivery as assignment history.
type Request struct {
	ID               string    `json:"id"`
	RequesterName    string    `json:"requester_name"`
	RequesterSurname string    `json:"requester_surname"`
	RequesterEmail   string    `json:"requester_email"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	WeightKg         float64   `json:"weight_kg"`
	Size             string    `json:"size_vol"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	AssignedDeviceID *string   `json:"assigned_device_id,omitempty"`
	VerificationCode string    `json:"verification_code,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateDeliveryRequest represents the data needed to open a new request.
type CreateDeliveryRequest struct {
	RequesterName    string  `json:"requester_name" validate:"required"`
	RequesterSurname string  `json:"requester_surname" validate:"required"`
	RequesterEmail   string  `json:"requester_email" validate:"required,email"`
	Origin           string  `json:"origin" validate:"required"`
	Destination      string  `json:"destination" validate:"required"`
	WeightKg         float64 `json:"weight_kg" validate:"required,gt=0"`
	Size             string  `json:"size_vol" validate:"required"`
	Type             string  `json:"type" validate:"required,oneof=document small_package recording"`
}

// TransitionRequest represents a status change on an existing request.
// Force lets an admin write an edge outside the transition table, e.g. to
// correct state after an incident.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending assigned in_progress delivered cancelled"`
	Force  bool   `json:"force,omitempty"`
}

// RequestFilter narrows request listings. Zero values mean "no filter".
type RequestFilter struct {
	Status string // optional: one of the request status constants
	Search string // optional: fuzzy match on origin or destination
}
