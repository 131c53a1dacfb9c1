package models

import "time"

// Audit action constants. Details are free text; the action keyword is what
// the console filters on.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionLogin  = "LOGIN"
)

// Audit entity names, matching the underlying tables.
const (
	AuditEntityDevices  = "devices"
	AuditEntityRequests = "requests"
	AuditEntityAuth     = "auth"
)

// AuditLog is one immutable record of a state-changing action.
type AuditLog struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFilter narrows audit queries. All provided filters must match.
type AuditFilter struct {
	Action string    // optional: CREATE, UPDATE, LOGIN, ...
	From   time.Time // optional: inclusive lower bound on created_at
	To     time.Time // optional: inclusive upper bound on created_at
	Search string    // optional: case-insensitive match on actor name or details
	Limit  int       // default 50, max 200
	Offset int       // pagination offset
}
