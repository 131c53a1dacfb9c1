package requests

import (
	"context"
	"fmt"
	"log"
	"strings"

	"campus-dispatch/internal/models"

	"github.com/google/uuid"
)

// FleetServiceInterface is the slice of the fleet module the request
// lifecycle needs: feasibility checks and the claim/release pair.
type FleetServiceInterface interface {
	HasCapableDevice(ctx context.Context, weightKg float64) (bool, error)
	ClaimDevice(ctx context.Context, session models.Session, weightKg float64) (*models.Device, error)
	ReleaseDevice(ctx context.Context, session models.Session, deviceID string) error
}

// AuditRecorder is the slice of the audit module the request service needs.
type AuditRecorder interface {
	Record(ctx context.Context, action, entity string, actor models.Session, details string)
}

// Notifier sends requester-facing emails. Failures are logged by the caller
// and never roll back the state change that triggered them.
type Notifier interface {
	SendRequestCreated(ctx context.Context, req *models.Request) error
	SendRequestStatus(ctx context.Context, req *models.Request) error
}

// ServiceInterface defines the request lifecycle operations.
type ServiceInterface interface {
	Create(ctx context.Context, session models.Session, req models.CreateDeliveryRequest) (*models.Request, error)
	Transition(ctx context.Context, session models.Session, requestID string, req models.TransitionRequest) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error)
}

// allowedTransitions is the explicit state machine for requests. Any edge not
// listed requires an admin override (force).
var allowedTransitions = map[string][]string{
	models.RequestStatusPending:    {models.RequestStatusAssigned, models.RequestStatusCancelled},
	models.RequestStatusAssigned:   {models.RequestStatusInProgress, models.RequestStatusDelivered, models.RequestStatusCancelled},
	models.RequestStatusInProgress: {models.RequestStatusDelivered},
	// delivered and cancelled are terminal
}

func transitionAllowed(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Service implements the request lifecycle logic.
type Service struct {
	repo     RepositoryInterface
	fleet    FleetServiceInterface
	audit    AuditRecorder
	notifier Notifier
}

// NewService creates a new request service.
func NewService(repo RepositoryInterface, fleet FleetServiceInterface, audit AuditRecorder, notifier Notifier) *Service {
	return &Service{repo: repo, fleet: fleet, audit: audit, notifier: notifier}
}

// Create validates and opens a new delivery request in pending status.
// A request is rejected outright when no registered device, busy or not,
// could ever carry the weight: accepting it would strand it forever.
func (s *Service) Create(ctx context.Context, session models.Session, req models.CreateDeliveryRequest) (*models.Request, error) {
	if !models.IsCampusLocation(req.Origin) || !models.IsCampusLocation(req.Destination) {
		return nil, models.ErrValidation
	}
	if req.Origin == req.Destination {
		return nil, models.ErrValidation
	}

	feasible, err := s.fleet.HasCapableDevice(ctx, req.WeightKg)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}
	if !feasible {
		return nil, models.ErrNoCapableDevice
	}

	request := &models.Request{
		RequesterName:    req.RequesterName,
		RequesterSurname: req.RequesterSurname,
		RequesterEmail:   req.RequesterEmail,
		Origin:           req.Origin,
		Destination:      req.Destination,
		WeightKg:         req.WeightKg,
		Size:             req.Size,
		Type:             req.Type,
		Status:           models.RequestStatusPending,
		VerificationCode: newVerificationCode(),
	}

	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}

	s.audit.Record(ctx, models.AuditActionCreate, models.AuditEntityRequests, session,
		fmt.Sprintf("Request from %s to %s by %s %s", created.Origin, created.Destination, created.RequesterName, created.RequesterSurname))

	if err := s.notifier.SendRequestCreated(ctx, created); err != nil {
		log.Printf("requests: created email for %s failed: %v", created.ID, err)
	}
	return created, nil
}

// Transition moves a request through its state machine. Assignment claims a
// device; delivery releases it. Off-table edges need force plus admin role.
func (s *Service) Transition(ctx context.Context, session models.Session, requestID string, req models.TransitionRequest) (*models.Request, error) {
	current, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("service.Transition: %w", err)
	}

	if !transitionAllowed(current.Status, req.Status) {
		if !req.Force {
			return nil, models.ErrInvalidTransition
		}
		if session.Role != models.RoleAdmin {
			return nil, models.ErrForbidden
		}
	}

	var linkDeviceID *string
	var claimed *models.Device

	// Assignment: claim the first available device that can carry the weight.
	// The claim marks the device busy in the same step, so the request is
	// left untouched when no device is free.
	if req.Status == models.RequestStatusAssigned && current.AssignedDeviceID == nil {
		claimed, err = s.fleet.ClaimDevice(ctx, session, current.WeightKg)
		if err != nil {
			return nil, err
		}
		linkDeviceID = &claimed.ID
	}

	// Delivery: free the linked device. The link itself stays on the request
	// as assignment history.
	if req.Status == models.RequestStatusDelivered && current.AssignedDeviceID != nil {
		if err := s.fleet.ReleaseDevice(ctx, session, *current.AssignedDeviceID); err != nil {
			return nil, fmt.Errorf("service.Transition: release device: %w", err)
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, requestID, req.Status, linkDeviceID)
	if err != nil {
		if claimed != nil {
			// The device was claimed but the request write failed; put the
			// device back so it is not stranded busy.
			if relErr := s.fleet.ReleaseDevice(ctx, session, claimed.ID); relErr != nil {
				log.Printf("CRITICAL: device %s stuck busy after failed transition of request %s: %v", claimed.ID, requestID, relErr)
			}
		}
		return nil, fmt.Errorf("service.Transition: %w", err)
	}

	details := fmt.Sprintf("Status changed to %s", req.Status)
	if linkDeviceID != nil {
		details += fmt.Sprintf(" - Device assigned: %s", *linkDeviceID)
	}
	s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityRequests, session, details)

	if err := s.notifier.SendRequestStatus(ctx, updated); err != nil {
		log.Printf("requests: status email for %s failed: %v", updated.ID, err)
	}
	return updated, nil
}

// List returns requests most-recently-created first.
func (s *Service) List(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error) {
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}
	return out, nil
}

// newVerificationCode generates the opaque pickup token rendered as a QR
// image in the requester's email.
func newVerificationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "QR-" + raw[:9]
}
