package fleet

import (
	"context"
	"fmt"

	"campus-dispatch/internal/models"
)

// AuditRecorder is the slice of the audit module the fleet service needs.
type AuditRecorder interface {
	Record(ctx context.Context, action, entity string, actor models.Session, details string)
}

// ServiceInterface defines the device registry operations. ClaimDevice,
// ReleaseDevice and HasCapableDevice exist for the request lifecycle module;
// the rest back the console's fleet endpoints.
type ServiceInterface interface {
	Register(ctx context.Context, session models.Session, req models.RegisterDeviceRequest) (*models.Device, error)
	SetStatus(ctx context.Context, session models.Session, deviceID, status string) error
	UpdateLocation(ctx context.Context, session models.Session, deviceID string, req models.DeviceLocationUpdateRequest) error
	List(ctx context.Context, filter models.DeviceFilter) ([]*models.Device, error)
	HasCapableDevice(ctx context.Context, weightKg float64) (bool, error)
	ClaimDevice(ctx context.Context, session models.Session, weightKg float64) (*models.Device, error)
	ReleaseDevice(ctx context.Context, session models.Session, deviceID string) error
}

// Service implements the device registry logic.
type Service struct {
	repo  RepositoryInterface
	audit AuditRecorder
}

// NewService creates a new fleet service.
func NewService(repo RepositoryInterface, audit AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit}
}

// Register validates and creates a device. New devices always start
// available; the client cannot choose an initial status.
func (s *Service) Register(ctx context.Context, session models.Session, req models.RegisterDeviceRequest) (*models.Device, error) {
	if req.CapacityKg <= 0 {
		return nil, models.ErrValidation
	}

	device := &models.Device{
		Model:           req.Model,
		Type:            req.Type,
		CapacityKg:      req.CapacityKg,
		BatteryAutonomy: req.BatteryAutonomy,
		SerialNumber:    req.SerialNumber,
		Status:          models.DeviceStatusAvailable,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	}

	created, err := s.repo.Create(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("service.Register: %w", err)
	}

	s.audit.Record(ctx, models.AuditActionCreate, models.AuditEntityDevices, session,
		fmt.Sprintf("Device %s (%s) registered", created.Model, created.SerialNumber))
	return created, nil
}

// SetStatus overwrites a device's status. Beyond the existence check there is
// no transition guard: available, busy and maintenance form a flat enum.
func (s *Service) SetStatus(ctx context.Context, session models.Session, deviceID, status string) error {
	device, err := s.repo.FindByID(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("service.SetStatus: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, deviceID, status); err != nil {
		return fmt.Errorf("service.SetStatus: %w", err)
	}

	s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityDevices, session,
		fmt.Sprintf("Updated status of %s to %s", device.SerialNumber, status))
	return nil
}

// UpdateLocation records a position report for the live map.
func (s *Service) UpdateLocation(ctx context.Context, session models.Session, deviceID string, req models.DeviceLocationUpdateRequest) error {
	if err := s.repo.UpdateLocation(ctx, deviceID, req.Latitude, req.Longitude, req.Address); err != nil {
		return fmt.Errorf("service.UpdateLocation: %w", err)
	}
	return nil
}

// List returns devices most-recently-registered first.
func (s *Service) List(ctx context.Context, filter models.DeviceFilter) ([]*models.Device, error) {
	devices, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}
	return devices, nil
}

// HasCapableDevice reports whether any registered device, busy or not, could
// ever carry the given weight.
func (s *Service) HasCapableDevice(ctx context.Context, weightKg float64) (bool, error) {
	return s.repo.AnyWithCapacity(ctx, weightKg)
}

// ClaimDevice atomically claims the first available device with sufficient
// capacity, marks it busy and records the device-side audit entry.
func (s *Service) ClaimDevice(ctx context.Context, session models.Session, weightKg float64) (*models.Device, error) {
	device, err := s.repo.ClaimAvailable(ctx, weightKg)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityDevices, session,
		fmt.Sprintf("Updated status of %s to %s", device.SerialNumber, models.DeviceStatusBusy))
	return device, nil
}

// ReleaseDevice frees a device after its delivery completes.
func (s *Service) ReleaseDevice(ctx context.Context, session models.Session, deviceID string) error {
	return s.SetStatus(ctx, session, deviceID, models.DeviceStatusAvailable)
}
