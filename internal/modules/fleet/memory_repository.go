package fleet

import (
	"context"
	"strings"
	"sync"
	"time"

	"campus-dispatch/internal/models"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory RepositoryInterface implementation,
// selected with STORE_DRIVER=memory and used by the module test suites.
// Devices are kept newest-registration-first, matching the default read
// order of the PostgreSQL store.
type MemoryRepository struct {
	mu      sync.Mutex
	devices []*models.Device // index 0 is the most recently registered
}

// NewMemoryRepository creates an empty in-memory device registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create registers the device, enforcing serial uniqueness.
func (r *MemoryRepository) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.devices {
		if existing.SerialNumber == d.SerialNumber {
			return nil, models.ErrConflict
		}
	}
	cp := *d
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.devices = append([]*models.Device{&cp}, r.devices...)
	out := cp
	return &out, nil
}

// FindByID retrieves a copy of the device.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(id)
	if d == nil {
		return nil, models.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// UpdateStatus overwrites the status field unconditionally.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(id)
	if d == nil {
		return models.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateLocation writes a position report.
func (r *MemoryRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(id)
	if d == nil {
		return models.ErrNotFound
	}
	d.Latitude = &lat
	d.Longitude = &lng
	if address != "" {
		d.Address = address
	}
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns matching devices newest-registration-first.
func (r *MemoryRepository) List(ctx context.Context, filter models.DeviceFilter) ([]*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Device
	for _, d := range r.devices {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(d.Model), needle) &&
				!strings.Contains(strings.ToLower(d.SerialNumber), needle) {
				continue
			}
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// AnyWithCapacity checks feasibility over all devices regardless of status.
func (r *MemoryRepository) AnyWithCapacity(ctx context.Context, weightKg float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.CapacityKg >= weightKg {
			return true, nil
		}
	}
	return false, nil
}

// ClaimAvailable performs the find-and-mark-busy step under the registry
// lock, so concurrent assignments cannot claim the same device.
func (r *MemoryRepository) ClaimAvailable(ctx context.Context, weightKg float64) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Status == models.DeviceStatusAvailable && d.CapacityKg >= weightKg {
			d.Status = models.DeviceStatusBusy
			d.UpdatedAt = time.Now().UTC()
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrNoAvailableDevice
}

// find returns the stored device or nil. Callers hold the lock.
func (r *MemoryRepository) find(id string) *models.Device {
	for _, d := range r.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}
