package requests

import (
	"context"
	"strings"
	"sync"
	"time"

	"campus-dispatch/internal/models"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory RepositoryInterface implementation,
// selected with STORE_DRIVER=memory and used by the module test suite.
type MemoryRepository struct {
	mu       sync.Mutex
	requests []*models.Request // index 0 is the most recently created
}

// NewMemoryRepository creates an empty in-memory request store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create stores the request newest-first.
func (r *MemoryRepository) Create(ctx context.Context, req *models.Request) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.requests = append([]*models.Request{&cp}, r.requests...)
	out := cp
	return &out, nil
}

// FindByID retrieves a copy of the request.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := r.find(id)
	if req == nil {
		return nil, models.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

// UpdateStatus writes the status and optional device link.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id, status string, deviceID *string) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := r.find(id)
	if req == nil {
		return nil, models.ErrNotFound
	}
	req.Status = status
	if deviceID != nil {
		v := *deviceID
		req.AssignedDeviceID = &v
	}
	req.UpdatedAt = time.Now().UTC()
	cp := *req
	return &cp, nil
}

// List returns matching requests most-recently-created first.
func (r *MemoryRepository) List(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Request
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(req.Origin), needle) &&
				!strings.Contains(strings.ToLower(req.Destination), needle) {
				continue
			}
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

// find returns the stored request or nil. Callers hold the lock.
func (r *MemoryRepository) find(id string) *models.Request {
	for _, req := range r.requests {
		if req.ID == id {
			return req
		}
	}
	return nil
}
