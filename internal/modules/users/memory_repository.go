package users

import (
	"context"
	"sync"
	"time"

	"campus-dispatch/internal/models"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory RepositoryInterface implementation,
// selected with STORE_DRIVER=memory and used by the module test suite.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by id
}

// NewMemoryRepository creates an empty in-memory user store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User)}
}

// Create stores the account, enforcing email uniqueness.
func (r *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, models.ErrConflict
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

// FindByEmail retrieves a copy of the user with the given email.
func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

// FindByID retrieves a copy of the user.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// SetMFAEnrolled flips the second-factor enrollment flag.
func (r *MemoryRepository) SetMFAEnrolled(ctx context.Context, id string, enrolled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.MFAEnrolled = enrolled
	return nil
}
