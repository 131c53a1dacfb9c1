package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"campus-dispatch/internal/models"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory implementation of RepositoryInterface,
// used when the console runs without a database (STORE_DRIVER=memory) and by
// the test suites of the other modules.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*models.AuditLog // append order, oldest first
}

// NewMemoryRepository creates an empty in-memory audit store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append records the entry. Entries are copied in so callers cannot mutate
// the log after the fact.
func (r *MemoryRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// List filters the log and returns matches newest first.
func (r *MemoryRepository) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if !filter.From.IsZero() && entry.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.CreatedAt.After(filter.To) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(entry.ActorName), needle) &&
				!strings.Contains(strings.ToLower(entry.Details), needle) {
				continue
			}
		}
		cp := *entry
		matched = append(matched, &cp)
	}

	limit := clampLimit(filter.Limit)
	offset := maxInt(filter.Offset, 0)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
