package audit

import (
	"context"
	"fmt"
	"log"

	"campus-dispatch/internal/models"
)

// ServiceInterface defines the audit operations exposed to handlers and to
// the other modules, which record an entry after every mutation.
type ServiceInterface interface {
	Record(ctx context.Context, action, entity string, actor models.Session, details string)
	Query(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error)
}

// Service implements the audit recorder.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new audit service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Record appends one entry for a state-changing action. A persistence failure
// is logged and swallowed: audit is a side effect and must never block the
// business operation that triggered it.
func (s *Service) Record(ctx context.Context, action, entity string, actor models.Session, details string) {
	entry := &models.AuditLog{
		Action:    action,
		Entity:    entity,
		ActorID:   actor.UserID,
		ActorName: actor.FullName,
		Details:   details,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s/%s: %v", action, entity, err)
	}
}

// Query returns entries matching all provided filters, newest first.
func (s *Service) Query(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.Query: %w", err)
	}
	return entries, nil
}
