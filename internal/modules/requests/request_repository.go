package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the delivery request store.
type RepositoryInterface interface {
	Create(ctx context.Context, req *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, id string) (*models.Request, error)
	// UpdateStatus writes the status and, when deviceID is non-nil, links the
	// device. The linked device id is never cleared: after delivery it stays
	// on the row as assignment history.
	UpdateStatus(ctx context.Context, id, status string, deviceID *string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error)
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new request repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const requestColumns = `id, requester_name, requester_surname, requester_email, origin, destination, weight_kg, size_vol, type, status, assigned_device_id, verification_code, created_at, updated_at`

// Create inserts a new request in pending status.
func (r *Repository) Create(ctx context.Context, req *models.Request) (*models.Request, error) {
	const query = `
		INSERT INTO requests (requester_name, requester_surname, requester_email, origin, destination, weight_kg, size_vol, type, status, verification_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + requestColumns
	row := r.db.QueryRow(ctx, query,
		req.RequesterName, req.RequesterSurname, req.RequesterEmail,
		req.Origin, req.Destination, req.WeightKg, req.Size, req.Type,
		req.Status, req.VerificationCode,
	)
	created, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return created, nil
}

// FindByID retrieves a single request.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	const query = `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return req, nil
}

// UpdateStatus writes the new status and optional device link, returning the
// updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string, deviceID *string) (*models.Request, error) {
	const query = `
		UPDATE requests
		SET status = $2,
		    assigned_device_id = COALESCE($3, assigned_device_id),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRow(ctx, query, id, status, deviceID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	return req, nil
}

// List returns requests most-recently-created first, optionally filtered by
// status and a fuzzy origin/destination match.
func (r *Repository) List(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(origin ILIKE $%d OR destination ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.List: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.List scan: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.List rows: %w", err)
	}
	return out, nil
}

// scanRequest is a helper to scan a row into a Request model.
func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID, &req.RequesterName, &req.RequesterSurname, &req.RequesterEmail,
		&req.Origin, &req.Destination, &req.WeightKg, &req.Size, &req.Type,
		&req.Status, &req.AssignedDeviceID, &req.VerificationCode,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}
