package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit,
// here the serial_number index on devices.
const uniqueViolation = "23505"

// RepositoryInterface defines the device registry store.
type RepositoryInterface interface {
	Create(ctx context.Context, d *models.Device) (*models.Device, error)
	FindByID(ctx context.Context, id string) (*models.Device, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateLocation(ctx context.Context, id string, lat, lng float64, address string) error
	List(ctx context.Context, filter models.DeviceFilter) ([]*models.Device, error)
	// AnyWithCapacity reports whether any device, regardless of status, can
	// carry the given weight.
	AnyWithCapacity(ctx context.Context, weightKg float64) (bool, error)
	// ClaimAvailable atomically marks the first available device with
	// sufficient capacity as busy and returns it. The select-and-claim is a
	// single conditional update so concurrent callers cannot claim the same
	// device. Returns models.ErrNoAvailableDevice when none qualifies.
	ClaimAvailable(ctx context.Context, weightKg float64) (*models.Device, error)
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new fleet repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const deviceColumns = `id, model, type, capacity_kg, battery_autonomy, serial_number, status, address, latitude, longitude, created_at, updated_at`

// Create inserts a new device. Status is written by the caller (the service
// forces it to available). A duplicate serial maps to models.ErrConflict.
func (r *Repository) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	const query = `
		INSERT INTO devices (model, type, capacity_kg, battery_autonomy, serial_number, status, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + deviceColumns
	row := r.db.QueryRow(ctx, query,
		d.Model, d.Type, d.CapacityKg, d.BatteryAutonomy, d.SerialNumber,
		d.Status, nullableText(d.Address), d.Latitude, d.Longitude,
	)
	created, err := scanDevice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return created, nil
}

// FindByID retrieves a single device.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Device, error) {
	const query = `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	d, err := scanDevice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return d, nil
}

// UpdateStatus overwrites the status field. There is no transition guard;
// the device status set is a flat enum.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE devices SET status = $2, updated_at = now() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLocation writes a position report for the live map.
func (r *Repository) UpdateLocation(ctx context.Context, id string, lat, lng float64, address string) error {
	const query = `
		UPDATE devices
		SET latitude = $2, longitude = $3, address = COALESCE($4, address), updated_at = now()
		WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, lat, lng, nullableText(address))
	if err != nil {
		return fmt.Errorf("repository.UpdateLocation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns devices most-recently-registered first, optionally filtered by
// status and a fuzzy model/serial match.
func (r *Repository) List(ctx context.Context, filter models.DeviceFilter) ([]*models.Device, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(model ILIKE $%d OR serial_number ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + deviceColumns + ` FROM devices`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.List: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.List scan: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.List rows: %w", err)
	}
	return devices, nil
}

// AnyWithCapacity checks feasibility across the whole registry, busy and
// maintenance devices included.
func (r *Repository) AnyWithCapacity(ctx context.Context, weightKg float64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM devices WHERE capacity_kg >= $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, weightKg).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository.AnyWithCapacity: %w", err)
	}
	return exists, nil
}

// ClaimAvailable claims the first available device that can carry the weight.
// Candidates are taken in registry list order (newest registration first).
// SKIP LOCKED keeps two concurrent assignments from fighting over one row.
func (r *Repository) ClaimAvailable(ctx context.Context, weightKg float64) (*models.Device, error) {
	const query = `
		UPDATE devices SET status = 'busy', updated_at = now()
		WHERE id = (
			SELECT id FROM devices
			WHERE status = 'available' AND capacity_kg >= $1
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deviceColumns
	d, err := scanDevice(r.db.QueryRow(ctx, query, weightKg))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoAvailableDevice
		}
		return nil, fmt.Errorf("repository.ClaimAvailable: %w", err)
	}
	return d, nil
}

// scanDevice is a helper to scan a row into a Device model.
func scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device
	var address *string
	err := row.Scan(
		&d.ID, &d.Model, &d.Type, &d.CapacityKg, &d.BatteryAutonomy,
		&d.SerialNumber, &d.Status, &address, &d.Latitude, &d.Longitude,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if address != nil {
		d.Address = *address
	}
	return &d, nil
}

// nullableText returns nil for empty strings, for nullable TEXT columns.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
