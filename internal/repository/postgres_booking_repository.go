package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/timeslot"
)

// SQLSTATE codes raised by the bookings constraints.
const (
	pgExclusionViolation = "23P01" // bookings_no_overlap
	pgUniqueViolation    = "23505" // (tenant_id, idempotency_key)
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL.
// Slot exclusivity comes from a tstzrange exclusion constraint scoped to
// non-terminal bookings; concurrent inserts for the same slot resolve
// first-committer-wins inside the database.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// CreateExclusive inserts a booking, failing with SlotConflictError when its
// time range overlaps a non-terminal booking for the same resource.
func (r *PostgresBookingRepository) CreateExclusive(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, tenant_id, resource_id, service_id, customer_id,
			start_time, end_time, status, idempotency_key, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.TenantID,
		b.ResourceID,
		b.ServiceID,
		b.CustomerID,
		b.StartTime,
		b.EndTime,
		b.Status,
		b.IdempotencyKey,
		nullIfEmpty(b.PaymentID),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgExclusionViolation:
				return &domain.SlotConflictError{
					TenantID:   b.TenantID,
					ResourceID: b.ResourceID,
					Start:      b.StartTime,
					End:        b.EndTime,
				}
			case pgUniqueViolation:
				// A concurrent request with the same key committed between
				// our replay lookup and this insert.
				return fmt.Errorf("booking %s: %w", b.IdempotencyKey, domain.ErrDuplicateIdempotencyKey)
			}
		}
		return err
	}
	return nil
}

const bookingColumns = `id, tenant_id, resource_id, service_id, customer_id,
	start_time, end_time, status, idempotency_key, COALESCE(payment_id, '') as payment_id,
	created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.ResourceID,
		&b.ServiceID,
		&b.CustomerID,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.IdempotencyKey,
		&b.PaymentID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// GetByID retrieves a booking scoped to its tenant
func (r *PostgresBookingRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND tenant_id = $2`
	return scanBooking(r.pool.QueryRow(ctx, query, id, tenantID))
}

// GetByIdempotencyKey retrieves a booking by its idempotency key
func (r *PostgresBookingRepository) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = $1 AND idempotency_key = $2`
	return scanBooking(r.pool.QueryRow(ctx, query, tenantID, key))
}

// Update persists booking mutations. Moving to a terminal status takes the
// row out of the exclusion constraint's scope, freeing the slot atomically.
func (r *PostgresBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_id = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`
	tag, err := r.pool.Exec(ctx, query,
		b.Status,
		nullIfEmpty(b.PaymentID),
		time.Now().UTC(),
		b.ID,
		b.TenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a booking whose payment setup never completed
func (r *PostgresBookingRepository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bookings WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ActiveBookingsInRange lists non-terminal bookings overlapping the window
func (r *PostgresBookingRepository) ActiveBookingsInRange(ctx context.Context, tenantID, resourceID string, window timeslot.Interval) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND resource_id = $2
		  AND status IN ('pending', 'confirmed', 'checked_in')
		  AND start_time < $4 AND end_time > $3
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query, tenantID, resourceID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ExpiredPending lists pending bookings created before the cutoff
func (r *PostgresBookingRepository) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
