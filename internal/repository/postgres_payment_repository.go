package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// Create creates a new payment
func (r *PostgresPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, tenant_id, booking_id, status, capture_method, currency,
			authorized_amount, captured_amount, refunded_amount,
			provider_setup_id, provider_method_id, provider_intent_id,
			error_code, error_message, created_at, updated_at, authorized_at, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.TenantID,
		p.BookingID,
		p.Status,
		p.CaptureMethod,
		p.Currency,
		p.AuthorizedAmount,
		p.CapturedAmount,
		p.RefundedAmount,
		nullIfEmpty(p.ProviderSetupID),
		nullIfEmpty(p.ProviderMethodID),
		nullIfEmpty(p.ProviderIntentID),
		nullIfEmpty(p.ErrorCode),
		nullIfEmpty(p.ErrorMessage),
		p.CreatedAt,
		p.UpdatedAt,
		p.AuthorizedAt,
		p.CapturedAt,
	)
	return err
}

const paymentColumns = `id, tenant_id, booking_id, status, capture_method, currency,
	authorized_amount, captured_amount, refunded_amount,
	COALESCE(provider_setup_id, '') as provider_setup_id,
	COALESCE(provider_method_id, '') as provider_method_id,
	COALESCE(provider_intent_id, '') as provider_intent_id,
	COALESCE(error_code, '') as error_code,
	COALESCE(error_message, '') as error_message,
	created_at, updated_at, authorized_at, captured_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.BookingID,
		&p.Status,
		&p.CaptureMethod,
		&p.Currency,
		&p.AuthorizedAmount,
		&p.CapturedAmount,
		&p.RefundedAmount,
		&p.ProviderSetupID,
		&p.ProviderMethodID,
		&p.ProviderIntentID,
		&p.ErrorCode,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.AuthorizedAt,
		&p.CapturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresPaymentRepository) loadFees(ctx context.Context, p *domain.Payment) error {
	query := `
		SELECT id, payment_id, kind, base_amount, percent, amount, created_at
		FROM payment_fees
		WHERE payment_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fee domain.PaymentFee
		if err := rows.Scan(
			&fee.ID,
			&fee.PaymentID,
			&fee.Kind,
			&fee.BaseAmount,
			&fee.Percent,
			&fee.Amount,
			&fee.CreatedAt,
		); err != nil {
			return err
		}
		p.Fees = append(p.Fees, fee)
	}
	return rows.Err()
}

func (r *PostgresPaymentRepository) getWhere(ctx context.Context, clause string, args ...any) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + clause
	p, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadFees(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a payment scoped to its tenant
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Payment, error) {
	return r.getWhere(ctx, `id = $1 AND tenant_id = $2`, id, tenantID)
}

// GetByBookingID retrieves the payment attached to a booking
func (r *PostgresPaymentRepository) GetByBookingID(ctx context.Context, tenantID, bookingID string) (*domain.Payment, error) {
	return r.getWhere(ctx, `booking_id = $1 AND tenant_id = $2`, bookingID, tenantID)
}

// GetByProviderSetupID matches an inbound provider event to its payment
func (r *PostgresPaymentRepository) GetByProviderSetupID(ctx context.Context, setupID string) (*domain.Payment, error) {
	return r.getWhere(ctx, `provider_setup_id = $1`, setupID)
}

// Update persists payment mutations
func (r *PostgresPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, captured_amount = $2, refunded_amount = $3,
			provider_setup_id = $4, provider_method_id = $5, provider_intent_id = $6,
			error_code = $7, error_message = $8,
			updated_at = $9, authorized_at = $10, captured_at = $11
		WHERE id = $12 AND tenant_id = $13
	`
	tag, err := r.pool.Exec(ctx, query,
		p.Status,
		p.CapturedAmount,
		p.RefundedAmount,
		nullIfEmpty(p.ProviderSetupID),
		nullIfEmpty(p.ProviderMethodID),
		nullIfEmpty(p.ProviderIntentID),
		nullIfEmpty(p.ErrorCode),
		nullIfEmpty(p.ErrorMessage),
		time.Now().UTC(),
		p.AuthorizedAt,
		p.CapturedAt,
		p.ID,
		p.TenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// AddFee persists a fee line-item
func (r *PostgresPaymentRepository) AddFee(ctx context.Context, fee *domain.PaymentFee) error {
	query := `
		INSERT INTO payment_fees (id, payment_id, kind, base_amount, percent, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		fee.ID,
		fee.PaymentID,
		fee.Kind,
		fee.BaseAmount,
		fee.Percent,
		fee.Amount,
		fee.CreatedAt,
	)
	return err
}

// SaveTransition persists a payment status transition audit record
func (r *PostgresPaymentRepository) SaveTransition(ctx context.Context, tr *domain.PaymentTransition) error {
	query := `
		INSERT INTO payment_transitions (id, payment_id, from_status, to_status, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		tr.ID,
		tr.PaymentID,
		tr.FromStatus,
		tr.ToStatus,
		nullIfEmpty(tr.Reason),
		tr.Timestamp,
	)
	return err
}

// Transitions retrieves a payment's transition history in order
func (r *PostgresPaymentRepository) Transitions(ctx context.Context, paymentID string) ([]*domain.PaymentTransition, error) {
	query := `
		SELECT id, payment_id, from_status, to_status, COALESCE(reason, '') as reason, timestamp
		FROM payment_transitions
		WHERE payment_id = $1
		ORDER BY timestamp
	`
	rows, err := r.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*domain.PaymentTransition
	for rows.Next() {
		tr := &domain.PaymentTransition{}
		if err := rows.Scan(
			&tr.ID,
			&tr.PaymentID,
			&tr.FromStatus,
			&tr.ToStatus,
			&tr.Reason,
			&tr.Timestamp,
		); err != nil {
			return nil, err
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

// MarkEventProcessed records a provider event in the inbox. Returns false
// when the event id was seen before.
func (r *PostgresPaymentRepository) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO provider_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
