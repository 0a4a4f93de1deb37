package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// PostgresScheduleRepository implements ScheduleRepository using PostgreSQL
type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresScheduleRepository creates a new PostgresScheduleRepository
func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

// ReplaceRules validates and atomically replaces a resource's recurring
// rules inside one transaction.
func (r *PostgresScheduleRepository) ReplaceRules(ctx context.Context, tenantID, resourceID string, rules []*domain.AvailabilityRule) error {
	if err := domain.ValidateRuleSet(rules); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM availability_rules WHERE tenant_id = $1 AND resource_id = $2`,
		tenantID, resourceID); err != nil {
		return err
	}

	query := `
		INSERT INTO availability_rules (id, tenant_id, resource_id, weekday,
			start_minute, end_minute, break_start_minute, break_end_minute, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, rule := range rules {
		var breakStart, breakEnd *int
		if rule.Break != nil {
			breakStart = &rule.Break.StartMinute
			breakEnd = &rule.Break.EndMinute
		}
		if _, err := tx.Exec(ctx, query,
			rule.ID,
			tenantID,
			resourceID,
			int(rule.Weekday),
			rule.Window.StartMinute,
			rule.Window.EndMinute,
			breakStart,
			breakEnd,
			rule.IsActive,
			rule.CreatedAt,
			rule.UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// RulesForResource retrieves a resource's recurring rules
func (r *PostgresScheduleRepository) RulesForResource(ctx context.Context, tenantID, resourceID string) ([]*domain.AvailabilityRule, error) {
	query := `
		SELECT id, tenant_id, resource_id, weekday, start_minute, end_minute,
			break_start_minute, break_end_minute, is_active, created_at, updated_at
		FROM availability_rules
		WHERE tenant_id = $1 AND resource_id = $2
		ORDER BY weekday, start_minute
	`
	rows, err := r.pool.Query(ctx, query, tenantID, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AvailabilityRule
	for rows.Next() {
		rule := &domain.AvailabilityRule{}
		var weekday int
		var breakStart, breakEnd *int
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.ResourceID,
			&weekday,
			&rule.Window.StartMinute,
			&rule.Window.EndMinute,
			&breakStart,
			&breakEnd,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rule.Weekday = time.Weekday(weekday)
		if breakStart != nil && breakEnd != nil {
			rule.Break = &domain.MinuteWindow{StartMinute: *breakStart, EndMinute: *breakEnd}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveException upserts a date exception, keyed one-per-date
func (r *PostgresScheduleRepository) SaveException(ctx context.Context, ex *domain.AvailabilityException) error {
	windows, err := json.Marshal(ex.Windows)
	if err != nil {
		return fmt.Errorf("failed to marshal windows: %w", err)
	}
	query := `
		INSERT INTO availability_exceptions (id, tenant_id, resource_id, date, closed, windows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, resource_id, date)
		DO UPDATE SET closed = EXCLUDED.closed, windows = EXCLUDED.windows, updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		ex.ID,
		ex.TenantID,
		ex.ResourceID,
		ex.Date,
		ex.Closed,
		windows,
		ex.CreatedAt,
		ex.UpdatedAt,
	)
	return err
}

// ExceptionsForRange retrieves exceptions between two local dates, inclusive
func (r *PostgresScheduleRepository) ExceptionsForRange(ctx context.Context, tenantID, resourceID string, from, to string) ([]*domain.AvailabilityException, error) {
	query := `
		SELECT id, tenant_id, resource_id, date, closed, windows, created_at, updated_at
		FROM availability_exceptions
		WHERE tenant_id = $1 AND resource_id = $2 AND date >= $3 AND date <= $4
		ORDER BY date
	`
	rows, err := r.pool.Query(ctx, query, tenantID, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exceptions []*domain.AvailabilityException
	for rows.Next() {
		ex := &domain.AvailabilityException{}
		var windows []byte
		if err := rows.Scan(
			&ex.ID,
			&ex.TenantID,
			&ex.ResourceID,
			&ex.Date,
			&ex.Closed,
			&windows,
			&ex.CreatedAt,
			&ex.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(windows, &ex.Windows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal windows: %w", err)
		}
		exceptions = append(exceptions, ex)
	}
	return exceptions, rows.Err()
}
