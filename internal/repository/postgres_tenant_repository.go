package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// PostgresTenantRepository implements TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTenantRepository creates a new PostgresTenantRepository
func NewPostgresTenantRepository(pool *pgxpool.Pool) *PostgresTenantRepository {
	return &PostgresTenantRepository{pool: pool}
}

// Create creates a new tenant. The booking policy is stored as jsonb.
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	policy, err := json.Marshal(tenant.Policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	query := `
		INSERT INTO tenants (id, name, slug, timezone, currency, policy, provider_customer_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.Timezone,
		tenant.Currency,
		policy,
		tenant.ProviderCustomerID,
		tenant.IsActive,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	return err
}

func (r *PostgresTenantRepository) scanTenant(row pgx.Row) (*domain.Tenant, error) {
	tenant := &domain.Tenant{}
	var policy []byte
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.Timezone,
		&tenant.Currency,
		&policy,
		&tenant.ProviderCustomerID,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tenant: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(policy, &tenant.Policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	return tenant, nil
}

const tenantColumns = `id, name, slug, timezone, currency, policy,
	COALESCE(provider_customer_id, '') as provider_customer_id,
	is_active, created_at, updated_at, deleted_at`

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 AND deleted_at IS NULL`
	return r.scanTenant(r.pool.QueryRow(ctx, query, id))
}

// GetBySlug retrieves a tenant by slug
func (r *PostgresTenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1 AND deleted_at IS NULL`
	return r.scanTenant(r.pool.QueryRow(ctx, query, slug))
}

// UpdatePolicy validates and replaces the tenant's booking policy
func (r *PostgresTenantRepository) UpdatePolicy(ctx context.Context, tenantID string, policy domain.BookingPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	query := `
		UPDATE tenants SET policy = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, raw, time.Now().UTC(), tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a tenant as deleted without removing its rows
func (r *PostgresTenantRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE tenants SET deleted_at = $1, is_active = false, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
