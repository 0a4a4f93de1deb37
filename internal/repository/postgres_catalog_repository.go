package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// CreateResource creates a new bookable resource
func (r *PostgresCatalogRepository) CreateResource(ctx context.Context, res *domain.Resource) error {
	query := `
		INSERT INTO resources (id, tenant_id, name, kind, timezone, capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.TenantID,
		res.Name,
		res.Kind,
		res.Timezone,
		res.Capacity,
		res.IsActive,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

// GetResource retrieves a resource scoped to its tenant
func (r *PostgresCatalogRepository) GetResource(ctx context.Context, tenantID, resourceID string) (*domain.Resource, error) {
	query := `
		SELECT id, tenant_id, name, kind, COALESCE(timezone, '') as timezone, capacity, is_active, created_at, updated_at
		FROM resources
		WHERE id = $1 AND tenant_id = $2
	`
	res := &domain.Resource{}
	err := r.pool.QueryRow(ctx, query, resourceID, tenantID).Scan(
		&res.ID,
		&res.TenantID,
		&res.Name,
		&res.Kind,
		&res.Timezone,
		&res.Capacity,
		&res.IsActive,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("resource %s: %w", resourceID, domain.ErrNotFound)
		}
		return nil, err
	}
	return res, nil
}

// CreateService creates a new service offering
func (r *PostgresCatalogRepository) CreateService(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, tenant_id, name, duration_minutes, price_amount, currency,
			buffer_before_min, buffer_after_min, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		svc.ID,
		svc.TenantID,
		svc.Name,
		svc.DurationMinutes,
		svc.PriceAmount,
		svc.Currency,
		svc.BufferBeforeMin,
		svc.BufferAfterMin,
		svc.IsActive,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	return err
}

// GetService retrieves a service scoped to its tenant
func (r *PostgresCatalogRepository) GetService(ctx context.Context, tenantID, serviceID string) (*domain.Service, error) {
	query := `
		SELECT id, tenant_id, name, duration_minutes, price_amount, currency,
			buffer_before_min, buffer_after_min, is_active, created_at, updated_at
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`
	svc := &domain.Service{}
	err := r.pool.QueryRow(ctx, query, serviceID, tenantID).Scan(
		&svc.ID,
		&svc.TenantID,
		&svc.Name,
		&svc.DurationMinutes,
		&svc.PriceAmount,
		&svc.Currency,
		&svc.BufferBeforeMin,
		&svc.BufferAfterMin,
		&svc.IsActive,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
		}
		return nil, err
	}
	return svc, nil
}

// AssignService links a service to a resource. Re-assigning is a no-op.
func (r *PostgresCatalogRepository) AssignService(ctx context.Context, tenantID, serviceID, resourceID string) error {
	query := `
		INSERT INTO service_assignments (tenant_id, service_id, resource_id)
		SELECT s.tenant_id, s.id, res.id
		FROM services s
		JOIN resources res ON res.tenant_id = s.tenant_id
		WHERE s.id = $2 AND res.id = $3 AND s.tenant_id = $1
		ON CONFLICT (tenant_id, service_id, resource_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, tenantID, serviceID, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the pair does not exist or it was already assigned.
		assigned, err := r.IsServiceAssignable(ctx, tenantID, serviceID, resourceID)
		if err != nil {
			return err
		}
		if !assigned {
			return fmt.Errorf("service %s or resource %s: %w", serviceID, resourceID, domain.ErrNotFound)
		}
	}
	return nil
}

// IsServiceAssignable reports whether the resource offers the service
func (r *PostgresCatalogRepository) IsServiceAssignable(ctx context.Context, tenantID, serviceID, resourceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM service_assignments
			WHERE tenant_id = $1 AND service_id = $2 AND resource_id = $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, tenantID, serviceID, resourceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
