package domain

import (
	"time"
)

// ResourceKind distinguishes staff members from rooms.
type ResourceKind string

const (
	ResourceKindStaff ResourceKind = "staff"
	ResourceKindRoom  ResourceKind = "room"
)

// Resource is a staff member or room capable of performing services.
// It belongs to exactly one tenant.
type Resource struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	Name      string       `json:"name"`
	Kind      ResourceKind `json:"kind"`
	Timezone  string       `json:"timezone,omitempty"` // empty means tenant timezone
	Capacity  int          `json:"capacity"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewResource creates a resource with a capacity of at least one.
func NewResource(tenantID, name string, kind ResourceKind, capacity int) (*Resource, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if name == "" {
		return nil, NewValidationError("name", "required")
	}
	if capacity < 1 {
		return nil, NewValidationError("capacity", "must be at least 1")
	}
	now := time.Now().UTC()
	return &Resource{
		ID:        NewID(),
		TenantID:  tenantID,
		Name:      name,
		Kind:      kind,
		Capacity:  capacity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Service is a bookable offering. Many-to-many with resources via a join.
type Service struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceAmount     int64     `json:"price_amount"` // minor currency units
	Currency        string    `json:"currency"`
	BufferBeforeMin int       `json:"buffer_before_min"`
	BufferAfterMin  int       `json:"buffer_after_min"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewService creates a service offering.
func NewService(tenantID, name string, durationMin int, price int64, currency string) (*Service, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if name == "" {
		return nil, NewValidationError("name", "required")
	}
	if durationMin <= 0 {
		return nil, NewValidationError("duration_minutes", "must be positive")
	}
	if price < 0 {
		return nil, NewValidationError("price_amount", "must be non-negative")
	}
	if currency == "" {
		currency = "USD"
	}
	now := time.Now().UTC()
	return &Service{
		ID:              NewID(),
		TenantID:        tenantID,
		Name:            name,
		DurationMinutes: durationMin,
		PriceAmount:     price,
		Currency:        currency,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Duration returns the service duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// BufferBefore returns the pre-appointment buffer.
func (s *Service) BufferBefore() time.Duration {
	return time.Duration(s.BufferBeforeMin) * time.Minute
}

// BufferAfter returns the post-appointment buffer.
func (s *Service) BufferAfter() time.Duration {
	return time.Duration(s.BufferAfterMin) * time.Minute
}
