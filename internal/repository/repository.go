// Package repository defines persistence contracts for the scheduling core
// and provides PostgreSQL and in-memory implementations. Every operation
// takes an explicit tenant scope; omitting it is a compile-time error.
package repository

import (
	"context"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/timeslot"
)

// TenantRepository manages tenant records and their booking policies.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	// UpdatePolicy validates and replaces the tenant's booking policy.
	// Malformed policies are rejected here, never at booking time.
	UpdatePolicy(ctx context.Context, tenantID string, policy domain.BookingPolicy) error
	SoftDelete(ctx context.Context, id string) error
}

// CatalogRepository manages resources, services and their assignments.
type CatalogRepository interface {
	CreateResource(ctx context.Context, res *domain.Resource) error
	GetResource(ctx context.Context, tenantID, resourceID string) (*domain.Resource, error)
	CreateService(ctx context.Context, svc *domain.Service) error
	GetService(ctx context.Context, tenantID, serviceID string) (*domain.Service, error)
	// AssignService links a service to a resource (many-to-many).
	AssignService(ctx context.Context, tenantID, serviceID, resourceID string) error
	IsServiceAssignable(ctx context.Context, tenantID, serviceID, resourceID string) (bool, error)
}

// ScheduleRepository manages recurring rules and date exceptions. Mutated
// only by tenant admins; the booking flow reads through the availability
// resolver.
type ScheduleRepository interface {
	// ReplaceRules validates the set (no overlapping rules for the same
	// resource and weekday) and replaces the resource's rules atomically.
	ReplaceRules(ctx context.Context, tenantID, resourceID string, rules []*domain.AvailabilityRule) error
	RulesForResource(ctx context.Context, tenantID, resourceID string) ([]*domain.AvailabilityRule, error)
	SaveException(ctx context.Context, ex *domain.AvailabilityException) error
	ExceptionsForRange(ctx context.Context, tenantID, resourceID string, from, to string) ([]*domain.AvailabilityException, error)
}

// BookingRepository persists bookings. CreateExclusive is the write-time
// overlap guard: it must atomically reject any booking whose [start, end)
// intersects a non-terminal booking for the same (tenant, resource),
// returning SlotConflictError.
type BookingRepository interface {
	CreateExclusive(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Booking, error)
	// GetByIdempotencyKey supports idempotent replay of CreateBooking.
	GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	// Delete removes a booking that never completed payment setup, freeing
	// its slot. Rollback path only.
	Delete(ctx context.Context, tenantID, id string) error
	ActiveBookingsInRange(ctx context.Context, tenantID, resourceID string, window timeslot.Interval) ([]*domain.Booking, error)
	// ExpiredPending lists pending bookings created before the cutoff, for
	// the reaper.
	ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error)
}

// PaymentRepository persists payments, fee line-items, transition audit
// records and the provider-event inbox.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Payment, error)
	GetByBookingID(ctx context.Context, tenantID, bookingID string) (*domain.Payment, error)
	// GetByProviderSetupID matches an inbound provider event to its payment
	// by provider-assigned identifier, not by timing.
	GetByProviderSetupID(ctx context.Context, setupID string) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	AddFee(ctx context.Context, fee *domain.PaymentFee) error
	SaveTransition(ctx context.Context, tr *domain.PaymentTransition) error
	Transitions(ctx context.Context, paymentID string) ([]*domain.PaymentTransition, error)
	// MarkEventProcessed records a provider event id in the inbox. Returns
	// false when the event was already processed (at-least-once delivery
	// dedup).
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}
