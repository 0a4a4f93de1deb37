// Package booking creates and resolves bookings. The scheduler re-derives
// availability server-side, relies on the repository's exclusive insert for
// the no-double-booking guarantee, and runs payment setup synchronously
// inside the booking request.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/availability"
	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/internal/timeslot"
	"github.com/thitipong-w/slotwise/pkg/logger"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// SchedulerConfig bounds the synchronous payment setup call.
type SchedulerConfig struct {
	SetupTimeout time.Duration
}

// DefaultSchedulerConfig keeps setup well under typical request timeouts.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{SetupTimeout: 10 * time.Second}
}

// Scheduler orchestrates booking creation end to end.
type Scheduler struct {
	tenants  repository.TenantRepository
	catalog  repository.CatalogRepository
	bookings repository.BookingRepository
	resolver *availability.Resolver
	machine  *payment.Machine
	log      *logger.Logger
	cfg      SchedulerConfig

	created   *telemetry.Counter
	conflicts *telemetry.Counter
}

// NewScheduler wires the booking scheduler.
func NewScheduler(
	tenants repository.TenantRepository,
	catalog repository.CatalogRepository,
	bookings repository.BookingRepository,
	resolver *availability.Resolver,
	machine *payment.Machine,
	log *logger.Logger,
	cfg SchedulerConfig,
) *Scheduler {
	if cfg.SetupTimeout <= 0 {
		cfg = DefaultSchedulerConfig()
	}
	created, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "bookings_created_total",
		Description: "Bookings accepted by the scheduler",
		Unit:        "1",
	})
	conflicts, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_slot_conflicts_total",
		Description: "Booking attempts rejected because the slot was taken",
		Unit:        "1",
	})
	return &Scheduler{
		tenants:   tenants,
		catalog:   catalog,
		bookings:  bookings,
		resolver:  resolver,
		machine:   machine,
		log:       log,
		cfg:       cfg,
		created:   created,
		conflicts: conflicts,
	}
}

// CreateRequest is one booking attempt. The idempotency key makes retried
// requests replay the original outcome instead of double-booking.
type CreateRequest struct {
	TenantID       string
	ResourceID     string
	ServiceID      string
	CustomerID     string
	Start          time.Time
	IdempotencyKey string
}

// CreateResult is the outcome of CreateBooking. ClientSecret is only set on
// the first (non-replayed) creation with a payment; the caller completes the
// payment method setup with it.
type CreateResult struct {
	Booking      *domain.Booking
	Payment      *domain.Payment
	ClientSecret string
	Replayed     bool
}

// CreateBooking validates the request against live availability, inserts the
// booking under the exclusivity guard and starts payment setup. Losing a
// race for the slot returns SlotConflictError; the winner is whoever
// committed first, not whoever resolved availability first.
func (s *Scheduler) CreateBooking(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if req.IdempotencyKey == "" {
		return nil, domain.NewValidationError("idempotency_key", "required")
	}

	tenant, err := s.tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, domain.NewValidationError("tenant_id", "tenant is not active")
	}

	// Replay before touching availability: a retried request must see the
	// original outcome even if the slot has since filled.
	if existing, err := s.bookings.GetByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey); err == nil {
		return s.replay(ctx, existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	res, err := s.catalog.GetResource(ctx, req.TenantID, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !res.IsActive {
		return nil, domain.NewValidationError("resource_id", "resource is not active")
	}
	svc, err := s.catalog.GetService(ctx, req.TenantID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, domain.NewValidationError("service_id", "service is not active")
	}
	assignable, err := s.catalog.IsServiceAssignable(ctx, req.TenantID, req.ServiceID, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !assignable {
		return nil, domain.NewValidationError("service_id", "service is not offered by this resource")
	}

	loc, err := s.location(tenant, res)
	if err != nil {
		return nil, err
	}

	// Never trust the client's availability view.
	query := &availability.Query{
		TenantID: req.TenantID,
		Resource: res,
		Service:  svc,
		From:     timeslot.DateOf(req.Start.Add(-svc.BufferBefore()), loc),
		To:       timeslot.DateOf(req.Start.Add(svc.Duration()+svc.BufferAfter()), loc),
		Location: loc,
	}
	fits, err := s.resolver.SlotFits(ctx, query, req.Start)
	if err != nil {
		return nil, err
	}
	if !fits {
		s.conflicts.Inc(ctx, telemetry.TenantIDAttr(req.TenantID), telemetry.ResourceIDAttr(req.ResourceID))
		return nil, &domain.SlotConflictError{
			TenantID:   req.TenantID,
			ResourceID: req.ResourceID,
			Start:      req.Start,
			End:        req.Start.Add(svc.Duration()),
		}
	}

	b, err := domain.NewBooking(req.TenantID, req.ResourceID, req.ServiceID,
		req.CustomerID, req.Start, req.Start.Add(svc.Duration()), req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.CreateExclusive(ctx, b); err != nil {
		// A concurrent duplicate of this request can commit between the
		// replay lookup and the insert; replay the winner instead of
		// surfacing the constraint violation.
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			winner, lookupErr := s.bookings.GetByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return s.replay(ctx, winner)
		}
		var conflict *domain.SlotConflictError
		if errors.As(err, &conflict) {
			s.conflicts.Inc(ctx, telemetry.TenantIDAttr(req.TenantID), telemetry.ResourceIDAttr(req.ResourceID))
		}
		return nil, err
	}
	s.created.Inc(ctx, telemetry.TenantIDAttr(req.TenantID))

	setupCtx, cancel := context.WithTimeout(ctx, s.cfg.SetupTimeout)
	defer cancel()
	p, secret, err := s.machine.Setup(setupCtx, tenant, b, svc.PriceAmount, svc.Currency)
	if err != nil {
		if tenant.Policy.AllowCashBookings {
			// Processor unavailable but the tenant takes cash. Confirm
			// immediately: with no payment to wait on, a cash booking must
			// not sit pending where the hold reaper would cancel it.
			s.log.WithContext(ctx).Warn("payment setup failed, keeping cash booking",
				zap.String("booking_id", b.ID), zap.Error(err))
			if err := b.Confirm(); err != nil {
				return nil, err
			}
			if err := s.bookings.Update(ctx, b); err != nil {
				return nil, err
			}
			return &CreateResult{Booking: b}, nil
		}
		// Roll back so the slot frees immediately.
		if delErr := s.bookings.Delete(ctx, req.TenantID, b.ID); delErr != nil {
			s.log.WithContext(ctx).Error("rollback failed after setup error",
				zap.String("booking_id", b.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("payment setup failed: %w", err)
	}

	b.PaymentID = p.ID
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}

	return &CreateResult{Booking: b, Payment: p, ClientSecret: secret}, nil
}

// CheckIn marks a confirmed booking's customer as arrived.
func (s *Scheduler) CheckIn(ctx context.Context, tenantID, bookingID string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.CheckIn(); err != nil {
		return nil, err
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Scheduler) replay(ctx context.Context, b *domain.Booking) (*CreateResult, error) {
	result := &CreateResult{Booking: b, Replayed: true}
	if b.PaymentID == "" {
		return result, nil
	}
	p, err := s.machine.PaymentForBooking(ctx, b.TenantID, b.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	result.Payment = p
	return result, nil
}

func (s *Scheduler) location(tenant *domain.Tenant, res *domain.Resource) (*time.Location, error) {
	if res.Timezone != "" {
		loc, err := time.LoadLocation(res.Timezone)
		if err != nil {
			return nil, domain.NewValidationError("timezone", "unknown resource timezone")
		}
		return loc, nil
	}
	return tenant.Location()
}
