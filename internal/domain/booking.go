package domain

import (
	"fmt"
	"time"
)

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCanceled  BookingStatus = "canceled"
	BookingStatusNoShow    BookingStatus = "no_show"
	BookingStatusFailed    BookingStatus = "failed"
)

// validBookingTransitions defines allowed status transitions.
// Key is current status, value is list of allowed next statuses.
var validBookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCanceled, BookingStatusFailed},
	BookingStatusConfirmed: {BookingStatusCheckedIn, BookingStatusCompleted, BookingStatusCanceled, BookingStatusNoShow},
	BookingStatusCheckedIn: {BookingStatusCompleted, BookingStatusNoShow},
	BookingStatusCompleted: {}, // Terminal
	BookingStatusCanceled:  {}, // Terminal
	BookingStatusNoShow:    {}, // Terminal
	BookingStatusFailed:    {}, // Terminal
}

// IsTerminal returns true for statuses that release the resource-time slot.
func (s BookingStatus) IsTerminal() bool {
	next, ok := validBookingTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo returns true if the transition is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range validBookingTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Booking is the atomic unit protected by the overlap guard. Times are
// absolute UTC instants. For a fixed (tenant, resource) no two non-terminal
// bookings may have overlapping [start, end) intervals.
type Booking struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	ResourceID     string        `json:"resource_id"`
	ServiceID      string        `json:"service_id"`
	CustomerID     string        `json:"customer_id"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Status         BookingStatus `json:"status"`
	IdempotencyKey string        `json:"idempotency_key"`
	PaymentID      string        `json:"payment_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewBooking creates a booking in pending status.
func NewBooking(tenantID, resourceID, serviceID, customerID string, start, end time.Time, idemKey string) (*Booking, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if resourceID == "" {
		return nil, NewValidationError("resource_id", "required")
	}
	if serviceID == "" {
		return nil, NewValidationError("service_id", "required")
	}
	if customerID == "" {
		return nil, NewValidationError("customer_id", "required")
	}
	if idemKey == "" {
		return nil, NewValidationError("idempotency_key", "required")
	}
	if !end.After(start) {
		return nil, NewValidationError("start_time", "end must be after start")
	}
	now := time.Now().UTC()
	return &Booking{
		ID:             NewID(),
		TenantID:       tenantID,
		ResourceID:     resourceID,
		ServiceID:      serviceID,
		CustomerID:     customerID,
		StartTime:      start.UTC(),
		EndTime:        end.UTC(),
		Status:         BookingStatusPending,
		IdempotencyKey: idemKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (b *Booking) transition(target BookingStatus) error {
	if !b.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: booking %s cannot go from %s to %s",
			ErrInvalidStateTransition, b.ID, b.Status, target)
	}
	b.Status = target
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Confirm marks the booking confirmed once a payment method is saved.
func (b *Booking) Confirm() error {
	return b.transition(BookingStatusConfirmed)
}

// CheckIn marks the customer as arrived.
func (b *Booking) CheckIn() error {
	return b.transition(BookingStatusCheckedIn)
}

// Complete finishes the booking. Admin action.
func (b *Booking) Complete() error {
	return b.transition(BookingStatusCompleted)
}

// Cancel cancels the booking. Admin action, or the reaper expiring a
// pending booking.
func (b *Booking) Cancel() error {
	return b.transition(BookingStatusCanceled)
}

// MarkNoShow records that the customer never arrived. Admin action.
func (b *Booking) MarkNoShow() error {
	return b.transition(BookingStatusNoShow)
}

// MarkFailed records a booking whose payment setup could not complete.
func (b *Booking) MarkFailed() error {
	return b.transition(BookingStatusFailed)
}

// HoldsSlot reports whether the booking still occupies its resource-time.
func (b *Booking) HoldsSlot() bool {
	return !b.Status.IsTerminal()
}
