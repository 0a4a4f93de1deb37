package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an entity does not exist for the tenant.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStateTransition is returned when a status change is not allowed
	// from the current state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrProcessorUnavailable indicates a transient payment processor failure.
	// Callers retry with backoff before surfacing it.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	// ErrPaymentAuthorizationFailed indicates the customer's payment method
	// could not be saved or authorized at booking time.
	ErrPaymentAuthorizationFailed = errors.New("payment authorization failed")
	// ErrPaymentCaptureFailed indicates an off-session charge was declined.
	// The booking still advances; the payment is flagged for manual follow-up.
	ErrPaymentCaptureFailed = errors.New("payment capture failed")
	// ErrDuplicateIdempotencyKey is returned when an insert races a concurrent
	// request carrying the same idempotency key. Callers re-read the winner's
	// booking and replay its outcome.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// ValidationError reports malformed input. It is the caller's fault and is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SlotConflictError is returned when a booking lost the race for a
// resource-time window. Callers must re-resolve availability before retrying.
type SlotConflictError struct {
	TenantID   string
	ResourceID string
	Start      time.Time
	End        time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot conflict: resource %s already booked in [%s, %s)",
		e.ResourceID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// IsSlotConflict reports whether err is a SlotConflictError.
func IsSlotConflict(err error) bool {
	var sc *SlotConflictError
	return errors.As(err, &sc)
}
