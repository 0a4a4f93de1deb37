package domain

import (
	"time"
)

// FeeMode determines how a fee rule computes its amount.
type FeeMode string

const (
	// FeeModeFlat charges a fixed amount in minor currency units.
	FeeModeFlat FeeMode = "flat"
	// FeeModePercent charges a percentage of the booking price.
	FeeModePercent FeeMode = "percent"
)

// FeeRule describes a single cancellation or no-show fee.
type FeeRule struct {
	Mode    FeeMode `json:"mode"`
	Amount  int64   `json:"amount"`  // minor units, flat mode
	Percent int64   `json:"percent"` // 0-100, percent mode
}

// Validate checks a fee rule for malformed configuration. Policy errors are
// caught at save time, never at booking time.
func (r FeeRule) Validate(field string) error {
	switch r.Mode {
	case "":
		// No fee configured.
	case FeeModeFlat:
		if r.Amount < 0 {
			return NewValidationError(field, "flat amount must be non-negative")
		}
	case FeeModePercent:
		if r.Percent < 0 || r.Percent > 100 {
			return NewValidationError(field, "percent must be between 0 and 100")
		}
	default:
		return NewValidationError(field, "unknown fee mode")
	}
	return nil
}

// BookingPolicy is the tenant-level configuration consumed by the fee engine
// and the booking scheduler. It is read-only to the booking flow.
type BookingPolicy struct {
	CancellationFee FeeRule `json:"cancellation_fee"`
	NoShowFee       FeeRule `json:"no_show_fee"`
	// FreeWindowHours is the free-cancellation window before the booking
	// start. It never applies to no-shows.
	FreeWindowHours int `json:"free_window_hours"`
	// AllowCashBookings keeps a booking pending when payment-method setup
	// fails instead of rolling it back.
	AllowCashBookings bool `json:"allow_cash_bookings"`
}

// Validate checks the policy for malformed configuration.
func (p BookingPolicy) Validate() error {
	if err := p.CancellationFee.Validate("cancellation_fee"); err != nil {
		return err
	}
	if err := p.NoShowFee.Validate("no_show_fee"); err != nil {
		return err
	}
	if p.FreeWindowHours < 0 {
		return NewValidationError("free_window_hours", "must be non-negative")
	}
	return nil
}

// Tenant is the isolation boundary. It owns the timezone, the booking policy
// and the payment-provider linkage.
type Tenant struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Slug               string        `json:"slug"`
	Timezone           string        `json:"timezone"`
	Currency           string        `json:"currency"`
	Policy             BookingPolicy `json:"policy"`
	ProviderCustomerID string        `json:"provider_customer_id,omitempty"`
	IsActive           bool          `json:"is_active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	DeletedAt          *time.Time    `json:"deleted_at,omitempty"` // Soft delete support
}

// Location resolves the tenant timezone. Falls back to UTC when unset.
func (t *Tenant) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(t.Timezone)
}
