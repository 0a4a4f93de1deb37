package domain

import (
	"fmt"
	"time"
)

// PaymentStatus represents the save-now/charge-later payment lifecycle.
type PaymentStatus string

const (
	// PaymentStatusRequiresAction waits for the customer to complete
	// payment-method setup with the provider's client SDK.
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	// PaymentStatusAuthorized means a method is saved. No money has moved.
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// validPaymentTransitions defines allowed payment status transitions.
var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusRequiresAction: {PaymentStatusAuthorized, PaymentStatusCanceled, PaymentStatusFailed},
	PaymentStatusAuthorized:     {PaymentStatusCaptured, PaymentStatusCanceled, PaymentStatusFailed},
	PaymentStatusCaptured:       {PaymentStatusRefunded},
	PaymentStatusCanceled:       {}, // Terminal
	PaymentStatusFailed:         {}, // Terminal
	PaymentStatusRefunded:       {}, // Terminal
}

// IsTerminal returns true when no further transitions are allowed.
// Refunded still accepts additional partial refunds up to the captured sum.
func (s PaymentStatus) IsTerminal() bool {
	next, ok := validPaymentTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo returns true if the transition is allowed.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range validPaymentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// FeeKind identifies the admin action that produced a fee.
type FeeKind string

const (
	FeeKindCancellation FeeKind = "cancellation"
	FeeKindNoShow       FeeKind = "no_show"
)

// PaymentFee is an immutable fee line-item attached to a payment.
type PaymentFee struct {
	ID         string    `json:"id"`
	PaymentID  string    `json:"payment_id"`
	Kind       FeeKind   `json:"kind"`
	BaseAmount int64     `json:"base_amount"` // booking price the fee derives from
	Percent    int64     `json:"percent"`     // 0 for flat fees
	Amount     int64     `json:"amount"`      // resulting charge, minor units
	CreatedAt  time.Time `json:"created_at"`
}

// Payment tracks the manual-capture lifecycle for one booking.
type Payment struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenant_id"`
	BookingID        string        `json:"booking_id"`
	Status           PaymentStatus `json:"status"`
	CaptureMethod    string        `json:"capture_method"` // always "manual"
	Currency         string        `json:"currency"`
	AuthorizedAmount int64         `json:"authorized_amount"` // full service price
	CapturedAmount   int64         `json:"captured_amount"`
	RefundedAmount   int64         `json:"refunded_amount"`
	ProviderSetupID  string        `json:"provider_setup_id,omitempty"`
	ProviderMethodID string        `json:"provider_method_id,omitempty"`
	ProviderIntentID string        `json:"provider_intent_id,omitempty"`
	ErrorCode        string        `json:"error_code,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	Fees             []PaymentFee  `json:"fees,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	AuthorizedAt     *time.Time    `json:"authorized_at,omitempty"`
	CapturedAt       *time.Time    `json:"captured_at,omitempty"`
}

// NewPayment creates a payment in requires_action status.
func NewPayment(tenantID, bookingID string, amount int64, currency string) (*Payment, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if bookingID == "" {
		return nil, NewValidationError("booking_id", "required")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be positive")
	}
	if currency == "" {
		currency = "USD"
	}
	now := time.Now().UTC()
	return &Payment{
		ID:               NewID(),
		TenantID:         tenantID,
		BookingID:        bookingID,
		Status:           PaymentStatusRequiresAction,
		CaptureMethod:    "manual",
		Currency:         currency,
		AuthorizedAmount: amount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (p *Payment) transition(target PaymentStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: payment %s cannot go from %s to %s",
			ErrInvalidStateTransition, p.ID, p.Status, target)
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAuthorized records a saved payment method. No monetary effect.
func (p *Payment) MarkAuthorized(methodID string) error {
	if err := p.transition(PaymentStatusAuthorized); err != nil {
		return err
	}
	p.ProviderMethodID = methodID
	now := time.Now().UTC()
	p.AuthorizedAt = &now
	return nil
}

// MarkCaptured records a successful off-session charge. The captured amount
// may be the full price (completion) or a fee-only partial amount, but never
// more than the authorized amount.
func (p *Payment) MarkCaptured(intentID string, amount int64) error {
	if amount <= 0 || amount > p.AuthorizedAmount {
		return NewValidationError("amount", "capture must be positive and within the authorized amount")
	}
	if err := p.transition(PaymentStatusCaptured); err != nil {
		return err
	}
	p.ProviderIntentID = intentID
	p.CapturedAmount = amount
	now := time.Now().UTC()
	p.CapturedAt = &now
	return nil
}

// MarkCanceled releases the authorization. A fee-only charge may have been
// recorded first via AddFee plus recordCharge.
func (p *Payment) MarkCanceled(intentID string, chargedAmount int64) error {
	if chargedAmount < 0 || chargedAmount > p.AuthorizedAmount {
		return NewValidationError("amount", "charged amount out of range")
	}
	if err := p.transition(PaymentStatusCanceled); err != nil {
		return err
	}
	if chargedAmount > 0 {
		p.ProviderIntentID = intentID
		p.CapturedAmount = chargedAmount
		now := time.Now().UTC()
		p.CapturedAt = &now
	}
	return nil
}

// MarkFailed records a decline or a no-show resolution. For no-shows a
// fee-only charge may accompany the failed terminal state.
func (p *Payment) MarkFailed(intentID string, chargedAmount int64, code, message string) error {
	if chargedAmount < 0 || chargedAmount > p.AuthorizedAmount {
		return NewValidationError("amount", "charged amount out of range")
	}
	if err := p.transition(PaymentStatusFailed); err != nil {
		return err
	}
	p.ErrorCode = code
	p.ErrorMessage = message
	if chargedAmount > 0 {
		p.ProviderIntentID = intentID
		p.CapturedAmount = chargedAmount
		now := time.Now().UTC()
		p.CapturedAt = &now
	}
	return nil
}

// Refund accumulates a full or partial refund. The refunded sum must never
// exceed the captured amount.
func (p *Payment) Refund(amount int64) error {
	if amount <= 0 {
		return NewValidationError("amount", "refund must be positive")
	}
	if p.RefundedAmount+amount > p.CapturedAmount {
		return NewValidationError("amount",
			fmt.Sprintf("refund total %d would exceed captured amount %d", p.RefundedAmount+amount, p.CapturedAmount))
	}
	if p.Status == PaymentStatusCaptured {
		if err := p.transition(PaymentStatusRefunded); err != nil {
			return err
		}
	} else if p.Status != PaymentStatusRefunded {
		return fmt.Errorf("%w: payment %s cannot refund from %s",
			ErrInvalidStateTransition, p.ID, p.Status)
	}
	p.RefundedAmount += amount
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// AddFee attaches an immutable fee line-item.
func (p *Payment) AddFee(kind FeeKind, base, percent, amount int64) *PaymentFee {
	fee := PaymentFee{
		ID:         NewID(),
		PaymentID:  p.ID,
		Kind:       kind,
		BaseAmount: base,
		Percent:    percent,
		Amount:     amount,
		CreatedAt:  time.Now().UTC(),
	}
	p.Fees = append(p.Fees, fee)
	return &p.Fees[len(p.Fees)-1]
}

// PaymentTransition is an audit record of a payment status change. Every
// transition is persisted; none is silently dropped.
type PaymentTransition struct {
	ID         string        `json:"id"`
	PaymentID  string        `json:"payment_id"`
	FromStatus PaymentStatus `json:"from_status"`
	ToStatus   PaymentStatus `json:"to_status"`
	Reason     string        `json:"reason,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
