// Package payment drives the manual-capture payment lifecycle. A payment
// method is saved at booking time without charging; money moves only when an
// admin action (complete, cancel, no-show, refund) resolves the booking.
// Every status change is persisted as an audit transition.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/events"
	"github.com/thitipong-w/slotwise/internal/fees"
	"github.com/thitipong-w/slotwise/internal/gateway"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/logger"
)

// Config bounds provider calls.
type Config struct {
	MaxAttempts   uint          // attempts per provider call, transient errors only
	RetryInterval time.Duration // first retry delay
}

// DefaultConfig matches the provider's recommended retry posture.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		RetryInterval: 500 * time.Millisecond,
	}
}

// Machine orchestrates payment state against the gateway and keeps booking
// status in step. All monetary amounts are minor currency units.
type Machine struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	tenants  repository.TenantRepository
	gw       gateway.PaymentGateway
	events   events.Publisher
	log      *logger.Logger
	cfg      Config
}

// NewMachine wires the payment state machine.
func NewMachine(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	tenants repository.TenantRepository,
	gw gateway.PaymentGateway,
	pub events.Publisher,
	log *logger.Logger,
	cfg Config,
) *Machine {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultConfig()
	}
	return &Machine{
		payments: payments,
		bookings: bookings,
		tenants:  tenants,
		gw:       gw,
		events:   pub,
		log:      log,
		cfg:      cfg,
	}
}

// Setup creates the payment record and a provider setup for saving the
// customer's payment method. The returned client secret completes the setup
// on the customer's device; no charge happens here.
func (m *Machine) Setup(ctx context.Context, tenant *domain.Tenant, b *domain.Booking, amount int64, currency string) (*domain.Payment, string, error) {
	p, err := domain.NewPayment(tenant.ID, b.ID, amount, currency)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.retrySetup(ctx, &gateway.SetupRequest{
		PaymentID:      p.ID,
		TenantID:       tenant.ID,
		CustomerID:     tenant.ProviderCustomerID,
		Currency:       p.Currency,
		IdempotencyKey: IdempotencyToken(p.ID, "setup", 1),
		Metadata: map[string]string{
			"booking_id": b.ID,
			"tenant_id":  tenant.ID,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("payment setup: %w", err)
	}

	p.ProviderSetupID = resp.SetupID
	if err := m.payments.Create(ctx, p); err != nil {
		return nil, "", fmt.Errorf("failed to persist payment: %w", err)
	}
	return p, resp.ClientSecret, nil
}

// HandleSetupSucceeded processes the provider's setup-completed event: the
// payment method is saved, the payment becomes authorized and the booking is
// confirmed. Duplicate deliveries are a no-op.
func (m *Machine) HandleSetupSucceeded(ctx context.Context, setupID, methodID string) error {
	p, err := m.payments.GetByProviderSetupID(ctx, setupID)
	if err != nil {
		return err
	}
	if p.Status == domain.PaymentStatusAuthorized {
		return nil
	}

	from := p.Status
	if err := p.MarkAuthorized(methodID); err != nil {
		return err
	}
	if err := m.payments.Update(ctx, p); err != nil {
		return err
	}
	m.audit(ctx, p, from, "setup succeeded")

	b, err := m.bookings.GetByID(ctx, p.TenantID, p.BookingID)
	if err != nil {
		return err
	}
	if err := b.Confirm(); err != nil {
		return err
	}
	if err := m.bookings.Update(ctx, b); err != nil {
		return err
	}

	m.publish(ctx, events.TypeBookingConfirmed, b, map[string]any{
		"payment_id": p.ID,
	})
	return nil
}

// HandleSetupFailed processes a setup failure event. The payment fails
// without any charge and the booking fails with it, freeing the slot.
func (m *Machine) HandleSetupFailed(ctx context.Context, setupID, code, message string) error {
	p, err := m.payments.GetByProviderSetupID(ctx, setupID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return nil
	}

	from := p.Status
	if err := p.MarkFailed("", 0, code, message); err != nil {
		return err
	}
	if err := m.payments.Update(ctx, p); err != nil {
		return err
	}
	m.audit(ctx, p, from, "setup failed: "+code)

	b, err := m.bookings.GetByID(ctx, p.TenantID, p.BookingID)
	if err != nil {
		return err
	}
	if err := b.MarkFailed(); err != nil {
		return err
	}
	return m.bookings.Update(ctx, b)
}

// Complete finishes a booking and captures the full authorized amount. A
// declined capture leaves the booking completed and the payment failed with
// the provider's decline code; the service was rendered either way.
func (m *Machine) Complete(ctx context.Context, tenantID, bookingID string) (*domain.Payment, error) {
	b, err := m.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.Complete(); err != nil {
		return nil, err
	}

	p, err := m.payments.GetByBookingID(ctx, tenantID, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Cash booking, nothing to capture.
			if err := m.bookings.Update(ctx, b); err != nil {
				return nil, err
			}
			m.publish(ctx, events.TypeBookingCompleted, b, nil)
			return nil, nil
		}
		return nil, err
	}

	tenant, err := m.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp, err := m.retryCapture(ctx, &gateway.CaptureRequest{
		PaymentID:      p.ID,
		CustomerID:     tenant.ProviderCustomerID,
		MethodID:       p.ProviderMethodID,
		Amount:         p.AuthorizedAmount,
		Currency:       p.Currency,
		Description:    "service completed",
		IdempotencyKey: IdempotencyToken(p.ID, "complete", 1),
		Metadata:       map[string]string{"booking_id": b.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	from := p.Status
	if resp.Status == "succeeded" {
		if err := p.MarkCaptured(resp.IntentID, p.AuthorizedAmount); err != nil {
			return nil, err
		}
		m.audit(ctx, p, from, "completion capture")
	} else {
		if err := p.MarkFailed(resp.IntentID, 0, resp.FailureCode, resp.FailureReason); err != nil {
			return nil, err
		}
		m.audit(ctx, p, from, "completion capture declined: "+resp.FailureCode)
	}

	if err := m.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := m.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	m.publish(ctx, events.TypeBookingCompleted, b, map[string]any{
		"payment_id":      p.ID,
		"captured_amount": p.CapturedAmount,
	})
	return p, nil
}

// Cancel cancels a booking, charging the policy's cancellation fee when the
// cancellation falls inside the free window's boundary. With no fee owed the
// saved method is released untouched.
func (m *Machine) Cancel(ctx context.Context, tenantID, bookingID string, at time.Time) (*domain.Payment, error) {
	b, err := m.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(); err != nil {
		return nil, err
	}

	p, err := m.payments.GetByBookingID(ctx, tenantID, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Cash booking: nothing to charge or release.
			if err := m.bookings.Update(ctx, b); err != nil {
				return nil, err
			}
			m.publish(ctx, events.TypeBookingCanceled, b, nil)
			return nil, nil
		}
		return nil, err
	}

	tenant, err := m.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	fee, err := fees.Compute(tenant.Policy, p.AuthorizedAmount, b.StartTime, at, fees.ActionCancel)
	if err != nil {
		return nil, err
	}

	from := p.Status
	switch {
	case fee.Amount > 0 && p.Status == domain.PaymentStatusAuthorized:
		resp, err := m.retryCapture(ctx, &gateway.CaptureRequest{
			PaymentID:      p.ID,
			CustomerID:     tenant.ProviderCustomerID,
			MethodID:       p.ProviderMethodID,
			Amount:         fee.Amount,
			Currency:       p.Currency,
			Description:    "cancellation fee",
			IdempotencyKey: IdempotencyToken(p.ID, "cancel", 1),
			Metadata:       map[string]string{"booking_id": b.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("cancellation fee capture: %w", err)
		}
		if resp.Status == "succeeded" {
			if err := p.MarkCanceled(resp.IntentID, fee.Amount); err != nil {
				return nil, err
			}
			p.AddFee(fees.ActionCancel.Kind(), fee.BaseAmount, fee.Percent, fee.Amount)
			if err := m.payments.AddFee(ctx, &p.Fees[len(p.Fees)-1]); err != nil {
				return nil, err
			}
			m.audit(ctx, p, from, "canceled with fee")
		} else {
			// Fee uncollectable: cancel anyway, keep the decline code.
			if err := p.MarkCanceled("", 0); err != nil {
				return nil, err
			}
			p.ErrorCode = resp.FailureCode
			p.ErrorMessage = resp.FailureReason
			m.audit(ctx, p, from, "canceled, fee declined: "+resp.FailureCode)
		}
	default:
		// No fee owed, or the method was never saved. Release the setup.
		if p.ProviderSetupID != "" && p.Status == domain.PaymentStatusRequiresAction {
			if err := m.gw.Release(ctx, &gateway.ReleaseRequest{
				SetupID:        p.ProviderSetupID,
				IdempotencyKey: IdempotencyToken(p.ID, "release", 1),
			}); err != nil {
				m.log.WithContext(ctx).Warn("setup release failed",
					zap.String("payment_id", p.ID), zap.Error(err))
			}
		}
		if err := p.MarkCanceled("", 0); err != nil {
			return nil, err
		}
		m.audit(ctx, p, from, "canceled without fee")
	}

	if err := m.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := m.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	m.publish(ctx, events.TypeBookingCanceled, b, map[string]any{
		"fee_amount": fee.Amount,
		"payment_id": p.ID,
	})
	return p, nil
}

// NoShow resolves a booking whose customer never arrived. The no-show fee is
// charged regardless of the free window and the payment ends failed: the
// full price was never collected.
func (m *Machine) NoShow(ctx context.Context, tenantID, bookingID string, at time.Time) (*domain.Payment, error) {
	b, err := m.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.MarkNoShow(); err != nil {
		return nil, err
	}

	p, err := m.payments.GetByBookingID(ctx, tenantID, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if err := m.bookings.Update(ctx, b); err != nil {
				return nil, err
			}
			m.publish(ctx, events.TypeBookingNoShow, b, nil)
			return nil, nil
		}
		return nil, err
	}

	tenant, err := m.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	fee, err := fees.Compute(tenant.Policy, p.AuthorizedAmount, b.StartTime, at, fees.ActionNoShow)
	if err != nil {
		return nil, err
	}

	from := p.Status
	charged := int64(0)
	intentID := ""
	code, message := "no_show", "customer did not arrive"
	if fee.Amount > 0 && p.Status == domain.PaymentStatusAuthorized {
		resp, err := m.retryCapture(ctx, &gateway.CaptureRequest{
			PaymentID:      p.ID,
			CustomerID:     tenant.ProviderCustomerID,
			MethodID:       p.ProviderMethodID,
			Amount:         fee.Amount,
			Currency:       p.Currency,
			Description:    "no-show fee",
			IdempotencyKey: IdempotencyToken(p.ID, "no_show", 1),
			Metadata:       map[string]string{"booking_id": b.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("no-show fee capture: %w", err)
		}
		if resp.Status == "succeeded" {
			charged = fee.Amount
			intentID = resp.IntentID
		} else {
			code, message = resp.FailureCode, resp.FailureReason
		}
	}

	if err := p.MarkFailed(intentID, charged, code, message); err != nil {
		return nil, err
	}
	if charged > 0 {
		p.AddFee(fees.ActionNoShow.Kind(), fee.BaseAmount, fee.Percent, fee.Amount)
		if err := m.payments.AddFee(ctx, &p.Fees[len(p.Fees)-1]); err != nil {
			return nil, err
		}
	}
	m.audit(ctx, p, from, "no-show")

	if err := m.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := m.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	m.publish(ctx, events.TypeBookingNoShow, b, map[string]any{
		"fee_amount": charged,
		"payment_id": p.ID,
	})
	return p, nil
}

// Refund refunds part or all of a captured payment. amount zero means the
// full remaining captured balance. Partial refunds may repeat until the
// captured amount is exhausted.
func (m *Machine) Refund(ctx context.Context, tenantID, paymentID string, amount int64, reason string) (*domain.Payment, error) {
	p, err := m.payments.GetByID(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		amount = p.CapturedAmount - p.RefundedAmount
	}

	from := p.Status
	if err := p.Refund(amount); err != nil {
		return nil, err
	}

	if _, err := m.gw.Refund(ctx, &gateway.RefundRequest{
		IntentID:       p.ProviderIntentID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: IdempotencyToken(p.ID, "refund", int(p.RefundedAmount)),
	}); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}

	if err := m.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	if from != p.Status {
		m.audit(ctx, p, from, "refund")
	}
	return p, nil
}

// PaymentForBooking returns the payment attached to a booking.
func (m *Machine) PaymentForBooking(ctx context.Context, tenantID, bookingID string) (*domain.Payment, error) {
	return m.payments.GetByBookingID(ctx, tenantID, bookingID)
}

// retrySetup calls CreateSetup, retrying transient provider errors with
// exponential backoff. Declines and validation errors are permanent.
func (m *Machine) retrySetup(ctx context.Context, req *gateway.SetupRequest) (*gateway.SetupResponse, error) {
	operation := func() (*gateway.SetupResponse, error) {
		resp, err := m.gw.CreateSetup(ctx, req)
		if err != nil && !errors.Is(err, domain.ErrProcessorUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxTries(m.cfg.MaxAttempts),
	)
}

func (m *Machine) retryCapture(ctx context.Context, req *gateway.CaptureRequest) (*gateway.CaptureResponse, error) {
	operation := func() (*gateway.CaptureResponse, error) {
		resp, err := m.gw.CaptureOffSession(ctx, req)
		if err != nil && !errors.Is(err, domain.ErrProcessorUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(m.newBackOff()),
		backoff.WithMaxTries(m.cfg.MaxAttempts),
	)
}

func (m *Machine) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.RetryInterval
	return bo
}

// audit persists a transition record. Audit failures are logged, never
// allowed to undo a state change that already happened at the provider.
func (m *Machine) audit(ctx context.Context, p *domain.Payment, from domain.PaymentStatus, reason string) {
	tr := &domain.PaymentTransition{
		ID:         domain.NewID(),
		PaymentID:  p.ID,
		FromStatus: from,
		ToStatus:   p.Status,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}
	if err := m.payments.SaveTransition(ctx, tr); err != nil {
		m.log.WithContext(ctx).Error("failed to save payment transition",
			zap.String("payment_id", p.ID),
			zap.String("from", string(from)),
			zap.String("to", string(p.Status)),
			zap.Error(err),
		)
	}
}

func (m *Machine) publish(ctx context.Context, eventType string, b *domain.Booking, payload map[string]any) {
	evt := &events.Event{
		ID:         domain.NewID(),
		Type:       eventType,
		TenantID:   b.TenantID,
		BookingID:  b.ID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := m.events.Publish(ctx, evt); err != nil {
		m.log.WithContext(ctx).Warn("event publish failed",
			zap.String("event_type", eventType),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
