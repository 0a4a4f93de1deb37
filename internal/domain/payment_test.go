package domain

import (
	"errors"
	"testing"
)

func TestNewPayment(t *testing.T) {
	tests := []struct {
		name      string
		tenantID  string
		bookingID string
		amount    int64
		currency  string
		wantErr   bool
	}{
		{
			name:      "valid payment",
			tenantID:  "tenant-123",
			bookingID: "booking-123",
			amount:    10000,
			currency:  "USD",
			wantErr:   false,
		},
		{
			name:      "missing tenant_id",
			tenantID:  "",
			bookingID: "booking-123",
			amount:    10000,
			currency:  "USD",
			wantErr:   true,
		},
		{
			name:      "missing booking_id",
			tenantID:  "tenant-123",
			bookingID: "",
			amount:    10000,
			currency:  "USD",
			wantErr:   true,
		},
		{
			name:      "zero amount",
			tenantID:  "tenant-123",
			bookingID: "booking-123",
			amount:    0,
			currency:  "USD",
			wantErr:   true,
		},
		{
			name:      "negative amount",
			tenantID:  "tenant-123",
			bookingID: "booking-123",
			amount:    -100,
			currency:  "USD",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(tt.tenantID, tt.bookingID, tt.amount, tt.currency)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPayment() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if p.Status != PaymentStatusRequiresAction {
				t.Errorf("Status = %s, want requires_action", p.Status)
			}
			if p.CaptureMethod != "manual" {
				t.Errorf("CaptureMethod = %s, want manual", p.CaptureMethod)
			}
			if p.CapturedAmount != 0 || p.RefundedAmount != 0 {
				t.Error("new payment must start with zero captured and refunded amounts")
			}
		})
	}
}

func TestPaymentStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{"requires_action to authorized", PaymentStatusRequiresAction, PaymentStatusAuthorized, true},
		{"requires_action to canceled", PaymentStatusRequiresAction, PaymentStatusCanceled, true},
		{"requires_action to failed", PaymentStatusRequiresAction, PaymentStatusFailed, true},
		{"requires_action to captured", PaymentStatusRequiresAction, PaymentStatusCaptured, false},
		{"authorized to captured", PaymentStatusAuthorized, PaymentStatusCaptured, true},
		{"authorized to canceled", PaymentStatusAuthorized, PaymentStatusCanceled, true},
		{"authorized to failed", PaymentStatusAuthorized, PaymentStatusFailed, true},
		{"authorized to refunded", PaymentStatusAuthorized, PaymentStatusRefunded, false},
		{"captured to refunded", PaymentStatusCaptured, PaymentStatusRefunded, true},
		{"captured to canceled", PaymentStatusCaptured, PaymentStatusCanceled, false},
		{"canceled is terminal", PaymentStatusCanceled, PaymentStatusAuthorized, false},
		{"failed is terminal", PaymentStatusFailed, PaymentStatusAuthorized, false},
		{"refunded is terminal", PaymentStatusRefunded, PaymentStatusCaptured, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	terminal := []PaymentStatus{PaymentStatusCanceled, PaymentStatusFailed, PaymentStatusRefunded}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	active := []PaymentStatus{PaymentStatusRequiresAction, PaymentStatusAuthorized, PaymentStatusCaptured}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestPaymentMarkCaptured(t *testing.T) {
	mk := func(t *testing.T) *Payment {
		t.Helper()
		p, err := NewPayment("tenant-123", "booking-123", 10000, "USD")
		if err != nil {
			t.Fatalf("NewPayment: %v", err)
		}
		if err := p.MarkAuthorized("pm_123"); err != nil {
			t.Fatalf("MarkAuthorized: %v", err)
		}
		return p
	}

	t.Run("full capture", func(t *testing.T) {
		p := mk(t)
		if err := p.MarkCaptured("pi_123", 10000); err != nil {
			t.Fatalf("MarkCaptured: %v", err)
		}
		if p.Status != PaymentStatusCaptured || p.CapturedAmount != 10000 {
			t.Errorf("got %s/%d, want captured/10000", p.Status, p.CapturedAmount)
		}
		if p.CapturedAt == nil {
			t.Error("CapturedAt not set")
		}
	})

	t.Run("capture above authorized amount", func(t *testing.T) {
		p := mk(t)
		if err := p.MarkCaptured("pi_123", 10001); err == nil {
			t.Error("capture above authorized amount succeeded")
		}
	})

	t.Run("capture without authorization", func(t *testing.T) {
		p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
		if err := p.MarkCaptured("pi_123", 10000); err == nil {
			t.Error("capture from requires_action succeeded")
		} else if !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("error = %v, want ErrInvalidStateTransition", err)
		}
	})
}

func TestPaymentMarkCanceledWithFee(t *testing.T) {
	p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
	if err := p.MarkAuthorized("pm_123"); err != nil {
		t.Fatalf("MarkAuthorized: %v", err)
	}
	if err := p.MarkCanceled("pi_fee", 5000); err != nil {
		t.Fatalf("MarkCanceled: %v", err)
	}
	if p.Status != PaymentStatusCanceled {
		t.Errorf("Status = %s, want canceled", p.Status)
	}
	if p.CapturedAmount != 5000 {
		t.Errorf("CapturedAmount = %d, want the 5000 fee", p.CapturedAmount)
	}
}

func TestPaymentMarkFailedWithNoShowFee(t *testing.T) {
	p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
	if err := p.MarkAuthorized("pm_123"); err != nil {
		t.Fatalf("MarkAuthorized: %v", err)
	}
	if err := p.MarkFailed("pi_fee", 5000, "no_show", "customer did not arrive"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if p.Status != PaymentStatusFailed {
		t.Errorf("Status = %s, want failed", p.Status)
	}
	if p.CapturedAmount != 5000 {
		t.Errorf("CapturedAmount = %d, want the 5000 fee", p.CapturedAmount)
	}
	if p.ErrorCode != "no_show" {
		t.Errorf("ErrorCode = %s, want no_show", p.ErrorCode)
	}
}

func TestPaymentRefund(t *testing.T) {
	mk := func(t *testing.T) *Payment {
		t.Helper()
		p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
		if err := p.MarkAuthorized("pm_123"); err != nil {
			t.Fatalf("MarkAuthorized: %v", err)
		}
		if err := p.MarkCaptured("pi_123", 10000); err != nil {
			t.Fatalf("MarkCaptured: %v", err)
		}
		return p
	}

	t.Run("full refund", func(t *testing.T) {
		p := mk(t)
		if err := p.Refund(10000); err != nil {
			t.Fatalf("Refund: %v", err)
		}
		if p.Status != PaymentStatusRefunded || p.RefundedAmount != 10000 {
			t.Errorf("got %s/%d, want refunded/10000", p.Status, p.RefundedAmount)
		}
	})

	t.Run("partial refunds accumulate", func(t *testing.T) {
		p := mk(t)
		for _, amount := range []int64{4000, 6000} {
			if err := p.Refund(amount); err != nil {
				t.Fatalf("Refund(%d): %v", amount, err)
			}
		}
		if p.RefundedAmount != 10000 {
			t.Errorf("RefundedAmount = %d, want 10000", p.RefundedAmount)
		}
	})

	t.Run("refund exceeding captured amount", func(t *testing.T) {
		p := mk(t)
		if err := p.Refund(6000); err != nil {
			t.Fatalf("Refund: %v", err)
		}
		if err := p.Refund(5000); err == nil {
			t.Error("refund beyond captured amount succeeded")
		}
	})

	t.Run("refund before capture", func(t *testing.T) {
		p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
		if err := p.Refund(1000); err == nil {
			t.Error("refund of uncaptured payment succeeded")
		}
	})
}

func TestPaymentAddFee(t *testing.T) {
	p, _ := NewPayment("tenant-123", "booking-123", 10000, "USD")
	fee := p.AddFee(FeeKindCancellation, 10000, 50, 5000)

	if fee.PaymentID != p.ID {
		t.Errorf("fee.PaymentID = %s, want %s", fee.PaymentID, p.ID)
	}
	if len(p.Fees) != 1 {
		t.Fatalf("Fees = %d, want 1", len(p.Fees))
	}
	if p.Fees[0].Amount != 5000 || p.Fees[0].Percent != 50 {
		t.Errorf("fee = %+v, want amount 5000 at 50%%", p.Fees[0])
	}
}
