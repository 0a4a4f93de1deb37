package worker

import (
	"context"
	"testing"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/events"
	"github.com/thitipong-w/slotwise/internal/gateway"
	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/logger"
)

func TestDefaultReaperConfig(t *testing.T) {
	config := DefaultReaperConfig()

	if config.ScanInterval != 30*time.Second {
		t.Errorf("ScanInterval = %v, want %v", config.ScanInterval, 30*time.Second)
	}
	if config.BatchSize != 100 {
		t.Errorf("BatchSize = %v, want %v", config.BatchSize, 100)
	}
	if config.HoldTTL != 15*time.Minute {
		t.Errorf("HoldTTL = %v, want %v", config.HoldTTL, 15*time.Minute)
	}
}

func TestNewReaperWithNilConfig(t *testing.T) {
	reaper := NewReaper(nil, nil, logger.NewNop(), nil)

	if reaper.config == nil {
		t.Fatal("config should not be nil")
	}
	if reaper.config.ScanInterval != 30*time.Second {
		t.Errorf("ScanInterval = %v, want default", reaper.config.ScanInterval)
	}
	if reaper.running {
		t.Error("reaper should not be running initially")
	}
}

func TestScanOnceReapsExpiredPending(t *testing.T) {
	ctx := context.Background()
	bookings := repository.NewMemoryBookingRepository()
	payments := repository.NewMemoryPaymentRepository()
	tenants := repository.NewMemoryTenantRepository()
	gw := gateway.NewFakeGateway()

	tenant := &domain.Tenant{
		ID:       domain.NewID(),
		Name:     "Glow Salon",
		Slug:     "glow-salon",
		Timezone: "UTC",
		Currency: "USD",
		IsActive: true,
	}
	if err := tenants.Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	machine := payment.NewMachine(payments, bookings, tenants, gw, events.NopPublisher{},
		logger.NewNop(), payment.Config{MaxAttempts: 1, RetryInterval: time.Millisecond})

	start := time.Now().UTC().Add(48 * time.Hour)
	mkBooking := func(offset time.Duration, age time.Duration) *domain.Booking {
		b, err := domain.NewBooking(tenant.ID, "res-1", "svc-1", "cust-1",
			start.Add(offset), start.Add(offset+time.Hour), domain.NewID())
		if err != nil {
			t.Fatalf("new booking: %v", err)
		}
		b.CreatedAt = time.Now().UTC().Add(-age)
		if err := bookings.CreateExclusive(ctx, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}
		return b
	}

	expired := mkBooking(0, time.Hour)           // stale hold
	fresh := mkBooking(2*time.Hour, time.Minute) // still inside TTL
	expired2 := mkBooking(4*time.Hour, 20*time.Minute)

	// expired2 has a dangling provider setup to release.
	p, _, err := machine.Setup(ctx, tenant, expired2, 10000, "USD")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	reaper := NewReaper(bookings, machine, logger.NewNop(), &ReaperConfig{
		ScanInterval: time.Second,
		BatchSize:    100,
		HoldTTL:      15 * time.Minute,
	})

	reaped, err := reaper.ScanOnce(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if reaped != 2 {
		t.Errorf("reaped = %d, want 2", reaped)
	}

	for _, id := range []string{expired.ID, expired2.ID} {
		b, err := bookings.GetByID(ctx, tenant.ID, id)
		if err != nil {
			t.Fatalf("reload booking: %v", err)
		}
		if b.Status != domain.BookingStatusCanceled {
			t.Errorf("booking %s status = %s, want canceled", id, b.Status)
		}
	}
	b, _ := bookings.GetByID(ctx, tenant.ID, fresh.ID)
	if b.Status != domain.BookingStatusPending {
		t.Errorf("fresh booking status = %s, want pending", b.Status)
	}

	if !gw.Released(p.ProviderSetupID) {
		t.Error("dangling provider setup was not released")
	}
	reloaded, _ := payments.GetByID(ctx, tenant.ID, p.ID)
	if reloaded.Status != domain.PaymentStatusCanceled {
		t.Errorf("payment status = %s, want canceled", reloaded.Status)
	}

	totalReaped, totalScans, _ := reaper.Stats()
	if totalReaped != 2 || totalScans != 1 {
		t.Errorf("stats = (%d, %d), want (2, 1)", totalReaped, totalScans)
	}
}

func TestScanOnceIgnoresConfirmedCashBookings(t *testing.T) {
	ctx := context.Background()
	bookings := repository.NewMemoryBookingRepository()
	payments := repository.NewMemoryPaymentRepository()
	tenants := repository.NewMemoryTenantRepository()

	tenant := &domain.Tenant{
		ID:       domain.NewID(),
		Name:     "Glow Salon",
		Slug:     "glow-salon",
		Timezone: "UTC",
		Currency: "USD",
		Policy:   domain.BookingPolicy{AllowCashBookings: true},
		IsActive: true,
	}
	if err := tenants.Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	machine := payment.NewMachine(payments, bookings, tenants, gateway.NewFakeGateway(),
		events.NopPublisher{}, logger.NewNop(),
		payment.Config{MaxAttempts: 1, RetryInterval: time.Millisecond})

	// A cash booking is confirmed at creation despite having no payment;
	// however old its hold gets, it is not the reaper's to cancel.
	start := time.Now().UTC().Add(48 * time.Hour)
	b, err := domain.NewBooking(tenant.ID, "res-1", "svc-1", "cust-1",
		start, start.Add(time.Hour), domain.NewID())
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	b.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := bookings.CreateExclusive(ctx, b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := b.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := bookings.Update(ctx, b); err != nil {
		t.Fatalf("update booking: %v", err)
	}

	reaper := NewReaper(bookings, machine, logger.NewNop(), &ReaperConfig{
		ScanInterval: time.Second,
		BatchSize:    100,
		HoldTTL:      15 * time.Minute,
	})
	reaped, err := reaper.ScanOnce(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if reaped != 0 {
		t.Errorf("reaped = %d, want 0", reaped)
	}
	b, _ = bookings.GetByID(ctx, tenant.ID, b.ID)
	if b.Status != domain.BookingStatusConfirmed {
		t.Errorf("cash booking status = %s, want confirmed", b.Status)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	bookings := repository.NewMemoryBookingRepository()
	reaper := NewReaper(bookings, nil, logger.NewNop(), &ReaperConfig{
		ScanInterval: time.Hour, // never fires during the test
		BatchSize:    10,
		HoldTTL:      time.Minute,
	})

	ctx := context.Background()
	reaper.Start(ctx)
	reaper.Start(ctx) // second start is a no-op
	reaper.Stop()
	reaper.Stop() // second stop is a no-op
}
