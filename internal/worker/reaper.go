// Package worker runs background maintenance loops.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/logger"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// ReaperConfig controls the pending-booking reaper.
type ReaperConfig struct {
	ScanInterval time.Duration // how often to scan for expired holds
	BatchSize    int           // max bookings reaped per scan
	HoldTTL      time.Duration // how long a pending booking may hold its slot
}

// DefaultReaperConfig returns production defaults.
func DefaultReaperConfig() *ReaperConfig {
	return &ReaperConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    100,
		HoldTTL:      15 * time.Minute,
	}
}

// Reaper cancels pending bookings whose payment setup never completed,
// freeing their slots. Cancellation goes through the payment machine so any
// dangling provider setup is released too.
type Reaper struct {
	bookings repository.BookingRepository
	machine  *payment.Machine
	log      *logger.Logger
	config   *ReaperConfig
	reaped   *telemetry.Counter

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
	totalReaped  int64
	totalScans   int64
	lastScanTime time.Time
}

// NewReaper creates a reaper. A nil config uses defaults.
func NewReaper(bookings repository.BookingRepository, machine *payment.Machine, log *logger.Logger, config *ReaperConfig) *Reaper {
	if config == nil {
		config = DefaultReaperConfig()
	}
	reaped, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "reaper_bookings_reaped_total",
		Description: "Pending bookings canceled after their hold expired",
		Unit:        "1",
	})
	return &Reaper{
		bookings: bookings,
		machine:  machine,
		log:      log,
		config:   config,
		reaped:   reaped,
	}
}

// Start launches the scan loop. Starting a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop halts the loop and waits for an in-flight scan.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reaper) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			reaped, err := r.ScanOnce(ctx)
			if err != nil {
				r.log.WithContext(ctx).Error("reaper scan failed", zap.Error(err))
				continue
			}
			if reaped > 0 {
				r.log.WithContext(ctx).Info("reaped expired pending bookings",
					zap.Int("count", reaped))
			}
		}
	}
}

// ScanOnce cancels one batch of expired pending bookings and returns how
// many were reaped. Exported so tests and admin tooling can trigger a scan
// without the loop.
func (r *Reaper) ScanOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.config.HoldTTL)
	expired, err := r.bookings.ExpiredPending(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, b := range expired {
		if _, err := r.machine.Cancel(ctx, b.TenantID, b.ID, time.Now().UTC()); err != nil {
			// Skip and retry on the next scan; one bad booking must not
			// wedge the batch.
			r.log.WithContext(ctx).Warn("failed to reap booking",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		reaped++
		if r.reaped != nil {
			r.reaped.Inc(ctx, telemetry.TenantIDAttr(b.TenantID))
		}
	}

	r.mu.Lock()
	r.totalReaped += int64(reaped)
	r.totalScans++
	r.lastScanTime = time.Now().UTC()
	r.mu.Unlock()

	return reaped, nil
}

// Stats reports reaper counters.
func (r *Reaper) Stats() (totalReaped, totalScans int64, lastScan time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalReaped, r.totalScans, r.lastScanTime
}
