// Package availability resolves bookable time slots from recurring weekly
// rules, date-specific exceptions and existing bookings. Resolution is a
// read-time over-approximation: the authoritative no-overlap check happens
// at commit time in the booking scheduler, because the read and the eventual
// write are not in the same transaction.
package availability

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/timeslot"
)

// DefaultGranularity is the default step between candidate slot starts.
const DefaultGranularity = 15 * time.Minute

// ScheduleReader provides the recurring rules and date exceptions for a
// resource. Read-only to the booking flow.
type ScheduleReader interface {
	RulesForResource(ctx context.Context, tenantID, resourceID string) ([]*domain.AvailabilityRule, error)
	ExceptionsForRange(ctx context.Context, tenantID, resourceID string, from, to string) ([]*domain.AvailabilityException, error)
}

// BookingReader lists bookings that still hold their slot within a window.
type BookingReader interface {
	ActiveBookingsInRange(ctx context.Context, tenantID, resourceID string, window timeslot.Interval) ([]*domain.Booking, error)
}

// Resolver turns rules, exceptions and existing bookings into free windows
// and candidate slots. It never mutates state.
type Resolver struct {
	schedules   ScheduleReader
	bookings    BookingReader
	granularity time.Duration
}

// NewResolver creates a resolver. A non-positive granularity falls back to
// DefaultGranularity.
func NewResolver(schedules ScheduleReader, bookings BookingReader, granularity time.Duration) *Resolver {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Resolver{
		schedules:   schedules,
		bookings:    bookings,
		granularity: granularity,
	}
}

// Query describes one availability resolution request.
type Query struct {
	TenantID string
	Resource *domain.Resource
	Service  *domain.Service
	From     timeslot.LocalDate
	To       timeslot.LocalDate // inclusive
	Location *time.Location
}

func (q *Query) validate() error {
	if q.TenantID == "" {
		return domain.NewValidationError("tenant_id", "required")
	}
	if q.Resource == nil || q.Service == nil {
		return domain.NewValidationError("query", "resource and service are required")
	}
	if q.Location == nil {
		return domain.NewValidationError("location", "required")
	}
	if q.To.Before(q.From) {
		return domain.NewValidationError("date_range", "to must not be before from")
	}
	return nil
}

// FreeWindows materializes open windows for each date in the range, with any
// matching exception substituted wholesale for that date, then subtracts the
// footprints of existing non-terminal bookings.
func (r *Resolver) FreeWindows(ctx context.Context, q *Query) ([]timeslot.Interval, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	rules, err := r.schedules.RulesForResource(ctx, q.TenantID, q.Resource.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	exceptions, err := r.schedules.ExceptionsForRange(ctx, q.TenantID, q.Resource.ID, q.From.String(), q.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions: %w", err)
	}
	byDate := make(map[string]*domain.AvailabilityException, len(exceptions))
	for _, ex := range exceptions {
		byDate[ex.Date] = ex
	}

	var open []timeslot.Interval
	end := q.To.Next()
	for d := q.From; d.Before(end); d = d.Next() {
		var windows []domain.MinuteWindow
		if ex, ok := byDate[d.String()]; ok {
			// The exception fully replaces the day's rules, even when closed.
			windows = ex.OpenWindows()
		} else {
			weekday := d.Weekday(q.Location)
			for _, rule := range rules {
				if !rule.IsActive || rule.Weekday != weekday {
					continue
				}
				windows = append(windows, rule.OpenWindows()...)
			}
		}
		for _, w := range windows {
			if iv, ok := d.WindowOn(w, q.Location); ok {
				open = append(open, iv)
			}
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	open = timeslot.Union(open)

	// Pad the scan window so bookings whose footprints bleed into the range
	// are still subtracted.
	pad := q.Service.BufferBefore() + q.Service.BufferAfter() + q.Service.Duration()
	scan := timeslot.Interval{
		Start: open[0].Start.Add(-pad),
		End:   open[len(open)-1].End.Add(pad),
	}
	existing, err := r.bookings.ActiveBookingsInRange(ctx, q.TenantID, q.Resource.ID, scan)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	busy := make([]timeslot.Interval, 0, len(existing))
	for _, b := range existing {
		iv := timeslot.Interval{Start: b.StartTime, End: b.EndTime}
		busy = append(busy, iv.Pad(q.Service.BufferBefore(), q.Service.BufferAfter()))
	}

	return timeslot.Subtract(open, busy), nil
}

// Slots returns a lazy, finite, restartable sequence of candidate slot start
// times: start-aligned slices of the free windows, stepped by the configured
// granularity. Candidates whose footprint (buffers included) does not fit
// inside a free window are discarded.
func (r *Resolver) Slots(ctx context.Context, q *Query) (iter.Seq[time.Time], error) {
	free, err := r.FreeWindows(ctx, q)
	if err != nil {
		return nil, err
	}

	need := q.Service.BufferBefore() + q.Service.Duration() + q.Service.BufferAfter()
	step := r.granularity

	return func(yield func(time.Time) bool) {
		for _, win := range free {
			if win.Duration() < need {
				continue
			}
			// Slot starts leave room for the pre-buffer inside the window.
			first := win.Start.Add(q.Service.BufferBefore())
			last := win.End.Add(-(q.Service.Duration() + q.Service.BufferAfter()))
			for at := first; !at.After(last); at = at.Add(step) {
				if !yield(at) {
					return
				}
			}
		}
	}, nil
}

// SlotFits reports whether the requested [start, start+duration) window,
// with buffers, lies inside a free window. Used by the scheduler to
// re-derive availability server-side instead of trusting the client.
func (r *Resolver) SlotFits(ctx context.Context, q *Query, start time.Time) (bool, error) {
	free, err := r.FreeWindows(ctx, q)
	if err != nil {
		return false, err
	}
	footprint := timeslot.Interval{
		Start: start.Add(-q.Service.BufferBefore()),
		End:   start.Add(q.Service.Duration() + q.Service.BufferAfter()),
	}
	for _, win := range free {
		if win.Contains(footprint) {
			return true, nil
		}
	}
	return false, nil
}
