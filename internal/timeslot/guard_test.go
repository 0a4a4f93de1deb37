package timeslot

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

func TestGuardRejectsOverlap(t *testing.T) {
	g := NewGuard()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	iv := func(startMin, endMin int) Interval {
		return Interval{
			Start: base.Add(time.Duration(startMin) * time.Minute),
			End:   base.Add(time.Duration(endMin) * time.Minute),
		}
	}

	if err := g.Reserve("t1", "r1", "b1", iv(0, 60)); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := g.Reserve("t1", "r1", "b2", iv(30, 90))
	var conflict *domain.SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("overlapping reserve returned %v, want SlotConflictError", err)
	}
	if !conflict.Start.Equal(base) {
		t.Errorf("conflict start = %v, want %v", conflict.Start, base)
	}

	// Touching endpoints do not conflict: intervals are half-open.
	if err := g.Reserve("t1", "r1", "b3", iv(60, 120)); err != nil {
		t.Errorf("back-to-back reserve: %v", err)
	}

	// Other resources and tenants are independent.
	if err := g.Reserve("t1", "r2", "b4", iv(0, 60)); err != nil {
		t.Errorf("different resource: %v", err)
	}
	if err := g.Reserve("t2", "r1", "b5", iv(0, 60)); err != nil {
		t.Errorf("different tenant: %v", err)
	}
}

func TestGuardReleaseFreesSlot(t *testing.T) {
	g := NewGuard()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	iv := Interval{Start: base, End: base.Add(time.Hour)}

	if err := g.Reserve("t1", "r1", "b1", iv); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	g.Release("t1", "r1", "b1")
	if err := g.Reserve("t1", "r1", "b2", iv); err != nil {
		t.Errorf("reserve after release: %v", err)
	}

	// Releasing an unknown booking is a no-op.
	g.Release("t1", "r1", "nope")
	if got := g.Holds("t1", "r1"); got != 1 {
		t.Errorf("holds = %d, want 1", got)
	}
}

func TestGuardConcurrentReserveHasOneWinner(t *testing.T) {
	g := NewGuard()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	iv := Interval{Start: base, End: base.Add(time.Hour)}

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Reserve("t1", "r1", domain.NewID(), iv)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var conflict *domain.SlotConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("loser got %v, want SlotConflictError", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if got := g.Holds("t1", "r1"); got != 1 {
		t.Errorf("holds = %d, want 1", got)
	}
}
