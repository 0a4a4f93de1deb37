package fees

import (
	"testing"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

func percentPolicy(cancelPct, noShowPct int64, freeWindowHours int) domain.BookingPolicy {
	return domain.BookingPolicy{
		CancellationFee: domain.FeeRule{Mode: domain.FeeModePercent, Percent: cancelPct},
		NoShowFee:       domain.FeeRule{Mode: domain.FeeModePercent, Percent: noShowPct},
		FreeWindowHours: freeWindowHours,
	}
}

func TestCompute_NoShowFiftyPercent(t *testing.T) {
	// No-show fee 50%, booking price 10000 minor units -> exactly 5000.
	policy := percentPolicy(0, 50, 24)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	got, err := Compute(policy, 10000, start, start.Add(30*time.Minute), ActionNoShow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Amount != 5000 {
		t.Errorf("Amount = %d, want 5000", got.Amount)
	}
	if got.Percent != 50 {
		t.Errorf("Percent = %d, want 50", got.Percent)
	}
}

func TestCompute_CancelInsideFreeWindow(t *testing.T) {
	// Cancellation 30 hours before start with a 24-hour free window -> 0.
	policy := percentPolicy(50, 50, 24)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	actionAt := start.Add(-30 * time.Hour)

	got, err := Compute(policy, 10000, start, actionAt, ActionCancel)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Amount != 0 {
		t.Errorf("Amount = %d, want 0", got.Amount)
	}
}

func TestCompute_CancelOutsideFreeWindow(t *testing.T) {
	policy := percentPolicy(25, 50, 24)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	actionAt := start.Add(-2 * time.Hour)

	got, err := Compute(policy, 10000, start, actionAt, ActionCancel)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Amount != 2500 {
		t.Errorf("Amount = %d, want 2500", got.Amount)
	}
}

func TestCompute_NoShowIgnoresFreeWindow(t *testing.T) {
	policy := percentPolicy(0, 100, 240)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	// Action long before start: irrelevant for no-shows.
	actionAt := start.Add(-500 * time.Hour)

	got, err := Compute(policy, 8000, start, actionAt, ActionNoShow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Amount != 8000 {
		t.Errorf("Amount = %d, want 8000", got.Amount)
	}
}

func TestCompute_FlatFeeCappedAtPrice(t *testing.T) {
	policy := domain.BookingPolicy{
		CancellationFee: domain.FeeRule{Mode: domain.FeeModeFlat, Amount: 2000},
		NoShowFee:       domain.FeeRule{Mode: domain.FeeModeFlat, Amount: 9999},
	}
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	cancel, err := Compute(policy, 10000, start, start.Add(-time.Hour), ActionCancel)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if cancel.Amount != 2000 {
		t.Errorf("cancel Amount = %d, want 2000", cancel.Amount)
	}

	// A flat fee larger than the price is capped.
	noShow, err := Compute(policy, 5000, start, start.Add(time.Hour), ActionNoShow)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if noShow.Amount != 5000 {
		t.Errorf("no-show Amount = %d, want 5000", noShow.Amount)
	}
}

func TestCompute_PercentRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name    string
		price   int64
		percent int64
		want    int64
	}{
		{"exact", 10000, 50, 5000},
		{"rounds up at half", 101, 50, 51},
		{"rounds to nearest", 103, 33, 34}, // 33.99 -> 34
		{"one percent of one", 1, 1, 0},    // 0.01 -> 0
		{"full percent", 9999, 100, 9999},
		{"zero percent", 9999, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := percentPolicy(0, tt.percent, 0)
			start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
			got, err := Compute(policy, tt.price, start, start, ActionNoShow)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got.Amount != tt.want {
				t.Errorf("Amount = %d, want %d", got.Amount, tt.want)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	policy := percentPolicy(37, 63, 48)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	actionAt := start.Add(-3 * time.Hour)

	first, err := Compute(policy, 12345, start, actionAt, ActionCancel)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := Compute(policy, 12345, start, actionAt, ActionCancel)
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if again != first {
			t.Fatalf("Compute not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestCompute_NoFeeConfigured(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	result, err := Compute(domain.BookingPolicy{}, 10000, start, start, ActionCancel)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if result.Amount != 0 {
		t.Errorf("Amount = %d, want 0 with no fee rule configured", result.Amount)
	}
}

func TestCompute_UnknownAction(t *testing.T) {
	policy := percentPolicy(10, 10, 0)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if _, err := Compute(policy, 1000, start, start, Action("refund")); err == nil {
		t.Error("Expected error for unknown action")
	}
}
