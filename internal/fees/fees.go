// Package fees computes cancellation and no-show fee amounts from tenant
// policy and timing. Computation is a pure function of its inputs so that
// fee decisions are deterministic and replayable for auditing.
package fees

import (
	"fmt"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// Action is the admin action a fee is computed for.
type Action string

const (
	ActionCancel Action = "cancel"
	ActionNoShow Action = "no_show"
)

// Result carries the computed fee plus the inputs that produced it, for the
// payment fee line-item.
type Result struct {
	Amount     int64
	BaseAmount int64
	Percent    int64 // 0 for flat fees
}

// Compute returns the fee owed for an action taken at actionAt against a
// booking of the given price starting at start. Amounts are minor currency
// units and never negative. Percentage fees round half up to the nearest
// unit.
func Compute(policy domain.BookingPolicy, price int64, start, actionAt time.Time, action Action) (Result, error) {
	if price < 0 {
		return Result{}, domain.NewValidationError("price", "must be non-negative")
	}

	var rule domain.FeeRule
	switch action {
	case ActionCancel:
		rule = policy.CancellationFee
		// Cancellations inside the free window incur no fee.
		if policy.FreeWindowHours > 0 {
			freeWindow := time.Duration(policy.FreeWindowHours) * time.Hour
			if start.Sub(actionAt) >= freeWindow {
				return Result{BaseAmount: price}, nil
			}
		}
	case ActionNoShow:
		// No free window: the appointment time has passed.
		rule = policy.NoShowFee
	default:
		return Result{}, domain.NewValidationError("action", fmt.Sprintf("unknown fee action %q", action))
	}

	switch rule.Mode {
	case "":
		// No fee configured for this action.
		return Result{BaseAmount: price}, nil
	case domain.FeeModeFlat:
		amount := rule.Amount
		if amount < 0 {
			amount = 0
		}
		if amount > price {
			amount = price
		}
		return Result{Amount: amount, BaseAmount: price}, nil
	case domain.FeeModePercent:
		if rule.Percent < 0 || rule.Percent > 100 {
			return Result{}, domain.NewValidationError("percent", "must be between 0 and 100")
		}
		amount := (price*rule.Percent + 50) / 100
		return Result{Amount: amount, BaseAmount: price, Percent: rule.Percent}, nil
	default:
		return Result{}, domain.NewValidationError("mode", fmt.Sprintf("unknown fee mode %q", rule.Mode))
	}
}

// Kind maps a fee action to its payment fee kind.
func (a Action) Kind() domain.FeeKind {
	if a == ActionNoShow {
		return domain.FeeKindNoShow
	}
	return domain.FeeKindCancellation
}
