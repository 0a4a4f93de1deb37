package domain

import (
	"time"
)

const minutesPerDay = 24 * 60

// MinuteWindow is a half-open [start, end) window expressed in minutes from
// local midnight.
type MinuteWindow struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// Validate rejects empty or out-of-range windows.
func (w MinuteWindow) Validate() error {
	if w.StartMinute < 0 || w.EndMinute > minutesPerDay {
		return NewValidationError("window", "minutes must be within a day")
	}
	if w.StartMinute >= w.EndMinute {
		return NewValidationError("window", "start must be before end")
	}
	return nil
}

// Overlaps reports whether two minute windows intersect.
func (w MinuteWindow) Overlaps(o MinuteWindow) bool {
	return w.StartMinute < o.EndMinute && o.StartMinute < w.EndMinute
}

// AvailabilityRule is a recurring weekly template for a resource. Multiple
// non-overlapping rules per (resource, weekday) are allowed.
type AvailabilityRule struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenant_id"`
	ResourceID string       `json:"resource_id"`
	Weekday    time.Weekday `json:"weekday"`
	Window     MinuteWindow `json:"window"`
	// Break is an optional window carved out of the rule, e.g. lunch.
	Break     *MinuteWindow `json:"break,omitempty"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewAvailabilityRule creates a weekly rule.
func NewAvailabilityRule(tenantID, resourceID string, weekday time.Weekday, window MinuteWindow, brk *MinuteWindow) (*AvailabilityRule, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if resourceID == "" {
		return nil, NewValidationError("resource_id", "required")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if brk != nil {
		if err := brk.Validate(); err != nil {
			return nil, err
		}
		if brk.StartMinute < window.StartMinute || brk.EndMinute > window.EndMinute {
			return nil, NewValidationError("break", "must be inside the rule window")
		}
	}
	now := time.Now().UTC()
	return &AvailabilityRule{
		ID:         NewID(),
		TenantID:   tenantID,
		ResourceID: resourceID,
		Weekday:    weekday,
		Window:     window,
		Break:      brk,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// OpenWindows returns the rule's open windows with the break carved out.
func (r *AvailabilityRule) OpenWindows() []MinuteWindow {
	if r.Break == nil {
		return []MinuteWindow{r.Window}
	}
	var out []MinuteWindow
	if r.Window.StartMinute < r.Break.StartMinute {
		out = append(out, MinuteWindow{StartMinute: r.Window.StartMinute, EndMinute: r.Break.StartMinute})
	}
	if r.Break.EndMinute < r.Window.EndMinute {
		out = append(out, MinuteWindow{StartMinute: r.Break.EndMinute, EndMinute: r.Window.EndMinute})
	}
	return out
}

// ValidateRuleSet rejects overlapping rules for the same (resource, weekday).
// Enforced when a tenant admin saves rules, read-only to the booking flow.
func ValidateRuleSet(rules []*AvailabilityRule) error {
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			a, b := rules[i], rules[j]
			if a.ResourceID != b.ResourceID || a.Weekday != b.Weekday {
				continue
			}
			if !a.IsActive || !b.IsActive {
				continue
			}
			if a.Window.Overlaps(b.Window) {
				return NewValidationError("rules", "overlapping rules for the same resource and weekday")
			}
		}
	}
	return nil
}

// AvailabilityException is a date-specific override for a resource. It fully
// replaces, never merges with, the recurring rules on its date.
type AvailabilityException struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`
	// Date is the local calendar date in the tenant timezone, "2006-01-02".
	Date string `json:"date"`
	// Closed marks the whole day unavailable. Windows are ignored when set.
	Closed    bool           `json:"closed"`
	Windows   []MinuteWindow `json:"windows,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewAvailabilityException creates a date override.
func NewAvailabilityException(tenantID, resourceID, date string, closed bool, windows []MinuteWindow) (*AvailabilityException, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	if resourceID == "" {
		return nil, NewValidationError("resource_id", "required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, NewValidationError("date", "must be formatted as 2006-01-02")
	}
	if !closed && len(windows) == 0 {
		return nil, NewValidationError("windows", "required unless the day is closed")
	}
	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	return &AvailabilityException{
		ID:         NewID(),
		TenantID:   tenantID,
		ResourceID: resourceID,
		Date:       date,
		Closed:     closed,
		Windows:    windows,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// OpenWindows returns the exception's open windows. Empty for closed days.
func (e *AvailabilityException) OpenWindows() []MinuteWindow {
	if e.Closed {
		return nil
	}
	return e.Windows
}
