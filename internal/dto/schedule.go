package dto

import (
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// WindowRequest represents one minute-of-day window
type WindowRequest struct {
	StartMinute int `json:"start_minute" binding:"min=0,max=1439"`
	EndMinute   int `json:"end_minute" binding:"min=1,max=1440"`
}

func (w WindowRequest) toDomain() domain.MinuteWindow {
	return domain.MinuteWindow{StartMinute: w.StartMinute, EndMinute: w.EndMinute}
}

// RuleRequest represents one weekly availability rule
type RuleRequest struct {
	Weekday int            `json:"weekday" binding:"min=0,max=6"`
	Window  WindowRequest  `json:"window" binding:"required"`
	Break   *WindowRequest `json:"break,omitempty"`
}

// ReplaceRulesRequest represents request to replace a resource's weekly rules
type ReplaceRulesRequest struct {
	Rules []RuleRequest `json:"rules" binding:"required,dive"`
}

// ToRules maps the request into domain rules
func (r *ReplaceRulesRequest) ToRules(tenantID, resourceID string) ([]*domain.AvailabilityRule, error) {
	rules := make([]*domain.AvailabilityRule, 0, len(r.Rules))
	for _, rr := range r.Rules {
		var brk *domain.MinuteWindow
		if rr.Break != nil {
			w := rr.Break.toDomain()
			brk = &w
		}
		rule, err := domain.NewAvailabilityRule(tenantID, resourceID, time.Weekday(rr.Weekday), rr.Window.toDomain(), brk)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SaveExceptionRequest represents request to override a resource's schedule
// on one date. Windows are ignored when closed is set.
type SaveExceptionRequest struct {
	Date    string          `json:"date" binding:"required,datetime=2006-01-02"`
	Closed  bool            `json:"closed"`
	Windows []WindowRequest `json:"windows" binding:"omitempty,dive"`
}

// ToException maps the request into a domain exception
func (r *SaveExceptionRequest) ToException(tenantID, resourceID string) (*domain.AvailabilityException, error) {
	windows := make([]domain.MinuteWindow, 0, len(r.Windows))
	for _, w := range r.Windows {
		windows = append(windows, w.toDomain())
	}
	return domain.NewAvailabilityException(tenantID, resourceID, r.Date, r.Closed, windows)
}

// AvailabilityQuery represents query parameters for slot listing
type AvailabilityQuery struct {
	ResourceID string `form:"resource_id" binding:"required"`
	ServiceID  string `form:"service_id" binding:"required"`
	From       string `form:"from" binding:"required,datetime=2006-01-02"`
	To         string `form:"to" binding:"required,datetime=2006-01-02"`
}

// WindowResponse represents one free interval in response
type WindowResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotsResponse represents candidate slot start times in response
type SlotsResponse struct {
	ResourceID string      `json:"resource_id"`
	ServiceID  string      `json:"service_id"`
	Slots      []time.Time `json:"slots"`
}

// FreeWindowsResponse represents free intervals in response
type FreeWindowsResponse struct {
	ResourceID string           `json:"resource_id"`
	Windows    []WindowResponse `json:"windows"`
}
