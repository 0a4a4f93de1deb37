package dto

import (
	"regexp"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// CreateTenantRequest represents request to create a new tenant
type CreateTenantRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Slug     string `json:"slug" binding:"required,min=2,max=100"`
	Timezone string `json:"timezone" binding:"omitempty,max=64"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

// ValidateSlug validates slug format (lowercase alphanumeric and hyphens only)
func (r *CreateTenantRequest) ValidateSlug() (bool, string) {
	if !slugRegex.MatchString(r.Slug) {
		return false, "Slug must contain only lowercase letters, numbers, and hyphens"
	}
	return true, ""
}

// FeeRuleRequest represents one fee rule in a policy update
type FeeRuleRequest struct {
	Mode    string `json:"mode" binding:"omitempty,oneof=flat percent"`
	Amount  int64  `json:"amount" binding:"omitempty,min=0"`
	Percent int64  `json:"percent" binding:"omitempty,min=0,max=100"`
}

func (r FeeRuleRequest) toDomain() domain.FeeRule {
	return domain.FeeRule{
		Mode:    domain.FeeMode(r.Mode),
		Amount:  r.Amount,
		Percent: r.Percent,
	}
}

// UpdatePolicyRequest represents request to replace a tenant's booking policy
type UpdatePolicyRequest struct {
	CancellationFee   FeeRuleRequest `json:"cancellation_fee"`
	NoShowFee         FeeRuleRequest `json:"no_show_fee"`
	FreeWindowHours   int            `json:"free_window_hours" binding:"omitempty,min=0"`
	AllowCashBookings bool           `json:"allow_cash_bookings"`
}

// ToPolicy maps the request into the domain policy
func (r *UpdatePolicyRequest) ToPolicy() domain.BookingPolicy {
	return domain.BookingPolicy{
		CancellationFee:   r.CancellationFee.toDomain(),
		NoShowFee:         r.NoShowFee.toDomain(),
		FreeWindowHours:   r.FreeWindowHours,
		AllowCashBookings: r.AllowCashBookings,
	}
}

// FeeRuleResponse represents one fee rule in response
type FeeRuleResponse struct {
	Mode    string `json:"mode,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Percent int64  `json:"percent,omitempty"`
}

// PolicyResponse represents a booking policy in response
type PolicyResponse struct {
	CancellationFee   FeeRuleResponse `json:"cancellation_fee"`
	NoShowFee         FeeRuleResponse `json:"no_show_fee"`
	FreeWindowHours   int             `json:"free_window_hours"`
	AllowCashBookings bool            `json:"allow_cash_bookings"`
}

// TenantResponse represents tenant data in response
type TenantResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Timezone  string         `json:"timezone"`
	Currency  string         `json:"currency"`
	Policy    PolicyResponse `json:"policy"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewTenantResponse maps a tenant to its response form
func NewTenantResponse(t *domain.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:       t.ID,
		Name:     t.Name,
		Slug:     t.Slug,
		Timezone: t.Timezone,
		Currency: t.Currency,
		Policy: PolicyResponse{
			CancellationFee: FeeRuleResponse{
				Mode:    string(t.Policy.CancellationFee.Mode),
				Amount:  t.Policy.CancellationFee.Amount,
				Percent: t.Policy.CancellationFee.Percent,
			},
			NoShowFee: FeeRuleResponse{
				Mode:    string(t.Policy.NoShowFee.Mode),
				Amount:  t.Policy.NoShowFee.Amount,
				Percent: t.Policy.NoShowFee.Percent,
			},
			FreeWindowHours:   t.Policy.FreeWindowHours,
			AllowCashBookings: t.Policy.AllowCashBookings,
		},
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
