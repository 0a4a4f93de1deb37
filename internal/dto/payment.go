package dto

import (
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// RefundRequest represents request to refund a captured payment.
// A zero amount refunds everything still refundable.
type RefundRequest struct {
	Amount int64  `json:"amount" binding:"omitempty,min=0"`
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// FeeResponse represents one fee line-item in response
type FeeResponse struct {
	Kind       string    `json:"kind"`
	BaseAmount int64     `json:"base_amount"`
	Percent    int64     `json:"percent"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentResponse represents payment data in response
type PaymentResponse struct {
	ID               string        `json:"id"`
	BookingID        string        `json:"booking_id"`
	Status           string        `json:"status"`
	CaptureMethod    string        `json:"capture_method"`
	Currency         string        `json:"currency"`
	AuthorizedAmount int64         `json:"authorized_amount"`
	CapturedAmount   int64         `json:"captured_amount"`
	RefundedAmount   int64         `json:"refunded_amount"`
	ErrorCode        string        `json:"error_code,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	Fees             []FeeResponse `json:"fees,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewPaymentResponse maps a payment to its response form
func NewPaymentResponse(p *domain.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		ID:               p.ID,
		BookingID:        p.BookingID,
		Status:           string(p.Status),
		CaptureMethod:    p.CaptureMethod,
		Currency:         p.Currency,
		AuthorizedAmount: p.AuthorizedAmount,
		CapturedAmount:   p.CapturedAmount,
		RefundedAmount:   p.RefundedAmount,
		ErrorCode:        p.ErrorCode,
		ErrorMessage:     p.ErrorMessage,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, fee := range p.Fees {
		resp.Fees = append(resp.Fees, FeeResponse{
			Kind:       string(fee.Kind),
			BaseAmount: fee.BaseAmount,
			Percent:    fee.Percent,
			Amount:     fee.Amount,
			CreatedAt:  fee.CreatedAt,
		})
	}
	return resp
}

// TransitionResponse represents one audit-trail entry in response
type TransitionResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewTransitionResponses maps the audit trail to its response form
func NewTransitionResponses(trs []*domain.PaymentTransition) []TransitionResponse {
	out := make([]TransitionResponse, 0, len(trs))
	for _, tr := range trs {
		out = append(out, TransitionResponse{
			FromStatus: string(tr.FromStatus),
			ToStatus:   string(tr.ToStatus),
			Reason:     tr.Reason,
			Timestamp:  tr.Timestamp,
		})
	}
	return out
}
