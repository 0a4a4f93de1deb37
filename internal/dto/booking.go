package dto

import (
	"time"

	"github.com/thitipong-w/slotwise/internal/booking"
	"github.com/thitipong-w/slotwise/internal/domain"
)

// CreateBookingRequest represents request to book a slot
type CreateBookingRequest struct {
	ResourceID     string    `json:"resource_id" binding:"required"`
	ServiceID      string    `json:"service_id" binding:"required"`
	CustomerID     string    `json:"customer_id" binding:"required"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	IdempotencyKey string    `json:"idempotency_key" binding:"required,min=8,max=255"`
}

// ToCreateRequest maps the request into the scheduler input
func (r *CreateBookingRequest) ToCreateRequest(tenantID string) *booking.CreateRequest {
	return &booking.CreateRequest{
		TenantID:       tenantID,
		ResourceID:     r.ResourceID,
		ServiceID:      r.ServiceID,
		CustomerID:     r.CustomerID,
		Start:          r.StartTime,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// BookingResponse represents booking data in response
type BookingResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	ServiceID  string    `json:"service_id"`
	CustomerID string    `json:"customer_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	PaymentID  string    `json:"payment_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewBookingResponse maps a booking to its response form
func NewBookingResponse(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:         b.ID,
		ResourceID: b.ResourceID,
		ServiceID:  b.ServiceID,
		CustomerID: b.CustomerID,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
		PaymentID:  b.PaymentID,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// CreateBookingResponse represents the booking creation outcome. ClientSecret
// is only present on first creation with a card payment; the client uses it
// to finish payment-method setup with the provider SDK.
type CreateBookingResponse struct {
	Booking      *BookingResponse `json:"booking"`
	Payment      *PaymentResponse `json:"payment,omitempty"`
	ClientSecret string           `json:"client_secret,omitempty"`
	Replayed     bool             `json:"replayed"`
}

// NewCreateBookingResponse maps a scheduler result to its response form
func NewCreateBookingResponse(res *booking.CreateResult) *CreateBookingResponse {
	out := &CreateBookingResponse{
		Booking:      NewBookingResponse(res.Booking),
		ClientSecret: res.ClientSecret,
		Replayed:     res.Replayed,
	}
	if res.Payment != nil {
		out.Payment = NewPaymentResponse(res.Payment)
	}
	return out
}
