// Package gateway defines the external payment processor boundary. Every
// outbound call carries an idempotency key so that network retries never
// double-charge.
package gateway

import (
	"context"
)

// PaymentGateway is the interface to the external payment processor.
type PaymentGateway interface {
	// CreateSetup starts save-now/charge-later payment-method capture.
	// No money moves.
	CreateSetup(ctx context.Context, req *SetupRequest) (*SetupResponse, error)

	// CaptureOffSession charges a saved payment method without the
	// customer present. Used for completion charges and fee-only partial
	// captures.
	CaptureOffSession(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error)

	// Release cancels a setup with no charge.
	Release(ctx context.Context, req *ReleaseRequest) error

	// Refund returns part or all of a captured charge.
	Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)

	// Name returns the gateway name.
	Name() string
}

// SetupRequest asks the processor to collect and save a payment method.
type SetupRequest struct {
	PaymentID      string
	TenantID       string
	CustomerID     string
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// SetupResponse carries the provider's setup identifiers. ClientSecret is
// the opaque token the booking client uses to finish method capture with
// the provider's SDK.
type SetupResponse struct {
	SetupID      string
	ClientSecret string
	Status       string
}

// CaptureRequest charges a saved method off-session.
type CaptureRequest struct {
	PaymentID      string
	CustomerID     string
	MethodID       string
	Amount         int64 // minor units
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// CaptureResponse reports the outcome of an off-session charge.
type CaptureResponse struct {
	IntentID      string
	Status        string
	FailureCode   string
	FailureReason string
}

// ReleaseRequest cancels a setup without charging.
type ReleaseRequest struct {
	SetupID        string
	IdempotencyKey string
}

// RefundRequest returns money against a captured intent.
type RefundRequest struct {
	IntentID       string
	Amount         int64 // minor units
	Reason         string
	IdempotencyKey string
}

// RefundResponse carries the provider refund identifier.
type RefundResponse struct {
	RefundID string
	Status   string
}

// Config holds common gateway configuration.
type Config struct {
	SecretKey     string
	WebhookSecret string
	Environment   string // "test" or "live"
}
