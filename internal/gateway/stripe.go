package gateway

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// StripeGateway implements PaymentGateway against the Stripe API using
// manual capture: a SetupIntent saves the method at booking time, an
// off-session PaymentIntent charges it on admin action.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(cfg *Config) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{api: api}
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string { return "stripe" }

// CreateSetup creates a SetupIntent for off-session reuse.
func (g *StripeGateway) CreateSetup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	params := &stripe.SetupIntentParams{
		Usage: stripe.String(string(stripe.SetupIntentUsageOffSession)),
		PaymentMethodTypes: []*string{
			stripe.String("card"),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("tenant_id", req.TenantID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	si, err := g.api.SetupIntents.New(params)
	if err != nil {
		return nil, g.mapError("create setup", err)
	}

	return &SetupResponse{
		SetupID:      si.ID,
		ClientSecret: si.ClientSecret,
		Status:       string(si.Status),
	}, nil
}

// CaptureOffSession confirms an immediate PaymentIntent against the saved
// method. Declines are reported in the response, not as errors.
func (g *StripeGateway) CaptureOffSession(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.MethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("payment_id", req.PaymentID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			resp := &CaptureResponse{
				Status:        "failed",
				FailureCode:   string(stripeErr.Code),
				FailureReason: stripeErr.Msg,
			}
			if stripeErr.PaymentIntent != nil {
				resp.IntentID = stripeErr.PaymentIntent.ID
			}
			return resp, nil
		}
		return nil, g.mapError("capture off-session", err)
	}

	return &CaptureResponse{
		IntentID: pi.ID,
		Status:   string(pi.Status),
	}, nil
}

// Release cancels the SetupIntent with no charge.
func (g *StripeGateway) Release(ctx context.Context, req *ReleaseRequest) error {
	params := &stripe.SetupIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	if _, err := g.api.SetupIntents.Cancel(req.SetupID, params); err != nil {
		var stripeErr *stripe.Error
		// Cancelling an already-cancelled setup is fine: the release is
		// idempotent from the caller's point of view.
		if errors.As(err, &stripeErr) && stripeErr.Code == "setup_intent_unexpected_state" {
			return nil
		}
		return g.mapError("release setup", err)
	}
	return nil
}

// Refund issues a full or partial refund against a captured intent.
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
		Amount:        stripe.Int64(req.Amount),
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	re, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, g.mapError("refund", err)
	}

	return &RefundResponse{
		RefundID: re.ID,
		Status:   string(re.Status),
	}, nil
}

// mapError classifies Stripe failures: connection and server-side errors
// are transient and retryable, everything else surfaces as-is.
func (g *StripeGateway) mapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeAPI {
			return fmt.Errorf("%s: %w: %s", op, domain.ErrProcessorUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("%s: stripe %s: %s", op, stripeErr.Type, stripeErr.Msg)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrProcessorUnavailable, err)
}
