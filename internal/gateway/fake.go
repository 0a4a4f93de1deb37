package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// FakeGateway is an in-memory PaymentGateway for tests. Like a real
// processor it deduplicates requests by idempotency key, replaying the
// original response for retries.
type FakeGateway struct {
	mu sync.Mutex

	// Failure injection.
	SetupErr      error
	CaptureErr    error
	DeclineNext   bool
	TransientHits int // number of leading calls that fail transiently

	setups   map[string]*SetupResponse   // by idempotency key
	captures map[string]*CaptureResponse // by idempotency key
	refunds  map[string]*RefundResponse  // by idempotency key
	released map[string]bool             // by setup id

	CaptureCalls int
	ReleaseCalls int
	LastCapture  *CaptureRequest

	seq int
}

// NewFakeGateway creates an empty fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		setups:   make(map[string]*SetupResponse),
		captures: make(map[string]*CaptureResponse),
		refunds:  make(map[string]*RefundResponse),
		released: make(map[string]bool),
	}
}

func (g *FakeGateway) Name() string { return "fake" }

func (g *FakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%06d", prefix, g.seq)
}

// CreateSetup records a setup and returns stable identifiers per key.
func (g *FakeGateway) CreateSetup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.SetupErr != nil {
		return nil, g.SetupErr
	}
	if resp, ok := g.setups[req.IdempotencyKey]; ok {
		return resp, nil
	}
	resp := &SetupResponse{
		SetupID:      g.nextID("seti"),
		ClientSecret: g.nextID("seti_secret"),
		Status:       "requires_action",
	}
	g.setups[req.IdempotencyKey] = resp
	return resp, nil
}

// CaptureOffSession charges unless configured to decline or fail.
func (g *FakeGateway) CaptureOffSession(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.CaptureCalls++
	g.LastCapture = req

	if g.TransientHits > 0 {
		g.TransientHits--
		return nil, fmt.Errorf("capture: %w: connection reset", domain.ErrProcessorUnavailable)
	}
	if g.CaptureErr != nil {
		return nil, g.CaptureErr
	}
	if resp, ok := g.captures[req.IdempotencyKey]; ok {
		return resp, nil
	}

	var resp *CaptureResponse
	if g.DeclineNext {
		g.DeclineNext = false
		resp = &CaptureResponse{
			Status:        "failed",
			FailureCode:   "card_declined",
			FailureReason: "insufficient funds",
		}
	} else {
		resp = &CaptureResponse{
			IntentID: g.nextID("pi"),
			Status:   "succeeded",
		}
	}
	g.captures[req.IdempotencyKey] = resp
	return resp, nil
}

// Release marks a setup cancelled.
func (g *FakeGateway) Release(ctx context.Context, req *ReleaseRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ReleaseCalls++
	g.released[req.SetupID] = true
	return nil
}

// Released reports whether a setup was released.
func (g *FakeGateway) Released(setupID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released[setupID]
}

// Refund records a refund per idempotency key.
func (g *FakeGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if resp, ok := g.refunds[req.IdempotencyKey]; ok {
		return resp, nil
	}
	resp := &RefundResponse{
		RefundID: g.nextID("re"),
		Status:   "succeeded",
	}
	g.refunds[req.IdempotencyKey] = resp
	return resp, nil
}
