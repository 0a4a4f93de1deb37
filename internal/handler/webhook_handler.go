package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/pkg/logger"
	"github.com/thitipong-w/slotwise/pkg/response"
)

// maxWebhookBody caps the webhook payload size.
const maxWebhookBody = 64 * 1024

// WebhookHandler receives provider callbacks and feeds them to the inbox.
// The endpoint acknowledges as soon as the event is enqueued; processing is
// sharded per setup so redeliveries and out-of-order arrivals are safe.
type WebhookHandler struct {
	inbox  *payment.Inbox
	secret string
	log    *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(inbox *payment.Inbox, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{inbox: inbox, secret: secret, log: log}
}

// Stripe handles Stripe event callbacks
// POST /webhooks/stripe
func (h *WebhookHandler) Stripe(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("unreadable body"))
		return
	}

	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, response.BadRequest("invalid signature"))
		return
	}

	evt, ok := h.translate(event)
	if !ok {
		// Unsubscribed event type, acknowledge and drop.
		c.JSON(http.StatusOK, response.Success(gin.H{"received": true}))
		return
	}

	h.inbox.Submit(evt)
	c.JSON(http.StatusOK, response.Success(gin.H{"received": true}))
}

// translate maps a Stripe event onto the internal provider event. Returns
// false for event types the engine does not consume.
func (h *WebhookHandler) translate(event stripe.Event) (payment.ProviderEvent, bool) {
	switch string(event.Type) {
	case payment.EventSetupSucceeded, payment.EventSetupFailed:
	default:
		return payment.ProviderEvent{}, false
	}

	var si stripe.SetupIntent
	if err := json.Unmarshal(event.Data.Raw, &si); err != nil {
		h.log.Warn("webhook payload unmarshal failed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return payment.ProviderEvent{}, false
	}

	evt := payment.ProviderEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		SetupID: si.ID,
	}
	if si.PaymentMethod != nil {
		evt.MethodID = si.PaymentMethod.ID
	}
	if si.LastSetupError != nil {
		evt.FailureCode = string(si.LastSetupError.Code)
		evt.FailureMessage = si.LastSetupError.Msg
	}
	return evt, true
}
