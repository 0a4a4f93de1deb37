package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/response"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// PaymentHandler handles payment inspection and refund HTTP requests
type PaymentHandler struct {
	machine  *payment.Machine
	payments repository.PaymentRepository
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(machine *payment.Machine, payments repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{machine: machine, payments: payments}
}

// GetByID handles retrieving a payment
// GET /api/v1/tenants/:tenantId/payments/:paymentId
func (h *PaymentHandler) GetByID(c *gin.Context) {
	p, err := h.payments.GetByID(c.Request.Context(), c.Param("tenantId"), c.Param("paymentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewPaymentResponse(p)))
}

// Transitions handles retrieving a payment's audit trail
// GET /api/v1/tenants/:tenantId/payments/:paymentId/transitions
func (h *PaymentHandler) Transitions(c *gin.Context) {
	// Scope check before reading the trail.
	p, err := h.payments.GetByID(c.Request.Context(), c.Param("tenantId"), c.Param("paymentId"))
	if err != nil {
		respondError(c, err)
		return
	}

	trs, err := h.payments.Transitions(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{
		"payment_id":  p.ID,
		"transitions": dto.NewTransitionResponses(trs),
	}))
}

// Refund handles refunding a captured payment
// POST /api/v1/tenants/:tenantId/payments/:paymentId/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "payment.refund")
	defer span.End()

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	p, err := h.machine.Refund(ctx, c.Param("tenantId"), c.Param("paymentId"), req.Amount, req.Reason)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewPaymentResponse(p)))
}
