package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/thitipong-w/slotwise/internal/booking"
	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/response"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// BookingHandler handles booking lifecycle HTTP requests
type BookingHandler struct {
	scheduler *booking.Scheduler
	machine   *payment.Machine
	bookings  repository.BookingRepository
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(scheduler *booking.Scheduler, machine *payment.Machine, bookings repository.BookingRepository) *BookingHandler {
	return &BookingHandler{scheduler: scheduler, machine: machine, bookings: bookings}
}

// Create handles booking creation
// POST /api/v1/tenants/:tenantId/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "booking.create")
	defer span.End()

	tenantID := c.Param("tenantId")
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("resource.id", req.ResourceID),
	)

	result, err := h.scheduler.CreateBooking(ctx, req.ToCreateRequest(tenantID))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(dto.NewCreateBookingResponse(result)))
}

// GetByID handles retrieving a booking
// GET /api/v1/tenants/:tenantId/bookings/:bookingId
func (h *BookingHandler) GetByID(c *gin.Context) {
	b, err := h.bookings.GetByID(c.Request.Context(), c.Param("tenantId"), c.Param("bookingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewBookingResponse(b)))
}

// CheckIn handles customer arrival
// POST /api/v1/tenants/:tenantId/bookings/:bookingId/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "booking.check_in")
	defer span.End()

	b, err := h.scheduler.CheckIn(ctx, c.Param("tenantId"), c.Param("bookingId"))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewBookingResponse(b)))
}

// Complete handles service completion and full capture
// POST /api/v1/tenants/:tenantId/bookings/:bookingId/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "booking.complete")
	defer span.End()

	p, err := h.machine.Complete(ctx, c.Param("tenantId"), c.Param("bookingId"))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(completionBody(c, p)))
}

// Cancel handles booking cancellation with policy fees
// POST /api/v1/tenants/:tenantId/bookings/:bookingId/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "booking.cancel")
	defer span.End()

	p, err := h.machine.Cancel(ctx, c.Param("tenantId"), c.Param("bookingId"), time.Now().UTC())
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(completionBody(c, p)))
}

// NoShow handles marking a customer no-show
// POST /api/v1/tenants/:tenantId/bookings/:bookingId/no-show
func (h *BookingHandler) NoShow(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "booking.no_show")
	defer span.End()

	p, err := h.machine.NoShow(ctx, c.Param("tenantId"), c.Param("bookingId"), time.Now().UTC())
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(completionBody(c, p)))
}

// completionBody builds the response for terminal booking actions. The
// payment is nil for cash bookings.
func completionBody(c *gin.Context, p *domain.Payment) gin.H {
	body := gin.H{"booking_id": c.Param("bookingId")}
	if p != nil {
		body["payment"] = dto.NewPaymentResponse(p)
	}
	return body
}
