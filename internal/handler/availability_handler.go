package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/thitipong-w/slotwise/internal/availability"
	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/internal/timeslot"
	"github.com/thitipong-w/slotwise/pkg/response"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// AvailabilityHandler handles slot and free-window queries
type AvailabilityHandler struct {
	tenants  repository.TenantRepository
	catalog  repository.CatalogRepository
	resolver *availability.Resolver
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(tenants repository.TenantRepository, catalog repository.CatalogRepository, resolver *availability.Resolver) *AvailabilityHandler {
	return &AvailabilityHandler{tenants: tenants, catalog: catalog, resolver: resolver}
}

// Slots handles candidate slot listing
// GET /api/v1/tenants/:tenantId/availability/slots
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "availability.slots")
	defer span.End()

	q, query, err := h.buildQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	span.SetAttributes(attribute.String("resource.id", query.ResourceID))

	seq, err := h.resolver.Slots(ctx, q)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}

	slots := make([]time.Time, 0, 64)
	for at := range seq {
		slots = append(slots, at)
	}
	c.JSON(http.StatusOK, response.Success(&dto.SlotsResponse{
		ResourceID: query.ResourceID,
		ServiceID:  query.ServiceID,
		Slots:      slots,
	}))
}

// FreeWindows handles free interval listing
// GET /api/v1/tenants/:tenantId/availability/windows
func (h *AvailabilityHandler) FreeWindows(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "availability.free_windows")
	defer span.End()

	q, query, err := h.buildQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	free, err := h.resolver.FreeWindows(ctx, q)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		respondError(c, err)
		return
	}

	windows := make([]dto.WindowResponse, 0, len(free))
	for _, iv := range free {
		windows = append(windows, dto.WindowResponse{Start: iv.Start, End: iv.End})
	}
	c.JSON(http.StatusOK, response.Success(&dto.FreeWindowsResponse{
		ResourceID: query.ResourceID,
		Windows:    windows,
	}))
}

// buildQuery binds the query string and resolves the catalog entities the
// resolver needs.
func (h *AvailabilityHandler) buildQuery(c *gin.Context) (*availability.Query, *dto.AvailabilityQuery, error) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return nil, nil, domain.NewValidationError("query", err.Error())
	}

	ctx := c.Request.Context()
	tenantID := c.Param("tenantId")

	tenant, err := h.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	res, err := h.catalog.GetResource(ctx, tenantID, query.ResourceID)
	if err != nil {
		return nil, nil, err
	}
	svc, err := h.catalog.GetService(ctx, tenantID, query.ServiceID)
	if err != nil {
		return nil, nil, err
	}

	loc, err := tenant.Location()
	if err != nil {
		return nil, nil, err
	}
	if res.Timezone != "" {
		if resLoc, err := time.LoadLocation(res.Timezone); err == nil {
			loc = resLoc
		}
	}

	from, err := timeslot.ParseLocalDate(query.From)
	if err != nil {
		return nil, nil, domain.NewValidationError("from", "invalid date")
	}
	to, err := timeslot.ParseLocalDate(query.To)
	if err != nil {
		return nil, nil, domain.NewValidationError("to", "invalid date")
	}

	return &availability.Query{
		TenantID: tenantID,
		Resource: res,
		Service:  svc,
		From:     from,
		To:       to,
		Location: loc,
	}, &query, nil
}
