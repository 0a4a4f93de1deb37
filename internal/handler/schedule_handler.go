package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/response"
)

// ScheduleHandler handles availability rule and exception HTTP requests
type ScheduleHandler struct {
	catalog   repository.CatalogRepository
	schedules repository.ScheduleRepository
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(catalog repository.CatalogRepository, schedules repository.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{catalog: catalog, schedules: schedules}
}

// ReplaceRules handles replacing a resource's weekly availability rules
// PUT /api/v1/tenants/:tenantId/resources/:resourceId/rules
func (h *ScheduleHandler) ReplaceRules(c *gin.Context) {
	var req dto.ReplaceRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	tenantID := c.Param("tenantId")
	resourceID := c.Param("resourceId")

	// Reject rules for resources that do not exist.
	if _, err := h.catalog.GetResource(c.Request.Context(), tenantID, resourceID); err != nil {
		respondError(c, err)
		return
	}

	rules, err := req.ToRules(tenantID, resourceID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.schedules.ReplaceRules(c.Request.Context(), tenantID, resourceID, rules); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"rules": len(rules)}))
}

// SaveException handles overriding one date's schedule
// PUT /api/v1/tenants/:tenantId/resources/:resourceId/exceptions
func (h *ScheduleHandler) SaveException(c *gin.Context) {
	var req dto.SaveExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	tenantID := c.Param("tenantId")
	resourceID := c.Param("resourceId")

	if _, err := h.catalog.GetResource(c.Request.Context(), tenantID, resourceID); err != nil {
		respondError(c, err)
		return
	}

	ex, err := req.ToException(tenantID, resourceID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.schedules.SaveException(c.Request.Context(), ex); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"date": ex.Date, "closed": ex.Closed}))
}
