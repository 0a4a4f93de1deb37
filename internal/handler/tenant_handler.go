package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/response"
)

// TenantHandler handles tenant management HTTP requests
type TenantHandler struct {
	tenants repository.TenantRepository
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenants repository.TenantRepository) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create handles tenant creation
// POST /api/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if valid, msg := req.ValidateSlug(); !valid {
		c.JSON(http.StatusBadRequest, response.Error("INVALID_SLUG", msg))
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			c.JSON(http.StatusBadRequest, response.ValidationFailed(map[string]string{"timezone": "unknown timezone"}))
			return
		}
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:        domain.NewID(),
		Name:      req.Name,
		Slug:      req.Slug,
		Timezone:  req.Timezone,
		Currency:  req.Currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.tenants.Create(c.Request.Context(), tenant); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(dto.NewTenantResponse(tenant)))
}

// GetByID handles retrieving a tenant
// GET /api/v1/tenants/:tenantId
func (h *TenantHandler) GetByID(c *gin.Context) {
	tenant, err := h.tenants.GetByID(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewTenantResponse(tenant)))
}

// UpdatePolicy handles replacing a tenant's booking policy
// PUT /api/v1/tenants/:tenantId/policy
func (h *TenantHandler) UpdatePolicy(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	tenantID := c.Param("tenantId")
	if err := h.tenants.UpdatePolicy(c.Request.Context(), tenantID, req.ToPolicy()); err != nil {
		respondError(c, err)
		return
	}

	tenant, err := h.tenants.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewTenantResponse(tenant)))
}

// Delete handles tenant soft deletion
// DELETE /api/v1/tenants/:tenantId
func (h *TenantHandler) Delete(c *gin.Context) {
	if err := h.tenants.SoftDelete(c.Request.Context(), c.Param("tenantId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"deleted": true}))
}
