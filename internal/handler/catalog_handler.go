package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/dto"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/response"
)

// CatalogHandler handles resource and service management HTTP requests
type CatalogHandler struct {
	catalog repository.CatalogRepository
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateResource handles staff/room creation
// POST /api/v1/tenants/:tenantId/resources
func (h *CatalogHandler) CreateResource(c *gin.Context) {
	var req dto.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = 1
	}
	res, err := domain.NewResource(c.Param("tenantId"), req.Name, domain.ResourceKind(req.Kind), capacity)
	if err != nil {
		respondError(c, err)
		return
	}
	res.Timezone = req.Timezone

	if err := h.catalog.CreateResource(c.Request.Context(), res); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(dto.NewResourceResponse(res)))
}

// GetResource handles retrieving a resource
// GET /api/v1/tenants/:tenantId/resources/:resourceId
func (h *CatalogHandler) GetResource(c *gin.Context) {
	res, err := h.catalog.GetResource(c.Request.Context(), c.Param("tenantId"), c.Param("resourceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewResourceResponse(res)))
}

// CreateService handles service creation
// POST /api/v1/tenants/:tenantId/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	svc, err := domain.NewService(c.Param("tenantId"), req.Name, req.DurationMinutes, req.PriceAmount, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	svc.BufferBeforeMin = req.BufferBeforeMin
	svc.BufferAfterMin = req.BufferAfterMin

	if err := h.catalog.CreateService(c.Request.Context(), svc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(dto.NewServiceResponse(svc)))
}

// GetService handles retrieving a service
// GET /api/v1/tenants/:tenantId/services/:serviceId
func (h *CatalogHandler) GetService(c *gin.Context) {
	svc, err := h.catalog.GetService(c.Request.Context(), c.Param("tenantId"), c.Param("serviceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.NewServiceResponse(svc)))
}

// AssignService handles linking a service to a resource
// POST /api/v1/tenants/:tenantId/assignments
func (h *CatalogHandler) AssignService(c *gin.Context) {
	var req dto.AssignServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	if err := h.catalog.AssignService(c.Request.Context(), c.Param("tenantId"), req.ServiceID, req.ResourceID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(gin.H{
		"service_id":  req.ServiceID,
		"resource_id": req.ResourceID,
	}))
}
