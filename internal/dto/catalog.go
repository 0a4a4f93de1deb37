package dto

import (
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// CreateResourceRequest represents request to create a staff member or room
type CreateResourceRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Kind     string `json:"kind" binding:"required,oneof=staff room"`
	Timezone string `json:"timezone" binding:"omitempty,max=64"`
	Capacity int    `json:"capacity" binding:"omitempty,min=1"`
}

// ResourceResponse represents resource data in response
type ResourceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Timezone  string    `json:"timezone,omitempty"`
	Capacity  int       `json:"capacity"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewResourceResponse maps a resource to its response form
func NewResourceResponse(res *domain.Resource) *ResourceResponse {
	return &ResourceResponse{
		ID:        res.ID,
		Name:      res.Name,
		Kind:      string(res.Kind),
		Timezone:  res.Timezone,
		Capacity:  res.Capacity,
		IsActive:  res.IsActive,
		CreatedAt: res.CreatedAt,
	}
}

// CreateServiceRequest represents request to create a bookable service
type CreateServiceRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1"`
	PriceAmount     int64  `json:"price_amount" binding:"min=0"`
	Currency        string `json:"currency" binding:"omitempty,len=3"`
	BufferBeforeMin int    `json:"buffer_before_min" binding:"omitempty,min=0"`
	BufferAfterMin  int    `json:"buffer_after_min" binding:"omitempty,min=0"`
}

// ServiceResponse represents service data in response
type ServiceResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceAmount     int64     `json:"price_amount"`
	Currency        string    `json:"currency"`
	BufferBeforeMin int       `json:"buffer_before_min"`
	BufferAfterMin  int       `json:"buffer_after_min"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewServiceResponse maps a service to its response form
func NewServiceResponse(svc *domain.Service) *ServiceResponse {
	return &ServiceResponse{
		ID:              svc.ID,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		PriceAmount:     svc.PriceAmount,
		Currency:        svc.Currency,
		BufferBeforeMin: svc.BufferBeforeMin,
		BufferAfterMin:  svc.BufferAfterMin,
		IsActive:        svc.IsActive,
		CreatedAt:       svc.CreatedAt,
	}
}

// AssignServiceRequest represents request to assign a service to a resource
type AssignServiceRequest struct {
	ServiceID  string `json:"service_id" binding:"required"`
	ResourceID string `json:"resource_id" binding:"required"`
}
