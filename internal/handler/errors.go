package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/pkg/response"
)

// respondError maps the domain error taxonomy onto the HTTP surface. Every
// handler funnels its service errors through here so status codes stay
// consistent across endpoints.
func respondError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.JSON(response.GetHTTPStatus(response.ErrCodeValidationFailed),
			response.ValidationFailed(map[string]string{ve.Field: ve.Reason}))
		return
	}

	var sc *domain.SlotConflictError
	if errors.As(err, &sc) {
		c.JSON(response.GetHTTPStatus(response.ErrCodeSlotConflict), response.SlotConflict(sc.Error()))
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(response.GetHTTPStatus(response.ErrCodeNotFound), response.NotFound(""))
	case errors.Is(err, domain.ErrInvalidStateTransition):
		c.JSON(response.GetHTTPStatus(response.ErrCodeInvalidState), response.InvalidState(err.Error()))
	case errors.Is(err, domain.ErrProcessorUnavailable):
		c.JSON(response.GetHTTPStatus(response.ErrCodeProcessorUnavailable),
			response.Error(response.ErrCodeProcessorUnavailable, "Payment processor is unavailable, try again later"))
	case errors.Is(err, domain.ErrPaymentAuthorizationFailed), errors.Is(err, domain.ErrPaymentCaptureFailed):
		c.JSON(response.GetHTTPStatus(response.ErrCodePaymentFailed),
			response.Error(response.ErrCodePaymentFailed, err.Error()))
	default:
		c.JSON(response.GetHTTPStatus(response.ErrCodeInternalError), response.InternalError(err.Error()))
	}
}
