package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thitipong-w/slotwise/pkg/database"
)

// HealthHandler reports service health.
type HealthHandler struct {
	db *database.PostgresDB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.PostgresDB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles liveness checks.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles readiness checks, verifying the database connection.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
