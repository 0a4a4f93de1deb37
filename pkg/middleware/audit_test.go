package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestActionForRequest(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		expected AuditAction
	}{
		{"book", "POST", "/api/v1/tenants/t1/bookings", AuditActionBook},
		{"check-in", "POST", "/api/v1/tenants/t1/bookings/b1/check-in", AuditActionCheckIn},
		{"complete", "POST", "/api/v1/tenants/t1/bookings/b1/complete", AuditActionComplete},
		{"cancel", "POST", "/api/v1/tenants/t1/bookings/b1/cancel", AuditActionCancel},
		{"no-show", "POST", "/api/v1/tenants/t1/bookings/b1/no-show", AuditActionNoShow},
		{"refund", "POST", "/api/v1/tenants/t1/payments/p1/refund", AuditActionRefund},
		{"POST creates", "POST", "/api/v1/tenants", AuditActionCreate},
		{"PUT updates", "PUT", "/api/v1/tenants/t1/policy", AuditActionUpdate},
		{"PATCH updates", "PATCH", "/api/v1/tenants/t1", AuditActionUpdate},
		{"DELETE deletes", "DELETE", "/api/v1/tenants/t1", AuditActionDelete},
		{"GET views", "GET", "/api/v1/tenants/t1", AuditActionView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := actionForRequest(tt.method, tt.path)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResourceForPath(t *testing.T) {
	tests := []struct {
		name         string
		route        string
		path         string
		expectedType string
		expectedID   string
	}{
		{"booking", "/api/v1/tenants/:tenantId/bookings/:bookingId/cancel", "/api/v1/tenants/t1/bookings/b42/cancel", "booking", "b42"},
		{"payment", "/api/v1/tenants/:tenantId/payments/:paymentId", "/api/v1/tenants/t1/payments/p7", "payment", "p7"},
		{"resource", "/api/v1/tenants/:tenantId/resources/:resourceId/rules", "/api/v1/tenants/t1/resources/r3/rules", "resource", "r3"},
		{"service", "/api/v1/tenants/:tenantId/services/:serviceId", "/api/v1/tenants/t1/services/s9", "service", "s9"},
		{"tenant", "/api/v1/tenants/:tenantId", "/api/v1/tenants/t1", "tenant", "t1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotType string
			var gotID *string

			router := gin.New()
			router.POST(tt.route, func(c *gin.Context) {
				gotType, gotID = resourceForPath(c)
				c.Status(http.StatusOK)
			})
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", tt.path, nil))

			assert.Equal(t, tt.expectedType, gotType)
			if assert.NotNil(t, gotID) {
				assert.Equal(t, tt.expectedID, *gotID)
			}
		})
	}
}

func TestResourceForPath_NoParams(t *testing.T) {
	var gotType string
	var gotID *string

	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		gotType, gotID = resourceForPath(c)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, "unknown", gotType)
	assert.Nil(t, gotID)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"x-forwarded-for single", map[string]string{"X-Forwarded-For": "10.1.2.3"}, "127.0.0.1:1234", "10.1.2.3"},
		{"x-forwarded-for chain", map[string]string{"X-Forwarded-For": "10.1.2.3, 10.0.0.1"}, "127.0.0.1:1234", "10.1.2.3"},
		{"x-real-ip", map[string]string{"X-Real-IP": "10.9.9.9"}, "127.0.0.1:1234", "10.9.9.9"},
		{"remote addr", nil, "192.168.1.5:4567", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, clientIP(c))
		})
	}
}

func TestAuditLogger_Log(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    10,
		FlushInterval: 10 * time.Millisecond,
		BatchSize:     5,
	})
	logger.SetTestMode(true)
	defer logger.Close()

	logger.Log(&AuditEntry{ID: "entry-1", Action: AuditActionBook})

	assert.Eventually(t, func() bool {
		return len(logger.GetTestEntries()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAuditLogger_BufferFull(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    1,
		FlushInterval: time.Hour,
		BatchSize:     100,
	})
	logger.SetTestMode(true)
	defer logger.Close()

	// Overflow must drop, never block the caller.
	for i := 0; i < 10; i++ {
		logger.Log(&AuditEntry{ID: "entry"})
	}
}

func TestAuditLogger_BatchFlush(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    100,
		FlushInterval: time.Hour,
		BatchSize:     3,
	})
	logger.SetTestMode(true)
	defer logger.Close()

	for i := 0; i < 3; i++ {
		logger.Log(&AuditEntry{ID: "entry", Action: AuditActionBook})
	}

	// A full batch flushes without waiting for the ticker.
	assert.Eventually(t, func() bool {
		return len(logger.GetTestEntries()) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestAuditLogger_Close(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    10,
		FlushInterval: time.Hour,
		BatchSize:     100,
	})
	logger.SetTestMode(true)

	logger.Log(&AuditEntry{ID: "entry-1"})
	assert.NoError(t, logger.Close())

	// Close drains and flushes buffered entries.
	assert.Len(t, logger.GetTestEntries(), 1)

	// Close is idempotent.
	assert.NoError(t, logger.Close())
}

func TestAuditMiddleware_SkipPathsAndMethods(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    10,
		FlushInterval: 10 * time.Millisecond,
		BatchSize:     1,
		SkipPaths:     []string{"/health"},
		SkipMethods:   []string{"GET"},
	})
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()
	router.Use(AuditMiddleware(logger))
	router.POST("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/read", nil))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, logger.GetTestEntries())
}

func TestAuditMiddleware_CapturesCallerInfo(t *testing.T) {
	logger := NewAuditLogger(&AuditConfig{
		BufferSize:    10,
		FlushInterval: 10 * time.Millisecond,
		BatchSize:     1,
	})
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeySubject, "staff-1")
		c.Set(ContextKeyRole, RoleStaff)
	})
	router.Use(AuditMiddleware(logger))
	router.POST("/api/v1/tenants/:tenantId/bookings/:bookingId/cancel", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/api/v1/tenants/t1/bookings/b1/cancel", nil)
	req.Header.Set("X-Request-ID", "req-77")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Eventually(t, func() bool {
		return len(logger.GetTestEntries()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := logger.GetTestEntries()[0]
	assert.Equal(t, AuditActionCancel, entry.Action)
	assert.Equal(t, "booking", entry.ResourceType)
	if assert.NotNil(t, entry.ResourceID) {
		assert.Equal(t, "b1", *entry.ResourceID)
	}
	if assert.NotNil(t, entry.TenantID) {
		assert.Equal(t, "t1", *entry.TenantID)
	}
	if assert.NotNil(t, entry.Subject) {
		assert.Equal(t, "staff-1", *entry.Subject)
	}
	assert.Equal(t, RoleStaff, entry.Role)
	assert.Equal(t, "req-77", entry.RequestID)
	assert.Equal(t, http.StatusOK, entry.Status)
}

func TestDefaultAuditConfig(t *testing.T) {
	config := DefaultAuditConfig(nil)

	assert.Equal(t, 1000, config.BufferSize)
	assert.Equal(t, 5*time.Second, config.FlushInterval)
	assert.Equal(t, 100, config.BatchSize)
	assert.Contains(t, config.SkipPaths, "/health")
	assert.Contains(t, config.SkipMethods, "GET")
}
