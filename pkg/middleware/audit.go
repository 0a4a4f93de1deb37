package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionBook     AuditAction = "book"
	AuditActionCheckIn  AuditAction = "check_in"
	AuditActionComplete AuditAction = "complete"
	AuditActionCancel   AuditAction = "cancel"
	AuditActionNoShow   AuditAction = "no_show"
	AuditActionRefund   AuditAction = "refund"
	AuditActionView     AuditAction = "view"
)

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	ID           string                 `json:"id"`
	TenantID     *string                `json:"tenant_id,omitempty"`
	Subject      *string                `json:"subject,omitempty"`
	Role         string                 `json:"role,omitempty"`
	Action       AuditAction            `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Status       int                    `json:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// AuditConfig holds configuration for the audit middleware
type AuditConfig struct {
	// DB is the PostgreSQL connection pool for storing audit logs
	DB *pgxpool.Pool
	// BufferSize is the size of the async audit buffer (default: 1000)
	BufferSize int
	// FlushInterval is how often to flush the buffer (default: 5 seconds)
	FlushInterval time.Duration
	// BatchSize is the maximum number of entries to insert in one batch (default: 100)
	BatchSize int
	// SkipPaths is a list of paths to skip auditing
	SkipPaths []string
	// SkipMethods is a list of HTTP methods to skip (default: GET, HEAD, OPTIONS)
	SkipMethods []string
}

// DefaultAuditConfig returns default configuration
func DefaultAuditConfig(db *pgxpool.Pool) *AuditConfig {
	return &AuditConfig{
		DB:            db,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
		SkipPaths:     []string{"/health", "/ready", "/metrics"},
		SkipMethods:   []string{"GET", "HEAD", "OPTIONS"},
	}
}

// AuditLogger handles async audit logging. Entries are buffered and batch
// inserted; a full buffer drops entries rather than blocking requests.
type AuditLogger struct {
	config    *AuditConfig
	buffer    chan *AuditEntry
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// For testing: collect entries instead of writing to DB
	testMode    bool
	testEntries []*AuditEntry
	testMu      sync.Mutex
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(config *AuditConfig) *AuditLogger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	al := &AuditLogger{
		config: config,
		buffer: make(chan *AuditEntry, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	al.wg.Add(1)
	go al.worker()

	return al
}

// Log adds an audit entry to the buffer (non-blocking)
func (al *AuditLogger) Log(entry *AuditEntry) {
	select {
	case al.buffer <- entry:
	default:
		// Buffer full, drop entry
	}
}

// Close gracefully shuts down the audit logger
func (al *AuditLogger) Close() error {
	al.closeOnce.Do(func() {
		close(al.buffer)
		al.wg.Wait()
		al.cancel()
	})
	return nil
}

// SetTestMode enables test mode which collects entries instead of writing to DB
func (al *AuditLogger) SetTestMode(enabled bool) {
	al.testMu.Lock()
	defer al.testMu.Unlock()
	al.testMode = enabled
	if enabled {
		al.testEntries = make([]*AuditEntry, 0)
	}
}

// GetTestEntries returns collected test entries (only in test mode)
func (al *AuditLogger) GetTestEntries() []*AuditEntry {
	al.testMu.Lock()
	defer al.testMu.Unlock()
	result := make([]*AuditEntry, len(al.testEntries))
	copy(result, al.testEntries)
	return result
}

// worker processes audit entries in the background
func (al *AuditLogger) worker() {
	defer al.wg.Done()

	ticker := time.NewTicker(al.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*AuditEntry, 0, al.config.BatchSize)

	for {
		select {
		case entry, ok := <-al.buffer:
			if !ok {
				if len(batch) > 0 {
					al.flush(batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= al.config.BatchSize {
				al.flush(batch)
				batch = make([]*AuditEntry, 0, al.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				al.flush(batch)
				batch = make([]*AuditEntry, 0, al.config.BatchSize)
			}
		case <-al.ctx.Done():
			if len(batch) > 0 {
				al.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of entries to the database
func (al *AuditLogger) flush(entries []*AuditEntry) {
	if len(entries) == 0 {
		return
	}

	al.testMu.Lock()
	if al.testMode {
		al.testEntries = append(al.testEntries, entries...)
		al.testMu.Unlock()
		return
	}
	al.testMu.Unlock()

	if al.config.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		INSERT INTO audit_logs (
			id, tenant_id, subject, role, action, resource_type, resource_id,
			ip_address, user_agent, request_id, status, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	batch := &pgx.Batch{}
	for _, entry := range entries {
		metadataJSON, _ := json.Marshal(entry.Metadata)
		if string(metadataJSON) == "null" {
			metadataJSON = []byte("{}")
		}

		batch.Queue(query,
			entry.ID, entry.TenantID, entry.Subject, entry.Role,
			string(entry.Action), entry.ResourceType, entry.ResourceID,
			entry.IPAddress, entry.UserAgent, entry.RequestID,
			entry.Status, metadataJSON, entry.CreatedAt,
		)
	}

	// Audit writes never block or fail the application.
	_ = al.config.DB.SendBatch(ctx, batch).Close()
}

// AuditMiddleware creates a new audit logging middleware
func AuditMiddleware(logger *AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		config := logger.config

		for _, path := range config.SkipPaths {
			if c.Request.URL.Path == path {
				c.Next()
				return
			}
		}
		for _, method := range config.SkipMethods {
			if c.Request.Method == method {
				c.Next()
				return
			}
		}

		startTime := time.Now()
		c.Next()

		entry := &AuditEntry{
			ID:        uuid.New().String(),
			Status:    c.Writer.Status(),
			CreatedAt: startTime,
		}

		// Caller info set by the JWT middleware.
		if subject, ok := GetSubject(c); ok && subject != "" {
			entry.Subject = &subject
		}
		if role, ok := GetRole(c); ok {
			entry.Role = role
		}

		// Prefer the tenant in the route over the token claim so admin
		// actions land under the tenant they touched.
		tenantID := c.Param("tenantId")
		if tenantID == "" {
			tenantID, _ = GetTenantID(c)
		}
		if tenantID != "" {
			entry.TenantID = &tenantID
		}

		entry.Action = actionForRequest(c.Request.Method, c.Request.URL.Path)
		entry.ResourceType, entry.ResourceID = resourceForPath(c)

		entry.IPAddress = clientIP(c)
		entry.UserAgent = c.GetHeader("User-Agent")
		entry.RequestID = c.GetHeader("X-Request-ID")

		logger.Log(entry)
	}
}

// actionForRequest maps a request to the booking-domain audit action
func actionForRequest(method, path string) AuditAction {
	pathLower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(pathLower, "/check-in"):
		return AuditActionCheckIn
	case strings.HasSuffix(pathLower, "/complete"):
		return AuditActionComplete
	case strings.HasSuffix(pathLower, "/cancel"):
		return AuditActionCancel
	case strings.HasSuffix(pathLower, "/no-show"):
		return AuditActionNoShow
	case strings.HasSuffix(pathLower, "/refund"):
		return AuditActionRefund
	case strings.HasSuffix(pathLower, "/bookings") && method == http.MethodPost:
		return AuditActionBook
	}

	switch method {
	case http.MethodPost:
		return AuditActionCreate
	case http.MethodPut, http.MethodPatch:
		return AuditActionUpdate
	case http.MethodDelete:
		return AuditActionDelete
	default:
		return AuditActionView
	}
}

// resourceForPath derives the audited resource from route parameters
func resourceForPath(c *gin.Context) (string, *string) {
	for _, p := range []struct {
		param    string
		resource string
	}{
		{"bookingId", "booking"},
		{"paymentId", "payment"},
		{"resourceId", "resource"},
		{"serviceId", "service"},
	} {
		if id := c.Param(p.param); id != "" {
			return p.resource, &id
		}
	}
	if id := c.Param("tenantId"); id != "" {
		return "tenant", &id
	}
	return "unknown", nil
}

// clientIP extracts the client IP address
func clientIP(c *gin.Context) string {
	xff := c.GetHeader("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := c.GetHeader("X-Real-IP")
	if xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
