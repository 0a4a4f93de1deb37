package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/di"
	"github.com/thitipong-w/slotwise/internal/events"
	"github.com/thitipong-w/slotwise/internal/gateway"
	"github.com/thitipong-w/slotwise/pkg/config"
	"github.com/thitipong-w/slotwise/pkg/database"
	"github.com/thitipong-w/slotwise/pkg/logger"
	"github.com/thitipong-w/slotwise/pkg/middleware"
	"github.com/thitipong-w/slotwise/pkg/redisclient"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	})
	log := logger.Get()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
	})
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	rdb, err := redisclient.New(ctx, &redisclient.Config{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic, log)
	if err != nil {
		log.Fatal("failed to connect to kafka", zap.Error(err))
	}
	defer publisher.Close()

	var gw gateway.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		gw = gateway.NewStripeGateway(&gateway.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Environment:   cfg.Stripe.Environment,
		})
	} else {
		// No provider credentials: local development against the fake.
		log.Warn("no stripe secret key configured, using fake gateway")
		gw = gateway.NewFakeGateway()
	}

	container := di.NewContainer(&di.ContainerConfig{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		Gateway:   gw,
		Log:       log,
	})

	auditLogger := middleware.NewAuditLogger(middleware.DefaultAuditConfig(db.Pool()))
	defer auditLogger.Close()

	container.Inbox.Start(ctx)
	defer container.Inbox.Stop()
	container.Reaper.Start(ctx)
	defer container.Reaper.Stop()

	router := setupRouter(cfg, container, auditLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry shutdown failed", zap.Error(err))
	}
}

func setupRouter(cfg *config.Config, c *di.Container, auditLogger *middleware.AuditLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)

	// Provider webhooks authenticate by signature, not by JWT.
	router.POST("/webhooks/stripe", c.WebhookHandler.Stripe)

	api := router.Group("/api/v1")
	api.Use(middleware.JWTMiddleware(&middleware.JWTConfig{Secret: cfg.JWT.Secret}))
	api.Use(middleware.AuditMiddleware(auditLogger))

	api.POST("/tenants", middleware.RequireRole(middleware.RoleAdmin), c.TenantHandler.Create)

	tenant := api.Group("/tenants/:tenantId")
	tenant.Use(middleware.RequireTenantScope("tenantId"))
	{
		tenant.GET("", c.TenantHandler.GetByID)

		admin := tenant.Group("")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleStaff))
		{
			admin.PUT("/policy", c.TenantHandler.UpdatePolicy)
			admin.DELETE("", c.TenantHandler.Delete)

			admin.POST("/resources", c.CatalogHandler.CreateResource)
			admin.POST("/services", c.CatalogHandler.CreateService)
			admin.POST("/assignments", c.CatalogHandler.AssignService)

			admin.PUT("/resources/:resourceId/rules", c.ScheduleHandler.ReplaceRules)
			admin.PUT("/resources/:resourceId/exceptions", c.ScheduleHandler.SaveException)

			admin.POST("/bookings/:bookingId/check-in", c.BookingHandler.CheckIn)
			admin.POST("/bookings/:bookingId/complete", c.BookingHandler.Complete)
			admin.POST("/bookings/:bookingId/no-show", c.BookingHandler.NoShow)
			admin.POST("/payments/:paymentId/refund", c.PaymentHandler.Refund)
		}

		tenant.GET("/resources/:resourceId", c.CatalogHandler.GetResource)
		tenant.GET("/services/:serviceId", c.CatalogHandler.GetService)

		tenant.GET("/availability/slots", c.AvailabilityHandler.Slots)
		tenant.GET("/availability/windows", c.AvailabilityHandler.FreeWindows)

		tenant.POST("/bookings", c.BookingHandler.Create)
		tenant.GET("/bookings/:bookingId", c.BookingHandler.GetByID)
		tenant.POST("/bookings/:bookingId/cancel", c.BookingHandler.Cancel)

		tenant.GET("/payments/:paymentId", c.PaymentHandler.GetByID)
		tenant.GET("/payments/:paymentId/transitions", c.PaymentHandler.Transitions)
	}

	return router
}
