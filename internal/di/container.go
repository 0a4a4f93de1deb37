package di

import (
	"github.com/redis/go-redis/v9"

	"github.com/thitipong-w/slotwise/internal/availability"
	"github.com/thitipong-w/slotwise/internal/booking"
	"github.com/thitipong-w/slotwise/internal/events"
	"github.com/thitipong-w/slotwise/internal/gateway"
	"github.com/thitipong-w/slotwise/internal/handler"
	"github.com/thitipong-w/slotwise/internal/payment"
	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/internal/worker"
	"github.com/thitipong-w/slotwise/pkg/config"
	"github.com/thitipong-w/slotwise/pkg/database"
	"github.com/thitipong-w/slotwise/pkg/logger"
)

// Container holds all dependencies for the scheduling engine
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher events.Publisher
	Gateway   gateway.PaymentGateway
	Log       *logger.Logger

	// Repositories
	TenantRepo   repository.TenantRepository
	CatalogRepo  repository.CatalogRepository
	ScheduleRepo repository.ScheduleRepository
	BookingRepo  repository.BookingRepository
	PaymentRepo  repository.PaymentRepository

	// Core
	Resolver  *availability.Resolver
	Machine   *payment.Machine
	Scheduler *booking.Scheduler
	Inbox     *payment.Inbox
	Reaper    *worker.Reaper

	// Handlers
	HealthHandler       *handler.HealthHandler
	TenantHandler       *handler.TenantHandler
	CatalogHandler      *handler.CatalogHandler
	ScheduleHandler     *handler.ScheduleHandler
	AvailabilityHandler *handler.AvailabilityHandler
	BookingHandler      *handler.BookingHandler
	PaymentHandler      *handler.PaymentHandler
	WebhookHandler      *handler.WebhookHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config    *config.Config
	DB        *database.PostgresDB
	Redis     *redis.Client // optional, nil disables the fast-path dedupe
	Publisher events.Publisher
	Gateway   gateway.PaymentGateway
	Log       *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
		Gateway:   cfg.Gateway,
		Log:       cfg.Log,
	}

	// Initialize repositories
	c.TenantRepo = repository.NewPostgresTenantRepository(c.DB.Pool())
	c.CatalogRepo = repository.NewPostgresCatalogRepository(c.DB.Pool())
	c.ScheduleRepo = repository.NewPostgresScheduleRepository(c.DB.Pool())
	c.BookingRepo = repository.NewPostgresBookingRepository(c.DB.Pool())
	c.PaymentRepo = repository.NewPostgresPaymentRepository(c.DB.Pool())

	// Initialize core components
	c.Resolver = availability.NewResolver(c.ScheduleRepo, c.BookingRepo, cfg.Config.Scheduler.Granularity)
	c.Machine = payment.NewMachine(c.PaymentRepo, c.BookingRepo, c.TenantRepo,
		c.Gateway, c.Publisher, c.Log, payment.DefaultConfig())
	c.Scheduler = booking.NewScheduler(c.TenantRepo, c.CatalogRepo, c.BookingRepo,
		c.Resolver, c.Machine, c.Log, booking.SchedulerConfig{
			SetupTimeout: cfg.Config.Scheduler.SetupTimeout,
		})
	c.Inbox = payment.NewInbox(c.Machine, c.PaymentRepo, c.Redis, c.Log,
		cfg.Config.Scheduler.InboxShards)
	c.Reaper = worker.NewReaper(c.BookingRepo, c.Machine, c.Log, &worker.ReaperConfig{
		ScanInterval: cfg.Config.Reaper.ScanInterval,
		BatchSize:    cfg.Config.Reaper.BatchSize,
		HoldTTL:      cfg.Config.Reaper.HoldTTL,
	})

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB)
	c.TenantHandler = handler.NewTenantHandler(c.TenantRepo)
	c.CatalogHandler = handler.NewCatalogHandler(c.CatalogRepo)
	c.ScheduleHandler = handler.NewScheduleHandler(c.CatalogRepo, c.ScheduleRepo)
	c.AvailabilityHandler = handler.NewAvailabilityHandler(c.TenantRepo, c.CatalogRepo, c.Resolver)
	c.BookingHandler = handler.NewBookingHandler(c.Scheduler, c.Machine, c.BookingRepo)
	c.PaymentHandler = handler.NewPaymentHandler(c.Machine, c.PaymentRepo)
	c.WebhookHandler = handler.NewWebhookHandler(c.Inbox, cfg.Config.Stripe.WebhookSecret, c.Log)

	return c
}
