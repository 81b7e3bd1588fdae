// Package app wires configuration, persistence and services for the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/config"
	"github.com/spec-kit/campus-support/internal/events"
	"github.com/spec-kit/campus-support/internal/observability"
	"github.com/spec-kit/campus-support/internal/persistence"
	"github.com/spec-kit/campus-support/internal/repository"
	"github.com/spec-kit/campus-support/internal/service"
	"github.com/spec-kit/campus-support/internal/tat"
	"github.com/spec-kit/campus-support/internal/worker"
)

// Backends are the stores the services run against.
type Backends struct {
	UnitOfWork repository.UnitOfWork
	Locker     service.SweepLocker
	Queue      service.NotificationQueue
}

// Services is the fully wired service graph. Notification handlers are
// already subscribed, so every entry point delivers ticket events.
type Services struct {
	Calendar   *tat.Calendar
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher

	Categories    *service.CategoryLookup
	Roles         service.RoleResolver
	Escalations   *service.EscalationService
	Tickets       *service.TicketService
	Rules         *service.RuleService
	Sweep         *service.SweepService
	Notifications *service.NotificationService
}

// NewServices builds the service graph on the given backends.
func NewServices(cfg *config.Config, logger *zap.Logger, calendar *tat.Calendar, b Backends) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Services{
		Calendar:   calendar,
		Dispatcher: events.NewInMemoryDispatcher(),
		Categories: service.NewCategoryLookup(),
		Roles:      service.NewUserRoleResolver(b.UnitOfWork.Repositories().Users),
	}
	if cfg.Metrics.Enabled {
		s.Metrics = observability.NewMetrics()
	}

	s.Escalations = service.NewEscalationService(service.EscalationDependencies{
		UnitOfWork: b.UnitOfWork,
		Calendar:   calendar,
		Categories: s.Categories,
		Roles:      s.Roles,
		Dispatcher: s.Dispatcher,
		Metrics:    s.Metrics,
		Logger:     logger,
	})
	s.Tickets = service.NewTicketService(service.TicketDependencies{
		UnitOfWork:  b.UnitOfWork,
		Calendar:    calendar,
		Categories:  s.Categories,
		Escalations: s.Escalations,
		Roles:       s.Roles,
		Dispatcher:  s.Dispatcher,
		Logger:      logger,
	})
	s.Rules = service.NewRuleService(b.UnitOfWork, s.Roles, logger)
	s.Sweep = service.NewSweepService(service.SweepDependencies{
		UnitOfWork:  b.UnitOfWork,
		Escalations: s.Escalations,
		Calendar:    calendar,
		Locker:      b.Locker,
		LockKey:     cfg.Sweep.LockKey,
		LockTTL:     cfg.Sweep.LockTTL(),
		BatchSize:   cfg.Sweep.BatchSize,
		Metrics:     s.Metrics,
		Logger:      logger,
	})
	s.Notifications = service.NewNotificationService(s.Dispatcher, b.Queue, logger, cfg.Notification)
	worker.StartNotificationWorker(s.Notifications, s.Dispatcher, logger)
	return s
}

// Container holds the long-lived dependencies of a process.
type Container struct {
	*Services

	Config   *config.Config
	Logger   *zap.Logger
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Store    *repository.Store
}

// New connects to Postgres and Redis and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	loc, err := cfg.TAT.Location()
	if err != nil {
		pg.Close()
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Postgres: pg,
		Redis:    persistence.NewRedis(cfg.Redis, logger),
		Store:    repository.NewStore(pg.PoolHandle()),
	}
	c.Services = NewServices(cfg, logger, tat.NewCalendar(loc, nil), Backends{
		UnitOfWork: c.Store,
		Locker:     c.Redis,
		Queue:      c.Redis,
	})
	return c, nil
}

// Close releases connections.
func (c *Container) Close() {
	c.Redis.Close()
	c.Postgres.Close()
}
