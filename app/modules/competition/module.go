package competition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/compstaff/compstaff/app/eventbus"
	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	competitionhandlers "github.com/compstaff/compstaff/app/modules/competition/infrastructure/handlers"
	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	competitionrouter "github.com/compstaff/compstaff/app/modules/competition/infrastructure/router"
	"github.com/compstaff/compstaff/app/observability"
	"github.com/compstaff/compstaff/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the competition module.
type Module struct {
	EventBus           eventbus.EventBus
	CompetitionService competitionservice.Service
	QueueService       competitionqueue.QueueService
	CompetitionRouter  *competitionrouter.CompetitionRouter
	logger             *slog.Logger
	config             *config.Config
	cancelFunc         context.CancelFunc
}

// NewCompetitionModule wires the competition service to the event bus, the
// optional generation queue and the HTTP API. httpRouter may be nil.
func NewCompetitionModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	eventBus eventbus.EventBus,
	router *message.Router,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "competition.NewCompetitionModule called")

	// 1. Recipes
	recipes, err := config.LoadRecipes(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	// 2. Service
	repo := competitiondb.NewRepository(db)
	service := competitionservice.NewCompetitionService(
		repo,
		logger,
		obs.Registry.CompetitionMetrics,
		tracer,
		db,
		eventBus,
		recipes,
	)

	// 3. Generation queue
	var queueService *competitionqueue.Service
	var scheduler competitionhandlers.Scheduler
	if cfg.Queue.Enabled {
		queueService, err = competitionqueue.NewService(
			ctx,
			db,
			logger,
			cfg.Postgres.DSN,
			cfg.Queue.MaxWorkers,
			obs.Registry.QueueMetrics,
			service,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create competition queue service: %w", err)
		}
		scheduler = queueService
	}

	// 4. Handlers
	handlers := competitionhandlers.NewCompetitionHandlers(service, scheduler, nil, logger, tracer)

	// 5. Event router
	competitionRouter := competitionrouter.NewCompetitionRouter(
		logger,
		router,
		eventBus,
		eventBus,
		tracer,
		obs.Registry.PrometheusRegistry,
	)
	if err := competitionRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure competition router: %w", err)
	}

	// 6. HTTP routes
	if httpRouter != nil {
		competitionhandlers.MountRoutes(httpRouter, handlers, competitionhandlers.RouteOptions{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RateLimit:      cfg.HTTP.RateLimit.RPS,
			Burst:          cfg.HTTP.RateLimit.Burst,
		})
	}

	module := &Module{
		EventBus:           eventBus,
		CompetitionService: service,
		CompetitionRouter:  competitionRouter,
		logger:             logger,
		config:             cfg,
	}
	if queueService != nil {
		module.QueueService = queueService
	}

	return module, nil
}

// Run starts the queue workers, if enabled, and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting competition module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.QueueService != nil {
		if err := m.QueueService.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start competition queue", slog.Any("error", err))
			return
		}
	}

	<-ctx.Done()
	m.logger.Info("Competition module goroutine stopped")
}

// Close stops the queue workers.
func (m *Module) Close() error {
	m.logger.Info("Stopping competition module")

	// The queue is stopped before its start context is cancelled.
	if m.QueueService != nil {
		if err := m.QueueService.Stop(context.Background()); err != nil {
			m.logger.Error("Error stopping competition queue", slog.Any("error", err))
			if m.cancelFunc != nil {
				m.cancelFunc()
			}
			return fmt.Errorf("error stopping queue: %w", err)
		}
	}

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.logger.Info("Competition module stopped")
	return nil
}
