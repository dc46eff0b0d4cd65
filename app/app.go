package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/compstaff/compstaff/app/eventbus"
	"github.com/compstaff/compstaff/app/modules/competition"
	"github.com/compstaff/compstaff/app/observability"
	"github.com/compstaff/compstaff/config"
	"github.com/compstaff/compstaff/db/bundb"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App holds the process-wide dependencies and the modules built on them.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	Logger        *slog.Logger
	DB            *bundb.DBService
	EventBus      eventbus.EventBus
	Router        *message.Router
	HTTPRouter    chi.Router
	Modules       *Modules

	httpServer *http.Server
	wg         sync.WaitGroup
}

// Modules holds every module of the application.
type Modules struct {
	CompetitionModule *competition.Module
}

// Initialize connects to the database and the event bus and builds the
// modules.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs observability.Observability) error {
	app.Config = cfg
	app.Observability = obs
	app.Logger = obs.Provider.Logger

	app.Logger.InfoContext(ctx, "Initializing application")

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = dbService

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, app.Logger, "compstaff")
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
	} else {
		app.Logger.InfoContext(ctx, "No NATS URL configured, using in-process event bus")
		app.EventBus = eventbus.NewInMemoryEventBus(app.Logger)
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(app.Logger))
	if err != nil {
		return fmt.Errorf("failed to create Watermill router: %w", err)
	}
	app.Router = router

	app.HTTPRouter = chi.NewRouter()
	app.HTTPRouter.Get("/healthz", app.handleHealth)
	app.HTTPRouter.Handle("/metrics", promhttp.HandlerFor(obs.Registry.PrometheusRegistry, promhttp.HandlerOpts{}))

	competitionModule, err := competition.NewCompetitionModule(
		ctx,
		cfg,
		obs,
		dbService.GetDB(),
		app.EventBus,
		router,
		app.HTTPRouter,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize competition module: %w", err)
	}
	app.Modules = &Modules{CompetitionModule: competitionModule}

	return nil
}

// Run starts the modules, the Watermill router and the HTTP listener, and
// blocks until ctx is done or the router or listener fails.
func (app *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.wg.Add(1)
	go app.Modules.CompetitionModule.Run(runCtx, &app.wg)

	errs := make(chan error, 2)
	go func() {
		if err := app.Router.Run(runCtx); err != nil {
			errs <- fmt.Errorf("watermill router stopped: %w", err)
		}
	}()

	app.httpServer = &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.HTTPRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		app.Logger.Info("Serving HTTP", slog.String("address", app.Config.HTTP.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http listener stopped: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

// Close shuts everything down in reverse start order.
func (app *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(ctx); err != nil {
			app.Logger.Error("Error shutting down HTTP server", slog.Any("error", err))
		}
	}

	if app.Modules != nil && app.Modules.CompetitionModule != nil {
		if err := app.Modules.CompetitionModule.Close(); err != nil {
			app.Logger.Error("Error closing competition module", slog.Any("error", err))
		}
	}
	app.wg.Wait()

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			app.Logger.Error("Error closing Watermill router", slog.Any("error", err))
		}
	}

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			app.Logger.Error("Error closing event bus", slog.Any("error", err))
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Error closing database", slog.Any("error", err))
		}
	}

	if err := app.Observability.Shutdown(ctx); err != nil {
		app.Logger.Error("Error shutting down observability", slog.Any("error", err))
	}

	app.Logger.Info("Application shut down")
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"database": "ok"}
	code := http.StatusOK

	if err := app.DB.GetDB().PingContext(r.Context()); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if q := app.Modules.CompetitionModule.QueueService; q != nil {
		status["queue"] = "ok"
		if err := q.HealthCheck(r.Context()); err != nil {
			status["queue"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Serve initializes the application from cfg and runs it until ctx is done.
func Serve(ctx context.Context, cfg *config.Config) error {
	obs, err := observability.Init(ctx, config.ToObsConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	application := &App{}
	defer application.Close()

	if err := application.Initialize(ctx, cfg, obs); err != nil {
		return err
	}

	application.Logger.InfoContext(ctx, "Application started, waiting for shutdown signal")
	return application.Run(ctx)
}
