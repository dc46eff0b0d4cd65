package competitionrouter

import (
	"context"
	"log/slog"
	"os"

	"github.com/compstaff/compstaff/app/eventbus"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// EventHandlers are the bus-facing competition handlers.
type EventHandlers interface {
	HandleGenerateAssignmentsRequested(ctx context.Context, payload *competitionevents.GenerateAssignmentsRequestedPayloadV1) ([]eventbus.Result, error)
	HandleValidateRequested(ctx context.Context, payload *competitionevents.ValidateRequestedPayloadV1) ([]eventbus.Result, error)
}

// CompetitionRouter handles Watermill handler registration for competition commands.
type CompetitionRouter struct {
	logger         *slog.Logger
	router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewCompetitionRouter creates a new CompetitionRouter. Router metrics are
// registered on prometheusRegistry unless it is nil or APP_ENV=test.
func NewCompetitionRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *CompetitionRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &CompetitionRouter{
		logger:         logger,
		router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the router with middleware and handlers.
func (r *CompetitionRouter) Configure(_ context.Context, handlers EventHandlers) error {
	if r.metricsBuilder != nil {
		r.logger.Info("Adding Prometheus router metrics middleware")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.router)
	} else {
		r.logger.Info("Skipping Prometheus router metrics middleware - either in test environment or metrics not configured")
	}

	r.router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3}.Middleware,
	)

	r.registerHandlers(handlers)
	return nil
}

// handlerDeps bundles dependencies for handler registration.
type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// registerHandlers wires command topics to handler methods.
func (r *CompetitionRouter) registerHandlers(handlers EventHandlers) {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  eventbus.TopicPublisher{Publisher: r.publisher, Logger: r.logger},
		logger:     r.logger,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering competition module handlers",
		slog.String("generate_subject", competitionevents.GenerateAssignmentsRequestedV1),
		slog.String("validate_subject", competitionevents.ValidateRequestedV1),
	)

	registerHandler(deps, competitionevents.GenerateAssignmentsRequestedV1, handlers.HandleGenerateAssignmentsRequested)
	registerHandler(deps, competitionevents.ValidateRequestedV1, handlers.HandleValidateRequested)

	r.logger.Info("Competition module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler registration.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]eventbus.Result, error),
) {
	handlerName := "competition." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		eventbus.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			handler,
		),
	)
}

// Run runs the underlying router until ctx is done or Close is called.
func (r *CompetitionRouter) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once the router has started its handlers.
func (r *CompetitionRouter) Running() chan struct{} {
	return r.router.Running()
}

// Close shuts down the router.
func (r *CompetitionRouter) Close() error {
	return r.router.Close()
}
