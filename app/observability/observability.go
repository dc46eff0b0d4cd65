// Package observability sets up logging, tracing and Prometheus metrics for
// the service and hands them to modules as one value.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config holds observability settings.
type Config struct {
	ServiceName    string
	Environment    string
	Version        string
	LogLevel       string
	LogFormat      string // json|text
	MetricsAddress string // empty disables the standalone metrics listener
}

// Provider holds the logging and tracing providers.
type Provider struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Registry holds the instruments modules record into.
type Registry struct {
	Tracer             trace.Tracer
	PrometheusRegistry *prometheus.Registry
	CompetitionMetrics CompetitionMetrics
	QueueMetrics       CompetitionMetrics
}

// Observability bundles everything a module needs to log, trace and count.
type Observability struct {
	Provider Provider
	Registry Registry

	metricsServer *http.Server
}

// Init builds the logger, tracer and metrics registry. When MetricsAddress is
// set a /metrics listener is started in the background.
func Init(ctx context.Context, cfg Config) (Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "compstaff"
	}

	logger := NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("version", cfg.Version),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	compMetrics, err := NewPrometheusMetrics(reg, "competition")
	if err != nil {
		return Observability{}, fmt.Errorf("failed to register competition metrics: %w", err)
	}
	queueMetrics, err := NewPrometheusMetrics(reg, "queue")
	if err != nil {
		return Observability{}, fmt.Errorf("failed to register queue metrics: %w", err)
	}

	tp := otel.GetTracerProvider()

	obs := Observability{
		Provider: Provider{
			Logger:         logger,
			TracerProvider: tp,
		},
		Registry: Registry{
			Tracer:             tp.Tracer(cfg.ServiceName),
			PrometheusRegistry: reg,
			CompetitionMetrics: compMetrics,
			QueueMetrics:       queueMetrics,
		},
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		obs.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.InfoContext(ctx, "Serving metrics", slog.String("address", cfg.MetricsAddress))
			if err := obs.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener stopped", slog.Any("error", err))
			}
		}()
	}

	return obs, nil
}

// NewNoop returns an Observability that discards everything. Used by tests and
// offline CLI commands.
func NewNoop() Observability {
	tp := otel.GetTracerProvider()
	return Observability{
		Provider: Provider{
			Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			TracerProvider: tp,
		},
		Registry: Registry{
			Tracer:             tp.Tracer("noop"),
			PrometheusRegistry: prometheus.NewRegistry(),
			CompetitionMetrics: NewNoopMetrics(),
			QueueMetrics:       NewNoopMetrics(),
		},
	}
}

// Shutdown stops the metrics listener, if one was started.
func (o Observability) Shutdown(ctx context.Context) error {
	if o.metricsServer == nil {
		return nil
	}
	return o.metricsServer.Shutdown(ctx)
}

// NewLogger builds a slog logger writing to w at the given level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
