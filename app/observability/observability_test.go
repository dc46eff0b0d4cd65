package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "json").Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	NewLogger(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewLogger(&buf, "warn", "text").Info("dropped")
	assert.Empty(t, buf.String())
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg, "competition")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "GenerateAssignments", "CompetitionService")
	m.RecordOperationAttempt(ctx, "GenerateAssignments", "CompetitionService")
	m.RecordOperationSuccess(ctx, "GenerateAssignments", "CompetitionService")
	m.RecordOperationFailure(ctx, "GenerateAssignments", "CompetitionService")
	m.RecordOperationDuration(ctx, "GenerateAssignments", "CompetitionService", 20*time.Millisecond)
	m.RecordAssignmentsGenerated(ctx, "CompetingAssignmentsForEveryone", 12)
	m.RecordGroupsCreated(ctx, "333-r1", 3)
	m.RecordReports(ctx, "UNKNOWN_EMAIL", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("GenerateAssignments", "CompetitionService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("GenerateAssignments", "CompetitionService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("GenerateAssignments", "CompetitionService")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.assignments.WithLabelValues("CompetingAssignmentsForEveryone")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.groups.WithLabelValues("333-r1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reports.WithLabelValues("UNKNOWN_EMAIL")))

	_, err = NewPrometheusMetrics(reg, "competition")
	assert.Error(t, err, "registering the same subsystem twice should fail")
}

func TestInitWithoutMetricsListener(t *testing.T) {
	obs, err := Init(context.Background(), Config{LogLevel: "error"})
	require.NoError(t, err)
	require.NotNil(t, obs.Provider.Logger)
	require.NotNil(t, obs.Registry.Tracer)
	require.NotNil(t, obs.Registry.CompetitionMetrics)
	require.NoError(t, obs.Shutdown(context.Background()))
}
