package competitionqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

const (
	queueName     = "competition"
	serviceName   = "river"
	minLeadTime   = 5 * time.Second
	generationJob = "generate_assignments"
)

// ErrTooSoon is returned when a job is scheduled less than minLeadTime ahead.
var ErrTooSoon = errors.New("scheduled time must be at least 5 seconds in the future")

// Metrics interface (satisfied by the competition metrics)
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService interface defines the contract for job scheduling operations
type QueueService interface {
	// ScheduleGeneration schedules a recipe run for a round at the given time
	ScheduleGeneration(ctx context.Context, compID, roundCode, recipeID string, at time.Time) (*JobInfo, error)
	// CancelGeneration cancels pending generation jobs for a round
	CancelGeneration(ctx context.Context, compID, roundCode string) (int, error)
	// GetScheduledJobs returns generation jobs for a competition (for debugging)
	GetScheduledJobs(ctx context.Context, compID string) ([]JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// Service handles job scheduling for the competition module using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
	now     func() time.Time
}

// NewService creates a new River-based queue service running workers
// against generator.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, maxWorkers int, metrics Metrics, generator Generator) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_competition_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", serviceName)

	ctxLogger.Info("Initializing competition queue service")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewGenerateAssignmentsWorker(ctxLogger, generator))

	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
			queueName:          {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", serviceName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	service := &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
		now:     time.Now,
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", serviceName)
	metrics.RecordOperationDuration(ctx, "initialize_service", serviceName, time.Since(start))

	ctxLogger.Info("Competition queue service initialized successfully")
	return service, nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", serviceName)

	s.logger.Info("Starting competition queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", serviceName)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", serviceName)
	s.metrics.RecordOperationDuration(ctx, "start_service", serviceName, time.Since(start))

	s.logger.Info("Competition queue service started successfully")
	return nil
}

// Stop stops the River queue service and releases its pool
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", serviceName)

	s.logger.Info("Stopping competition queue service")

	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", serviceName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", serviceName)
	s.metrics.RecordOperationDuration(ctx, "stop_service", serviceName, time.Since(start))

	s.logger.Info("Competition queue service stopped successfully")
	return nil
}

// validateScheduleTime ensures at leaves a small buffer after now.
func validateScheduleTime(now, at time.Time) error {
	if at.Before(now.Add(minLeadTime)) {
		return fmt.Errorf("%w (scheduled: %s, now: %s)", ErrTooSoon, at.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return nil
}

// ScheduleGeneration schedules a generation job for a round. Scheduling the
// same arguments twice yields the existing job.
func (s *Service) ScheduleGeneration(ctx context.Context, compID, roundCode, recipeID string, at time.Time) (*JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_generation", serviceName)

	ctxLogger := s.logger.With(
		attr.CompetitionID(compID),
		attr.RoundCode(roundCode),
		attr.Time("scheduled_at", at),
		attr.String("operation", "schedule_generation"),
	)

	ctxLogger.Info("Scheduling assignment generation job")

	now := s.now()
	if err := validateScheduleTime(now, at); err != nil {
		ctxLogger.Warn("Generation time is too close to current time",
			attr.Time("current_time", now),
			attr.Duration("buffer", at.Sub(now)))
		s.metrics.RecordOperationFailure(ctx, "schedule_generation", serviceName)
		return nil, err
	}

	job := GenerateAssignmentsJob{
		CompetitionID: compID,
		RoundCode:     roundCode,
		RecipeID:      recipeID,
	}

	jobResult, err := s.client.Insert(ctx, job, &river.InsertOpts{
		Queue:       queueName,
		ScheduledAt: at,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule generation job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_generation", serviceName)
		return nil, fmt.Errorf("failed to schedule generation job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_generation", serviceName)
	s.metrics.RecordOperationDuration(ctx, "schedule_generation", serviceName, time.Since(start))

	ctxLogger.Info("Generation job scheduled successfully",
		attr.Duration("delay", at.Sub(now)),
		attr.Int64("job_id", jobResult.Job.ID),
		attr.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate))

	return &JobInfo{
		ID:            jobResult.Job.ID,
		Kind:          jobResult.Job.Kind,
		CompetitionID: compID,
		RoundCode:     roundCode,
		RecipeID:      recipeID,
		State:         string(jobResult.Job.State),
		ScheduledAt:   jobResult.Job.ScheduledAt.Format(time.RFC3339),
		CreatedAt:     jobResult.Job.CreatedAt.Format(time.RFC3339),
		Attempt:       jobResult.Job.Attempt,
		MaxAttempts:   jobResult.Job.MaxAttempts,
	}, nil
}

type riverJobRow struct {
	ID          int64             `bun:"id"`
	Kind        string            `bun:"kind"`
	State       string            `bun:"state"`
	Args        map[string]string `bun:"args,type:jsonb"`
	ScheduledAt *time.Time        `bun:"scheduled_at"`
	CreatedAt   time.Time         `bun:"created_at"`
	Attempt     int16             `bun:"attempt"`
	MaxAttempts int16             `bun:"max_attempts"`
}

// CancelGeneration cancels pending generation jobs for a round and returns
// how many were cancelled.
func (s *Service) CancelGeneration(ctx context.Context, compID, roundCode string) (int, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "cancel_generation", serviceName)

	ctxLogger := s.logger.With(
		attr.CompetitionID(compID),
		attr.RoundCode(roundCode),
		attr.String("operation", "cancel_generation"),
	)

	ctxLogger.Info("Cancelling scheduled generation jobs")

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", generationJob).
		Where("state IN (?, ?)", "available", "scheduled").
		Where("args->>'competition_id' = ?", compID).
		Where("args->>'round_code' = ?", roundCode).
		Scan(ctx, &jobs)
	if err != nil {
		ctxLogger.Error("Failed to query jobs for cancellation", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "cancel_generation", serviceName)
		return 0, fmt.Errorf("failed to query jobs for cancellation: %w", err)
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			ctxLogger.Warn("Failed to cancel job",
				attr.Int64("job_id", job.ID),
				attr.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_generation", serviceName)
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_generation", serviceName)
	}
	s.metrics.RecordOperationDuration(ctx, "cancel_generation", serviceName, time.Since(start))

	ctxLogger.Info("Jobs cancellation completed",
		attr.Int("total_found", len(jobs)),
		attr.Int("cancelled_count", cancelled))

	return cancelled, nil
}

// GetScheduledJobs returns generation jobs for a competition (for debugging)
func (s *Service) GetScheduledJobs(ctx context.Context, compID string) ([]JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "get_scheduled_jobs", serviceName)

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", generationJob).
		Where("args->>'competition_id' = ?", compID).
		Order("scheduled_at ASC NULLS LAST", "created_at ASC").
		Scan(ctx, &jobs)
	if err != nil {
		s.logger.Error("Failed to query scheduled jobs", attr.CompetitionID(compID), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "get_scheduled_jobs", serviceName)
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "get_scheduled_jobs", serviceName)
	s.metrics.RecordOperationDuration(ctx, "get_scheduled_jobs", serviceName, time.Since(start))

	return toJobInfos(jobs), nil
}

func toJobInfos(rows []riverJobRow) []JobInfo {
	out := make([]JobInfo, len(rows))
	for i, job := range rows {
		scheduledAt := ""
		if job.ScheduledAt != nil {
			scheduledAt = job.ScheduledAt.Format(time.RFC3339)
		}
		out[i] = JobInfo{
			ID:            job.ID,
			Kind:          job.Kind,
			CompetitionID: job.Args["competition_id"],
			RoundCode:     job.Args["round_code"],
			RecipeID:      job.Args["recipe_id"],
			State:         job.State,
			ScheduledAt:   scheduledAt,
			CreatedAt:     job.CreatedAt.Format(time.RFC3339),
			Attempt:       int(job.Attempt),
			MaxAttempts:   int(job.MaxAttempts),
		}
	}
	return out
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "health_check", serviceName)

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", serviceName)
		return errors.New("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", serviceName)
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", serviceName)
	s.logger.Debug("Queue service health check passed", attr.Int("total_jobs", count))
	return nil
}
