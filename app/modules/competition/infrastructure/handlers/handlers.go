package competitionhandlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/compstaff/compstaff/app/eventbus"
	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	comptime "github.com/compstaff/compstaff/app/modules/competition/time_utils"
	"github.com/compstaff/compstaff/app/observability/attr"
	"go.opentelemetry.io/otel/trace"
)

// Scheduler is the part of the queue service the handlers use.
type Scheduler interface {
	ScheduleGeneration(ctx context.Context, compID, roundCode, recipeID string, at time.Time) (*competitionqueue.JobInfo, error)
	CancelGeneration(ctx context.Context, compID, roundCode string) (int, error)
	GetScheduledJobs(ctx context.Context, compID string) ([]competitionqueue.JobInfo, error)
}

// CompetitionHandlers implements the Handlers interface.
type CompetitionHandlers struct {
	service    competitionservice.Service
	scheduler  Scheduler
	timeParser *comptime.TimeParser
	clock      comptime.Clock
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewCompetitionHandlers creates a new CompetitionHandlers instance. A nil
// scheduler disables the schedule endpoints.
func NewCompetitionHandlers(
	service competitionservice.Service,
	scheduler Scheduler,
	clock comptime.Clock,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	if clock == nil {
		clock = comptime.RealClock{}
	}
	return &CompetitionHandlers{
		service:    service,
		scheduler:  scheduler,
		timeParser: comptime.NewTimeParser(logger),
		clock:      clock,
		logger:     logger,
		tracer:     tracer,
	}
}

// HandleGenerateAssignmentsRequested runs the requested recipe. The service
// announces success itself; a rejected request is answered with a failure
// event and an infrastructure error is returned for redelivery.
func (h *CompetitionHandlers) HandleGenerateAssignmentsRequested(ctx context.Context, payload *competitionevents.GenerateAssignmentsRequestedPayloadV1) ([]eventbus.Result, error) {
	ctx, span := h.tracer.Start(ctx, "CompetitionHandlers.HandleGenerateAssignmentsRequested")
	defer span.End()

	h.logger.InfoContext(ctx, "Assignment generation requested",
		attr.ExtractCorrelationID(ctx),
		attr.CompetitionID(payload.CompetitionID),
		attr.RoundCode(payload.RoundCode),
	)

	_, err := h.service.GenerateAssignments(ctx, payload.CompetitionID, payload.RoundCode, payload.RecipeID)
	if err == nil {
		return nil, nil
	}
	if !competitionservice.IsDomainFailure(err) {
		return nil, err
	}

	h.logger.WarnContext(ctx, "Assignment generation rejected",
		attr.ExtractCorrelationID(ctx),
		attr.CompetitionID(payload.CompetitionID),
		attr.RoundCode(payload.RoundCode),
		attr.Error(err),
	)
	return []eventbus.Result{{
		Topic: competitionevents.AssignmentsGenerationFailedV1,
		Payload: &competitionevents.AssignmentsGenerationFailedPayloadV1{
			CompetitionID: payload.CompetitionID,
			RoundCode:     payload.RoundCode,
			RecipeID:      payload.RecipeID,
			Reason:        err.Error(),
		},
	}}, nil
}

// HandleValidateRequested validates the competition. Reports are announced
// by the service; an unknown competition is logged and dropped.
func (h *CompetitionHandlers) HandleValidateRequested(ctx context.Context, payload *competitionevents.ValidateRequestedPayloadV1) ([]eventbus.Result, error) {
	ctx, span := h.tracer.Start(ctx, "CompetitionHandlers.HandleValidateRequested")
	defer span.End()

	_, err := h.service.ValidateCompetition(ctx, payload.CompetitionID)
	if err == nil {
		return nil, nil
	}
	if competitionservice.IsDomainFailure(err) {
		h.logger.WarnContext(ctx, "Validation request rejected",
			attr.ExtractCorrelationID(ctx),
			attr.CompetitionID(payload.CompetitionID),
			attr.Error(err),
		)
		return nil, nil
	}
	return nil, err
}
