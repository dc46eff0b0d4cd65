package competitionqueue

import (
	"context"
	"log/slog"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/riverqueue/river"
)

// Generator is the part of the competition service the worker drives.
type Generator interface {
	GenerateAssignments(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error)
}

// GenerateAssignmentsWorker executes GenerateAssignmentsJob.
type GenerateAssignmentsWorker struct {
	river.WorkerDefaults[GenerateAssignmentsJob]
	logger    *slog.Logger
	generator Generator
}

func NewGenerateAssignmentsWorker(logger *slog.Logger, generator Generator) *GenerateAssignmentsWorker {
	return &GenerateAssignmentsWorker{logger: logger, generator: generator}
}

// Work runs the recipe. A failure caused by the document or the request is
// not retried; infrastructure errors are left to River's retry policy.
func (w *GenerateAssignmentsWorker) Work(ctx context.Context, job *river.Job[GenerateAssignmentsJob]) error {
	log := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.CompetitionID(job.Args.CompetitionID),
		attr.RoundCode(job.Args.RoundCode),
	)
	log.InfoContext(ctx, "Running scheduled assignment generation")

	res, err := w.generator.GenerateAssignments(ctx, job.Args.CompetitionID, job.Args.RoundCode, job.Args.RecipeID)
	if err != nil {
		if competitionservice.IsDomainFailure(err) {
			log.WarnContext(ctx, "Scheduled generation rejected, cancelling job", attr.Error(err))
			return river.JobCancel(err)
		}
		log.ErrorContext(ctx, "Scheduled generation failed", attr.Error(err))
		return err
	}

	log.InfoContext(ctx, "Scheduled generation completed",
		attr.Int("produced", res.Produced),
		attr.String("revision", res.Revision),
	)
	return nil
}
