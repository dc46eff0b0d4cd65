package competitionservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/compstaff/compstaff/app/eventbus"
	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	"github.com/compstaff/compstaff/app/modules/competition/application/importer"
	"github.com/compstaff/compstaff/app/modules/competition/application/importer/parsers"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/compstaff/compstaff/app/observability"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/compstaff/compstaff/app/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMissingID is returned when saving a document without an id.
	ErrMissingID = errors.New("competition id is required")
	// ErrInvalidImportFile is returned when an import file cannot be read.
	ErrInvalidImportFile = errors.New("invalid import file")
)

// CompetitionService implements the Service interface.
type CompetitionService struct {
	repo      competitiondb.Repository
	logger    *slog.Logger
	metrics   observability.CompetitionMetrics
	tracer    trace.Tracer
	db        *bun.DB
	publisher message.Publisher
	recipes   *generators.RecipeBook
	runner    *generators.Runner
	importer  *importer.Importer
	parsers   parsers.ParserFactory
}

// NewCompetitionService creates a new CompetitionService. A nil publisher
// disables outcome events; nil recipes means the built-in recipe only.
func NewCompetitionService(
	repo competitiondb.Repository,
	logger *slog.Logger,
	metrics observability.CompetitionMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	publisher message.Publisher,
	recipes *generators.RecipeBook,
) *CompetitionService {
	if logger == nil {
		logger = slog.Default()
	}
	if recipes == nil {
		recipes = generators.NewRecipeBook()
	}
	return &CompetitionService{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		publisher: publisher,
		recipes:   recipes,
		runner:    generators.NewRunner(generators.DefaultRegistry(), logger),
		importer:  importer.New(logger),
		parsers:   parsers.NewFactory(),
	}
}

var _ Service = (*CompetitionService)(nil)

// Recipes returns the ids of the recipes GenerateAssignments accepts.
func (s *CompetitionService) Recipes() []string {
	return s.recipes.IDs()
}

// IsDomainFailure reports whether err is the caller's problem rather than
// the infrastructure's.
func IsDomainFailure(err error) bool {
	var parseErr *comptypes.ParseError
	var resolutionErr *comptypes.ResolutionError
	var preconditionErr *comptypes.PreconditionError
	switch {
	case errors.Is(err, competitiondb.ErrNotFound),
		errors.Is(err, competitiondb.ErrAlreadyExists),
		errors.Is(err, competitiondb.ErrRevisionConflict),
		errors.Is(err, generators.ErrUnknownRecipe),
		errors.Is(err, generators.ErrUnknownGenerator),
		errors.Is(err, importer.ErrNoTable),
		errors.Is(err, parsers.ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidImportFile),
		errors.Is(err, ErrMissingID),
		errors.As(err, &parseErr),
		errors.As(err, &resolutionErr),
		errors.As(err, &preconditionErr):
		return true
	}
	return false
}

// failureOrError sorts err into a failure result or an infrastructure error.
func failureOrError[S any](err error, action string) (results.OperationResult[S, error], error) {
	if IsDomainFailure(err) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, fmt.Errorf("failed to %s: %w", action, err)
}

// unwrapResult turns an operation outcome into the (value, error) pair
// callers see.
func unwrapResult[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, nil
	}
	return *result.Success, nil
}

// store writes doc over row, moving row to a new revision.
func (s *CompetitionService) store(ctx context.Context, db bun.IDB, row *competitiondb.Competition, doc comptypes.Competition) error {
	expected := row.Revision
	row.Document = doc
	row.Name = doc.Name
	return s.repo.Update(ctx, db, row, expected)
}

// publish announces an outcome. The document is already committed, so a
// failed publish is logged and not returned.
func (s *CompetitionService) publish(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}
	msg, err := eventbus.NewMessage(ctx, topic, payload)
	if err == nil {
		err = s.publisher.Publish(topic, msg)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

func (s *CompetitionService) recordReports(ctx context.Context, reports []comptypes.Report) {
	if s.metrics == nil {
		return
	}
	counts := make(map[comptypes.ReportType]int)
	for _, r := range reports {
		counts[r.Type]++
	}
	for t, n := range counts {
		s.metrics.RecordReports(ctx, string(t), n)
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *CompetitionService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "CompetitionService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "CompetitionService", time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "CompetitionService")
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "CompetitionService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "CompetitionService")
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *CompetitionService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {

	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
