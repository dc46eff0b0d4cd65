package competitionservice

import (
	"context"
	"errors"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/compstaff/compstaff/app/results"
	"github.com/uptrace/bun"
)

// GetCompetition retrieves a stored competition.
func (s *CompetitionService) GetCompetition(ctx context.Context, id string) (*competitiondb.Competition, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*competitiondb.Competition, error], error) {
		row, err := s.repo.Get(ctx, db, id)
		if err != nil {
			return failureOrError[*competitiondb.Competition](err, "get competition")
		}
		return results.SuccessResult[*competitiondb.Competition, error](row), nil
	}

	result, err := withTelemetry(s, ctx, "GetCompetition", id, func(ctx context.Context) (results.OperationResult[*competitiondb.Competition, error], error) {
		return runInTx(s, ctx, getTx)
	})
	return unwrapResult(result, err)
}

// ListCompetitions lists stored competitions without their documents.
func (s *CompetitionService) ListCompetitions(ctx context.Context) ([]competitiondb.Summary, error) {
	listTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]competitiondb.Summary, error], error) {
		rows, err := s.repo.List(ctx, db)
		if err != nil {
			return failureOrError[[]competitiondb.Summary](err, "list competitions")
		}
		return results.SuccessResult[[]competitiondb.Summary, error](rows), nil
	}

	result, err := withTelemetry(s, ctx, "ListCompetitions", "", func(ctx context.Context) (results.OperationResult[[]competitiondb.Summary, error], error) {
		return runInTx(s, ctx, listTx)
	})
	return unwrapResult(result, err)
}

// SaveCompetition stores doc under doc.ID, creating it when absent. A
// non-empty expectedRevision must match the stored revision.
func (s *CompetitionService) SaveCompetition(ctx context.Context, doc comptypes.Competition, expectedRevision string) (*competitiondb.Competition, error) {
	saveTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*competitiondb.Competition, error], error) {
		return s.saveCompetitionLogic(ctx, db, doc, expectedRevision)
	}

	result, err := withTelemetry(s, ctx, "SaveCompetition", doc.ID, func(ctx context.Context) (results.OperationResult[*competitiondb.Competition, error], error) {
		return runInTx(s, ctx, saveTx)
	})
	return unwrapResult(result, err)
}

func (s *CompetitionService) saveCompetitionLogic(ctx context.Context, db bun.IDB, doc comptypes.Competition, expectedRevision string) (results.OperationResult[*competitiondb.Competition, error], error) {
	if doc.ID == "" {
		return results.FailureResult[*competitiondb.Competition, error](ErrMissingID), nil
	}

	existing, err := s.repo.Get(ctx, db, doc.ID)
	if errors.Is(err, competitiondb.ErrNotFound) {
		if expectedRevision != "" {
			return results.FailureResult[*competitiondb.Competition, error](competitiondb.ErrNotFound), nil
		}
		row := &competitiondb.Competition{ID: doc.ID, Name: doc.Name, Document: doc}
		if err := s.repo.Create(ctx, db, row); err != nil {
			return failureOrError[*competitiondb.Competition](err, "create competition")
		}
		return results.SuccessResult[*competitiondb.Competition, error](row), nil
	}
	if err != nil {
		return failureOrError[*competitiondb.Competition](err, "get competition")
	}

	if expectedRevision != "" && expectedRevision != existing.Revision.String() {
		return results.FailureResult[*competitiondb.Competition, error](competitiondb.ErrRevisionConflict), nil
	}
	if err := s.store(ctx, db, existing, doc); err != nil {
		return failureOrError[*competitiondb.Competition](err, "update competition")
	}
	return results.SuccessResult[*competitiondb.Competition, error](existing), nil
}

// DeleteCompetition removes a stored competition.
func (s *CompetitionService) DeleteCompetition(ctx context.Context, id string) error {
	deleteTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
		if err := s.repo.Delete(ctx, db, id); err != nil {
			return failureOrError[struct{}](err, "delete competition")
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	}

	result, err := withTelemetry(s, ctx, "DeleteCompetition", id, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return runInTx(s, ctx, deleteTx)
	})
	_, err = unwrapResult(result, err)
	return err
}
