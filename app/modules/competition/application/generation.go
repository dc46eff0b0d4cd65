package competitionservice

import (
	"context"
	"fmt"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/compstaff/compstaff/app/results"
	"github.com/uptrace/bun"
)

// GenerateAssignments runs recipeID (the default recipe when empty) for
// roundCode and stores the merged assignments.
func (s *CompetitionService) GenerateAssignments(ctx context.Context, compID, roundCode, recipeID string) (*GenerationResult, error) {
	generateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*GenerationResult, error], error) {
		return s.generateAssignmentsLogic(ctx, db, compID, roundCode, recipeID)
	}

	result, err := withTelemetry(s, ctx, "GenerateAssignments", compID+"/"+roundCode, func(ctx context.Context) (results.OperationResult[*GenerationResult, error], error) {
		return runInTx(s, ctx, generateTx)
	})
	out, err := unwrapResult(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, competitionevents.AssignmentsGeneratedV1, competitionevents.AssignmentsGeneratedPayloadV1{
		CompetitionID: out.CompetitionID,
		RoundCode:     out.RoundCode,
		RecipeID:      out.RecipeID,
		Revision:      out.Revision,
		Produced:      out.Produced,
		Steps:         out.Steps,
	})
	return out, nil
}

func (s *CompetitionService) generateAssignmentsLogic(ctx context.Context, db bun.IDB, compID, roundCode, recipeID string) (results.OperationResult[*GenerationResult, error], error) {
	recipe, err := s.recipes.Get(recipeID)
	if err != nil {
		return failureOrError[*GenerationResult](err, "resolve recipe")
	}

	row, err := s.repo.Get(ctx, db, compID)
	if err != nil {
		return failureOrError[*GenerationResult](err, "get competition")
	}

	run, err := s.runner.Run(row.Document, roundCode, recipe)
	if err != nil {
		return failureOrError[*GenerationResult](err, "run recipe")
	}

	if err := s.store(ctx, db, row, run.Competition); err != nil {
		return failureOrError[*GenerationResult](err, "store competition")
	}

	for _, step := range run.Steps {
		if s.metrics != nil && step.Produced > 0 {
			s.metrics.RecordAssignmentsGenerated(ctx, step.GeneratorID, step.Produced)
		}
	}
	s.logger.InfoContext(ctx, "Generated assignments",
		attr.ExtractCorrelationID(ctx),
		attr.CompetitionID(compID),
		attr.RoundCode(roundCode),
		attr.String("recipe_id", recipe.ID),
		attr.Int("produced", run.Produced()),
	)

	return results.SuccessResult[*GenerationResult, error](&GenerationResult{
		CompetitionID: compID,
		RoundCode:     roundCode,
		RecipeID:      recipe.ID,
		Revision:      row.Revision.String(),
		Produced:      run.Produced(),
		Steps:         run.Steps,
	}), nil
}

// CreateGroups rebuilds the groups of roundCode to exactly count per room.
// Assignments on removed groups are dropped with them.
func (s *CompetitionService) CreateGroups(ctx context.Context, compID, roundCode string, count int) (*GroupsResult, error) {
	groupsTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*GroupsResult, error], error) {
		return s.createGroupsLogic(ctx, db, compID, roundCode, count)
	}

	result, err := withTelemetry(s, ctx, "CreateGroups", compID+"/"+roundCode, func(ctx context.Context) (results.OperationResult[*GroupsResult, error], error) {
		return runInTx(s, ctx, groupsTx)
	})
	out, err := unwrapResult(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, competitionevents.GroupsCreatedV1, competitionevents.GroupsCreatedPayloadV1{
		CompetitionID:      out.CompetitionID,
		RoundCode:          out.RoundCode,
		Revision:           out.Revision,
		GroupCount:         count,
		CreatedActivityIDs: activityIDs(out.Created),
		RemovedActivityIDs: out.RemovedActivityIDs,
	})
	return out, nil
}

func (s *CompetitionService) createGroupsLogic(ctx context.Context, db bun.IDB, compID, roundCode string, count int) (results.OperationResult[*GroupsResult, error], error) {
	if _, err := comptypes.ValidateActivityCode(roundCode); err != nil {
		return failureOrError[*GroupsResult](err, "parse round code")
	}

	row, err := s.repo.Get(ctx, db, compID)
	if err != nil {
		return failureOrError[*GroupsResult](err, "get competition")
	}

	next, changes, err := schedule.CreateGroups(row.Document, roundCode, count)
	if err != nil {
		return failureOrError[*GroupsResult](err, "create groups")
	}
	next, removed := persons.RemoveAssignments(next, changes.RemovedIDs)

	if err := s.store(ctx, db, row, next); err != nil {
		return failureOrError[*GroupsResult](err, "store competition")
	}
	if s.metrics != nil {
		s.metrics.RecordGroupsCreated(ctx, roundCode, len(changes.Created))
	}

	return results.SuccessResult[*GroupsResult, error](&GroupsResult{
		CompetitionID:      compID,
		RoundCode:          roundCode,
		Revision:           row.Revision.String(),
		Created:            changes.Created,
		RemovedActivityIDs: changes.RemovedIDs,
		RemovedAssignments: removed,
	}), nil
}

// ResetRound removes every assignment on the groups of roundCode.
func (s *CompetitionService) ResetRound(ctx context.Context, compID, roundCode string) (*ResetResult, error) {
	resetTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ResetResult, error], error) {
		return s.resetRoundLogic(ctx, db, compID, roundCode)
	}

	result, err := withTelemetry(s, ctx, "ResetRound", compID+"/"+roundCode, func(ctx context.Context) (results.OperationResult[*ResetResult, error], error) {
		return runInTx(s, ctx, resetTx)
	})
	out, err := unwrapResult(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, competitionevents.RoundResetV1, competitionevents.RoundResetPayloadV1{
		CompetitionID:      out.CompetitionID,
		RoundCode:          out.RoundCode,
		Revision:           out.Revision,
		RemovedAssignments: out.RemovedAssignments,
	})
	return out, nil
}

func (s *CompetitionService) resetRoundLogic(ctx context.Context, db bun.IDB, compID, roundCode string) (results.OperationResult[*ResetResult, error], error) {
	if _, err := comptypes.ValidateActivityCode(roundCode); err != nil {
		return failureOrError[*ResetResult](err, "parse round code")
	}

	row, err := s.repo.Get(ctx, db, compID)
	if err != nil {
		return failureOrError[*ResetResult](err, "get competition")
	}
	if _, ok := row.Document.FindRound(roundCode); !ok {
		return results.FailureResult[*ResetResult, error](&comptypes.ResolutionError{
			Code:    comptypes.ErrCodeRoundNotFound,
			Message: fmt.Sprintf("no event declares round %s", roundCode),
			Err:     comptypes.ErrRoundNotFound,
		}), nil
	}

	ix := schedule.NewIndex(&row.Document)
	groupIDs := schedule.GroupIDs(ix.GroupActivitiesByRound(roundCode))
	next, removed := persons.RemoveAssignments(row.Document, groupIDs)

	if err := s.store(ctx, db, row, next); err != nil {
		return failureOrError[*ResetResult](err, "store competition")
	}

	return results.SuccessResult[*ResetResult, error](&ResetResult{
		CompetitionID:      compID,
		RoundCode:          roundCode,
		Revision:           row.Revision.String(),
		RemovedAssignments: removed,
	}), nil
}

func activityIDs(acts []comptypes.Activity) []int {
	ids := make([]int, 0, len(acts))
	for _, a := range acts {
		ids = append(ids, a.ID)
	}
	return ids
}
