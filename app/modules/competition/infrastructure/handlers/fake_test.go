package competitionhandlers

import (
	"context"
	"time"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
)

// ------------------------
// Fake Competition Service
// ------------------------

type FakeCompetitionService struct {
	GetCompetitionFunc      func(ctx context.Context, id string) (*competitiondb.Competition, error)
	ListCompetitionsFunc    func(ctx context.Context) ([]competitiondb.Summary, error)
	SaveCompetitionFunc     func(ctx context.Context, doc comptypes.Competition, expectedRevision string) (*competitiondb.Competition, error)
	DeleteCompetitionFunc   func(ctx context.Context, id string) error
	GenerateAssignmentsFunc func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error)
	CreateGroupsFunc        func(ctx context.Context, compID, roundCode string, count int) (*competitionservice.GroupsResult, error)
	ResetRoundFunc          func(ctx context.Context, compID, roundCode string) (*competitionservice.ResetResult, error)
	PreviewImportFunc       func(ctx context.Context, compID, filename string, data []byte) ([]comptypes.Report, error)
	ApplyImportFunc         func(ctx context.Context, compID, filename string, data []byte) (*competitionservice.ImportResult, error)
	ValidateCompetitionFunc func(ctx context.Context, compID string) ([]comptypes.Report, error)
}

func (f *FakeCompetitionService) GetCompetition(ctx context.Context, id string) (*competitiondb.Competition, error) {
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, id)
	}
	return nil, competitiondb.ErrNotFound
}

func (f *FakeCompetitionService) ListCompetitions(ctx context.Context) ([]competitiondb.Summary, error) {
	if f.ListCompetitionsFunc != nil {
		return f.ListCompetitionsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeCompetitionService) SaveCompetition(ctx context.Context, doc comptypes.Competition, expectedRevision string) (*competitiondb.Competition, error) {
	if f.SaveCompetitionFunc != nil {
		return f.SaveCompetitionFunc(ctx, doc, expectedRevision)
	}
	return &competitiondb.Competition{ID: doc.ID, Name: doc.Name, Document: doc}, nil
}

func (f *FakeCompetitionService) DeleteCompetition(ctx context.Context, id string) error {
	if f.DeleteCompetitionFunc != nil {
		return f.DeleteCompetitionFunc(ctx, id)
	}
	return nil
}

func (f *FakeCompetitionService) GenerateAssignments(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
	if f.GenerateAssignmentsFunc != nil {
		return f.GenerateAssignmentsFunc(ctx, compID, roundCode, recipeID)
	}
	return &competitionservice.GenerationResult{CompetitionID: compID, RoundCode: roundCode, RecipeID: recipeID}, nil
}

func (f *FakeCompetitionService) CreateGroups(ctx context.Context, compID, roundCode string, count int) (*competitionservice.GroupsResult, error) {
	if f.CreateGroupsFunc != nil {
		return f.CreateGroupsFunc(ctx, compID, roundCode, count)
	}
	return &competitionservice.GroupsResult{CompetitionID: compID, RoundCode: roundCode}, nil
}

func (f *FakeCompetitionService) ResetRound(ctx context.Context, compID, roundCode string) (*competitionservice.ResetResult, error) {
	if f.ResetRoundFunc != nil {
		return f.ResetRoundFunc(ctx, compID, roundCode)
	}
	return &competitionservice.ResetResult{CompetitionID: compID, RoundCode: roundCode}, nil
}

func (f *FakeCompetitionService) Recipes() []string {
	return []string{"default"}
}

func (f *FakeCompetitionService) PreviewImport(ctx context.Context, compID, filename string, data []byte) ([]comptypes.Report, error) {
	if f.PreviewImportFunc != nil {
		return f.PreviewImportFunc(ctx, compID, filename, data)
	}
	return nil, nil
}

func (f *FakeCompetitionService) ApplyImport(ctx context.Context, compID, filename string, data []byte) (*competitionservice.ImportResult, error) {
	if f.ApplyImportFunc != nil {
		return f.ApplyImportFunc(ctx, compID, filename, data)
	}
	return &competitionservice.ImportResult{CompetitionID: compID}, nil
}

func (f *FakeCompetitionService) ValidateCompetition(ctx context.Context, compID string) ([]comptypes.Report, error) {
	if f.ValidateCompetitionFunc != nil {
		return f.ValidateCompetitionFunc(ctx, compID)
	}
	return nil, nil
}

var _ competitionservice.Service = (*FakeCompetitionService)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type scheduledCall struct {
	CompetitionID string
	RoundCode     string
	RecipeID      string
	At            time.Time
}

type FakeScheduler struct {
	Scheduled []scheduledCall
	Err       error
}

func (f *FakeScheduler) ScheduleGeneration(ctx context.Context, compID, roundCode, recipeID string, at time.Time) (*competitionqueue.JobInfo, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.Scheduled = append(f.Scheduled, scheduledCall{compID, roundCode, recipeID, at})
	return &competitionqueue.JobInfo{
		ID:            int64(len(f.Scheduled)),
		Kind:          competitionqueue.GenerateAssignmentsJob{}.Kind(),
		CompetitionID: compID,
		RoundCode:     roundCode,
		RecipeID:      recipeID,
		State:         "scheduled",
		ScheduledAt:   at.Format(time.RFC3339),
	}, nil
}

func (f *FakeScheduler) CancelGeneration(ctx context.Context, compID, roundCode string) (int, error) {
	return len(f.Scheduled), f.Err
}

func (f *FakeScheduler) GetScheduledJobs(ctx context.Context, compID string) ([]competitionqueue.JobInfo, error) {
	return nil, f.Err
}

var _ Scheduler = (*FakeScheduler)(nil)
