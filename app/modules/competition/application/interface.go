package competitionservice

import (
	"context"

	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
)

// Service is the competition service: it loads a stored document, runs an
// engine operation on it, stores the result and announces it.
type Service interface {
	// Documents
	GetCompetition(ctx context.Context, id string) (*competitiondb.Competition, error)
	ListCompetitions(ctx context.Context) ([]competitiondb.Summary, error)
	SaveCompetition(ctx context.Context, doc comptypes.Competition, expectedRevision string) (*competitiondb.Competition, error)
	DeleteCompetition(ctx context.Context, id string) error

	// Assignment generation and group management
	GenerateAssignments(ctx context.Context, compID, roundCode, recipeID string) (*GenerationResult, error)
	CreateGroups(ctx context.Context, compID, roundCode string, count int) (*GroupsResult, error)
	ResetRound(ctx context.Context, compID, roundCode string) (*ResetResult, error)
	Recipes() []string

	// Import
	PreviewImport(ctx context.Context, compID, filename string, data []byte) ([]comptypes.Report, error)
	ApplyImport(ctx context.Context, compID, filename string, data []byte) (*ImportResult, error)

	// Validation
	ValidateCompetition(ctx context.Context, compID string) ([]comptypes.Report, error)
}

// GenerationResult summarises a generator pipeline run that was stored.
type GenerationResult struct {
	CompetitionID string                  `json:"competitionId"`
	RoundCode     string                  `json:"roundCode"`
	RecipeID      string                  `json:"recipeId"`
	Revision      string                  `json:"revision"`
	Produced      int                     `json:"produced"`
	Steps         []generators.StepReport `json:"steps"`
}

// GroupsResult describes a stored group rebuild.
type GroupsResult struct {
	CompetitionID      string               `json:"competitionId"`
	RoundCode          string               `json:"roundCode"`
	Revision           string               `json:"revision"`
	Created            []comptypes.Activity `json:"created"`
	RemovedActivityIDs []int                `json:"removedActivityIds"`
	RemovedAssignments int                  `json:"removedAssignments"`
}

// ResetResult describes a stored round reset.
type ResetResult struct {
	CompetitionID      string `json:"competitionId"`
	RoundCode          string `json:"roundCode"`
	Revision           string `json:"revision"`
	RemovedAssignments int    `json:"removedAssignments"`
}

// ImportResult describes a stored import.
type ImportResult struct {
	CompetitionID string               `json:"competitionId"`
	Revision      string               `json:"revision"`
	Assignments   int                  `json:"assignments"`
	CreatedGroups []comptypes.Activity `json:"createdGroups"`
	Reports       []comptypes.Report   `json:"reports"`
}
