// Package competitionevents names the competition topics and their payloads.
package competitionevents

import (
	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// Commands consumed by the competition router.
const (
	GenerateAssignmentsRequestedV1 = "competition.assignments.generate.requested.v1"
	ValidateRequestedV1            = "competition.validate.requested.v1"
)

// Outcome events published by the competition service and router.
const (
	AssignmentsGeneratedV1        = "competition.assignments.generated.v1"
	AssignmentsGenerationFailedV1 = "competition.assignments.generate.failed.v1"
	GroupsCreatedV1               = "competition.groups.created.v1"
	RoundResetV1                  = "competition.round.reset.v1"
	ImportAppliedV1               = "competition.import.applied.v1"
	ValidatedV1                   = "competition.validated.v1"
)

type GenerateAssignmentsRequestedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	RecipeID      string `json:"recipe_id,omitempty"`
}

type AssignmentsGeneratedPayloadV1 struct {
	CompetitionID string                  `json:"competition_id"`
	RoundCode     string                  `json:"round_code"`
	RecipeID      string                  `json:"recipe_id"`
	Revision      string                  `json:"revision"`
	Produced      int                     `json:"produced"`
	Steps         []generators.StepReport `json:"steps"`
}

type AssignmentsGenerationFailedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	RecipeID      string `json:"recipe_id,omitempty"`
	Reason        string `json:"reason"`
}

type GroupsCreatedPayloadV1 struct {
	CompetitionID      string `json:"competition_id"`
	RoundCode          string `json:"round_code"`
	Revision           string `json:"revision"`
	GroupCount         int    `json:"group_count"`
	CreatedActivityIDs []int  `json:"created_activity_ids,omitempty"`
	RemovedActivityIDs []int  `json:"removed_activity_ids,omitempty"`
}

type RoundResetPayloadV1 struct {
	CompetitionID      string `json:"competition_id"`
	RoundCode          string `json:"round_code"`
	Revision           string `json:"revision"`
	RemovedAssignments int    `json:"removed_assignments"`
}

type ImportAppliedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
	Revision      string `json:"revision"`
	Assignments   int    `json:"assignments"`
	CreatedGroups int    `json:"created_groups"`
	Reports       int    `json:"reports"`
}

type ValidateRequestedPayloadV1 struct {
	CompetitionID string `json:"competition_id"`
}

type ValidatedPayloadV1 struct {
	CompetitionID string             `json:"competition_id"`
	Reports       []comptypes.Report `json:"reports"`
}
