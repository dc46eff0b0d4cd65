package competitionhandlers

import (
	"context"
	"net/http"

	"github.com/compstaff/compstaff/app/eventbus"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
)

// Handlers defines the interface for competition event and HTTP handlers.
type Handlers interface {
	// HandleGenerateAssignmentsRequested runs a recipe requested over the bus.
	HandleGenerateAssignmentsRequested(ctx context.Context, payload *competitionevents.GenerateAssignmentsRequestedPayloadV1) ([]eventbus.Result, error)

	// HandleValidateRequested validates a stored competition requested over the bus.
	HandleValidateRequested(ctx context.Context, payload *competitionevents.ValidateRequestedPayloadV1) ([]eventbus.Result, error)

	// Documents
	HandleListCompetitions(w http.ResponseWriter, r *http.Request)
	HandleGetCompetition(w http.ResponseWriter, r *http.Request)
	HandlePutCompetition(w http.ResponseWriter, r *http.Request)
	HandleDeleteCompetition(w http.ResponseWriter, r *http.Request)

	// Rounds
	HandleGenerateAssignments(w http.ResponseWriter, r *http.Request)
	HandleResetRound(w http.ResponseWriter, r *http.Request)
	HandleCreateGroups(w http.ResponseWriter, r *http.Request)
	HandleScheduleGeneration(w http.ResponseWriter, r *http.Request)
	HandleCancelScheduledGeneration(w http.ResponseWriter, r *http.Request)
	HandleListScheduledJobs(w http.ResponseWriter, r *http.Request)
	HandleListRecipes(w http.ResponseWriter, r *http.Request)

	// Import and validation
	HandlePreviewImport(w http.ResponseWriter, r *http.Request)
	HandleApplyImport(w http.ResponseWriter, r *http.Request)
	HandleValidation(w http.ResponseWriter, r *http.Request)
}
