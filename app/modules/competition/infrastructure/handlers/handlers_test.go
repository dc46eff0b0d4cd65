package competitionhandlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestHandlers(svc *FakeCompetitionService, scheduler Scheduler) Handlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewCompetitionHandlers(svc, scheduler, nil, logger, tracer)
}

func TestHandleGenerateAssignmentsRequested(t *testing.T) {
	payload := &competitionevents.GenerateAssignmentsRequestedPayloadV1{
		CompetitionID: "Open2026",
		RoundCode:     "333-r1",
		RecipeID:      "default",
	}

	tests := []struct {
		name         string
		setupService func(*FakeCompetitionService)
		wantResults  int
		wantErr      bool
	}{
		{
			name:         "happy path - service announces success",
			setupService: func(f *FakeCompetitionService) {},
			wantResults:  0,
		},
		{
			name: "round without groups answers with a failure event",
			setupService: func(f *FakeCompetitionService) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
					return nil, &comptypes.PreconditionError{Code: comptypes.ErrCodeNoGroups, Message: "round 333-r1 has no groups"}
				}
			},
			wantResults: 1,
		},
		{
			name: "database error is returned for redelivery",
			setupService: func(f *FakeCompetitionService) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
					return nil, errors.New("database error")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeCompetitionService{}
			tt.setupService(svc)
			h := newTestHandlers(svc, nil)

			results, err := h.HandleGenerateAssignmentsRequested(context.Background(), payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, tt.wantResults)
			if tt.wantResults == 1 {
				assert.Equal(t, competitionevents.AssignmentsGenerationFailedV1, results[0].Topic)
				failed, ok := results[0].Payload.(*competitionevents.AssignmentsGenerationFailedPayloadV1)
				require.True(t, ok)
				assert.Equal(t, "Open2026", failed.CompetitionID)
				assert.Equal(t, "round 333-r1 has no groups", failed.Reason)
			}
		})
	}
}

func TestHandleValidateRequested(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "validated"},
		{name: "unknown competition is dropped", err: competitiondb.ErrNotFound},
		{name: "database error", err: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &FakeCompetitionService{
				ValidateCompetitionFunc: func(ctx context.Context, compID string) ([]comptypes.Report, error) {
					gotID = compID
					return nil, tt.err
				},
			}
			h := newTestHandlers(svc, nil)

			results, err := h.HandleValidateRequested(context.Background(), &competitionevents.ValidateRequestedPayloadV1{CompetitionID: "Open2026"})
			assert.Equal(t, "Open2026", gotID)
			assert.Empty(t, results)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
