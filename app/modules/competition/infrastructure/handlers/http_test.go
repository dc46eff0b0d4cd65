package competitionhandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	comptime "github.com/compstaff/compstaff/app/modules/competition/time_utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func serve(t *testing.T, h Handlers, opts RouteOptions, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	MountRoutes(r, h, opts)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestHandleGetCompetition(t *testing.T) {
	rev := uuid.New()

	tests := []struct {
		name         string
		setupService func(*FakeCompetitionService)
		wantStatus   int
		verify       func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name: "found",
			setupService: func(f *FakeCompetitionService) {
				f.GetCompetitionFunc = func(ctx context.Context, id string) (*competitiondb.Competition, error) {
					return &competitiondb.Competition{ID: id, Revision: rev, Document: comptypes.Competition{ID: id, Name: "Open 2026"}}, nil
				}
			},
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, `"`+rev.String()+`"`, rr.Header().Get("ETag"))
				var doc comptypes.Competition
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&doc))
				assert.Equal(t, "Open 2026", doc.Name)
			},
		},
		{
			name:         "not found",
			setupService: func(f *FakeCompetitionService) {},
			wantStatus:   http.StatusNotFound,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, "NOT_FOUND", decodeError(t, rr).Code)
			},
		},
		{
			name: "infrastructure errors are not leaked",
			setupService: func(f *FakeCompetitionService) {
				f.GetCompetitionFunc = func(ctx context.Context, id string) (*competitiondb.Competition, error) {
					return nil, errors.New("pq: password authentication failed")
				}
			},
			wantStatus: http.StatusInternalServerError,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, "Internal Server Error", decodeError(t, rr).Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeCompetitionService{}
			tt.setupService(svc)

			rr := serve(t, newTestHandlers(svc, nil), RouteOptions{}, httptest.NewRequest(http.MethodGet, "/api/competitions/Open2026", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			tt.verify(t, rr)
		})
	}
}

func TestHandlePutCompetition(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		ifMatch      string
		saveErr      error
		wantStatus   int
		wantExpected string
		wantCalled   bool
	}{
		{
			name:       "creates without precondition",
			body:       `{"name":"Open 2026","persons":[],"events":[],"schedule":{"venues":[]}}`,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:         "passes the If-Match revision",
			body:         `{"id":"Open2026","name":"Open 2026"}`,
			ifMatch:      `"4a6e1a3c-0f7e-4a51-9d8e-2f0c9a1b2c3d"`,
			wantStatus:   http.StatusOK,
			wantExpected: "4a6e1a3c-0f7e-4a51-9d8e-2f0c9a1b2c3d",
			wantCalled:   true,
		},
		{
			name:         "stale revision",
			body:         `{"id":"Open2026"}`,
			ifMatch:      `"old"`,
			saveErr:      competitiondb.ErrRevisionConflict,
			wantStatus:   http.StatusConflict,
			wantExpected: "old",
			wantCalled:   true,
		},
		{
			name:       "id mismatch",
			body:       `{"id":"Other2026"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"id":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotExpected string
			svc := &FakeCompetitionService{
				SaveCompetitionFunc: func(ctx context.Context, doc comptypes.Competition, expectedRevision string) (*competitiondb.Competition, error) {
					called = true
					gotExpected = expectedRevision
					assert.Equal(t, "Open2026", doc.ID)
					if tt.saveErr != nil {
						return nil, tt.saveErr
					}
					return &competitiondb.Competition{ID: doc.ID, Name: doc.Name, Revision: uuid.New(), Document: doc}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPut, "/api/competitions/Open2026", strings.NewReader(tt.body))
			if tt.ifMatch != "" {
				req.Header.Set("If-Match", tt.ifMatch)
			}
			rr := serve(t, newTestHandlers(svc, nil), RouteOptions{}, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantExpected, gotExpected)
			if rr.Code == http.StatusOK {
				assert.NotEmpty(t, rr.Header().Get("ETag"))
			}
		})
	}
}

func TestRoundEndpoints(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		body         string
		setupService func(*FakeCompetitionService, *[]string)
		wantStatus   int
		wantCode     string
		wantCalls    []string
	}{
		{
			name:   "generate with explicit recipe",
			method: http.MethodPost,
			path:   "/api/competitions/Open2026/rounds/333-r1/assignments",
			body:   `{"recipeId":"seeded"}`,
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
					*calls = append(*calls, compID+"|"+roundCode+"|"+recipeID)
					return &competitionservice.GenerationResult{Produced: 4}, nil
				}
			},
			wantStatus: http.StatusOK,
			wantCalls:  []string{"Open2026|333-r1|seeded"},
		},
		{
			name:   "generate with empty body uses the default recipe",
			method: http.MethodPost,
			path:   "/api/competitions/Open2026/rounds/333-r1/assignments",
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
					*calls = append(*calls, compID+"|"+roundCode+"|"+recipeID)
					return &competitionservice.GenerationResult{}, nil
				}
			},
			wantStatus: http.StatusOK,
			wantCalls:  []string{"Open2026|333-r1|"},
		},
		{
			name:   "unknown recipe",
			method: http.MethodPost,
			path:   "/api/competitions/Open2026/rounds/333-r1/assignments",
			body:   `{"recipeId":"nope"}`,
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, compID, roundCode, recipeID string) (*competitionservice.GenerationResult, error) {
					return nil, generators.ErrUnknownRecipe
				}
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_RECIPE",
		},
		{
			name:   "reset unknown round",
			method: http.MethodDelete,
			path:   "/api/competitions/Open2026/rounds/444-r1/assignments",
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.ResetRoundFunc = func(ctx context.Context, compID, roundCode string) (*competitionservice.ResetResult, error) {
					return nil, &comptypes.ResolutionError{Code: comptypes.ErrCodeRoundNotFound, Message: "no event declares round 444-r1", Err: comptypes.ErrRoundNotFound}
				}
			},
			wantStatus: http.StatusNotFound,
			wantCode:   comptypes.ErrCodeRoundNotFound,
		},
		{
			name:   "groups count is passed through",
			method: http.MethodPost,
			path:   "/api/competitions/Open2026/rounds/333-r1/groups",
			body:   `{"count":3}`,
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.CreateGroupsFunc = func(ctx context.Context, compID, roundCode string, count int) (*competitionservice.GroupsResult, error) {
					*calls = append(*calls, roundCode+"|"+strconv.Itoa(count))
					return &competitionservice.GroupsResult{}, nil
				}
			},
			wantStatus: http.StatusOK,
			wantCalls:  []string{"333-r1|3"},
		},
		{
			name:   "non-positive group count",
			method: http.MethodPost,
			path:   "/api/competitions/Open2026/rounds/333-r1/groups",
			body:   `{"count":0}`,
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.CreateGroupsFunc = func(ctx context.Context, compID, roundCode string, count int) (*competitionservice.GroupsResult, error) {
					return nil, &comptypes.PreconditionError{Code: comptypes.ErrCodeNoGroups, Message: "group count must be positive, got 0"}
				}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   comptypes.ErrCodeNoGroups,
		},
		{
			name:   "malformed round code",
			method: http.MethodDelete,
			path:   "/api/competitions/Open2026/rounds/bogus/assignments",
			setupService: func(f *FakeCompetitionService, calls *[]string) {
				f.ResetRoundFunc = func(ctx context.Context, compID, roundCode string) (*competitionservice.ResetResult, error) {
					return nil, &comptypes.ParseError{Code: comptypes.ErrCodeMalformedActivityCode, Input: roundCode, Message: "malformed activity code"}
				}
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   comptypes.ErrCodeMalformedActivityCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			svc := &FakeCompetitionService{}
			tt.setupService(svc, &calls)

			rr := serve(t, newTestHandlers(svc, nil), RouteOptions{}, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
			}
		})
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportEndpoints(t *testing.T) {
	const sheet = "email,333\nada@example.com,1\n"

	t.Run("apply forwards the uploaded file", func(t *testing.T) {
		var gotName, gotData string
		svc := &FakeCompetitionService{
			ApplyImportFunc: func(ctx context.Context, compID, filename string, data []byte) (*competitionservice.ImportResult, error) {
				gotName, gotData = filename, string(data)
				return &competitionservice.ImportResult{CompetitionID: compID, Assignments: 1}, nil
			},
		}
		body, contentType := multipartBody(t, importFormField, "groups.csv", sheet)
		req := httptest.NewRequest(http.MethodPost, "/api/competitions/Open2026/import", body)
		req.Header.Set("Content-Type", contentType)

		rr := serve(t, newTestHandlers(svc, nil), RouteOptions{}, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "groups.csv", gotName)
		assert.Equal(t, sheet, gotData)
		var res competitionservice.ImportResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, 1, res.Assignments)
		assert.NotNil(t, res.Reports)
	})

	t.Run("preview returns reports", func(t *testing.T) {
		svc := &FakeCompetitionService{
			PreviewImportFunc: func(ctx context.Context, compID, filename string, data []byte) ([]comptypes.Report, error) {
				return []comptypes.Report{{Type: comptypes.ReportUnknownEmail, Key: "ada@example.com"}}, nil
			},
		}
		body, contentType := multipartBody(t, importFormField, "groups.csv", sheet)
		req := httptest.NewRequest(http.MethodPost, "/api/competitions/Open2026/import/preview", body)
		req.Header.Set("Content-Type", contentType)

		rr := serve(t, newTestHandlers(svc, nil), RouteOptions{}, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var res map[string][]comptypes.Report
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		require.Len(t, res["reports"], 1)
		assert.Equal(t, comptypes.ReportUnknownEmail, res["reports"][0].Type)
	})

	t.Run("missing file", func(t *testing.T) {
		body, contentType := multipartBody(t, "", "", "")
		req := httptest.NewRequest(http.MethodPost, "/api/competitions/Open2026/import", body)
		req.Header.Set("Content-Type", contentType)

		rr := serve(t, newTestHandlers(&FakeCompetitionService{}, nil), RouteOptions{}, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_IMPORT_FILE", decodeError(t, rr).Code)
	})
}

func TestHandleValidation(t *testing.T) {
	rr := serve(t, newTestHandlers(&FakeCompetitionService{}, nil), RouteOptions{},
		httptest.NewRequest(http.MethodGet, "/api/competitions/Open2026/validation", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"reports":[]}`, rr.Body.String())
}

func TestHandleScheduleGeneration(t *testing.T) {
	now := time.Date(2027, 6, 5, 12, 0, 0, 0, time.UTC)
	svc := &FakeCompetitionService{
		GetCompetitionFunc: func(ctx context.Context, id string) (*competitiondb.Competition, error) {
			doc := comptypes.Competition{ID: id, Schedule: comptypes.Schedule{Venues: []comptypes.Venue{{ID: 1, Timezone: "UTC"}}}}
			return &competitiondb.Competition{ID: id, Document: doc}, nil
		},
	}

	newHandlers := func(scheduler Scheduler) Handlers {
		return NewCompetitionHandlers(svc, scheduler,
			&comptime.FakeClock{NowFn: func() time.Time { return now }},
			slog.New(slog.NewTextHandler(io.Discard, nil)),
			noop.NewTracerProvider().Tracer("test"),
		)
	}
	post := func(h Handlers, body string) *httptest.ResponseRecorder {
		return serve(t, h, RouteOptions{}, httptest.NewRequest(http.MethodPost, "/api/competitions/Open2026/rounds/333-r1/schedule", strings.NewReader(body)))
	}

	t.Run("queue disabled", func(t *testing.T) {
		rr := post(newHandlers(nil), `{"at":"2027-06-05 15:00"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("schedules in the venue timezone", func(t *testing.T) {
		scheduler := &FakeScheduler{}
		rr := post(newHandlers(scheduler), `{"at":"2027-06-05 15:00","recipeId":"default"}`)

		require.Equal(t, http.StatusAccepted, rr.Code)
		require.Len(t, scheduler.Scheduled, 1)
		assert.Equal(t, scheduledCall{
			CompetitionID: "Open2026",
			RoundCode:     "333-r1",
			RecipeID:      "default",
			At:            time.Date(2027, 6, 5, 15, 0, 0, 0, time.UTC),
		}, scheduler.Scheduled[0])
	})

	t.Run("time in the past", func(t *testing.T) {
		scheduler := &FakeScheduler{}
		rr := post(newHandlers(scheduler), `{"at":"2027-06-05 09:00"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_SCHEDULE_TIME", decodeError(t, rr).Code)
		assert.Empty(t, scheduler.Scheduled)
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("preflight from an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/competitions/Open2026", nil)
		req.Header.Set("Origin", "https://staff.example.com")

		rr := serve(t, newTestHandlers(&FakeCompetitionService{}, nil), RouteOptions{AllowedOrigins: []string{"https://staff.example.com"}}, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://staff.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "If-Match")
	})

	t.Run("other origins get no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		rr := serve(t, newTestHandlers(&FakeCompetitionService{}, nil), RouteOptions{AllowedOrigins: []string{"https://staff.example.com"}}, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("rate limit per client", func(t *testing.T) {
		r := chi.NewRouter()
		MountRoutes(r, newTestHandlers(&FakeCompetitionService{}, nil), RouteOptions{RateLimit: 0.001, Burst: 1})

		codes := make([]int, 0, 3)
		for _, addr := range []string{"10.0.0.1:1234", "10.0.0.1:5678", "10.0.0.2:1234"} {
			req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
			req.RemoteAddr = addr
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)
	})
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	limiter := NewClientLimiter(1, 1)
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	for i := 0; i <= sweepAbove; i++ {
		limiter.Limiter(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	require.Greater(t, len(limiter.buckets), sweepAbove)

	clock = clock.Add(idleAfter + time.Minute)
	limiter.Limiter("192.168.1.1")

	assert.Len(t, limiter.buckets, 1)
}
