package competitionhandlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	"github.com/compstaff/compstaff/app/modules/competition/application/importer"
	"github.com/compstaff/compstaff/app/modules/competition/application/importer/parsers"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	comptime "github.com/compstaff/compstaff/app/modules/competition/time_utils"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/go-chi/chi/v5"
)

const (
	maxDocumentBytes = 32 << 20
	maxImportBytes   = 10 << 20
	importFormField  = "file"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type competitionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Revision  string `json:"revision"`
	UpdatedAt string `json:"updatedAt"`
}

type generateRequest struct {
	RecipeID string `json:"recipeId"`
}

type groupsRequest struct {
	Count int `json:"count"`
}

type scheduleRequest struct {
	At       string `json:"at"`
	RecipeID string `json:"recipeId"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps an error returned by the service onto an HTTP status and a
// machine-readable code.
func statusFor(err error) (int, string) {
	var parseErr *comptypes.ParseError
	var resolutionErr *comptypes.ResolutionError
	var preconditionErr *comptypes.PreconditionError
	switch {
	case errors.Is(err, competitiondb.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, competitiondb.ErrRevisionConflict):
		return http.StatusConflict, "REVISION_CONFLICT"
	case errors.Is(err, competitiondb.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, parseErr.Code
	case errors.As(err, &resolutionErr):
		return http.StatusNotFound, resolutionErr.Code
	case errors.As(err, &preconditionErr):
		return http.StatusUnprocessableEntity, preconditionErr.Code
	case errors.Is(err, generators.ErrUnknownRecipe),
		errors.Is(err, generators.ErrUnknownGenerator):
		return http.StatusBadRequest, "UNKNOWN_RECIPE"
	case errors.Is(err, parsers.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrNoTable),
		errors.Is(err, competitionservice.ErrInvalidImportFile):
		return http.StatusBadRequest, "INVALID_IMPORT_FILE"
	case errors.Is(err, competitionservice.ErrMissingID):
		return http.StatusBadRequest, "MISSING_ID"
	case errors.Is(err, competitionqueue.ErrTooSoon),
		errors.Is(err, comptime.ErrNotInFuture):
		return http.StatusBadRequest, "INVALID_SCHEDULE_TIME"
	}
	return http.StatusInternalServerError, ""
}

func (h *CompetitionHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			attr.String("method", r.Method),
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// decodeOptional decodes a JSON body into v, treating an empty body as {}.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *CompetitionHandlers) HandleListCompetitions(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleListCompetitions")
	defer span.End()

	rows, err := h.service.ListCompetitions(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]competitionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, competitionResponse{
			ID:        row.ID,
			Name:      row.Name,
			Revision:  row.Revision.String(),
			UpdatedAt: row.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetCompetition returns the stored document with its revision as ETag.
func (h *CompetitionHandlers) HandleGetCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleGetCompetition")
	defer span.End()

	row, err := h.service.GetCompetition(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+row.Revision.String()+`"`)
	writeJSON(w, http.StatusOK, row.Document)
}

// HandlePutCompetition stores the document in the body. An If-Match header
// makes the write conditional on the stored revision.
func (h *CompetitionHandlers) HandlePutCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandlePutCompetition")
	defer span.End()

	var doc comptypes.Competition
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid competition document", Code: "INVALID_DOCUMENT"})
		return
	}
	id := chi.URLParam(r, "id")
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "document id does not match path", Code: "ID_MISMATCH"})
		return
	}

	row, err := h.service.SaveCompetition(ctx, doc, unquoteETag(r.Header.Get("If-Match")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+row.Revision.String()+`"`)
	writeJSON(w, http.StatusOK, competitionResponse{
		ID:        row.ID,
		Name:      row.Name,
		Revision:  row.Revision.String(),
		UpdatedAt: row.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *CompetitionHandlers) HandleDeleteCompetition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleDeleteCompetition")
	defer span.End()

	if err := h.service.DeleteCompetition(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompetitionHandlers) HandleGenerateAssignments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleGenerateAssignments")
	defer span.End()

	var req generateRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.service.GenerateAssignments(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "round"), req.RecipeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CompetitionHandlers) HandleResetRound(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleResetRound")
	defer span.End()

	res, err := h.service.ResetRound(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "round"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CompetitionHandlers) HandleCreateGroups(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleCreateGroups")
	defer span.End()

	var req groupsRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.service.CreateGroups(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "round"), req.Count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleScheduleGeneration queues a recipe run. The "at" field is read in the
// timezone of the competition's venue.
func (h *CompetitionHandlers) HandleScheduleGeneration(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleScheduleGeneration")
	defer span.End()

	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "job queue is disabled"})
		return
	}

	var req scheduleRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	compID, roundCode := chi.URLParam(r, "id"), chi.URLParam(r, "round")
	if _, err := comptypes.ValidateActivityCode(roundCode); err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.service.GetCompetition(ctx, compID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loc, err := comptime.VenueLocation(row.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.timeParser.ParseScheduleTime(req.At, loc, h.clock)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_SCHEDULE_TIME"})
		return
	}

	job, err := h.scheduler.ScheduleGeneration(ctx, compID, roundCode, req.RecipeID, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *CompetitionHandlers) HandleCancelScheduledGeneration(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleCancelScheduledGeneration")
	defer span.End()

	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "job queue is disabled"})
		return
	}
	n, err := h.scheduler.CancelGeneration(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "round"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

func (h *CompetitionHandlers) HandleListScheduledJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleListScheduledJobs")
	defer span.End()

	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "job queue is disabled"})
		return
	}
	jobs, err := h.scheduler.GetScheduledJobs(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *CompetitionHandlers) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"recipes": h.service.Recipes()})
}

// readImportFile returns the uploaded file from the multipart form.
func readImportFile(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile(importFormField)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func (h *CompetitionHandlers) HandlePreviewImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandlePreviewImport")
	defer span.End()

	filename, data, err := readImportFile(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a file upload is required", Code: "INVALID_IMPORT_FILE"})
		return
	}

	reports, err := h.service.PreviewImport(ctx, chi.URLParam(r, "id"), filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]comptypes.Report{"reports": nonNil(reports)})
}

func (h *CompetitionHandlers) HandleApplyImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleApplyImport")
	defer span.End()

	filename, data, err := readImportFile(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a file upload is required", Code: "INVALID_IMPORT_FILE"})
		return
	}

	res, err := h.service.ApplyImport(ctx, chi.URLParam(r, "id"), filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res.Reports = nonNil(res.Reports)
	writeJSON(w, http.StatusOK, res)
}

func (h *CompetitionHandlers) HandleValidation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompetitionHandlers.HandleValidation")
	defer span.End()

	reports, err := h.service.ValidateCompetition(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]comptypes.Report{"reports": nonNil(reports)})
}

func unquoteETag(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func nonNil(reports []comptypes.Report) []comptypes.Report {
	if reports == nil {
		return []comptypes.Report{}
	}
	return reports
}
