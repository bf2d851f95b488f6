package cases

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/copperline/arbiter/internal/oversight"
	"github.com/copperline/arbiter/pkg/handlers"
	"github.com/copperline/arbiter/pkg/pagination"
	"github.com/copperline/arbiter/pkg/routes"
)

var (
	errInvalidCaseID = errors.New("invalid case id")
	errInvalidBody   = errors.New("invalid request body")
)

// Handler provides HTTP endpoints for case operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// CaseResponse wraps a case with the evidence kinds still required before
// validation can run.
type CaseResponse struct {
	*Case
	MissingEvidence []string `json:"missing_evidence"`
}

// AdvanceResponse reports the phase an advance call landed on.
type AdvanceResponse struct {
	CaseID uuid.UUID `json:"case_id"`
	Phase  Phase     `json:"phase"`
}

// NewHandler creates a Handler with the given system, logger, pagination
// config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "cases"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definitions for case endpoints. The review
// decision route lives here rather than with the review queue because a
// decision resolves the review and moves the owning case in one call.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/cases",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.List},
				{Method: "GET", Pattern: "/{id}", Handler: h.Find},
				{Method: "POST", Pattern: "", Handler: h.Create},
				{Method: "POST", Pattern: "/search", Handler: h.Search},
				{Method: "POST", Pattern: "/{id}/advance", Handler: h.Advance},
				{Method: "POST", Pattern: "/{id}/evidence", Handler: h.AppendEvidence},
				{Method: "POST", Pattern: "/{id}/validate", Handler: h.Validate},
				{Method: "POST", Pattern: "/validate", Handler: h.ValidateBatch},
			},
		},
		{
			Prefix: "/reviews",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/{id}/decision", Handler: h.Decide},
			},
		},
	}
}

// Decide resolves a pending review with an approve or reject decision and
// moves the owning case out of PendingReview.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid review id"))
		return
	}

	var cmd DecisionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	c, err := h.sys.RecordHumanDecision(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, mapDecisionStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// List returns a paginated list of cases with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single case by its UUID path parameter, including the
// evidence kinds still missing for its classified reason.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	c, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CaseResponse{
		Case:            c,
		MissingEvidence: MissingEvidence(c),
	})
}

// Create opens a new case from a JSON command body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	c, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, c)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching cases.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Advance executes one phase transition and returns the phase the case
// landed on. Conflicts (version races, pending reviews, incomplete
// evidence) surface as typed errors for the caller to retry or resolve.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	phase, err := h.sys.Advance(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, AdvanceResponse{CaseID: id, Phase: phase})
}

// AppendEvidence records one evidence entry from a multipart form. The
// "kind" field names the evidence type; either "content" (inline text) or
// "file" (attachment routed to blob storage) supplies the value.
func (h *Handler) AppendEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
		return
	}

	kind := r.FormValue("kind")
	content := r.FormValue("content")

	var (
		attachment  io.Reader
		contentType string
	)
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		attachment = file
		contentType = header.Header.Get("Content-Type")
	}

	c, err := h.sys.AppendEvidence(r.Context(), id, kind, content, attachment, contentType)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CaseResponse{
		Case:            c,
		MissingEvidence: MissingEvidence(c),
	})
}

// BatchValidateRequest names the cases to run the panel over.
type BatchValidateRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// ValidateBatch runs the judge panel over the named cases with bounded
// concurrency and returns the per-case results without changing any phase.
func (h *Handler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}
	if len(req.IDs) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("at least one case id required"))
		return
	}

	results, err := h.sys.ValidateBatch(r.Context(), req.IDs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}

// mapDecisionStatus folds review-queue errors into the case error mapping;
// a decision call can fail on either side of that boundary.
func mapDecisionStatus(err error) int {
	if status := oversight.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return MapHTTPStatus(err)
}

// Validate runs the judge panel against the case's current evidence and
// returns the aggregate result without changing phase.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	result, err := h.sys.Validate(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
