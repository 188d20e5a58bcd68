package books

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/handlers"
	"github.com/JaimeStill/fable/pkg/middleware"
	"github.com/JaimeStill/fable/pkg/pagination"
	"github.com/JaimeStill/fable/pkg/routes"
)

// Handler exposes the workflow action surface consumed by the LLM
// tool-calling transport, plus the read endpoints for the presentation
// UI. Every action result is a structured envelope: expected failures
// come back as {success:false, error} bodies the agent can act on, not
// bare server errors.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	maxPayload int64
}

// NewHandler creates a Handler with the given system, logger, pagination
// config, and request body cap.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config, maxPayload int64) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "books"),
		pagination: pagination,
		maxPayload: maxPayload,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayload)
	return json.NewDecoder(r.Body).Decode(v)
}

// Routes returns the route group definition for workflow endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/books",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/initialize", Handler: h.Initialize},
			{Method: "POST", Pattern: "/{id}/steps/{step}", Handler: h.UpdateStep},
			{Method: "POST", Pattern: "/{id}/steps/{step}/approve", Handler: h.ApproveStep},
			{Method: "POST", Pattern: "/{id}/steps/{step}/regenerate", Handler: h.Regenerate},
			{Method: "POST", Pattern: "/{id}/finalize", Handler: h.Finalize},
		},
	}
}

type initializeResponse struct {
	Success       bool       `json:"success"`
	Created       bool       `json:"created"`
	BookID        uuid.UUID  `json:"bookId"`
	ArtifactState *BookState `json:"artifactState"`
}

type stateResponse struct {
	Success       bool       `json:"success"`
	ArtifactState *BookState `json:"artifactState"`
}

type approveResponse struct {
	Success      bool `json:"success"`
	StepApproved bool `json:"stepApproved"`
	CurrentStep  int  `json:"currentStep"`
}

type regenerateResponse struct {
	Success      bool `json:"success"`
	Regenerating bool `json:"regenerating"`
}

type actionError struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error"`
	RequiredImages []string `json:"requiredImages,omitempty"`
}

// List returns a paginated list of the caller's workflows.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.User(r.Context())
	if !ok {
		h.respondError(w, errors.New("user identity required"), http.StatusUnauthorized)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), userID, page, filters)
	if err != nil {
		h.respondError(w, err, http.StatusInternalServerError)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the current workflow document.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.identity(w, r)
	if !ok {
		return
	}

	state, err := h.sys.Find(r.Context(), userID, bookID)
	if err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stateResponse{Success: true, ArtifactState: state})
}

// Initialize creates or resumes a workflow document.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.User(r.Context())
	if !ok {
		h.respondError(w, errors.New("user identity required"), http.StatusUnauthorized)
		return
	}

	var cmd InitializeCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}

	result, err := h.sys.Initialize(r.Context(), userID, cmd)
	if err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	handlers.RespondJSON(w, status, initializeResponse{
		Success:       true,
		Created:       result.Created,
		BookID:        result.State.BookID,
		ArtifactState: result.State,
	})
}

type updateStepRequest struct {
	StepData       Payload `json:"stepData"`
	SearchedMemory bool    `json:"searchedMemory,omitempty"`
}

// UpdateStep applies a partial step payload from the agent.
func (h *Handler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.identity(w, r)
	if !ok {
		return
	}

	stepNumber, ok := h.stepNumber(w, r)
	if !ok {
		return
	}

	var req updateStepRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}

	state, err := h.sys.UpdateStep(r.Context(), userID, bookID, stepNumber, req.StepData)
	if err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stateResponse{Success: true, ArtifactState: state})
}

type approveStepRequest struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// ApproveStep records the user's review decision for a step.
func (h *Handler) ApproveStep(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.identity(w, r)
	if !ok {
		return
	}

	stepNumber, ok := h.stepNumber(w, r)
	if !ok {
		return
	}

	var req approveStepRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, errors.New("invalid request body"), http.StatusBadRequest)
		return
	}

	result, err := h.sys.ApproveStep(
		r.Context(), userID, bookID,
		stepNumber, req.Approved, req.Feedback,
	)
	if err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, approveResponse{
		Success:      true,
		StepApproved: result.StepApproved,
		CurrentStep:  result.CurrentStep,
	})
}

// Regenerate marks a step for regeneration.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.identity(w, r)
	if !ok {
		return
	}

	stepNumber, ok := h.stepNumber(w, r)
	if !ok {
		return
	}

	if _, err := h.sys.Regenerate(r.Context(), userID, bookID, stepNumber); err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, regenerateResponse{
		Success:      true,
		Regenerating: true,
	})
}

// Finalize completes the final review.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.identity(w, r)
	if !ok {
		return
	}

	state, err := h.sys.Finalize(r.Context(), userID, bookID)
	if err != nil {
		h.respondError(w, err, MapHTTPStatus(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stateResponse{Success: true, ArtifactState: state})
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.User(r.Context())
	if !ok {
		h.respondError(w, errors.New("user identity required"), http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	bookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, ErrInvalidBook, http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}

	return userID, bookID, true
}

func (h *Handler) stepNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("step"))
	if err != nil || !ValidStep(n) {
		h.respondError(w, ErrInvalidStep, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// respondError writes the structured failure envelope. Image gate
// failures carry the full missing-entity list so the agent can generate
// every image before retrying.
func (h *Handler) respondError(w http.ResponseWriter, err error, status int) {
	resp := actionError{Success: false, Error: err.Error()}

	var missing *MissingImagesError
	if errors.As(err, &missing) {
		resp.RequiredImages = missing.Entities
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("action failed", "status", status, "error", err)
	}

	handlers.RespondJSON(w, status, resp)
}
