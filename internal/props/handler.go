package props

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/fable/pkg/handlers"
	"github.com/JaimeStill/fable/pkg/middleware"
	"github.com/JaimeStill/fable/pkg/pagination"
	"github.com/JaimeStill/fable/pkg/routes"
)

// Handler provides HTTP endpoints for prop lookups. Props are read-only
// from this service; the image generation pipeline writes them.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "props"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for prop endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/props",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
		},
	}
}

// List returns a paginated list of the caller's props with optional
// query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.User(r.Context())
	if !ok {
		handlers.RespondError(
			w, h.logger,
			http.StatusUnauthorized,
			errors.New("user identity required"),
		)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), userID, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
