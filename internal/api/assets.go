package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/JaimeStill/fable/pkg/handlers"
	"github.com/JaimeStill/fable/pkg/routes"
	"github.com/JaimeStill/fable/pkg/storage"
)

// assetHandler streams stored illustration assets so clients can render
// image URLs resolved during enrichment without direct blob access.
type assetHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newAssetHandler(store storage.System, logger *slog.Logger) *assetHandler {
	return &assetHandler{
		store:  store,
		logger: logger.With("handler", "assets"),
	}
}

func (h *assetHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/assets",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
		},
	}
}

func (h *assetHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Debug("asset stream interrupted", "key", key, "error", err)
	}
}
