package api

import (
	"net/http"

	"github.com/JaimeStill/fable/internal/config"
	"github.com/JaimeStill/fable/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	assets := newAssetHandler(runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Books.Handler(cfg.API.MaxPayloadSizeBytes()).Routes(),
		domain.Props.Handler().Routes(),
		assets.routes(),
	)
}
