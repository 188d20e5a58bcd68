package api

import (
	"github.com/JaimeStill/fable/internal/config"
	"github.com/JaimeStill/fable/internal/infrastructure"
	"github.com/JaimeStill/fable/internal/memory"
	"github.com/JaimeStill/fable/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and
// the semantic memory client.
type Runtime struct {
	*infrastructure.Infrastructure
	Memory     memory.Searcher
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Memory:     memory.NewClient(&cfg.Memory, logger),
		Pagination: cfg.API.Pagination,
	}
}
