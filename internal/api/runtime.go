package api

import (
	"github.com/planverify/verdict/internal/config"
	"github.com/planverify/verdict/internal/infrastructure"
	"github.com/planverify/verdict/pkg/gate"
	"github.com/planverify/verdict/pkg/linker"
	"github.com/planverify/verdict/pkg/pagination"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Agent      gaconfig.AgentConfig
	Policy     gate.Policy
	Linker     linker.Config
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Agent:      cfg.Agent,
		Policy:     cfg.Pipeline.GatePolicy(),
		Linker:     cfg.Pipeline.LinkerConfig(),
		Pagination: cfg.API.Pagination,
	}
}
