// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/planverify/verdict/internal/config"
	"github.com/planverify/verdict/internal/infrastructure"
	"github.com/planverify/verdict/pkg/middleware"
	"github.com/planverify/verdict/pkg/module"
	"github.com/planverify/verdict/pkg/openapi"
	"github.com/planverify/verdict/pkg/rules"
)

// NewModule creates the API module with all domain handlers and middleware.
// The rule catalog is loaded once at assembly; an invalid catalog fails
// startup rather than the first validation run.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	catalog, err := rules.LoadCatalog(cfg.Pipeline.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load rule catalog: %w", err)
	}

	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, catalog)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	spec, err := openapi.MarshalJSON(buildSpec(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	mux.Handle("GET /openapi.json", openapi.ServeSpec(spec))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
