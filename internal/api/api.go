// Package api assembles the API module: domain systems, route
// registration, and request middleware.
package api

import (
	"net/http"

	"github.com/copperline/arbiter/internal/config"
	"github.com/copperline/arbiter/internal/infrastructure"
	"github.com/copperline/arbiter/pkg/middleware"
	"github.com/copperline/arbiter/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	if err := domain.Oversight.Start(infra.Lifecycle); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
