package api

import (
	"net/http"

	"github.com/copperline/arbiter/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	groups := domain.Cases.Handler().Routes()
	groups = append(groups, domain.Oversight.Handler().Routes()...)
	groups = append(groups, newEvidenceHandler(runtime.Storage, runtime.Logger).routes())

	routes.Register(mux, groups...)
}
