package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/copperline/arbiter/pkg/handlers"
	"github.com/copperline/arbiter/pkg/routes"
	"github.com/copperline/arbiter/pkg/storage"
)

// evidenceHandler streams evidence attachments back to reviewers.
type evidenceHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newEvidenceHandler(store storage.System, logger *slog.Logger) *evidenceHandler {
	return &evidenceHandler{
		store:  store,
		logger: logger.With("handler", "evidence"),
	}
}

func (h *evidenceHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/evidence",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
		},
	}
}

func (h *evidenceHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, storage.ErrEmptyKey), errors.Is(err, storage.ErrInvalidKey):
			status = http.StatusBadRequest
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
