// Package handlers provides the HTTP request handlers for the Slipway
// daemon: the JSON control API, the Git smart-HTTP gateway and the
// websocket terminal bridge.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/slipway-sh/slipway/auth"
	"github.com/slipway-sh/slipway/builder"
	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/git"
	"github.com/slipway-sh/slipway/project"
	"github.com/slipway-sh/slipway/repository"
)

// Handlers carries the services every endpoint needs. One instance serves
// the whole router.
type Handlers struct {
	cfg      *config.Config
	repos    *repository.Repositories
	authSvc  *auth.Service
	projects *project.Service
	store    *git.Store
	driver   docker.ContainerDriver
	queue    *builder.Queue
}

func NewHandlers(
	cfg *config.Config,
	repos *repository.Repositories,
	authSvc *auth.Service,
	projects *project.Service,
	store *git.Store,
	driver docker.ContainerDriver,
	queue *builder.Queue,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		repos:    repos,
		authSvc:  authSvc,
		projects: projects,
		store:    store,
		driver:   driver,
		queue:    queue,
	}
}

// errorResponse is the JSON error envelope for every API failure.
type errorResponse struct {
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response",
			"layer", "handlers",
			"error", err)
	}
}

// writeError maps a domain error onto an HTTP status and the JSON error
// envelope. Internal details never leave the process; the message is the
// user-facing form.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var depErr *domain.DependencyError
	var buildErr *domain.BuildError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message:   validationErr.Message,
			ErrorType: "validation",
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Message:   "unauthorized",
			ErrorType: "unauthorized",
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Message:   "not found",
			ErrorType: "not_found",
		})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Message:   project.FormatErrorForUser(err),
			ErrorType: "conflict",
		})
	case errors.As(err, &depErr), errors.As(err, &buildErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message:   project.FormatErrorForUser(err),
			ErrorType: "dependency",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message:   project.FormatErrorForUser(err),
			ErrorType: "internal",
		})
	}
}

// decodeJSON reads a small JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid request body"}
	}
	return nil
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response",
			"layer", "handlers",
			"operation", "health_check",
			"error", err)
	}
}
