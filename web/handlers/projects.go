package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slipway-sh/slipway/domain"
)

type createProjectRequest struct {
	Owner string            `json:"owner"`
	Name  string            `json:"name"`
	Env   map[string]string `json:"env,omitempty"`
}

type createProjectResponse struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	DomainURL   string `json:"domain_url"`
	GitUsername string `json:"git_username"`
	GitPassword string `json:"git_password"`
}

// HandleCreateProject provisions a project: repository, database rows and
// the one-time API token. The git_password field in the response is the only
// place the token plaintext ever appears.
func (h *Handlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.authSvc.AuthorizeOwner(principal, req.Owner); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.projects.Create(req.Owner, req.Name, req.Env)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createProjectResponse{
		ID:          result.Project.ID.String(),
		Owner:       req.Owner,
		Name:        result.Project.Name,
		DomainURL:   result.DomainURL,
		GitUsername: result.GitUsername,
		GitPassword: result.GitPassword,
	})
}

type projectResponse struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	DomainURL string `json:"domain_url"`
	CreatedAt string `json:"created_at"`
}

// HandleGetProject returns the project metadata.
func (h *Handlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	proj, err := h.projects.Get(owner, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		ID:        proj.ID.String(),
		Owner:     owner,
		Name:      proj.Name,
		DomainURL: proj.DomainURL(h.cfg.BaseDomain, h.cfg.Secure),
		CreatedAt: proj.CreatedAt.Format(time.RFC3339),
	})
}

// HandleDeleteProject tears down everything a project owns and reports the
// outcome per resource. Teardown never stops at the first failure; the
// caller reads the map to see what is left.
func (h *Handlers) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	statuses := h.projects.Delete(r.Context(), owner, name)
	writeJSON(w, http.StatusOK, statuses)
}

type buildResponse struct {
	ID         string  `json:"id"`
	Commit     string  `json:"commit"`
	Status     string  `json:"status"`
	Log        string  `json:"log,omitempty"`
	CreatedAt  string  `json:"created_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

func toBuildResponse(b *domain.Build, includeLog bool) buildResponse {
	resp := buildResponse{
		ID:        b.ID.String(),
		Commit:    b.Commit,
		Status:    b.Status.String(),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
	if includeLog {
		resp.Log = b.Log
	}
	if b.FinishedAt != nil {
		finished := b.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}

const buildListLimit = 50

// HandleListBuilds returns recent builds, newest first, without logs.
func (h *Handlers) HandleListBuilds(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	builds, err := h.projects.ListBuilds(owner, name, buildListLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]buildResponse, 0, len(builds))
	for _, b := range builds {
		resp = append(resp, toBuildResponse(b, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetBuild returns one build including its full log.
func (h *Handlers) HandleGetBuild(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	buildID, err := uuid.Parse(chi.URLParam(r, "build"))
	if err != nil {
		writeError(w, &domain.ValidationError{Message: "invalid build id"})
		return
	}

	build, err := h.projects.GetBuild(owner, name, buildID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBuildResponse(build, true))
}

const logTailLines = 100

// HandleProjectLogs returns the tail of the running container's output.
func (h *Handlers) HandleProjectLogs(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	logs, err := h.projects.Logs(r.Context(), owner, name, logTailLines)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}

// HandleGetEnv returns the decrypted environment map.
func (h *Handlers) HandleGetEnv(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	env, err := h.projects.GetEnv(owner, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, env)
}

// HandleSetEnv replaces the whole environment map. Takes effect on the next
// deploy, not the running container.
func (h *Handlers) HandleSetEnv(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	var env map[string]string
	if err := decodeJSON(r, &env); err != nil {
		writeError(w, err)
		return
	}

	if err := h.projects.SetEnv(owner, name, env); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "environment updated"})
}

// HandleDeleteEnvKey removes one key from the environment map.
func (h *Handlers) HandleDeleteEnvKey(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")
	key := chi.URLParam(r, "key")

	if err := h.projects.DeleteEnvKey(owner, name, key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "environment key removed"})
}

type deleteEnvKeyRequest struct {
	Key string `json:"key"`
}

// HandleDeleteEnvKeyBody removes the key named in the request body.
func (h *Handlers) HandleDeleteEnvKeyBody(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	var req deleteEnvKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, &domain.ValidationError{Message: "key is required"})
		return
	}

	if err := h.projects.DeleteEnvKey(owner, name, req.Key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "environment key removed"})
}

// HandleResetVolume wipes the database volume and restarts the database
// container if one was running.
func (h *Handlers) HandleResetVolume(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	if err := h.projects.ResetVolume(r.Context(), owner, name, h.cfg.DatabaseImage); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "volume reset"})
}
