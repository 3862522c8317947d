package handlers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/slipway-sh/slipway/builder"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/git"
)

// HandleInfoRefs serves the smart-HTTP ref advertisement. Clients that do
// not announce a service get a 403; the dumb protocol is only supported for
// the object endpoints, not for discovery.
func (h *Handlers) HandleInfoRefs(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	project := chi.URLParam(r, "project")

	service := r.URL.Query().Get("service")
	if !git.ValidService(service) {
		setNoCacheHeaders(w)
		http.Error(w, "smart-http service required", http.StatusForbidden)
		return
	}

	// The push advertisement demands the owner:token pair even when
	// authentication is otherwise disabled, and before disclosing whether
	// the repository exists.
	if service == git.ServiceReceivePack && !h.basicTokenValid(r, owner, project) {
		w.Header().Set("WWW-Authenticate", `Basic realm="slipway"`)
		writeError(w, domain.ErrUnauthorized)
		return
	}

	if !h.store.Exists(owner, project) {
		http.NotFound(w, r)
		return
	}

	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-advertisement", service))
	w.WriteHeader(http.StatusOK)

	// Preamble before the advertised refs, per the smart-http protocol.
	if _, err := w.Write(git.PacketWrite("# service=" + service + "\n")); err != nil {
		return
	}
	if _, err := w.Write(git.PacketFlush()); err != nil {
		return
	}

	err := h.store.RunService(r.Context(), service, h.store.Path(owner, project), git.ServiceOptions{
		Advertise: true,
		Protocol:  r.Header.Get("Git-Protocol"),
		Stdout:    w,
	})
	if err != nil {
		slog.Error("Ref advertisement failed",
			"layer", "handlers",
			"operation", "info_refs",
			"service", service,
			"owner", owner,
			"project", project,
			"error", err)
	}
}

// HandleUploadPack serves fetch/clone RPC requests.
func (h *Handlers) HandleUploadPack(w http.ResponseWriter, r *http.Request) {
	h.serveRPC(w, r, git.ServiceUploadPack)
}

// HandleReceivePack serves push RPC requests and enqueues a build when the
// push lands.
func (h *Handlers) HandleReceivePack(w http.ResponseWriter, r *http.Request) {
	h.serveRPC(w, r, git.ServiceReceivePack)
}

func (h *Handlers) serveRPC(w http.ResponseWriter, r *http.Request, service string) {
	owner := chi.URLParam(r, "owner")
	project := chi.URLParam(r, "project")

	if !h.store.Exists(owner, project) {
		http.NotFound(w, r)
		return
	}

	body, err := h.requestBody(r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-result", service))
	setNoCacheHeaders(w)
	w.WriteHeader(http.StatusOK)

	err = h.store.RunService(r.Context(), service, h.store.Path(owner, project), git.ServiceOptions{
		Protocol: r.Header.Get("Git-Protocol"),
		Stdin:    strings.NewReader(body),
		Stdout:   &flushWriter{w: w},
	})
	if err != nil {
		// Headers are gone; the pack stream itself carries the failure.
		slog.Error("RPC exchange failed",
			"layer", "handlers",
			"operation", "git_rpc",
			"service", service,
			"owner", owner,
			"project", project,
			"error", err)
		return
	}

	if service == git.ServiceReceivePack {
		h.enqueueBuild(owner, project)
	}
}

var errBodyTooLarge = errors.New("request body exceeds limit")

// requestBody reads the RPC body fully, transparently decoding gzip and
// enforcing the configured limit on the decoded size. Buffering the whole
// pack before spawning git keeps oversized pushes from ever reaching it.
func (h *Handlers) requestBody(r *http.Request) (string, error) {
	var reader io.Reader = r.Body
	defer func() { _ = r.Body.Close() }()

	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return "", fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	limit := h.cfg.BodyLimitBytes
	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(data)) > limit {
		return "", errBodyTooLarge
	}
	return string(data), nil
}

// enqueueBuild submits a build for the freshly pushed project. Best effort:
// the push already succeeded, so a full queue only logs.
func (h *Handlers) enqueueBuild(owner, project string) {
	proj, err := h.repos.Projects.FindByOwnerAndName(owner, project)
	if err != nil {
		slog.Error("Push accepted but project lookup failed",
			"layer", "handlers",
			"operation", "enqueue_build",
			"owner", owner,
			"project", project,
			"error", err)
		return
	}

	result := h.queue.Submit(builder.BuildRequest{
		ProjectID: proj.ID,
		Owner:     owner,
		Project:   project,
	})
	slog.Info("Build submitted",
		"layer", "handlers",
		"operation", "enqueue_build",
		"project_id", proj.ID,
		"result", result.String())
}

// flushWriter flushes after every write so the client sees sideband
// progress while the subprocess is still running.
type flushWriter struct {
	w http.ResponseWriter
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return n, err
}

// HandleGitHead serves the repository HEAD file for dumb clients.
func (h *Handlers) HandleGitHead(w http.ResponseWriter, r *http.Request) {
	h.serveRepoFile(w, r, "HEAD", "text/plain", false)
}

// HandleGitObjectsInfo serves objects/info files (alternates, http-alternates,
// packs). These change as the repository changes, so they are not cacheable.
func (h *Handlers) HandleGitObjectsInfo(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	contentType := "text/plain"
	if file == "packs" {
		contentType = "text/plain; charset=utf-8"
	}
	h.serveRepoFile(w, r, filepath.Join("objects", "info", file), contentType, false)
}

// HandleGitLooseObject serves a loose object. Objects are content addressed
// and therefore immutable, so clients may cache them forever.
func (h *Handlers) HandleGitLooseObject(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	suffix := chi.URLParam(r, "suffix")
	h.serveRepoFile(w, r, filepath.Join("objects", prefix, suffix), "application/x-git-loose-object", true)
}

// HandleGitPackFile serves pack and pack index files, also immutable.
func (h *Handlers) HandleGitPackFile(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	contentType := "application/x-git-packed-objects"
	if strings.HasSuffix(file, ".idx") {
		contentType = "application/x-git-packed-objects-toc"
	}
	h.serveRepoFile(w, r, filepath.Join("objects", "pack", file), contentType, true)
}

func (h *Handlers) serveRepoFile(w http.ResponseWriter, r *http.Request, rel, contentType string, immutable bool) {
	owner := chi.URLParam(r, "owner")
	project := chi.URLParam(r, "project")

	if !h.store.Exists(owner, project) {
		http.NotFound(w, r)
		return
	}

	// The path components come from tight route patterns, but keep the
	// check anyway: nothing served here may escape the repository.
	if strings.Contains(rel, "..") {
		http.NotFound(w, r)
		return
	}

	if immutable {
		setCacheForeverHeaders(w)
	} else {
		setNoCacheHeaders(w)
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, filepath.Join(h.store.Path(owner, project), rel))
}

func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Expires", "Fri, 01 Jan 1980 00:00:00 GMT")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Cache-Control", "no-cache, max-age=0, must-revalidate")
}

func setCacheForeverHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
}
