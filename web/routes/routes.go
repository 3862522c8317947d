// Package routes wires the HTTP surface: the JSON control API, the Git
// smart-HTTP gateway and the websocket terminal.
package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/slipway-sh/slipway/web/handlers"
)

// NewRouter builds the full route tree around one Handlers instance.
func NewRouter(h *handlers.Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.WithPrincipal)

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)

		r.Post("/project", h.HandleCreateProject)

		r.Route("/project/{owner}/{project}", func(r chi.Router) {
			// Badge is embeddable in READMEs, so it stays open.
			r.Get("/badge/status", h.HandleBadge)
			r.Get("/badge", h.HandleBadge)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireProjectAccess)

				r.Get("/", h.HandleGetProject)

				// Lifecycle mutations are POSTs on action paths; the
				// method-based forms are kept as aliases.
				r.Post("/delete", h.HandleDeleteProject)
				r.Delete("/", h.HandleDeleteProject)

				r.Get("/builds", h.HandleListBuilds)
				r.Get("/builds/{build}", h.HandleGetBuild)

				r.Get("/logs", h.HandleProjectLogs)

				r.Get("/env", h.HandleGetEnv)
				r.Post("/env", h.HandleSetEnv)
				r.Put("/env", h.HandleSetEnv)
				r.Post("/env/delete", h.HandleDeleteEnvKeyBody)
				r.Delete("/env/{key}", h.HandleDeleteEnvKey)

				r.Post("/volume/delete", h.HandleResetVolume)
				r.Delete("/volume", h.HandleResetVolume)
			})
		})
	})

	// Git clients hit these paths directly, so they live at the root.
	r.Route("/{owner}/{project}", func(r chi.Router) {
		r.Use(h.RequireProjectAccess)

		r.Get("/info/refs", h.HandleInfoRefs)
		r.Post("/git-upload-pack", h.HandleUploadPack)
		// Pushes demand the owner:token pair even on an authless install.
		r.With(h.RequireProjectToken).Post("/git-receive-pack", h.HandleReceivePack)

		// Dumb-protocol object endpoints for clients that cannot speak
		// smart-http.
		r.Get("/HEAD", h.HandleGitHead)
		r.Get("/objects/info/{file}", h.HandleGitObjectsInfo)
		r.Get("/objects/pack/{file}", h.HandleGitPackFile)
		r.Get("/objects/{prefix:[0-9a-f]{2}}/{suffix:[0-9a-f]+}", h.HandleGitLooseObject)

		r.Get("/terminal/ws", h.HandleTerminal)
		r.Get("/terminal", h.HandleTerminal)
	})

	return r
}
