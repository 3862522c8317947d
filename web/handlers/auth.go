package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slipway-sh/slipway/auth"
	"github.com/slipway-sh/slipway/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the request's resolved principal, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// WithPrincipal resolves the session cookie into a Principal and stores it
// on the request context. With authentication disabled every request acts
// as the admin principal. Requests without a valid session pass through
// anonymously; access checks happen per endpoint.
func (h *Handlers) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.AuthEnabled {
			ctx := context.WithValue(r.Context(), principalKey, domain.AdminPrincipal())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(auth.SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := h.authSvc.VerifySession(cookie.Value)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				slog.Error("Session verification failed",
					"layer", "handlers",
					"error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, *principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// basicTokenValid reports whether the request carries HTTP Basic credentials
// with the owner name and a valid API token for the project.
func (h *Handlers) basicTokenValid(r *http.Request, ownerName, projectName string) bool {
	username, password, ok := r.BasicAuth()
	if !ok || username != ownerName {
		return false
	}
	proj, err := h.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return false
	}
	valid, err := h.authSvc.VerifyProjectToken(proj.ID, password)
	return err == nil && valid
}

// RequireProjectAccess gates project-scoped endpoints. Two credentials
// work: HTTP Basic with the owner name and a project API token, or a
// session principal who is a member of the owner.
func (h *Handlers) RequireProjectAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerName := chi.URLParam(r, "owner")
		projectName := chi.URLParam(r, "project")

		if h.basicTokenValid(r, ownerName, projectName) {
			next.ServeHTTP(w, r)
			return
		}

		if principal, ok := PrincipalFrom(r.Context()); ok {
			if err := h.authSvc.AuthorizeOwner(principal, ownerName); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		// The challenge makes git clients prompt for the owner/token pair.
		w.Header().Set("WWW-Authenticate", `Basic realm="slipway"`)
		writeError(w, domain.ErrUnauthorized)
	})
}

// RequireProjectToken gates push endpoints on the Basic owner:token pair
// alone. Pushes stay gated even when authentication is disabled, so neither
// a session nor the admin principal is enough here.
func (h *Handlers) RequireProjectToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerName := chi.URLParam(r, "owner")
		projectName := chi.URLParam(r, "project")

		if h.basicTokenValid(r, ownerName, projectName) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="slipway"`)
		writeError(w, domain.ErrUnauthorized)
	})
}

// requirePrincipal returns the session principal or writes a 401.
func (h *Handlers) requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return domain.Principal{}, false
	}
	return principal, true
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// HandleRegister creates a user with their mirror owner and starts a
// session.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.authSvc.Register(req.Username, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, token)

	writeJSON(w, http.StatusCreated, userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Name:     user.Name,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and sets the session cookie.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
}

// HandleLogout clears the session cookie.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.DefaultSessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
