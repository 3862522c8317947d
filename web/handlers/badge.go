package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slipway-sh/slipway/domain"
)

// badgeSVG is a shields.io style flat badge: fixed "build" label on the
// left, status text on the right.
const badgeSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20" role="img" aria-label="build: %s">
  <linearGradient id="s" x2="0" y2="100%%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <rect rx="3" width="%d" height="20" fill="#555"/>
  <rect rx="3" x="37" width="%d" height="20" fill="%s"/>
  <rect rx="3" width="%d" height="20" fill="url(#s)"/>
  <g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
    <text x="18" y="14">build</text>
    <text x="%d" y="14">%s</text>
  </g>
</svg>
`

// HandleBadge renders the latest build status as an SVG badge. The endpoint
// is unauthenticated so READMEs can embed it.
func (h *Handlers) HandleBadge(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "project")

	status := domain.BuildStatusPending
	build, err := h.projects.LatestBuild(owner, name)
	switch {
	case err == nil:
		status = build.Status
	case errors.Is(err, domain.ErrNotFound):
		// A project with no builds yet shows Pending; a missing project
		// is a 404.
		if _, perr := h.projects.Get(owner, name); perr != nil {
			writeError(w, perr)
			return
		}
	default:
		writeError(w, err)
		return
	}

	label := status.Display()
	labelWidth := 6*len(label) + 14
	total := 37 + labelWidth

	w.Header().Set("Content-Type", "image/svg+xml")
	setNoCacheHeaders(w)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, badgeSVG,
		total, label,
		total,
		labelWidth, status.BadgeColor(),
		total,
		37+labelWidth/2, label)
}
