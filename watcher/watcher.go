// Package watcher reconciles the routing table against the containers that
// are actually running. Container IPs change when the engine restarts or a
// container is recreated outside a deploy; without reconciliation the
// reverse proxy keeps sending traffic to the old address.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/repository"
)

type Watcher struct {
	repos        *repository.Repositories
	driver       docker.ContainerDriver
	syncInterval time.Duration
}

func NewWatcher(repos *repository.Repositories, driver docker.ContainerDriver, cfg *config.Config) *Watcher {
	return &Watcher{
		repos:        repos,
		driver:       driver,
		syncInterval: cfg.RouteSyncInterval,
	}
}

// Start runs the reconciliation loop until the context is cancelled. The
// first pass runs immediately so a daemon restart repairs routes without
// waiting out a full interval.
func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("Route watcher starting",
		"layer", "watcher",
		"sync_interval", w.syncInterval)

	ticker := time.NewTicker(w.syncInterval)
	defer ticker.Stop()

	if err := w.syncRoutes(ctx); err != nil {
		slog.Error("Route sync failed",
			"layer", "watcher",
			"error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Route watcher shutting down", "layer", "watcher")
			return nil
		case <-ticker.C:
			if err := w.syncRoutes(ctx); err != nil {
				slog.Error("Route sync failed",
					"layer", "watcher",
					"error", err)
			}
		}
	}
}

// syncRoutes walks the routing table once and repoints rows whose container
// now has a different address. Missing containers are logged but the route
// row stays; the next successful deploy replaces it.
func (w *Watcher) syncRoutes(ctx context.Context) error {
	routes, err := w.repos.Routes.List()
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	updated := 0
	for _, route := range routes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.syncRoute(ctx, route) {
			updated++
		}
	}

	slog.Debug("Route sync cycle completed",
		"layer", "watcher",
		"total_routes", len(routes),
		"routes_updated", updated)
	return nil
}

func (w *Watcher) syncRoute(ctx context.Context, route *domain.Route) bool {
	proj, err := w.repos.Projects.FindByID(route.ProjectID)
	if err != nil {
		slog.Warn("Route points at unknown project",
			"layer", "watcher",
			"route_name", route.Name,
			"project_id", route.ProjectID,
			"error", err)
		return false
	}

	ip, err := w.driver.ContainerIP(ctx, route.Name, proj.NetworkName())
	if err != nil {
		slog.Warn("Failed to inspect routed container",
			"layer", "watcher",
			"route_name", route.Name,
			"project_id", route.ProjectID,
			"error", err)
		return false
	}
	if ip == "" {
		slog.Warn("Routed container has no address",
			"layer", "watcher",
			"route_name", route.Name,
			"project_id", route.ProjectID)
		return false
	}

	if ip == route.ContainerIP {
		return false
	}

	slog.Info("Route drift detected",
		"layer", "watcher",
		"route_name", route.Name,
		"project_id", route.ProjectID,
		"old_ip", route.ContainerIP,
		"new_ip", ip)

	route.ContainerIP = ip
	if err := w.repos.Routes.Update(route); err != nil {
		slog.Error("Failed to update route",
			"layer", "watcher",
			"route_name", route.Name,
			"error", err)
		return false
	}
	return true
}
