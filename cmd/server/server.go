// Package server implements the command that runs the Slipway daemon: the
// HTTP surface, the build queue workers and the route watcher.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/builder"
	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/logging"
	"github.com/slipway-sh/slipway/web/handlers"
	"github.com/slipway-sh/slipway/web/routes"
)

const shutdownTimeout = 30 * time.Second

// NewCmdServer creates the command that runs the daemon.
func NewCmdServer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the Slipway daemon",
		Long:  "Starts the git gateway, control API, build workers and route watcher in a single process",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runServer(configPath)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func runServer(configPath string) error {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logging.InitLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting Slipway server", "version", app.Version)

	if err := app.InitializeWithConfig(cfg); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// Builds interrupted by the previous shutdown can never finish; fail
	// them before accepting new work.
	if err := builder.Reconcile(app.GetRepositories()); err != nil {
		return fmt.Errorf("failed to reconcile abandoned builds: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.GetQueue().Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.GetWatcher().Start(ctx); err != nil {
			slog.Error("Route watcher failed", "error", err)
			cancel()
		}
	}()

	err = serveHTTP(ctx, cfg)

	// Wait for the queue to drain in-flight builds and the watcher to
	// stop before returning.
	cancel()
	wg.Wait()
	return err
}

// serveHTTP runs the HTTP server until the context is cancelled. Binding
// the listener explicitly lets a bad address fail the command instead of an
// anonymous goroutine.
func serveHTTP(ctx context.Context, cfg *config.Config) error {
	h := handlers.NewHandlers(
		cfg,
		app.GetRepositories(),
		app.GetAuthService(),
		app.GetProjectService(),
		app.GetStore(),
		app.GetDriver(),
		app.GetQueue(),
	)

	listener, err := net.Listen(cfg.ListenNetwork(), cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", cfg.ListenAddr, err)
	}

	server := &http.Server{
		Handler: routes.NewRouter(h),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", cfg.ListenAddr)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}

// handleShutdown handles OS signals for graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutdown signal received")
	cancel()
}
