// Package app wires the Slipway services together and holds the shared
// instances the daemon and CLI commands use.
package app

import (
	"os"

	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/auth"
	"github.com/slipway-sh/slipway/builder"
	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/deploy"
	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/encryption"
	"github.com/slipway-sh/slipway/git"
	"github.com/slipway-sh/slipway/project"
	"github.com/slipway-sh/slipway/repository"
	"github.com/slipway-sh/slipway/watcher"
)

var (
	// Version is set at build time via -ldflags
	Version = "dev"

	database       *gorm.DB
	appConfig      *config.Config
	repos          *repository.Repositories
	store          *git.Store
	driver         docker.ContainerDriver
	authService    *auth.Service
	projectService *project.Service
	buildQueue     *builder.Queue
	buildExecutor  *builder.Executor
	routeWatcher   *watcher.Watcher
)

// InitializeWithConfig wires every service from a pre-built Config. The CLI
// commands and the server share this path; the server additionally runs the
// queue and watcher loops.
func InitializeWithConfig(cfg *config.Config) error {
	var err error
	appConfig = cfg

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return err
	}

	database, err = db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrateAll(database); err != nil {
		return err
	}

	encryptionSvc, err := encryption.NewService(cfg.SessionSecret)
	if err != nil {
		return err
	}

	repos = repository.NewRepositories(database, encryptionSvc)
	store = git.NewStore(cfg)

	driver, err = docker.NewClient(cfg)
	if err != nil {
		return err
	}

	authService = auth.NewService(repos, encryptionSvc)
	projectService = project.NewService(repos, store, driver, cfg)

	b := builder.NewBuilder(store, driver)
	deployer := deploy.NewDeployer(driver, repos, cfg)
	buildExecutor = builder.NewExecutor(repos, store, b, deployer)
	buildQueue = builder.NewQueue(cfg.ConcurrentBuilds, buildExecutor)

	routeWatcher = watcher.NewWatcher(repos, driver, cfg)
	return nil
}

func GetConfig() *config.Config                 { return appConfig }
func GetRepositories() *repository.Repositories { return repos }
func GetStore() *git.Store                      { return store }
func GetDriver() docker.ContainerDriver         { return driver }
func GetAuthService() *auth.Service             { return authService }
func GetProjectService() *project.Service       { return projectService }
func GetQueue() *builder.Queue                  { return buildQueue }
func GetExecutor() *builder.Executor            { return buildExecutor }
func GetWatcher() *watcher.Watcher              { return routeWatcher }

// SetProjectServiceForTesting allows overriding the project service in tests
func SetProjectServiceForTesting(service *project.Service) {
	projectService = service
}
