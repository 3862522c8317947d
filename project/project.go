// Package project orchestrates project lifecycle across the three
// namespaces that must stay consistent: database rows, bare repositories on
// disk, and container engine objects.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/slipway-sh/slipway/auth"
	"github.com/slipway-sh/slipway/builder"
	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/git"
	"github.com/slipway-sh/slipway/repository"
)

// Service coordinates Registry rows, the repository store and the container
// driver for project lifecycle operations.
type Service struct {
	repos      *repository.Repositories
	store      *git.Store
	driver     docker.ContainerDriver
	baseDomain string
	secure     bool
}

func NewService(repos *repository.Repositories, store *git.Store, driver docker.ContainerDriver, cfg *config.Config) *Service {
	return &Service{
		repos:      repos,
		store:      store,
		driver:     driver,
		baseDomain: cfg.BaseDomain,
		secure:     cfg.Secure,
	}
}

// CreateResult is returned once at creation; GitPassword is the only time
// the token plaintext leaves the system.
type CreateResult struct {
	Project     *domain.Project
	DomainURL   string
	GitUsername string
	GitPassword string
}

// Create validates names, initializes the bare repository, and writes the
// project row plus its first API token in one transaction. If the rows
// cannot be written the repository directory is removed again, keeping the
// filesystem and the Registry paired.
func (s *Service) Create(ownerName, projectName string, env map[string]string) (*CreateResult, error) {
	if err := domain.ValidateOwnerName(ownerName); err != nil {
		return nil, err
	}
	if err := domain.ValidateProjectName(projectName); err != nil {
		return nil, err
	}

	owner, err := s.repos.Owners.FindByName(ownerName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("owner %q: %w", ownerName, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up owner: %w", err)
	}

	plaintext, err := auth.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate project token: %w", err)
	}
	tokenHash, err := auth.GenerateHash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash project token: %w", err)
	}

	if err := s.store.Init(ownerName, projectName); err != nil {
		return nil, err
	}

	proj := domain.NewProject(owner.ID, owner.Name, projectName, env)
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		created, err := tx.Projects.Create(&proj)
		if err != nil {
			return err
		}
		return tx.Tokens.Create(&domain.Token{
			ID:        uuid.New(),
			ProjectID: created.ID,
			Hash:      tokenHash,
		})
	})
	if err != nil {
		// The row set rolled back, so the repository directory goes too.
		if rmErr := s.store.Delete(ownerName, projectName); rmErr != nil {
			slog.Error("Failed to remove repository after rollback",
				"layer", "project",
				"owner", ownerName,
				"project", projectName,
				"error", rmErr)
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("project %s/%s: %w", ownerName, projectName, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.Info("Project created",
		"layer", "project",
		"project_id", proj.ID,
		"owner", ownerName,
		"project", projectName)

	return &CreateResult{
		Project:     &proj,
		DomainURL:   proj.DomainURL(s.baseDomain, s.secure),
		GitUsername: ownerName,
		GitPassword: plaintext,
	}, nil
}

// Get resolves a project by owner and name.
func (s *Service) Get(ownerName, projectName string) (*domain.Project, error) {
	return s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
}

// List returns every project.
func (s *Service) List() ([]*domain.Project, error) {
	return s.repos.Projects.List()
}

// Delete step outcome strings. The aggregate map uses exactly these three
// shapes so callers and tests can match on them.
const (
	StatusDeleted      = "successfully deleted"
	StatusAbsent       = "does not exist"
	statusFailedPrefix = "failed to delete: "
)

// Delete removes everything a project owns. Every step runs regardless of
// earlier failures and reports its own outcome: stopping at the first error
// would strand the remaining resources with no way to retry.
func (s *Service) Delete(ctx context.Context, ownerName, projectName string) map[string]string {
	status := make(map[string]string)

	// Container names derive from the names alone, so engine cleanup
	// works even when the Registry row is already gone.
	names := domain.NewProject(uuid.Nil, ownerName, projectName, nil)
	containerName := names.ContainerName()

	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status["project"] = StatusAbsent
	case err != nil:
		status["project"] = statusFailedPrefix + err.Error()
	default:
		// Tokens, builds and routes cascade from the project row.
		if err := s.repos.Projects.Delete(proj.ID); err != nil {
			status["project"] = statusFailedPrefix + err.Error()
		} else {
			status["project"] = StatusDeleted
		}
	}

	if !s.store.Exists(ownerName, projectName) {
		status["repo"] = StatusAbsent
	} else if err := s.store.Delete(ownerName, projectName); err != nil {
		status["repo"] = statusFailedPrefix + err.Error()
	} else {
		status["repo"] = StatusDeleted
	}

	status["container"] = s.deleteContainer(ctx, containerName)
	status["db"] = s.deleteContainer(ctx, names.DBContainerName())
	status["image"] = s.deleteEngineResource(ctx, builder.ImageName(&names),
		s.driver.ImageExists, s.driver.RemoveImage)
	status["volume"] = s.deleteEngineResource(ctx, names.VolumeName(),
		s.driver.VolumeExists, s.driver.RemoveVolume)
	status["network"] = s.deleteEngineResource(ctx, names.NetworkName(),
		s.driver.NetworkExists, s.driver.RemoveNetwork)

	slog.Info("Project deleted",
		"layer", "project",
		"owner", ownerName,
		"project", projectName,
		"status", status)
	return status
}

// deleteContainer stops and removes one container, reporting absence
// explicitly.
func (s *Service) deleteContainer(ctx context.Context, name string) string {
	exists, err := s.driver.ContainerExists(ctx, name)
	if err != nil {
		return statusFailedPrefix + err.Error()
	}
	if !exists {
		return StatusAbsent
	}
	if err := s.driver.StopContainer(ctx, name); err != nil {
		return statusFailedPrefix + err.Error()
	}
	if err := s.driver.RemoveContainer(ctx, name); err != nil {
		return statusFailedPrefix + err.Error()
	}
	return StatusDeleted
}

// deleteEngineResource removes one engine resource, reporting absence
// explicitly the way deleteContainer does.
func (s *Service) deleteEngineResource(ctx context.Context, name string,
	exists func(context.Context, string) (bool, error),
	remove func(context.Context, string) error,
) string {
	found, err := exists(ctx, name)
	if err != nil {
		return statusFailedPrefix + err.Error()
	}
	if !found {
		return StatusAbsent
	}
	if err := remove(ctx, name); err != nil {
		return statusFailedPrefix + err.Error()
	}
	return StatusDeleted
}

// GetEnv returns the project's environment map.
func (s *Service) GetEnv(ownerName, projectName string) (map[string]string, error) {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return nil, err
	}
	return proj.Env, nil
}

// SetEnv replaces the environment map wholesale. The new values take effect
// on the next deploy.
func (s *Service) SetEnv(ownerName, projectName string, env map[string]string) error {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return err
	}
	if env == nil {
		env = map[string]string{}
	}
	proj.Env = env
	if err := s.repos.Projects.Update(proj); err != nil {
		return fmt.Errorf("failed to update project environment: %w", err)
	}
	return nil
}

// DeleteEnvKey removes a single key from the environment map.
func (s *Service) DeleteEnvKey(ownerName, projectName, key string) error {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return err
	}
	if _, ok := proj.Env[key]; !ok {
		return fmt.Errorf("environment key %q: %w", key, domain.ErrNotFound)
	}
	delete(proj.Env, key)
	if err := s.repos.Projects.Update(proj); err != nil {
		return fmt.Errorf("failed to update project environment: %w", err)
	}
	return nil
}

// Logs tails the app container's combined output.
func (s *Service) Logs(ctx context.Context, ownerName, projectName string, tail int) (string, error) {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return "", err
	}
	return s.driver.ContainerLogs(ctx, proj.ContainerName(), tail)
}

// ResetVolume wipes the database sibling's persistent state: stop and
// remove the db container, drop and recreate the volume, and bring the db
// back if it was running before. Absent pieces are skipped, so the reset
// works from any partial state the project is in.
func (s *Service) ResetVolume(ctx context.Context, ownerName, projectName string, databaseImage string) error {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return err
	}

	dbName := proj.DBContainerName()
	volumeName := proj.VolumeName()

	wasRunning, err := s.driver.ContainerRunning(ctx, dbName)
	if err != nil {
		return fmt.Errorf("failed to inspect database container: %w", err)
	}

	if err := s.driver.StopContainer(ctx, dbName); err != nil {
		return fmt.Errorf("failed to stop database container: %w", err)
	}
	// The old container pins the volume; it has to go before the volume can.
	if err := s.driver.RemoveContainer(ctx, dbName); err != nil {
		return fmt.Errorf("failed to remove database container: %w", err)
	}
	if err := s.driver.RemoveVolume(ctx, volumeName); err != nil {
		return fmt.Errorf("failed to remove volume: %w", err)
	}
	if err := s.driver.EnsureVolume(ctx, volumeName); err != nil {
		return fmt.Errorf("failed to recreate volume: %w", err)
	}

	if wasRunning {
		if err := s.driver.EnsureNetwork(ctx, proj.NetworkName()); err != nil {
			return fmt.Errorf("failed to ensure network: %w", err)
		}
		err := s.driver.CreateContainer(ctx, docker.CreateContainerOptions{
			Name:    dbName,
			Image:   databaseImage,
			Env:     DatabaseEnv(proj),
			Network: proj.NetworkName(),
			Volumes: map[string]string{volumeName: DatabaseDataDir},
		})
		if err != nil {
			return fmt.Errorf("failed to recreate database container: %w", err)
		}
		if err := s.driver.StartContainer(ctx, dbName); err != nil {
			return fmt.Errorf("failed to restart database container: %w", err)
		}
	}

	slog.Info("Volume reset",
		"layer", "project",
		"project_id", proj.ID,
		"volume_name", volumeName,
		"database_restarted", wasRunning)
	return nil
}

// DatabaseDataDir is where the database image keeps its state; the project
// volume mounts there so data survives container replacement.
const DatabaseDataDir = "/var/lib/postgresql/data"

// DatabaseEnv is the bootstrap environment for the database image. The
// credentials only travel on the per-project network.
func DatabaseEnv(project *domain.Project) map[string]string {
	return map[string]string{
		"POSTGRES_USER":     project.Name,
		"POSTGRES_PASSWORD": project.Name,
		"POSTGRES_DB":       project.Name,
	}
}

// ListBuilds returns the project's builds, newest first.
func (s *Service) ListBuilds(ownerName, projectName string, limit int) ([]*domain.Build, error) {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return nil, err
	}
	return s.repos.Builds.ListByProjectID(proj.ID, limit)
}

// GetBuild returns one build including its log, scoped to the project so a
// build id cannot be read across projects.
func (s *Service) GetBuild(ownerName, projectName string, buildID uuid.UUID) (*domain.Build, error) {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return nil, err
	}
	build, err := s.repos.Builds.FindByID(buildID)
	if err != nil {
		return nil, err
	}
	if build.ProjectID != proj.ID {
		return nil, domain.ErrNotFound
	}
	return build, nil
}

// LatestBuild returns the newest build or ErrNotFound when none exist.
func (s *Service) LatestBuild(ownerName, projectName string) (*domain.Build, error) {
	proj, err := s.repos.Projects.FindByOwnerAndName(ownerName, projectName)
	if err != nil {
		return nil, err
	}
	return s.repos.Builds.Latest(proj.ID)
}
