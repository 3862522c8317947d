// Package deploy materializes a built image into a running service: app
// container, per-project network, optional database sibling with its
// persistent volume, and the routing-table row the reverse proxy reads.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gosimple/slug"

	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/project"
	"github.com/slipway-sh/slipway/repository"
)

// AppPort is the port project containers are expected to serve on; the
// buildpack images honor the PORT convention.
const AppPort = 80

type Deployer struct {
	driver        docker.ContainerDriver
	repos         *repository.Repositories
	databaseImage string
}

func NewDeployer(driver docker.ContainerDriver, repos *repository.Repositories, cfg *config.Config) *Deployer {
	return &Deployer{
		driver:        driver,
		repos:         repos,
		databaseImage: cfg.DatabaseImage,
	}
}

// Deploy replaces the project's running container with one from the freshly
// built image and repoints the routing table at it. Partial failures are not
// rolled back; the next successful build reconciles whatever state this one
// leaves behind.
func (d *Deployer) Deploy(ctx context.Context, proj *domain.Project, needsDatabase bool) error {
	containerName := proj.ContainerName()
	networkName := proj.NetworkName()

	// Replace, not update: the old container holds the name and possibly
	// a stale image.
	if err := d.driver.StopContainer(ctx, containerName); err != nil {
		return fmt.Errorf("failed to stop previous container: %w", err)
	}
	if err := d.driver.RemoveContainer(ctx, containerName); err != nil {
		return fmt.Errorf("failed to remove previous container: %w", err)
	}

	if err := d.driver.EnsureNetwork(ctx, networkName); err != nil {
		return fmt.Errorf("failed to ensure network: %w", err)
	}

	err := d.driver.CreateContainer(ctx, docker.CreateContainerOptions{
		Name:    containerName,
		Image:   slug.Make(containerName),
		Env:     proj.Env,
		Network: networkName,
	})
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := d.driver.StartContainer(ctx, containerName); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	if needsDatabase {
		if err := d.ensureDatabase(ctx, proj); err != nil {
			return err
		}
	}

	ip, err := d.driver.ContainerIP(ctx, containerName, networkName)
	if err != nil {
		return fmt.Errorf("failed to read container address: %w", err)
	}
	if ip == "" {
		return &domain.DependencyError{
			Op:  "failed to read container address",
			Err: fmt.Errorf("container %s has no address on network %s", containerName, networkName),
		}
	}

	route := domain.NewRoute(proj.ID, containerName, AppPort, ip)
	if err := d.repos.Routes.Upsert(&route); err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	slog.Info("Project deployed",
		"layer", "deploy",
		"project_id", proj.ID,
		"container_name", containerName,
		"container_ip", ip,
		"needs_database", needsDatabase)
	return nil
}

// ensureDatabase provisions the database sibling: persistent volume plus a
// container on the project network. An already-running sibling is left
// alone so its data stays hot across app deploys.
func (d *Deployer) ensureDatabase(ctx context.Context, proj *domain.Project) error {
	dbName := proj.DBContainerName()

	if err := d.driver.EnsureVolume(ctx, proj.VolumeName()); err != nil {
		return fmt.Errorf("failed to ensure volume: %w", err)
	}

	running, err := d.driver.ContainerRunning(ctx, dbName)
	if err != nil {
		return fmt.Errorf("failed to inspect database container: %w", err)
	}
	if running {
		return nil
	}

	exists, err := d.driver.ContainerExists(ctx, dbName)
	if err != nil {
		return fmt.Errorf("failed to inspect database container: %w", err)
	}
	if !exists {
		err := d.driver.CreateContainer(ctx, docker.CreateContainerOptions{
			Name:    dbName,
			Image:   d.databaseImage,
			Env:     project.DatabaseEnv(proj),
			Network: proj.NetworkName(),
			Volumes: map[string]string{proj.VolumeName(): project.DatabaseDataDir},
		})
		if err != nil {
			return fmt.Errorf("failed to create database container: %w", err)
		}
	}

	if err := d.driver.StartContainer(ctx, dbName); err != nil {
		return fmt.Errorf("failed to start database container: %w", err)
	}

	slog.Info("Database sibling started",
		"layer", "deploy",
		"project_id", proj.ID,
		"container_name", dbName)
	return nil
}
