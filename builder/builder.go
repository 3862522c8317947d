package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"

	"github.com/slipway-sh/slipway/docker"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/git"
)

// Builder produces a container image from a project's bare repository.
type Builder struct {
	store  *git.Store
	driver docker.ContainerDriver
}

func NewBuilder(store *git.Store, driver docker.ContainerDriver) *Builder {
	return &Builder{store: store, driver: driver}
}

// ImageName is the image tag for a project. Docker image references must be
// lowercase, which container names need not be, hence the slug.
func ImageName(project *domain.Project) string {
	return slug.Make(project.ContainerName())
}

// Build checks the repository's HEAD out into a scratch directory and runs
// the buildpack over it. The build log is preserved inside the returned
// BuildError on failure.
func (b *Builder) Build(ctx context.Context, project *domain.Project) (domain.BuildResult, error) {
	scratch, err := os.MkdirTemp("", "slipway-build-*")
	if err != nil {
		return domain.BuildResult{}, fmt.Errorf("failed to create build directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			slog.Warn("Failed to clean up build directory",
				"layer", "builder",
				"path", scratch,
				"error", rmErr)
		}
	}()

	source := filepath.Join(scratch, "src")
	if err := b.store.Checkout(ctx, project.OwnerName, project.Name, source); err != nil {
		return domain.BuildResult{}, err
	}

	out, err := b.driver.BuildImage(ctx, ImageName(project), source)
	result := domain.BuildResult{
		Log:           out.Log,
		NeedsDatabase: out.NeedsDatabase,
	}
	if err != nil {
		return result, err
	}

	slog.Info("Image built",
		"layer", "builder",
		"project_id", project.ID,
		"image_name", ImageName(project),
		"needs_database", out.NeedsDatabase)
	return result, nil
}
