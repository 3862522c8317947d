package docker

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/slipway-sh/slipway/domain"
)

// BuildImage runs the buildpack over the source tree and tags the resulting
// image. The combined output is returned verbatim as the build log, on
// failure too. Whether the project needs a database sibling comes from the
// buildpack plan, so build, delete and volume reset all agree on it.
func (c *Client) BuildImage(ctx context.Context, imageName, sourcePath string) (BuildOutput, error) {
	needsDB := c.planNeedsDatabase(ctx, sourcePath)

	cmd := exec.CommandContext(ctx, c.buildpackCommand, "build", sourcePath, "--name", imageName)
	var log bytes.Buffer
	cmd.Stdout = &log
	cmd.Stderr = &log

	slog.Info("Building image",
		"layer", "docker",
		"operation", "build_image",
		"image_name", imageName,
		"needs_database", needsDB)

	if err := cmd.Run(); err != nil {
		slog.Error("Image build failed",
			"layer", "docker",
			"operation", "build_image",
			"image_name", imageName,
			"error", err)
		return BuildOutput{Log: log.String(), NeedsDatabase: needsDB},
			&domain.BuildError{Log: log.String(), Err: err}
	}

	return BuildOutput{Log: log.String(), NeedsDatabase: needsDB}, nil
}

// planNeedsDatabase asks the buildpack for its plan and reports whether it
// references a database. A plan that cannot be produced reads as "no
// database": the subsequent build will surface the real failure with a log.
func (c *Client) planNeedsDatabase(ctx context.Context, sourcePath string) bool {
	out, err := exec.CommandContext(ctx, c.buildpackCommand, "plan", sourcePath).Output()
	if err != nil {
		slog.Debug("Buildpack plan failed, assuming no database",
			"layer", "docker",
			"source_path", sourcePath,
			"error", err)
		return false
	}
	return strings.Contains(string(out), "DATABASE_URL")
}
