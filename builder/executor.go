package builder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/git"
	"github.com/slipway-sh/slipway/repository"
)

// Deployer materializes a successfully built image into a running,
// routable service. The concrete implementation lives in the deploy
// package; the indirection keeps builder free of container wiring.
type Deployer interface {
	Deploy(ctx context.Context, project *domain.Project, needsDatabase bool) error
}

// Executor is the queue's Runner: it records the build row, runs the
// builder, deploys on success and always leaves the row in a terminal
// state with the full log.
type Executor struct {
	repos    *repository.Repositories
	store    *git.Store
	builder  *Builder
	deployer Deployer
}

func NewExecutor(repos *repository.Repositories, store *git.Store, b *Builder, d Deployer) *Executor {
	return &Executor{repos: repos, store: store, builder: b, deployer: d}
}

var _ Runner = (*Executor)(nil)

// Run executes one dequeued build episode: exactly one build row is created
// and exactly one terminal transition is recorded, whatever fails along the
// way. Cancellation is deliberately not honored mid-build.
func (e *Executor) Run(ctx context.Context, req BuildRequest) {
	project, err := e.repos.Projects.FindByID(req.ProjectID)
	if err != nil {
		// The project was deleted between enqueue and dequeue; nothing
		// to record against.
		slog.Warn("Skipping build for missing project",
			"layer", "builder",
			"project_id", req.ProjectID,
			"owner", req.Owner,
			"project", req.Project,
			"error", err)
		return
	}

	commit, err := e.store.HeadCommit(project.OwnerName, project.Name)
	if err != nil {
		slog.Warn("Failed to resolve HEAD for build record",
			"layer", "builder",
			"project_id", project.ID,
			"error", err)
	}

	build := domain.NewBuild(project.ID, commit)
	if err := e.repos.Builds.Create(&build); err != nil {
		slog.Error("Failed to create build record",
			"layer", "builder",
			"project_id", project.ID,
			"error", err)
		return
	}

	e.transition(&build, domain.BuildStatusBuilding, "")

	slog.Info("Build started",
		"layer", "builder",
		"project_id", project.ID,
		"build_id", build.ID,
		"commit", commit)

	result, buildErr := e.builder.Build(ctx, project)
	if buildErr != nil {
		e.finish(&build, domain.BuildStatusFailed, failureLog(result.Log, buildErr))
		return
	}

	if err := e.deployer.Deploy(ctx, project, result.NeedsDatabase); err != nil {
		slog.Error("Deploy failed",
			"layer", "builder",
			"project_id", project.ID,
			"build_id", build.ID,
			"error", err)
		e.finish(&build, domain.BuildStatusFailed, failureLog(result.Log, err))
		return
	}

	e.finish(&build, domain.BuildStatusSuccessful, result.Log)
}

func (e *Executor) transition(build *domain.Build, status domain.BuildStatus, logText string) {
	build.Status = status
	if logText != "" {
		build.Log = logText
	}
	if err := e.repos.Builds.Update(build); err != nil {
		slog.Error("Failed to record build transition",
			"layer", "builder",
			"build_id", build.ID,
			"status", status.String(),
			"error", err)
	}
}

func (e *Executor) finish(build *domain.Build, status domain.BuildStatus, logText string) {
	now := time.Now()
	build.FinishedAt = &now
	e.transition(build, status, logText)

	slog.Info("Build finished",
		"layer", "builder",
		"build_id", build.ID,
		"status", status.String())
}

// failureLog appends the failure reason to whatever log the buildpack
// produced, so a partially captured log is never lost.
func failureLog(log string, err error) string {
	var buildErr *domain.BuildError
	if errors.As(err, &buildErr) && buildErr.Log != "" {
		log = buildErr.Log
	}
	if log != "" && log[len(log)-1] != '\n' {
		log += "\n"
	}
	return log + "error: " + err.Error() + "\n"
}

// Reconcile fails every build row left in a non-terminal state by a
// previous process. Runs once at startup, before the queue starts.
func Reconcile(repos *repository.Repositories) error {
	count, err := repos.Builds.FailAbandoned()
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Warn("Failed abandoned builds from previous run",
			"layer", "builder",
			"count", count)
	}
	return nil
}
