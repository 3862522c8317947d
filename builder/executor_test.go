package builder

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
	"github.com/slipway-sh/slipway/git"
	"github.com/slipway-sh/slipway/repository"
	"github.com/slipway-sh/slipway/testing/mocks"
)

type fakeDeployer struct {
	calls []bool // needsDatabase per call
	err   error
}

func (d *fakeDeployer) Deploy(ctx context.Context, project *domain.Project, needsDatabase bool) error {
	d.calls = append(d.calls, needsDatabase)
	return d.err
}

func setupExecutorTest(t *testing.T) (*repository.Repositories, *git.Store, *mocks.FakeDriver, *fakeDeployer, *Executor) {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))

	var key fernet.Key
	_, err = rand.Read(key[:])
	require.NoError(t, err)
	encryptionSvc, err := encryption.NewService(key.Encode())
	require.NoError(t, err)

	repos := repository.NewRepositories(database, encryptionSvc)
	store := git.NewStore(&config.Config{BaseDir: t.TempDir(), GitBinary: "git"})
	driver := mocks.NewFakeDriver()
	deployer := &fakeDeployer{}
	executor := NewExecutor(repos, store, NewBuilder(store, driver), deployer)

	return repos, store, driver, deployer, executor
}

func seedProject(t *testing.T, repos *repository.Repositories, store *git.Store, ownerName, projectName string) *domain.Project {
	t.Helper()

	owner := domain.NewOwner(ownerName)
	createdOwner, err := repos.Owners.Create(&owner)
	require.NoError(t, err)

	project := domain.NewProject(createdOwner.ID, ownerName, projectName, nil)
	created, err := repos.Projects.Create(&project)
	require.NoError(t, err)

	require.NoError(t, store.Init(ownerName, projectName))
	return created
}

func TestExecutorRunSuccess(t *testing.T) {
	repos, store, driver, deployer, executor := setupExecutorTest(t)
	project := seedProject(t, repos, store, "alice", "blog")

	driver.BuildLog = "build ok\n"
	driver.BuildNeedsDB = true

	executor.Run(context.Background(), BuildRequest{
		ProjectID: project.ID,
		Owner:     "alice",
		Project:   "blog",
	})

	build, err := repos.Builds.Latest(project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusSuccessful, build.Status)
	assert.Equal(t, "build ok\n", build.Log)
	require.NotNil(t, build.FinishedAt)

	require.Len(t, deployer.calls, 1)
	assert.True(t, deployer.calls[0])
}

func TestExecutorRunBuildFailure(t *testing.T) {
	repos, store, driver, deployer, executor := setupExecutorTest(t)
	project := seedProject(t, repos, store, "alice", "blog")

	driver.FailOn("build_image", &domain.BuildError{
		Log: "compile error\n",
		Err: fmt.Errorf("exit status 1"),
	})

	executor.Run(context.Background(), BuildRequest{
		ProjectID: project.ID,
		Owner:     "alice",
		Project:   "blog",
	})

	build, err := repos.Builds.Latest(project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusFailed, build.Status)
	assert.Contains(t, build.Log, "compile error")
	assert.Contains(t, build.Log, "error:")
	require.NotNil(t, build.FinishedAt)

	// A failed build never deploys.
	assert.Empty(t, deployer.calls)
}

func TestExecutorRunDeployFailure(t *testing.T) {
	repos, store, _, deployer, executor := setupExecutorTest(t)
	project := seedProject(t, repos, store, "alice", "blog")

	deployer.err = fmt.Errorf("no address on network")

	executor.Run(context.Background(), BuildRequest{
		ProjectID: project.ID,
		Owner:     "alice",
		Project:   "blog",
	})

	build, err := repos.Builds.Latest(project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusFailed, build.Status)
	assert.Contains(t, build.Log, "no address on network")
}

func TestExecutorRunMissingProject(t *testing.T) {
	repos, _, _, deployer, executor := setupExecutorTest(t)

	executor.Run(context.Background(), BuildRequest{
		ProjectID: uuid.New(),
		Owner:     "ghost",
		Project:   "gone",
	})

	// No build row is created for a project that no longer exists.
	_, err := repos.Builds.Latest(uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, deployer.calls)
}

func TestReconcileFailsAbandonedBuilds(t *testing.T) {
	repos, store, _, _, _ := setupExecutorTest(t)
	project := seedProject(t, repos, store, "alice", "blog")

	stuck := domain.NewBuild(project.ID, "abc123")
	stuck.Status = domain.BuildStatusBuilding
	require.NoError(t, repos.Builds.Create(&stuck))

	finished := domain.NewBuild(project.ID, "def456")
	finished.Status = domain.BuildStatusSuccessful
	require.NoError(t, repos.Builds.Create(&finished))

	require.NoError(t, Reconcile(repos))

	reloaded, err := repos.Builds.FindByID(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusFailed, reloaded.Status)

	untouched, err := repos.Builds.FindByID(finished.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusSuccessful, untouched.Status)
}

func TestFailureLog(t *testing.T) {
	err := fmt.Errorf("boom")
	assert.Equal(t, "error: boom\n", failureLog("", err))
	assert.Equal(t, "partial\nerror: boom\n", failureLog("partial", err))

	buildErr := &domain.BuildError{Log: "full log\n", Err: fmt.Errorf("exit status 1")}
	got := failureLog("ignored", buildErr)
	assert.Contains(t, got, "full log")
	assert.Contains(t, got, "error:")
}
