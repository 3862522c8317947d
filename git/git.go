// Package git manages the server-side bare repositories that projects push
// to, and runs the smart-HTTP service commands against them.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/domain"
)

// Store owns the bare repository tree: one repository per project at
// <base>/<owner>/<project>.git.
type Store struct {
	baseDir   string
	gitBinary string
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		baseDir:   cfg.BaseDir,
		gitBinary: cfg.GitBinary,
	}
}

// Path returns the on-disk location of a project's bare repository.
func (s *Store) Path(owner, project string) string {
	return filepath.Join(s.baseDir, owner, project+".git")
}

// Exists reports whether the project's repository directory is present.
func (s *Store) Exists(owner, project string) bool {
	info, err := os.Stat(s.Path(owner, project))
	return err == nil && info.IsDir()
}

// Init creates the bare repository with HEAD pointing at refs/heads/master,
// matching what a first push from a default git client expects.
func (s *Store) Init(owner, project string) error {
	path := s.Path(owner, project)
	if s.Exists(owner, project) {
		return fmt.Errorf("repository %s: %w", path, domain.ErrConflict)
	}

	repo, err := gogit.PlainInit(path, true)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "repo_init",
			"path", path,
			"error", err)
		return fmt.Errorf("failed to initialize repository: %w", err)
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))
	if err := repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("failed to set HEAD: %w", err)
	}

	slog.Info("Repository initialized", "path", path)
	return nil
}

// Delete removes the repository directory recursively.
func (s *Store) Delete(owner, project string) error {
	if !s.Exists(owner, project) {
		return fmt.Errorf("repository %s/%s: %w", owner, project, domain.ErrNotFound)
	}

	path := s.Path(owner, project)
	if err := os.RemoveAll(path); err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "repo_delete",
			"path", path,
			"error", err)
		return fmt.Errorf("failed to delete repository: %w", err)
	}

	slog.Info("Repository deleted", "path", path)
	return nil
}

// HeadCommit returns the commit hash HEAD resolves to, or "" when the
// repository has no commits yet.
func (s *Store) HeadCommit(owner, project string) (string, error) {
	repo, err := gogit.PlainOpen(s.Path(owner, project))
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil // Unborn branch, nothing pushed yet
		}
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// Checkout clones the repository's HEAD into dest for building. A shallow
// local clone is the cheapest way to get a clean worktree without touching
// the bare repository.
func (s *Store) Checkout(ctx context.Context, owner, project, dest string) error {
	url := "file://" + s.Path(owner, project)

	cmd := exec.CommandContext(ctx, s.gitBinary, "clone", "--depth", "1", url, dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "checkout",
			"repo", url,
			"error", err)
		return fmt.Errorf("failed to check out repository: %w: %s", err, out)
	}
	return nil
}
