package domain

import (
	"time"

	"github.com/google/uuid"
)

// Build is one execution of the buildpack pipeline for a project. Records
// are append-only: PENDING -> BUILDING -> SUCCESSFUL|FAILED and no other
// transitions.
type Build struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	Status     BuildStatus
	Commit     string
	Log        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

func NewBuild(projectID uuid.UUID, commit string) Build {
	return Build{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    BuildStatusPending,
		Commit:    commit,
	}
}

// BuildResult is what the builder hands back to the queue worker.
type BuildResult struct {
	Log           string
	NeedsDatabase bool
}
