// Package domain provides core domain types and entities for Slipway.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	ownerNamePattern   = regexp.MustCompile(`^[A-Za-z0-9.]+$`)
)

// ValidateProjectName checks that a project name is alphanumeric
func ValidateProjectName(name string) error {
	if !projectNamePattern.MatchString(name) {
		return &ValidationError{Message: fmt.Sprintf("invalid project name %q: must match [A-Za-z0-9]+", name)}
	}
	return nil
}

// ValidateOwnerName checks that an owner name is alphanumeric with optional dots
func ValidateOwnerName(name string) error {
	if !ownerNamePattern.MatchString(name) {
		return &ValidationError{Message: fmt.Sprintf("invalid owner name %q: must match [A-Za-z0-9.]+", name)}
	}
	return nil
}

type Project struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	OwnerName string
	Name      string
	Env       map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainerName is the app container name for this project: owner and
// project joined with a dash, dots replaced by dashes. The same string is
// the subdomain the reverse proxy routes.
func (p *Project) ContainerName() string {
	return strings.ReplaceAll(fmt.Sprintf("%s-%s", p.OwnerName, p.Name), ".", "-")
}

// NetworkName is the per-project network all project containers attach to.
func (p *Project) NetworkName() string {
	return p.ContainerName() + "-network"
}

// VolumeName is the persistent volume backing the database container.
func (p *Project) VolumeName() string {
	return p.ContainerName() + "-volume"
}

// DBContainerName is the database sibling container name.
func (p *Project) DBContainerName() string {
	return p.ContainerName() + "-db"
}

// DomainURL renders the public URL for the project under baseDomain.
func (p *Project) DomainURL(baseDomain string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s", scheme, p.ContainerName(), baseDomain)
}

func NewProject(ownerID uuid.UUID, ownerName, name string, env map[string]string) Project {
	if env == nil {
		env = map[string]string{}
	}
	return Project{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Name:      name,
		Env:       env,
	}
}
