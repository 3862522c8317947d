package domain

import (
	"time"

	"github.com/google/uuid"
)

// Route is a row of the domains table: the reverse proxy routes
// name.<base_domain> to container_ip:port. The deployer upserts one row per
// project on every successful build; the proxy only reads.
type Route struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Name        string
	Port        int
	ContainerIP string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewRoute(projectID uuid.UUID, name string, port int, containerIP string) Route {
	return Route{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        name,
		Port:        port,
		ContainerIP: containerIP,
	}
}

// Token is a project-scoped API credential. Only the argon2id hash is
// stored; the plaintext is shown once at issuance.
type Token struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Hash      string
	CreatedAt time.Time
}
