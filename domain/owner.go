package domain

import (
	"time"

	"github.com/google/uuid"
)

// Owner namespaces projects. Every user gets a mirror owner named after
// their username at registration; additional owners act as organizations.
type Owner struct {
	ID        uuid.UUID
	Name      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Owner) Deleted() bool {
	return o.DeletedAt != nil
}

func NewOwner(name string) Owner {
	return Owner{
		ID:   uuid.New(),
		Name: name,
	}
}
