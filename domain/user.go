package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Name         string
	PasswordHash string
	Permissions  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(username, name, passwordHash string) User {
	return User{
		ID:           uuid.New(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
	}
}

// Membership joins a user to an owner. A user may belong to many owners and
// an owner may have many users.
type Membership struct {
	UserID  uuid.UUID
	OwnerID uuid.UUID
}

// Principal is the per-request identity resolved by the auth layer. The rest
// of the system never holds long-lived user objects.
type Principal struct {
	UserID      uuid.UUID
	Username    string
	Permissions []string
}

func (p Principal) HasPermission(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}

// AdminPrincipal is the identity injected when authentication is disabled.
func AdminPrincipal() Principal {
	return Principal{Username: "admin", Permissions: []string{"admin"}}
}
