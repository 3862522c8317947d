// Package repository provides the data access layer for Slipway.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
)

// Repositories bundles every repository behind one handle so services can
// run multi-row operations inside a single transaction.
type Repositories struct {
	Owners      OwnerRepository
	Users       UserRepository
	Memberships MembershipRepository
	Projects    ProjectRepository
	Tokens      TokenRepository
	Builds      BuildRepository
	Routes      RouteRepository

	db         *gorm.DB
	encryption *encryption.Service
}

func NewRepositories(db *gorm.DB, encryptionSvc *encryption.Service) *Repositories {
	return &Repositories{
		Owners:      NewOwnerRepository(db),
		Users:       NewUserRepository(db),
		Memberships: NewMembershipRepository(db),
		Projects:    NewProjectRepository(db, encryptionSvc),
		Tokens:      NewTokenRepository(db),
		Builds:      NewBuildRepository(db),
		Routes:      NewRouteRepository(db),
		db:          db,
		encryption:  encryptionSvc,
	}
}

// Transaction runs fn with repositories bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(txdb *gorm.DB) error {
		return fn(NewRepositories(txdb, r.encryption))
	})
}

// translateError maps GORM errors onto domain sentinels so callers can use
// errors.Is without knowing the storage layer.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrConflict
	default:
		return err
	}
}
