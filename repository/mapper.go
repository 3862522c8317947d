package repository

import (
	"log/slog"
	"strings"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
)

type OwnerMapper struct{}

func (m *OwnerMapper) ToDomain(o *db.OwnerModel) *domain.Owner {
	return &domain.Owner{
		ID:        o.ID,
		Name:      o.Name,
		DeletedAt: o.DeletedAt,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (m *OwnerMapper) ToModel(o *domain.Owner) *db.OwnerModel {
	return &db.OwnerModel{
		BaseModel: db.BaseModel{
			ID:        o.ID,
			CreatedAt: o.CreatedAt,
			UpdatedAt: o.UpdatedAt,
		},
		Name:      o.Name,
		DeletedAt: o.DeletedAt,
	}
}

type UserMapper struct{}

func (m *UserMapper) ToDomain(u *db.UserModel) *domain.User {
	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Permissions:  strings.Fields(u.Permissions),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *domain.User) *db.UserModel {
	return &db.UserModel{
		BaseModel: db.BaseModel{
			ID:        u.ID,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Permissions:  strings.Join(u.Permissions, " "),
	}
}

type ProjectMapper struct {
	encryption *encryption.Service
}

func NewProjectMapper(encryptionSvc *encryption.Service) *ProjectMapper {
	return &ProjectMapper{encryption: encryptionSvc}
}

func (m *ProjectMapper) ToDomain(p *db.ProjectModel) *domain.Project {
	env, err := m.encryption.DecryptEnv(p.Env)
	if err != nil {
		// Log error but don't fail - project should still be usable
		// This could happen if encryption key changed
		slog.Error("Failed to decrypt project environment",
			"project_id", p.ID,
			"project_name", p.Name,
			"error", err)
		env = map[string]string{}
	}

	return &domain.Project{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		OwnerName: p.Owner.Name,
		Name:      p.Name,
		Env:       env,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (m *ProjectMapper) ToModel(p *domain.Project) *db.ProjectModel {
	env, err := m.encryption.EncryptEnv(p.Env)
	if err != nil {
		// Store nothing rather than plaintext
		slog.Error("Failed to encrypt project environment",
			"project_id", p.ID,
			"project_name", p.Name,
			"error", err)
		env = ""
	}

	return &db.ProjectModel{
		BaseModel: db.BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		OwnerID: p.OwnerID,
		Name:    p.Name,
		Env:     env,
	}
}

type TokenMapper struct{}

func (m *TokenMapper) ToDomain(t *db.TokenModel) *domain.Token {
	return &domain.Token{
		ID:        t.ID,
		ProjectID: t.ProjectID,
		Hash:      t.TokenHash,
		CreatedAt: t.CreatedAt,
	}
}

func (m *TokenMapper) ToModel(t *domain.Token) *db.TokenModel {
	return &db.TokenModel{
		BaseModel: db.BaseModel{
			ID:        t.ID,
			CreatedAt: t.CreatedAt,
		},
		ProjectID: t.ProjectID,
		TokenHash: t.Hash,
	}
}

type BuildMapper struct{}

func (m *BuildMapper) ToDomain(b *db.BuildModel) *domain.Build {
	status, err := domain.ParseBuildStatus(b.Status)
	if err != nil {
		// Rows are only ever written with valid statuses, so treat
		// anything else as a failed build rather than erroring out
		slog.Error("Unknown build status in database",
			"build_id", b.ID,
			"status", b.Status)
		status = domain.BuildStatusFailed
	}

	return &domain.Build{
		ID:         b.ID,
		ProjectID:  b.ProjectID,
		Status:     status,
		Commit:     b.Commit,
		Log:        b.Log,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		FinishedAt: b.FinishedAt,
	}
}

func (m *BuildMapper) ToModel(b *domain.Build) *db.BuildModel {
	return &db.BuildModel{
		BaseModel: db.BaseModel{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
		},
		ProjectID:  b.ProjectID,
		Status:     b.Status.String(),
		Commit:     b.Commit,
		Log:        b.Log,
		FinishedAt: b.FinishedAt,
	}
}

type RouteMapper struct{}

func (m *RouteMapper) ToDomain(d *db.DomainModel) *domain.Route {
	return &domain.Route{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Name:        d.Name,
		Port:        d.Port,
		ContainerIP: d.ContainerIP,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (m *RouteMapper) ToModel(r *domain.Route) *db.DomainModel {
	return &db.DomainModel{
		BaseModel: db.BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		Port:        r.Port,
		ContainerIP: r.ContainerIP,
	}
}
