package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type TokenRepository interface {
	Create(token *domain.Token) error
	ListByProjectID(projectID uuid.UUID) ([]*domain.Token, error)
	DeleteByProjectID(projectID uuid.UUID) error
}

type tokenRepository struct {
	db     *gorm.DB
	mapper *TokenMapper
}

func (r *tokenRepository) Create(token *domain.Token) error {
	m := r.mapper.ToModel(token)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_token",
			"project_id", token.ProjectID,
			"error", err)
		return translateError(err)
	}
	return nil
}

func (r *tokenRepository) ListByProjectID(projectID uuid.UUID) ([]*domain.Token, error) {
	var models []db.TokenModel
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&models).
		Error
	if err != nil {
		return nil, translateError(err)
	}

	tokens := make([]*domain.Token, len(models))
	for i, m := range models {
		tokens[i] = r.mapper.ToDomain(&m)
	}
	return tokens, nil
}

func (r *tokenRepository) DeleteByProjectID(projectID uuid.UUID) error {
	err := r.db.Where("project_id = ?", projectID).Delete(&db.TokenModel{}).Error
	return translateError(err)
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{
		db:     db,
		mapper: &TokenMapper{},
	}
}
