package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type UserRepository interface {
	FindByID(id uuid.UUID) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Create(user *domain.User) (*domain.User, error)
}

type userRepository struct {
	db     *gorm.DB
	mapper *UserMapper
}

func (r *userRepository) FindByID(id uuid.UUID) (*domain.User, error) {
	var m db.UserModel
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *userRepository) FindByUsername(username string) (*domain.User, error) {
	var m db.UserModel
	if err := r.db.Where("username = ?", username).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *userRepository) Create(user *domain.User) (*domain.User, error) {
	m := r.mapper.ToModel(user)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_user",
			"username", user.Username,
			"error", err)
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(m), nil
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db:     db,
		mapper: &UserMapper{},
	}
}
