package repository

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type OwnerRepository interface {
	FindByID(id uuid.UUID) (*domain.Owner, error)
	FindByName(name string) (*domain.Owner, error)
	Create(owner *domain.Owner) (*domain.Owner, error)
	List() ([]*domain.Owner, error)
	SoftDelete(id uuid.UUID) error
}

type ownerRepository struct {
	db     *gorm.DB
	mapper *OwnerMapper
}

func (r *ownerRepository) FindByID(id uuid.UUID) (*domain.Owner, error) {
	var m db.OwnerModel
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

// FindByName resolves an owner by name. Soft-deleted owners are invisible,
// and their names stay reserved because the row keeps its unique name.
func (r *ownerRepository) FindByName(name string) (*domain.Owner, error) {
	var m db.OwnerModel
	err := r.db.Where("name = ? AND deleted_at IS NULL", name).First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *ownerRepository) Create(owner *domain.Owner) (*domain.Owner, error) {
	m := r.mapper.ToModel(owner)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_owner",
			"owner_name", owner.Name,
			"error", err)
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(m), nil
}

func (r *ownerRepository) List() ([]*domain.Owner, error) {
	var models []db.OwnerModel
	err := r.db.Where("deleted_at IS NULL").Order("name").Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}

	owners := make([]*domain.Owner, len(models))
	for i, m := range models {
		owners[i] = r.mapper.ToDomain(&m)
	}
	return owners, nil
}

func (r *ownerRepository) SoftDelete(id uuid.UUID) error {
	res := r.db.Model(&db.OwnerModel{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func NewOwnerRepository(db *gorm.DB) OwnerRepository {
	return &ownerRepository{
		db:     db,
		mapper: &OwnerMapper{},
	}
}
