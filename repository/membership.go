package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type MembershipRepository interface {
	Create(membership *domain.Membership) error
	Exists(userID, ownerID uuid.UUID) (bool, error)
	ListOwners(userID uuid.UUID) ([]*domain.Owner, error)
}

type membershipRepository struct {
	db          *gorm.DB
	ownerMapper *OwnerMapper
}

func (r *membershipRepository) Create(membership *domain.Membership) error {
	m := db.MembershipModel{
		BaseModel: db.BaseModel{ID: uuid.New()},
		UserID:    membership.UserID,
		OwnerID:   membership.OwnerID,
	}
	if err := r.db.Create(&m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_membership",
			"user_id", membership.UserID,
			"owner_id", membership.OwnerID,
			"error", err)
		return translateError(err)
	}
	return nil
}

func (r *membershipRepository) Exists(userID, ownerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&db.MembershipModel{}).
		Where("user_id = ? AND owner_id = ?", userID, ownerID).
		Count(&count).
		Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// ListOwners returns the live owners the user is a member of.
func (r *membershipRepository) ListOwners(userID uuid.UUID) ([]*domain.Owner, error) {
	var models []db.OwnerModel
	err := r.db.
		Joins("JOIN memberships ON memberships.owner_id = owners.id").
		Where("memberships.user_id = ? AND owners.deleted_at IS NULL", userID).
		Order("owners.name").
		Find(&models).
		Error
	if err != nil {
		return nil, translateError(err)
	}

	owners := make([]*domain.Owner, len(models))
	for i, m := range models {
		owners[i] = r.ownerMapper.ToDomain(&m)
	}
	return owners, nil
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{
		db:          db,
		ownerMapper: &OwnerMapper{},
	}
}
