package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
)

type ProjectRepository interface {
	FindByID(id uuid.UUID) (*domain.Project, error)
	FindByOwnerAndName(ownerName, name string) (*domain.Project, error)
	Create(project *domain.Project) (*domain.Project, error)
	Update(project *domain.Project) error
	List() ([]*domain.Project, error)
	ListByOwnerID(ownerID uuid.UUID) ([]*domain.Project, error)
	Delete(id uuid.UUID) error
}

type projectRepository struct {
	db     *gorm.DB
	mapper *ProjectMapper
}

func (r *projectRepository) List() ([]*domain.Project, error) {
	var models []db.ProjectModel
	if err := r.db.Preload("Owner").Order("created_at").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}

	projects := make([]*domain.Project, len(models))
	for i, m := range models {
		projects[i] = r.mapper.ToDomain(&m)
	}
	return projects, nil
}

func (r *projectRepository) ListByOwnerID(ownerID uuid.UUID) ([]*domain.Project, error) {
	var models []db.ProjectModel
	err := r.db.Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&models).
		Error
	if err != nil {
		return nil, translateError(err)
	}

	projects := make([]*domain.Project, len(models))
	for i, m := range models {
		projects[i] = r.mapper.ToDomain(&m)
	}
	return projects, nil
}

func (r *projectRepository) FindByID(id uuid.UUID) (*domain.Project, error) {
	var m db.ProjectModel
	if err := r.db.Preload("Owner").First(&m, id).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *projectRepository) FindByOwnerAndName(ownerName, name string) (*domain.Project, error) {
	var m db.ProjectModel
	err := r.db.Preload("Owner").
		Joins("JOIN owners ON owners.id = projects.owner_id").
		Where("owners.name = ? AND owners.deleted_at IS NULL AND projects.name = ?", ownerName, name).
		First(&m).
		Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *projectRepository) Create(project *domain.Project) (*domain.Project, error) {
	m := r.mapper.ToModel(project)
	res := r.db.Create(m)
	if res.Error != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_project",
			"project_id", project.ID,
			"project_name", project.Name,
			"error", res.Error)
		return nil, translateError(res.Error)
	}

	created := r.mapper.ToDomain(m)
	created.OwnerName = project.OwnerName // association is not loaded on insert
	return created, nil
}

func (r *projectRepository) Update(project *domain.Project) error {
	m := r.mapper.ToModel(project)

	// Use Select to explicitly update all fields except CreatedAt, including
	// empty strings. This ensures that clearing the environment (empty blob)
	// actually updates the database.
	err := r.db.Model(&db.ProjectModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
	return translateError(err)
}

func (r *projectRepository) Delete(id uuid.UUID) error {
	err := r.db.Delete(&db.ProjectModel{}, id).Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "delete_project",
			"project_id", id,
			"error", err)
	}
	return translateError(err)
}

func NewProjectRepository(db *gorm.DB, encryptionSvc *encryption.Service) ProjectRepository {
	return &projectRepository{
		db:     db,
		mapper: NewProjectMapper(encryptionSvc),
	}
}
