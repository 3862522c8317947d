package repository

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type BuildRepository interface {
	FindByID(id uuid.UUID) (*domain.Build, error)
	Create(build *domain.Build) error
	Update(build *domain.Build) error
	Latest(projectID uuid.UUID) (*domain.Build, error)
	ListByProjectID(projectID uuid.UUID, limit int) ([]*domain.Build, error)
	FailAbandoned() (int64, error)
}

type buildRepository struct {
	db     *gorm.DB
	mapper *BuildMapper
}

func (r *buildRepository) FindByID(id uuid.UUID) (*domain.Build, error) {
	var m db.BuildModel
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *buildRepository) Create(build *domain.Build) error {
	m := r.mapper.ToModel(build)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_build",
			"project_id", build.ProjectID,
			"error", err)
		return translateError(err)
	}
	// Update the domain object with the timestamps that GORM populated
	*build = *r.mapper.ToDomain(m)
	return nil
}

func (r *buildRepository) Update(build *domain.Build) error {
	m := r.mapper.ToModel(build)
	if err := r.db.Save(m).Error; err != nil {
		return translateError(err)
	}
	// Update the domain object with the timestamps that GORM populated
	*build = *r.mapper.ToDomain(m)
	return nil
}

func (r *buildRepository) Latest(projectID uuid.UUID) (*domain.Build, error) {
	var m db.BuildModel
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&m).
		Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *buildRepository) ListByProjectID(projectID uuid.UUID, limit int) ([]*domain.Build, error) {
	q := r.db.Where("project_id = ?", projectID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []db.BuildModel
	if err := q.Find(&models).Error; err != nil {
		return nil, translateError(err)
	}

	builds := make([]*domain.Build, len(models))
	for i, m := range models {
		builds[i] = r.mapper.ToDomain(&m)
	}
	return builds, nil
}

// FailAbandoned marks every PENDING or BUILDING row as FAILED. Called once
// at startup: any non-terminal row predates this process and its worker is
// gone.
func (r *buildRepository) FailAbandoned() (int64, error) {
	res := r.db.Model(&db.BuildModel{}).
		Where("status IN ?", []string{
			domain.BuildStatusPending.String(),
			domain.BuildStatusBuilding.String(),
		}).
		Updates(map[string]any{
			"status":      domain.BuildStatusFailed.String(),
			"log":         gorm.Expr("COALESCE(log, '') || ?", "\nbuild abandoned: server restarted\n"),
			"finished_at": time.Now(),
		})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{
		db:     db,
		mapper: &BuildMapper{},
	}
}
