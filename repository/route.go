package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
)

type RouteRepository interface {
	FindByName(name string) (*domain.Route, error)
	Upsert(route *domain.Route) error
	Update(route *domain.Route) error
	List() ([]*domain.Route, error)
	ListByProjectID(projectID uuid.UUID) ([]*domain.Route, error)
	DeleteByProjectID(projectID uuid.UUID) error
}

type routeRepository struct {
	db     *gorm.DB
	mapper *RouteMapper
}

func (r *routeRepository) FindByName(name string) (*domain.Route, error) {
	var m db.DomainModel
	if err := r.db.Where("name = ?", name).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return r.mapper.ToDomain(&m), nil
}

// Upsert inserts the route or, when a row with the same name exists,
// repoints it. The reverse proxy reads this table, so a redeploy must
// atomically swap the target rather than leave two rows.
func (r *routeRepository) Upsert(route *domain.Route) error {
	m := r.mapper.ToModel(route)
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"project_id", "port", "container_ip", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "upsert_route",
			"route_name", route.Name,
			"error", err)
		return translateError(err)
	}
	return nil
}

func (r *routeRepository) Update(route *domain.Route) error {
	m := r.mapper.ToModel(route)
	err := r.db.Model(&db.DomainModel{}).
		Where("id = ?", m.ID).
		Select("project_id", "port", "container_ip").
		Updates(m).
		Error
	return translateError(err)
}

func (r *routeRepository) List() ([]*domain.Route, error) {
	var models []db.DomainModel
	if err := r.db.Order("name").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}

	routes := make([]*domain.Route, len(models))
	for i, m := range models {
		routes[i] = r.mapper.ToDomain(&m)
	}
	return routes, nil
}

func (r *routeRepository) ListByProjectID(projectID uuid.UUID) ([]*domain.Route, error) {
	var models []db.DomainModel
	err := r.db.Where("project_id = ?", projectID).Order("name").Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}

	routes := make([]*domain.Route, len(models))
	for i, m := range models {
		routes[i] = r.mapper.ToDomain(&m)
	}
	return routes, nil
}

func (r *routeRepository) DeleteByProjectID(projectID uuid.UUID) error {
	err := r.db.Where("project_id = ?", projectID).Delete(&db.DomainModel{}).Error
	return translateError(err)
}

func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{
		db:     db,
		mapper: &RouteMapper{},
	}
}
