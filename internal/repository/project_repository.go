package repository

import (
	"context"

	"github.com/yukikurage/workforce-api/internal/database"
	"github.com/yukikurage/workforce-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Manager").First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit("Manager", "Active").Save(project).Error
}

func (r *GormProjectRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *GormProjectRepository) List(ctx context.Context, opts ListOptions) ([]models.Project, int64, error) {
	opts.Scopes = append([]Scope{database.ActiveOnly}, opts.Scopes...)
	return list[models.Project](r.db.WithContext(ctx), opts, "duty_date ASC, id ASC", "Manager")
}

func (r *GormProjectRepository) FindActiveByManager(ctx context.Context, managerID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Scopes(database.ActiveOnly).
		Where("manager_id = ?", managerID).
		Order("id").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *GormProjectRepository) CountStringIDPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("UPPER(string_id) LIKE ? ESCAPE '!'", prefixPattern(prefix)).
		Count(&count).Error
	return count, err
}
