package repository

import (
	"context"
	"time"

	"github.com/yukikurage/workforce-api/internal/database"
	"github.com/yukikurage/workforce-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Workers == nil {
		task.Workers = datatypes.JSONSlice[uint64]{}
	}
	return r.db.WithContext(ctx).Omit("Project", "Reporter").Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *GormTaskRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Task, error) {
	var tasks []models.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update saves the task's own columns. The worker list and active flag are only
// written through UpdateWorkers and Deactivate.
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Project", "Reporter", "Workers", "Active").Save(task).Error
}

func (r *GormTaskRepository) UpdateWorkers(ctx context.Context, id uint64, workers []uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("workers", datatypes.JSONSlice[uint64](nonNil(workers))).Error
}

func (r *GormTaskRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":  false,
			"workers": datatypes.JSONSlice[uint64]{},
		}).Error
}

// List retrieves active tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, opts ListOptions) ([]models.Task, int64, error) {
	opts.Scopes = append([]Scope{database.ActiveOnly}, opts.Scopes...)
	return list[models.Task](r.db.WithContext(ctx), opts, "duty_date ASC, id ASC", "Project", "Reporter")
}

func (r *GormTaskRepository) ListActive(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Scopes(database.ActiveOnly).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormTaskRepository) ListActiveByProject(ctx context.Context, projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Scopes(database.ActiveOnly).
		Where("project_id = ?", projectID).
		Order("id").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormTaskRepository) ClampDutyDates(ctx context.Context, projectID uint64, dutyDate time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id = ? AND duty_date > ?", projectID, dutyDate).
		Update("duty_date", dutyDate).Error
}

func (r *GormTaskRepository) CountStringIDPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("UPPER(string_id) LIKE ? ESCAPE '!'", prefixPattern(prefix)).
		Count(&count).Error
	return count, err
}
