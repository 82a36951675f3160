package repository

import (
	"context"
	"time"

	"github.com/yukikurage/workforce-api/internal/database"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/utils"
	"gorm.io/gorm"
)

// Scope narrows a query. Translated filters, visibility rules and pagination are all scopes.
type Scope = func(*gorm.DB) *gorm.DB

// ListOptions holds the scopes and page for a list query
type ListOptions struct {
	Scopes     []Scope
	Pagination utils.PaginationParams
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID regardless of its active flag
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDs returns the users among ids that exist, in no particular order
	FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error)

	// FindActiveByLogin finds the active user holding a login name
	FindActiveByLogin(ctx context.Context, login string) (*models.User, error)

	// FindActiveByFaceSubject finds the active user bound to a recognition subject
	FindActiveByFaceSubject(ctx context.Context, subjectID string) (*models.User, error)

	// Update saves every column of the user
	Update(ctx context.Context, user *models.User) error

	// UpdateWork rewrites only the user's assigned task list
	UpdateWork(ctx context.Context, id uint64, work []uint64) error

	// Deactivate sets active=false and clears work
	Deactivate(ctx context.Context, id uint64) error

	// List retrieves active users matching the options
	List(ctx context.Context, opts ListOptions) ([]models.User, int64, error)

	// ListActive returns every active user
	ListActive(ctx context.Context) ([]models.User, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uint64) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error

	// Deactivate sets active=false
	Deactivate(ctx context.Context, id uint64) error

	// List retrieves active projects matching the options
	List(ctx context.Context, opts ListOptions) ([]models.Project, int64, error)

	// FindActiveByManager lists active projects managed by the user
	FindActiveByManager(ctx context.Context, managerID uint64) ([]models.Project, error)

	// CountStringIDPrefix counts projects whose human id starts with prefix, case-insensitively
	CountStringIDPrefix(ctx context.Context, prefix string) (int64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// FindByIDs returns the tasks among ids that exist
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Task, error)

	Update(ctx context.Context, task *models.Task) error

	// UpdateWorkers rewrites only the task's worker list
	UpdateWorkers(ctx context.Context, id uint64, workers []uint64) error

	// Deactivate sets active=false and clears workers
	Deactivate(ctx context.Context, id uint64) error

	// List retrieves active tasks matching the options
	List(ctx context.Context, opts ListOptions) ([]models.Task, int64, error)

	// ListActive returns every active task
	ListActive(ctx context.Context) ([]models.Task, error)

	// ListActiveByProject returns the active tasks of a project
	ListActiveByProject(ctx context.Context, projectID uint64) ([]models.Task, error)

	// ClampDutyDates moves every task of the project due after dutyDate back to dutyDate
	ClampDutyDates(ctx context.Context, projectID uint64, dutyDate time.Time) error

	// CountStringIDPrefix counts tasks whose human id starts with prefix, case-insensitively
	CountStringIDPrefix(ctx context.Context, prefix string) (int64, error)
}

// WorkLogRepository defines the interface for the append-only worklog table
type WorkLogRepository interface {
	// Create appends entries in order
	Create(ctx context.Context, logs ...*models.WorkLog) error

	// Latest returns the newest entry of one (user, task) pair, or gorm.ErrRecordNotFound
	Latest(ctx context.Context, userID, taskID uint64) (*models.WorkLog, error)

	// List retrieves entries newest first with their user preloaded
	List(ctx context.Context, opts ListOptions) ([]models.WorkLog, int64, error)
}

// list counts and pages a model query with the given options
func list[T any](db *gorm.DB, opts ListOptions, order string, preload ...string) ([]T, int64, error) {
	var (
		items []T
		total int64
	)

	query := db.Model(new(T)).Scopes(opts.Scopes...).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order(order)
	if opts.Pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(opts.Pagination))
	}
	for _, p := range preload {
		listQuery = listQuery.Preload(p)
	}

	if err := listQuery.Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
