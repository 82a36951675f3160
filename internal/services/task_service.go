package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/utils"
	"go.uber.org/zap"
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	assignments *AssignmentManager
	deactivator *Deactivator
	ids         *StringIDGenerator
	locker      locker.Locker
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	assignments *AssignmentManager,
	deactivator *Deactivator,
	ids *StringIDGenerator,
	lk locker.Locker,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		assignments: assignments,
		deactivator: deactivator,
		ids:         ids,
		locker:      lk,
		logger:      log,
		now:         time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DutyDate    time.Time
	ProjectID   uint64
	ReporterID  *uint64
	Workers     []uint64
}

// UpdateTaskInput represents a partial task update. Nil fields are unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	DutyDate    *time.Time
	ReporterID  *uint64
	Workers     *[]uint64

	// Immutable; accepted only when equal to the stored value.
	StringID   *string
	CreateDate *time.Time
	ProjectID  *uint64
}

// Create validates the whole request, stores the task and assigns its workers.
func (s *TaskService) Create(ctx context.Context, actor Actor, input CreateTaskInput) (*models.Task, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, invalid("description", "is required")
	}
	if input.Status == "" {
		input.Status = models.TaskStatusNew
	}
	if !input.Status.Valid() {
		return nil, invalid("status", "must be one of NEW, IN_PROGRESS, FINISHED")
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityLow
	}
	if !input.Priority.Valid() {
		return nil, invalid("priority", "must be one of LOW, MEDIUM, HIGH")
	}
	if input.DutyDate.IsZero() {
		return nil, invalid("dutyDate", "is required")
	}

	reporterID := actor.ID
	if input.ReporterID != nil {
		reporterID = *input.ReporterID
	}
	if err := s.checkActiveUser(ctx, "reporter", reporterID); err != nil {
		return nil, err
	}

	workers := uniqueUint64(input.Workers)
	for _, id := range workers {
		if err := s.checkActiveUser(ctx, "workers", id); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locker.Lock(ctx, locker.ProjectKey(input.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}
	defer unlock()

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		return nil, notFoundOr(err, KindProject, input.ProjectID)
	}
	if !project.Active {
		return nil, invalid("idProject", "project is inactive")
	}

	now := s.now()
	if now.After(project.DutyDate) {
		return nil, invalid("idProject", "project is past its duty date")
	}
	createDate := utils.StartOfDay(now)
	dutyDate := utils.EndOfDay(input.DutyDate)
	if err := checkTaskDutyDate(createDate, dutyDate, project); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		CreateDate:  createDate,
		DutyDate:    dutyDate,
		ProjectID:   project.ID,
		ReporterID:  reporterID,
		Active:      true,
	}
	if err := s.store(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("task created", zap.Uint64("task_id", task.ID), zap.String("string_id", task.StringID))

	if len(workers) > 0 {
		if _, err := s.assignments.SetTaskWorkers(ctx, task.ID, workers); err != nil {
			if errors.Is(err, ErrPartialFailure) {
				return nil, err
			}
			return nil, &PartialFailureError{Operation: "createTask", Step: "assign workers", Cause: err}
		}
	}

	return s.Get(ctx, task.ID)
}

// store reserves the human id and inserts the task while the id prefix is locked
func (s *TaskService) store(ctx context.Context, task *models.Task) error {
	stringID, release, err := s.ids.Reserve(ctx, KindTask, task.Title)
	if err != nil {
		return err
	}
	defer release()

	task.StringID = stringID
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update applies a patch. Employees may only change the status of a task they work on.
func (s *TaskService) Update(ctx context.Context, actor Actor, id uint64, input UpdateTaskInput) (*models.Task, error) {
	if err := actor.requireActive(); err != nil {
		return nil, err
	}
	if actor.isEmployee() && !input.onlyStatus() {
		return nil, forbidden("employees may only change the task status")
	}

	unlock, err := s.locker.Lock(ctx, locker.TaskKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock task: %w", err)
	}

	task, err := s.update(ctx, actor, id, input)
	unlock()
	if err != nil {
		return nil, err
	}

	if input.Workers != nil {
		if _, err := s.assignments.SetTaskWorkers(ctx, task.ID, *input.Workers); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

func (s *TaskService) update(ctx context.Context, actor Actor, id uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, "Project")
	if err != nil {
		return nil, notFoundOr(err, KindTask, id)
	}
	if !task.Active {
		return nil, invalid("id", "task is inactive")
	}
	if actor.isEmployee() && !containsID(task.Workers, actor.ID) {
		return nil, forbidden("task is not assigned to you")
	}

	if input.StringID != nil && *input.StringID != task.StringID {
		return nil, invalid("stringId", "is immutable")
	}
	if input.CreateDate != nil && !input.CreateDate.Equal(task.CreateDate) {
		return nil, invalid("createDate", "is immutable")
	}
	if input.ProjectID != nil && *input.ProjectID != task.ProjectID {
		return nil, invalid("idProject", "is immutable")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, invalid("title", "cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, invalid("description", "cannot be empty")
		}
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalid("status", "must be one of NEW, IN_PROGRESS, FINISHED")
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, invalid("priority", "must be one of LOW, MEDIUM, HIGH")
		}
		task.Priority = *input.Priority
	}
	if input.ReporterID != nil && *input.ReporterID != task.ReporterID {
		if err := s.checkActiveUser(ctx, "reporter", *input.ReporterID); err != nil {
			return nil, err
		}
		task.ReporterID = *input.ReporterID
	}
	if input.DutyDate != nil {
		dutyDate := utils.EndOfDay(*input.DutyDate)
		if task.Project == nil {
			return nil, &NotFoundError{Kind: KindProject, ID: task.ProjectID}
		}
		if err := checkTaskDutyDate(task.CreateDate, dutyDate, task.Project); err != nil {
			return nil, err
		}
		task.DutyDate = dutyDate
	}

	if input.Workers != nil {
		for _, id := range uniqueUint64(*input.Workers) {
			if containsID(task.Workers, id) {
				continue
			}
			if err := s.checkActiveUser(ctx, "workers", id); err != nil {
				return nil, err
			}
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (in UpdateTaskInput) onlyStatus() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DutyDate == nil && in.ReporterID == nil && in.Workers == nil &&
		in.StringID == nil && in.CreateDate == nil && in.ProjectID == nil
}

// Get returns a task with its project and reporter
func (s *TaskService) Get(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, "Project", "Reporter")
	if err != nil {
		return nil, notFoundOr(err, KindTask, id)
	}
	return task, nil
}

// List returns active tasks visible to the actor
func (s *TaskService) List(ctx context.Context, actor Actor, query repository.Query, opts repository.ListOptions) ([]models.Task, int64, error) {
	visibility, err := VisibilityScope(KindTask, actor)
	if err != nil {
		return nil, 0, err
	}
	scopes, err := repository.TaskSchema.Scopes(query)
	if err != nil {
		return nil, 0, filterError(err)
	}

	opts.Scopes = append(append(opts.Scopes, visibility...), scopes...)
	tasks, total, err := s.taskRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *TaskService) Deactivate(ctx context.Context, actor Actor, id uint64) error {
	if err := actor.requireManager(); err != nil {
		return err
	}
	return s.deactivator.Deactivate(ctx, KindTask, id)
}

func (s *TaskService) checkActiveUser(ctx context.Context, field string, id uint64) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, KindUser, id)
	}
	if !user.Active {
		return invalid(field, fmt.Sprintf("user %d is inactive", id))
	}
	return nil
}

// checkTaskDutyDate requires createDate < dutyDate <= project duty date
func checkTaskDutyDate(createDate, dutyDate time.Time, project *models.Project) error {
	if !dutyDate.After(createDate) {
		return invalid("dutyDate", "must be after the creation date")
	}
	if dutyDate.After(project.DutyDate) {
		return invalid("dutyDate", "must not be after the project duty date")
	}
	return nil
}
