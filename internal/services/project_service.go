package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/workforce-api/internal/constants"
	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/utils"
	"go.uber.org/zap"
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	ids         *StringIDGenerator
	deactivator *Deactivator
	aiService   *AIService
	locker      locker.Locker
	logger      *logger.Logger
	now         func() time.Time
}

// NewProjectService creates a new ProjectService. aiService may be nil.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	ids *StringIDGenerator,
	deactivator *Deactivator,
	aiService *AIService,
	lk locker.Locker,
	log *logger.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		ids:         ids,
		deactivator: deactivator,
		aiService:   aiService,
		locker:      lk,
		logger:      log,
		now:         time.Now,
	}
}

// ProjectView is a project with its derived worker set
type ProjectView struct {
	models.Project
	// Workers is the union of the workers of the project's active tasks.
	Workers []uint64
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Title       string
	Description string
	DutyDate    *time.Time
	ManagerID   uint64
}

// UpdateProjectInput represents a partial project update. Nil fields are unchanged.
type UpdateProjectInput struct {
	Title       *string
	Description *string
	DutyDate    *time.Time
	ManagerID   *uint64
	StringID    *string
	CreateDate  *time.Time
}

func (s *ProjectService) Create(ctx context.Context, actor Actor, input CreateProjectInput) (*ProjectView, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if err := s.checkManager(ctx, input.ManagerID); err != nil {
		return nil, err
	}

	now := s.now()
	createDate := utils.StartOfDay(now)
	due := now.AddDate(0, 0, constants.DefaultProjectDutyDays)
	if input.DutyDate != nil {
		due = *input.DutyDate
	}
	dutyDate := utils.EndOfDay(due)
	if !dutyDate.After(createDate) {
		return nil, invalid("dutyDate", "must be after the creation date")
	}

	stringID, release, err := s.ids.Reserve(ctx, KindProject, title)
	if err != nil {
		return nil, err
	}
	defer release()

	project := &models.Project{
		StringID:    stringID,
		Title:       title,
		Description: input.Description,
		CreateDate:  createDate,
		DutyDate:    dutyDate,
		ManagerID:   input.ManagerID,
		Active:      true,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created", zap.Uint64("project_id", project.ID), zap.String("string_id", stringID))

	return s.Get(ctx, project.ID)
}

func (s *ProjectService) Update(ctx context.Context, actor Actor, id uint64, input UpdateProjectInput) (*ProjectView, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, locker.ProjectKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}
	defer unlock()

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindProject, id)
	}
	if !project.Active {
		return nil, invalid("id", "project is inactive")
	}

	if input.StringID != nil && *input.StringID != project.StringID {
		return nil, invalid("stringId", "is immutable")
	}
	if input.CreateDate != nil && !input.CreateDate.Equal(project.CreateDate) {
		return nil, invalid("createDate", "is immutable")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, invalid("title", "cannot be empty")
		}
		project.Title = title
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.ManagerID != nil && *input.ManagerID != project.ManagerID {
		if err := s.checkManager(ctx, *input.ManagerID); err != nil {
			return nil, err
		}
		project.ManagerID = *input.ManagerID
		project.Manager = nil
	}

	clamp := false
	if input.DutyDate != nil {
		dutyDate := utils.EndOfDay(*input.DutyDate)
		if dutyDate.Before(s.now()) {
			return nil, invalid("dutyDate", "cannot be in the past")
		}
		if !dutyDate.After(project.CreateDate) {
			return nil, invalid("dutyDate", "must be after the creation date")
		}
		clamp = dutyDate.Before(project.DutyDate)
		project.DutyDate = dutyDate
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if clamp {
		if err := s.taskRepo.ClampDutyDates(ctx, id, project.DutyDate); err != nil {
			return nil, &PartialFailureError{Operation: "updateProject", Step: "clamp task duty dates", Cause: err}
		}
	}

	return s.Get(ctx, id)
}

// Get returns a project with its derived workers
func (s *ProjectService) Get(ctx context.Context, id uint64) (*ProjectView, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindProject, id)
	}
	return s.view(ctx, *project)
}

// List returns active projects visible to the actor
func (s *ProjectService) List(ctx context.Context, actor Actor, query repository.Query, opts repository.ListOptions) ([]ProjectView, int64, error) {
	visibility, err := VisibilityScope(KindProject, actor)
	if err != nil {
		return nil, 0, err
	}
	scopes, err := repository.ProjectSchema.Scopes(query)
	if err != nil {
		return nil, 0, filterError(err)
	}

	opts.Scopes = append(append(opts.Scopes, visibility...), scopes...)
	projects, total, err := s.projectRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		v, err := s.view(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *v)
	}
	return views, total, nil
}

func (s *ProjectService) Deactivate(ctx context.Context, actor Actor, id uint64) error {
	if err := actor.requireManager(); err != nil {
		return err
	}
	return s.deactivator.Deactivate(ctx, KindProject, id)
}

// GenerateTaskDrafts suggests tasks for the project from free text. Drafts are not stored;
// their duty dates are clamped into the project's window.
func (s *ProjectService) GenerateTaskDrafts(ctx context.Context, actor Actor, id uint64, text string) ([]TaskDraft, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text", "is required")
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindProject, id)
	}
	if !project.Active {
		return nil, invalid("id", "project is inactive")
	}

	drafts, err := s.aiService.DraftTasks(ctx, project.Title, project.DutyDate, text)
	if err != nil {
		return nil, &CollaboratorError{Name: "openai", Cause: err}
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		drafts = drafts[:constants.MaxAIGeneratedTasks]
	}

	earliest := utils.EndOfDay(s.now())
	valid := make([]TaskDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			continue
		}
		if !models.TaskPriority(d.Priority).Valid() {
			d.Priority = string(models.TaskPriorityLow)
		}

		due := project.DutyDate
		if d.DutyDate != nil {
			due = utils.EndOfDay(*d.DutyDate)
		}
		if due.Before(earliest) {
			due = earliest
		}
		if due.After(project.DutyDate) {
			due = project.DutyDate
		}
		d.DutyDate = &due

		valid = append(valid, d)
	}

	if len(valid) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	return valid, nil
}

func (s *ProjectService) view(ctx context.Context, project models.Project) (*ProjectView, error) {
	tasks, err := s.taskRepo.ListActiveByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project tasks: %w", err)
	}

	var workers []uint64
	for _, t := range tasks {
		workers = append(workers, t.Workers...)
	}

	return &ProjectView{Project: project, Workers: sortedIDs(uniqueUint64(workers))}, nil
}

// checkManager requires an active MANAGER or ADMIN
func (s *ProjectService) checkManager(ctx context.Context, managerID uint64) error {
	if managerID == 0 {
		return invalid("idManager", "is required")
	}
	manager, err := s.userRepo.FindByID(ctx, managerID)
	if err != nil {
		return notFoundOr(err, KindUser, managerID)
	}
	if !manager.Active {
		return invalid("idManager", "user is inactive")
	}
	if !manager.Role.CanManage() {
		return invalid("idManager", "user must be a MANAGER or ADMIN")
	}
	return nil
}
