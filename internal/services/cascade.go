package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workforce-api/internal/blob"
	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/metrics"
	"github.com/yukikurage/workforce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deactivator propagates active=false from an entity to everything depending on it.
//
// Steps run in order and stop at the first failure. The entity's own active flag is
// written last, so retrying a failed deactivation resumes the remaining steps.
// Deactivating an entity that is already inactive succeeds without writing.
type Deactivator struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	worklogs    *WorkLogService
	identity    identity.Provider
	blobs       blob.Store
	locker      locker.Locker
	logger      *logger.Logger
}

// NewDeactivator creates a new Deactivator
func NewDeactivator(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	worklogs *WorkLogService,
	idp identity.Provider,
	blobs blob.Store,
	lk locker.Locker,
	log *logger.Logger,
) *Deactivator {
	return &Deactivator{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		worklogs:    worklogs,
		identity:    idp,
		blobs:       blobs,
		locker:      lk,
		logger:      log,
	}
}

// Deactivate dispatches on kind.
func (d *Deactivator) Deactivate(ctx context.Context, kind EntityKind, id uint64) error {
	var err error
	switch kind {
	case KindTask:
		err = d.deactivateTask(ctx, id)
	case KindProject:
		err = d.deactivateProject(ctx, id)
	case KindUser:
		err = d.deactivateUser(ctx, id)
	default:
		return invalid("kind", fmt.Sprintf("%s cannot be deactivated", kind))
	}

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrPartialFailure):
		result = "partial"
	default:
		result = "rejected"
	}
	metrics.Deactivations.WithLabelValues(string(kind), result).Inc()

	return err
}

func (d *Deactivator) deactivateTask(ctx context.Context, taskID uint64) error {
	unlock, err := lockAround(ctx, d.locker, locker.TaskKey(taskID), func(ctx context.Context) ([]string, error) {
		task, err := d.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			return nil, notFoundOr(err, KindTask, taskID)
		}
		return userKeys(task.Workers), nil
	})
	if err != nil {
		return err
	}
	defer unlock()

	task, err := d.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return notFoundOr(err, KindTask, taskID)
	}
	if !task.Active {
		return nil
	}

	fail := func(step string, cause error) error {
		return d.partial("deactivateTask", step, cause, zap.Uint64("task_id", taskID))
	}

	workers := uniqueUint64(task.Workers)
	for _, userID := range workers {
		if _, err := d.worklogs.closeChain(ctx, userID, taskID); err != nil {
			return fail(fmt.Sprintf("close worklog chain of user %d", userID), err)
		}
	}

	for _, userID := range workers {
		user, err := d.userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fail(fmt.Sprintf("read user %d", userID), err)
		}
		if !containsID(user.Work, taskID) {
			continue
		}
		if err := d.userRepo.UpdateWork(ctx, userID, withoutID(user.Work, taskID)); err != nil {
			return fail(fmt.Sprintf("remove task from user %d", userID), err)
		}
	}

	if err := d.taskRepo.Deactivate(ctx, taskID); err != nil {
		return fail("mark task inactive", err)
	}

	d.logger.Info("task deactivated", zap.Uint64("task_id", taskID), zap.Int("workers", len(workers)))
	return nil
}

func (d *Deactivator) deactivateProject(ctx context.Context, projectID uint64) error {
	unlock, err := d.locker.Lock(ctx, locker.ProjectKey(projectID))
	if err != nil {
		return fmt.Errorf("failed to lock project: %w", err)
	}
	defer unlock()

	project, err := d.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return notFoundOr(err, KindProject, projectID)
	}
	if !project.Active {
		return nil
	}

	tasks, err := d.taskRepo.ListActiveByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list project tasks: %w", err)
	}

	for _, task := range tasks {
		if err := d.deactivateTask(ctx, task.ID); err != nil {
			if errors.Is(err, ErrPartialFailure) {
				return err
			}
			return d.partial("deactivateProject", fmt.Sprintf("deactivate task %d", task.ID), err,
				zap.Uint64("project_id", projectID))
		}
	}

	if err := d.projectRepo.Deactivate(ctx, projectID); err != nil {
		return d.partial("deactivateProject", "mark project inactive", err, zap.Uint64("project_id", projectID))
	}

	d.logger.Info("project deactivated", zap.Uint64("project_id", projectID), zap.Int("tasks", len(tasks)))
	return nil
}

func (d *Deactivator) deactivateUser(ctx context.Context, userID uint64) error {
	unlock, err := lockAround(ctx, d.locker, locker.UserKey(userID), func(ctx context.Context) ([]string, error) {
		user, err := d.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, notFoundOr(err, KindUser, userID)
		}
		return taskKeys(user.Work), nil
	})
	if err != nil {
		return err
	}
	defer unlock()

	user, err := d.userRepo.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, KindUser, userID)
	}
	if !user.Active {
		return nil
	}

	managed, err := d.projectRepo.FindActiveByManager(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list managed projects: %w", err)
	}
	if len(managed) > 0 {
		ids := make([]uint64, len(managed))
		for i, p := range managed {
			ids[i] = p.ID
		}
		return &IsManagerError{ProjectIDs: ids}
	}

	fail := func(step string, cause error) error {
		return d.partial("deactivateUser", step, cause, zap.Uint64("user_id", userID))
	}

	work := uniqueUint64(user.Work)
	for _, taskID := range work {
		if _, err := d.worklogs.closeChain(ctx, userID, taskID); err != nil {
			return fail(fmt.Sprintf("close worklog chain on task %d", taskID), err)
		}
	}

	for _, taskID := range work {
		task, err := d.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fail(fmt.Sprintf("read task %d", taskID), err)
		}
		if !containsID(task.Workers, userID) {
			continue
		}
		if err := d.taskRepo.UpdateWorkers(ctx, taskID, withoutID(task.Workers, userID)); err != nil {
			return fail(fmt.Sprintf("remove user from task %d", taskID), err)
		}
	}

	if user.FaceSubjectID != "" {
		if err := d.identity.Delete(ctx, user.FaceSubjectID); err != nil {
			metrics.CollaboratorFailures.WithLabelValues("identity").Inc()
			d.logger.Warn("failed to delete biometric identity",
				zap.Uint64("user_id", userID),
				zap.String("subject_id", user.FaceSubjectID),
				zap.Error(err),
			)
		}
	}

	if user.FacePhotoKey != "" {
		if err := d.blobs.Delete(ctx, user.FacePhotoKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
			metrics.CollaboratorFailures.WithLabelValues("blob").Inc()
			d.logger.Warn("failed to delete face photo", zap.Uint64("user_id", userID), zap.Error(err))
		}
	}

	if err := d.userRepo.Deactivate(ctx, userID); err != nil {
		return fail("mark user inactive", err)
	}

	d.logger.Info("user deactivated", zap.Uint64("user_id", userID), zap.Int("tasks", len(work)))
	return nil
}

func (d *Deactivator) partial(op, step string, cause error, fields ...zap.Field) error {
	d.logger.Error("deactivation stopped partway",
		append(fields, zap.String("operation", op), zap.String("step", step), zap.Error(cause))...,
	)
	return &PartialFailureError{Operation: op, Step: step, Cause: cause}
}
