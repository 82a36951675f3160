package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/metrics"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentManager keeps users.work and tasks.workers mirrored.
//
// Each update locks the owning record and every record on the other side it may
// touch, validates the whole request, writes the back-references one record at a
// time and finally writes the owning list. A failure after the first write returns
// a PartialFailureError and leaves earlier writes in place; Reconcile repairs the
// user side from the task side.
type AssignmentManager struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	locker   locker.Locker
	logger   *logger.Logger
}

// NewAssignmentManager creates a new AssignmentManager
func NewAssignmentManager(userRepo repository.UserRepository, taskRepo repository.TaskRepository, lk locker.Locker, log *logger.Logger) *AssignmentManager {
	return &AssignmentManager{
		userRepo: userRepo,
		taskRepo: taskRepo,
		locker:   lk,
		logger:   log,
	}
}

// SetTaskWorkers makes the task's worker set equal to workerIDs and updates each
// affected user's work list. Calling it again with the same set writes nothing.
func (m *AssignmentManager) SetTaskWorkers(ctx context.Context, taskID uint64, workerIDs []uint64) ([]uint64, error) {
	target := uniqueUint64(workerIDs)

	unlock, err := lockAround(ctx, m.locker, locker.TaskKey(taskID), func(ctx context.Context) ([]string, error) {
		task, err := m.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			return nil, notFoundOr(err, KindTask, taskID)
		}
		return userKeys(task.Workers, target), nil
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := m.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, KindTask, taskID)
	}
	if !task.Active {
		return nil, invalid("workers", "task is inactive")
	}

	toAdd, toRemove := diffIDs(task.Workers, target)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return []uint64(task.Workers), nil
	}

	added, err := m.activeUsers(ctx, toAdd)
	if err != nil {
		return nil, err
	}

	fail := func(step string, cause error) error {
		return m.partial("setTaskWorkers", step, cause, zap.Uint64("task_id", taskID))
	}

	for _, user := range added {
		if containsID(user.Work, taskID) {
			continue
		}
		work := append(append([]uint64(nil), user.Work...), taskID)
		if err := m.userRepo.UpdateWork(ctx, user.ID, work); err != nil {
			return nil, fail(fmt.Sprintf("add task to user %d", user.ID), err)
		}
	}

	for _, userID := range toRemove {
		user, err := m.userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fail(fmt.Sprintf("read user %d", userID), err)
		}
		if !containsID(user.Work, taskID) {
			continue
		}
		if err := m.userRepo.UpdateWork(ctx, userID, withoutID(user.Work, taskID)); err != nil {
			return nil, fail(fmt.Sprintf("remove task from user %d", userID), err)
		}
	}

	if err := m.taskRepo.UpdateWorkers(ctx, taskID, target); err != nil {
		return nil, fail("write task workers", err)
	}

	return target, nil
}

// SetUserWork makes the user's work set equal to taskIDs and updates each affected
// task's worker list. It mirrors SetTaskWorkers with the sides swapped.
func (m *AssignmentManager) SetUserWork(ctx context.Context, userID uint64, taskIDs []uint64) ([]uint64, error) {
	target := uniqueUint64(taskIDs)

	unlock, err := lockAround(ctx, m.locker, locker.UserKey(userID), func(ctx context.Context) ([]string, error) {
		user, err := m.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, notFoundOr(err, KindUser, userID)
		}
		return taskKeys(user.Work, target), nil
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := m.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, KindUser, userID)
	}
	if !user.Active {
		return nil, invalid("work", "user is inactive")
	}

	toAdd, toRemove := diffIDs(user.Work, target)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return []uint64(user.Work), nil
	}

	added, err := m.activeTasks(ctx, toAdd)
	if err != nil {
		return nil, err
	}

	fail := func(step string, cause error) error {
		return m.partial("setUserWork", step, cause, zap.Uint64("user_id", userID))
	}

	for _, task := range added {
		if containsID(task.Workers, userID) {
			continue
		}
		workers := append(append([]uint64(nil), task.Workers...), userID)
		if err := m.taskRepo.UpdateWorkers(ctx, task.ID, workers); err != nil {
			return nil, fail(fmt.Sprintf("add user to task %d", task.ID), err)
		}
	}

	for _, taskID := range toRemove {
		task, err := m.taskRepo.FindByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fail(fmt.Sprintf("read task %d", taskID), err)
		}
		if !containsID(task.Workers, userID) {
			continue
		}
		if err := m.taskRepo.UpdateWorkers(ctx, taskID, withoutID(task.Workers, userID)); err != nil {
			return nil, fail(fmt.Sprintf("remove user from task %d", taskID), err)
		}
	}

	if err := m.userRepo.UpdateWork(ctx, userID, target); err != nil {
		return nil, fail("write user work", err)
	}

	return target, nil
}

// ReconcileResult summarises one reconciliation pass
type ReconcileResult struct {
	Checked  int      `json:"checked"`
	Repaired []uint64 `json:"repaired"`
}

// Reconcile re-derives every active user's work list from the active tasks' worker
// lists and rewrites the users whose list disagrees.
func (m *AssignmentManager) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	tasks, err := m.taskRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	expected := make(map[uint64][]uint64)
	for _, t := range tasks {
		for _, userID := range uniqueUint64(t.Workers) {
			expected[userID] = append(expected[userID], t.ID)
		}
	}

	users, err := m.userRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := &ReconcileResult{Repaired: []uint64{}}
	for _, u := range users {
		result.Checked++
		if sameSet(u.Work, expected[u.ID]) {
			continue
		}

		repaired, err := m.reconcileUser(ctx, u.ID, expected[u.ID])
		if err != nil {
			return result, fmt.Errorf("failed to reconcile user %d: %w", u.ID, err)
		}
		if repaired {
			result.Repaired = append(result.Repaired, u.ID)
			metrics.ReconcileRepairs.Inc()
		}
	}

	if len(result.Repaired) > 0 {
		m.logger.Warn("reconciliation repaired user work lists",
			zap.Int("checked", result.Checked),
			zap.Uint64s("repaired", result.Repaired),
		)
	}

	return result, nil
}

func (m *AssignmentManager) reconcileUser(ctx context.Context, userID uint64, expected []uint64) (bool, error) {
	unlock, err := lockAround(ctx, m.locker, locker.UserKey(userID), func(ctx context.Context) ([]string, error) {
		user, err := m.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return taskKeys(user.Work, expected), nil
	})
	if err != nil {
		return false, err
	}
	defer unlock()

	user, err := m.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.Active {
		return false, nil
	}

	candidates := uniqueUint64(append(append([]uint64(nil), user.Work...), expected...))
	tasks, err := m.taskRepo.FindByIDs(ctx, candidates)
	if err != nil {
		return false, err
	}

	assigned := make(map[uint64]bool, len(tasks))
	for _, t := range tasks {
		assigned[t.ID] = t.Active && containsID(t.Workers, userID)
	}

	// Keep the existing order for surviving entries, then append new ones by id.
	work := make([]uint64, 0, len(candidates))
	for _, id := range user.Work {
		if assigned[id] && !containsID(work, id) {
			work = append(work, id)
		}
	}
	for _, id := range sortedIDs(candidates) {
		if assigned[id] && !containsID(work, id) {
			work = append(work, id)
		}
	}

	if sameSet(user.Work, work) {
		return false, nil
	}
	if err := m.userRepo.UpdateWork(ctx, userID, work); err != nil {
		return false, err
	}
	return true, nil
}

// activeUsers loads ids and fails before any write when one is missing or inactive.
func (m *AssignmentManager) activeUsers(ctx context.Context, ids []uint64) ([]models.User, error) {
	users, err := m.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	byID := make(map[uint64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	ordered := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{Kind: KindUser, ID: id}
		}
		if !u.Active {
			return nil, invalid("workers", fmt.Sprintf("user %d is inactive", id))
		}
		ordered = append(ordered, u)
	}
	return ordered, nil
}

func (m *AssignmentManager) activeTasks(ctx context.Context, ids []uint64) ([]models.Task, error) {
	tasks, err := m.taskRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	byID := make(map[uint64]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	ordered := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{Kind: KindTask, ID: id}
		}
		if !t.Active {
			return nil, invalid("work", fmt.Sprintf("task %d is inactive", id))
		}
		ordered = append(ordered, t)
	}
	return ordered, nil
}

func (m *AssignmentManager) partial(op, step string, cause error, fields ...zap.Field) error {
	metrics.AssignmentPartialFailures.Inc()
	m.logger.Error("assignment update stopped partway",
		append(fields, zap.String("operation", op), zap.String("step", step), zap.Error(cause))...,
	)
	return &PartialFailureError{Operation: op, Step: step, Cause: cause}
}
