package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/metrics"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkLogService appends worklog events through the transition rules of Decide.
type WorkLogService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	logRepo  repository.WorkLogRepository
	locker   locker.Locker
	logger   *logger.Logger
	now      func() time.Time
}

// NewWorkLogService creates a new WorkLogService
func NewWorkLogService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, logRepo repository.WorkLogRepository, lk locker.Locker, log *logger.Logger) *WorkLogService {
	return &WorkLogService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		logRepo:  logRepo,
		locker:   lk,
		logger:   log,
		now:      time.Now,
	}
}

// SubmitWorkLogInput is one requested event for a (user, task) pair
type SubmitWorkLogInput struct {
	UserID  uint64
	TaskID  uint64
	LogType models.LogType
}

// Submit validates the request, then under the task, user and pair locks decides
// and stores the resulting entries. It returns the stored entries, oldest first.
func (s *WorkLogService) Submit(ctx context.Context, actor Actor, input SubmitWorkLogInput) ([]models.WorkLog, error) {
	if err := actor.requireActive(); err != nil {
		return nil, err
	}
	if !input.LogType.Valid() {
		return nil, invalid("logType", "must be one of WORK, BREAK, AUTOBREAK, CLOSE")
	}
	if actor.isEmployee() && actor.ID != input.UserID {
		return nil, forbidden("employees may only log their own work")
	}

	// Deactivation closes chains under the task and user locks, so the active
	// checks below hold until the append.
	unlock, err := s.locker.Lock(ctx,
		locker.TaskKey(input.TaskID),
		locker.UserKey(input.UserID),
		locker.PairKey(input.UserID, input.TaskID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock worklog chain: %w", err)
	}
	defer unlock()

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, notFoundOr(err, KindUser, input.UserID)
	}
	if !user.Active {
		return nil, invalid("idUser", "user is inactive")
	}

	task, err := s.taskRepo.FindByID(ctx, input.TaskID)
	if err != nil {
		return nil, notFoundOr(err, KindTask, input.TaskID)
	}
	if !task.Active {
		return nil, invalid("idTask", "task is inactive")
	}

	entries, err := s.appendLocked(ctx, input.UserID, input.TaskID, input.LogType)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			metrics.WorkLogSubmissions.WithLabelValues(string(input.LogType), "rejected").Inc()
		}
		return nil, err
	}

	metrics.WorkLogSubmissions.WithLabelValues(string(input.LogType), "accepted").Inc()
	if len(entries) > 1 {
		metrics.SyntheticEntries.WithLabelValues(string(models.LogTypeAutoBreak)).Inc()
		s.logger.Info("auto break inserted before new work session",
			zap.Uint64("user_id", input.UserID),
			zap.Uint64("task_id", input.TaskID),
		)
	}

	return entries, nil
}

// closeChain appends a synthetic CLOSE when the pair has an open chain.
// A pair with no history or already closed is left untouched.
func (s *WorkLogService) closeChain(ctx context.Context, userID, taskID uint64) (bool, error) {
	unlock, err := s.locker.Lock(ctx, locker.PairKey(userID, taskID))
	if err != nil {
		return false, fmt.Errorf("failed to lock worklog chain: %w", err)
	}
	defer unlock()

	latest, err := s.latest(ctx, userID, taskID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.LogType == models.LogTypeClose {
		return false, nil
	}

	if _, err := s.appendLocked(ctx, userID, taskID, models.LogTypeClose); err != nil {
		return false, err
	}

	metrics.SyntheticEntries.WithLabelValues(string(models.LogTypeClose)).Inc()
	return true, nil
}

// appendLocked must run under the pair lock.
func (s *WorkLogService) appendLocked(ctx context.Context, userID, taskID uint64, requested models.LogType) ([]models.WorkLog, error) {
	latest, err := s.latest(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var current models.LogType
	if latest != nil {
		current = latest.LogType
	}

	types, err := Decide(current, requested)
	if err != nil {
		return nil, err
	}

	// Entries are strictly newer than the chain's latest even if the clock stepped back.
	ts := s.now().Truncate(time.Millisecond)
	if latest != nil && !ts.After(latest.LogDate) {
		ts = latest.LogDate.Add(time.Millisecond)
	}

	entries := make([]models.WorkLog, len(types))
	ptrs := make([]*models.WorkLog, len(types))
	for i, t := range types {
		entries[i] = models.WorkLog{
			UserID:  userID,
			TaskID:  taskID,
			LogDate: ts.Add(time.Duration(i) * time.Millisecond),
			LogType: t,
		}
		ptrs[i] = &entries[i]
	}

	if err := s.logRepo.Create(ctx, ptrs...); err != nil {
		return nil, fmt.Errorf("failed to store worklog: %w", err)
	}

	return entries, nil
}

func (s *WorkLogService) latest(ctx context.Context, userID, taskID uint64) (*models.WorkLog, error) {
	latest, err := s.logRepo.Latest(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read latest worklog: %w", err)
	}
	return latest, nil
}

// State returns the latest entry type of a pair, empty when it has no history.
func (s *WorkLogService) State(ctx context.Context, userID, taskID uint64) (models.LogType, error) {
	latest, err := s.latest(ctx, userID, taskID)
	if err != nil || latest == nil {
		return "", err
	}
	return latest.LogType, nil
}

// List returns worklogs newest first. Employees only see their own entries.
func (s *WorkLogService) List(ctx context.Context, actor Actor, query repository.Query, opts repository.ListOptions) ([]models.WorkLog, int64, error) {
	visibility, err := VisibilityScope(KindWorkLog, actor)
	if err != nil {
		return nil, 0, err
	}

	scopes, err := repository.WorkLogSchema.Scopes(query)
	if err != nil {
		return nil, 0, filterError(err)
	}

	opts.Scopes = append(append(opts.Scopes, visibility...), scopes...)
	logs, total, err := s.logRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list worklogs: %w", err)
	}

	return logs, total, nil
}

// notFoundOr maps gorm's missing-record error to a typed NotFoundError
func notFoundOr(err error, kind EntityKind, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("failed to find %s: %w", kind, err)
}

func filterError(err error) error {
	var fe *repository.FilterError
	if errors.As(err, &fe) {
		return invalid(fe.Name, fe.Reason)
	}
	return err
}
