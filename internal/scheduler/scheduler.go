package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/services"
	"go.uber.org/zap"
)

// Reconciler repairs user work lists from the task side.
type Reconciler interface {
	Reconcile(ctx context.Context) (*services.ReconcileResult, error)
}

// Scheduler runs the reconciler on a fixed interval.
type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. An interval of zero or less disables it.
func NewScheduler(reconciler Reconciler, interval time.Duration, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

// Start launches the ticker loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Reconcile scheduler disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("Reconcile scheduler initialized", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runReconcile(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runReconcile(ctx context.Context) {
	startTime := time.Now()

	result, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.Error("Failed to reconcile work lists", zap.Error(err))
		return
	}

	s.logger.Debug("Completed work list reconciliation",
		zap.Int("checked", result.Checked),
		zap.Int("repaired", len(result.Repaired)),
		zap.Duration("duration", time.Since(startTime)),
	)
}
