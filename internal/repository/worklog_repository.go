package repository

import (
	"context"

	"github.com/yukikurage/workforce-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkLogRepository is a GORM implementation of WorkLogRepository
type GormWorkLogRepository struct {
	db *gorm.DB
}

// NewWorkLogRepository creates a new WorkLogRepository
func NewWorkLogRepository(db *gorm.DB) WorkLogRepository {
	return &GormWorkLogRepository{db: db}
}

// Create inserts the entries in one transaction so a synthesized pair is stored together.
func (r *GormWorkLogRepository) Create(ctx context.Context, logs ...*models.WorkLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range logs {
			if err := tx.Omit("User").Create(l).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormWorkLogRepository) Latest(ctx context.Context, userID, taskID uint64) (*models.WorkLog, error) {
	var log models.WorkLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Order("log_date DESC").
		Order("id DESC").
		First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *GormWorkLogRepository) List(ctx context.Context, opts ListOptions) ([]models.WorkLog, int64, error) {
	return list[models.WorkLog](r.db.WithContext(ctx), opts, "log_date DESC, id DESC", "User")
}
