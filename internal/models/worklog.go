package models

import "time"

type LogType string

const (
	LogTypeWork      LogType = "WORK"
	LogTypeBreak     LogType = "BREAK"
	LogTypeAutoBreak LogType = "AUTOBREAK"
	LogTypeClose     LogType = "CLOSE"
)

func (t LogType) Valid() bool {
	switch t {
	case LogTypeWork, LogTypeBreak, LogTypeAutoBreak, LogTypeClose:
		return true
	}
	return false
}

// WorkLog is an append-only activity event for one (user, task) pair.
type WorkLog struct {
	ID      uint64    `gorm:"primarykey" json:"id"`
	UserID  uint64    `gorm:"not null;index:idx_worklogs_pair,priority:1" json:"user_id"`
	TaskID  uint64    `gorm:"not null;index:idx_worklogs_pair,priority:2" json:"task_id"`
	LogDate time.Time `gorm:"not null;index:idx_worklogs_pair,priority:3" json:"log_date"`
	LogType LogType   `gorm:"type:varchar(20);not null" json:"log_type"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
