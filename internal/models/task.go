package models

import (
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "NEW"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusFinished   TaskStatus = "FINISHED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusFinished:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uint64                      `gorm:"primarykey" json:"id"`
	StringID    string                      `gorm:"type:varchar(100);not null;index" json:"string_id"`
	Title       string                      `gorm:"type:varchar(255);not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Status      TaskStatus                  `gorm:"type:varchar(20);not null;default:'NEW'" json:"status"`
	Priority    TaskPriority                `gorm:"type:varchar(20);not null;default:'LOW'" json:"priority"`
	CreateDate  time.Time                   `gorm:"not null" json:"create_date"`
	DutyDate    time.Time                   `gorm:"not null;index" json:"duty_date"`
	ProjectID   uint64                      `gorm:"not null;index" json:"project_id"`
	ReporterID  uint64                      `gorm:"not null" json:"reporter_id"`
	Workers     datatypes.JSONSlice[uint64] `json:"workers"`
	Active      bool                        `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`

	// Relations
	Project  *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Reporter *User    `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
}
