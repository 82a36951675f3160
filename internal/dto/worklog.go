package dto

import (
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/utils"
)

// WorkLogDTO represents a worklog entry in API responses
type WorkLogDTO struct {
	ID           uint64         `json:"id"`
	UserID       uint64         `json:"user_id"`
	TaskID       uint64         `json:"task_id"`
	LogType      models.LogType `json:"log_type"`
	LogDate      time.Time      `json:"log_date"`
	UserFullName string         `json:"user_full_name,omitempty"`
}

// WorkLogListResponse represents a paginated list of worklog entries
type WorkLogListResponse struct {
	WorkLogs   []WorkLogDTO             `json:"worklogs"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// SubmitWorkLogRequest is the body of POST /api/worklogs
type SubmitWorkLogRequest struct {
	UserID  uint64         `json:"user_id" binding:"required"`
	TaskID  uint64         `json:"task_id" binding:"required"`
	LogType models.LogType `json:"log_type" binding:"required"`
}

// SubmitWorkLogResponse lists the stored entries, oldest first. More than one
// entry means the system inserted an AUTOBREAK before the requested entry.
type SubmitWorkLogResponse struct {
	Entries []WorkLogDTO `json:"entries"`
}

func ToWorkLogDTO(log models.WorkLog) WorkLogDTO {
	dto := WorkLogDTO{
		ID:      log.ID,
		UserID:  log.UserID,
		TaskID:  log.TaskID,
		LogType: log.LogType,
		LogDate: log.LogDate,
	}
	if log.User != nil {
		dto.UserFullName = log.User.FullName()
	}
	return dto
}

func ToWorkLogListResponse(logs []models.WorkLog, params utils.PaginationParams, total int64) WorkLogListResponse {
	items := make([]WorkLogDTO, len(logs))
	for i, l := range logs {
		items[i] = ToWorkLogDTO(l)
	}
	return WorkLogListResponse{WorkLogs: items, Pagination: utils.NewPaginationResponse(params, total)}
}

func ToSubmitWorkLogResponse(entries []models.WorkLog) SubmitWorkLogResponse {
	items := make([]WorkLogDTO, len(entries))
	for i, e := range entries {
		items[i] = ToWorkLogDTO(e)
	}
	return SubmitWorkLogResponse{Entries: items}
}
