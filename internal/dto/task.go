package dto

import (
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/services"
	"github.com/yukikurage/workforce-api/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	StringID    string              `json:"string_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	CreateDate  time.Time           `json:"create_date"`
	DutyDate    time.Time           `json:"duty_date"`
	ProjectID   uint64              `json:"project_id"`
	ReporterID  uint64              `json:"reporter_id"`
	Workers     []uint64            `json:"workers"`
	Active      bool                `json:"active"`
	Project     *ProjectSummaryDTO  `json:"project,omitempty"`
	Reporter    *UserSummaryDTO     `json:"reporter,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DutyDate    time.Time           `json:"duty_date" binding:"required"`
	ProjectID   uint64              `json:"project_id" binding:"required"`
	ReporterID  *uint64             `json:"reporter_id"`
	Workers     []uint64            `json:"workers"`
}

// UpdateTaskRequest is a partial update. string_id, create_date and project_id are
// accepted only when unchanged.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DutyDate    *time.Time           `json:"duty_date"`
	ReporterID  *uint64              `json:"reporter_id"`
	Workers     *[]uint64            `json:"workers"`
	StringID    *string              `json:"string_id"`
	CreateDate  *time.Time           `json:"create_date"`
	ProjectID   *uint64              `json:"project_id"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	workers := []uint64(task.Workers)
	if workers == nil {
		workers = []uint64{}
	}

	dto := TaskDTO{
		ID:          task.ID,
		StringID:    task.StringID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreateDate:  task.CreateDate,
		DutyDate:    task.DutyDate,
		ProjectID:   task.ProjectID,
		ReporterID:  task.ReporterID,
		Workers:     workers,
		Active:      task.Active,
		Reporter:    ToUserSummaryDTO(task.Reporter),
	}

	// Include project if preloaded
	if task.Project != nil && task.Project.ID != 0 {
		dto.Project = &ProjectSummaryDTO{
			ID:       task.Project.ID,
			StringID: task.Project.StringID,
			Title:    task.Project.Title,
			DutyDate: task.Project.DutyDate,
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}

func (r CreateTaskRequest) ToInput() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DutyDate:    r.DutyDate,
		ProjectID:   r.ProjectID,
		ReporterID:  r.ReporterID,
		Workers:     r.Workers,
	}
}

func (r UpdateTaskRequest) ToInput() services.UpdateTaskInput {
	return services.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DutyDate:    r.DutyDate,
		ReporterID:  r.ReporterID,
		Workers:     r.Workers,
		StringID:    r.StringID,
		CreateDate:  r.CreateDate,
		ProjectID:   r.ProjectID,
	}
}
