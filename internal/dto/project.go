package dto

import (
	"time"

	"github.com/yukikurage/workforce-api/internal/services"
	"github.com/yukikurage/workforce-api/internal/utils"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64          `json:"id"`
	StringID    string          `json:"string_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreateDate  time.Time       `json:"create_date"`
	DutyDate    time.Time       `json:"duty_date"`
	ManagerID   uint64          `json:"manager_id"`
	Manager     *UserSummaryDTO `json:"manager,omitempty"`
	Workers     []uint64        `json:"workers"`
	Active      bool            `json:"active"`
}

// ProjectSummaryDTO is the embedded form of a project in tasks
type ProjectSummaryDTO struct {
	ID       uint64    `json:"id"`
	StringID string    `json:"string_id"`
	Title    string    `json:"title"`
	DutyDate time.Time `json:"duty_date"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO             `json:"projects"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateProjectRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DutyDate    *time.Time `json:"duty_date"`
	ManagerID   uint64     `json:"manager_id" binding:"required"`
}

// UpdateProjectRequest is a partial update. string_id and create_date are accepted
// only when unchanged.
type UpdateProjectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DutyDate    *time.Time `json:"duty_date"`
	ManagerID   *uint64    `json:"manager_id"`
	StringID    *string    `json:"string_id"`
	CreateDate  *time.Time `json:"create_date"`
}

// GenerateTasksRequest is the free text tasks are drafted from
type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required"`
}

// TaskDraftDTO is a suggested task that has not been stored
type TaskDraftDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DutyDate    *time.Time `json:"duty_date"`
}

// GenerateTasksResponse lists task drafts
type GenerateTasksResponse struct {
	Tasks []TaskDraftDTO `json:"tasks"`
}

func ToProjectDTO(view services.ProjectView) ProjectDTO {
	workers := view.Workers
	if workers == nil {
		workers = []uint64{}
	}
	return ProjectDTO{
		ID:          view.ID,
		StringID:    view.StringID,
		Title:       view.Title,
		Description: view.Description,
		CreateDate:  view.CreateDate,
		DutyDate:    view.DutyDate,
		ManagerID:   view.ManagerID,
		Manager:     ToUserSummaryDTO(view.Manager),
		Workers:     workers,
		Active:      view.Active,
	}
}

func ToProjectListResponse(views []services.ProjectView, params utils.PaginationParams, total int64) ProjectListResponse {
	items := make([]ProjectDTO, len(views))
	for i, v := range views {
		items[i] = ToProjectDTO(v)
	}
	return ProjectListResponse{Projects: items, Pagination: utils.NewPaginationResponse(params, total)}
}

func ToGenerateTasksResponse(drafts []services.TaskDraft) GenerateTasksResponse {
	items := make([]TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		items[i] = TaskDraftDTO{
			Title:       d.Title,
			Description: d.Description,
			Priority:    d.Priority,
			DutyDate:    d.DutyDate,
		}
	}
	return GenerateTasksResponse{Tasks: items}
}

func (r CreateProjectRequest) ToInput() services.CreateProjectInput {
	return services.CreateProjectInput{
		Title:       r.Title,
		Description: r.Description,
		DutyDate:    r.DutyDate,
		ManagerID:   r.ManagerID,
	}
}

func (r UpdateProjectRequest) ToInput() services.UpdateProjectInput {
	return services.UpdateProjectInput{
		Title:       r.Title,
		Description: r.Description,
		DutyDate:    r.DutyDate,
		ManagerID:   r.ManagerID,
		StringID:    r.StringID,
		CreateDate:  r.CreateDate,
	}
}
