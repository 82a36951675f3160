package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/dto"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	logger         *logger.Logger
}

func NewProjectHandler(projectService *services.ProjectService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: log}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns active projects. Employees only see projects of their tasks.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	query, opts, ok := listRequest(c)
	if !ok {
		return
	}

	projects, total, err := h.projectService.List(c.Request.Context(), actor, query, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, opts.Pagination, total))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), actor, id, req.ToInput())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeactivateProject deactivates the project and cascades to its tasks
func (h *ProjectHandler) DeactivateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.projectService.Deactivate(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GenerateTasks drafts tasks for the project from free text using AI. Nothing is stored.
func (h *ProjectHandler) GenerateTasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.projectService.GenerateTaskDrafts(c.Request.Context(), actor, id, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerateTasksResponse(drafts))
}
