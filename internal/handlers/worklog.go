package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/dto"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/services"
)

type WorkLogHandler struct {
	worklogService *services.WorkLogService
	logger         *logger.Logger
}

func NewWorkLogHandler(worklogService *services.WorkLogService, log *logger.Logger) *WorkLogHandler {
	return &WorkLogHandler{worklogService: worklogService, logger: log}
}

// SubmitWorkLog appends an event to a (user, task) chain
func (h *WorkLogHandler) SubmitWorkLog(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.SubmitWorkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	entries, err := h.worklogService.Submit(c.Request.Context(), actor, services.SubmitWorkLogInput{
		UserID:  req.UserID,
		TaskID:  req.TaskID,
		LogType: req.LogType,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSubmitWorkLogResponse(entries))
}

// ListWorkLogs returns entries newest first
func (h *WorkLogHandler) ListWorkLogs(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	query, opts, ok := listRequest(c)
	if !ok {
		return
	}

	logs, total, err := h.worklogService.List(c.Request.Context(), actor, query, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkLogListResponse(logs, opts.Pagination, total))
}
