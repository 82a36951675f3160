package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/database"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AdminHandler struct {
	assignments *services.AssignmentManager
	db          *gorm.DB
	logger      *logger.Logger
}

func NewAdminHandler(assignments *services.AssignmentManager, db *gorm.DB, log *logger.Logger) *AdminHandler {
	return &AdminHandler{assignments: assignments, db: db, logger: log}
}

// Reconcile repairs user work lists from the task side on demand
func (h *AdminHandler) Reconcile(c *gin.Context) {
	result, err := h.assignments.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health reports whether the database is reachable
func (h *AdminHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		apierrors.ServiceUnavailable(c, "Database unreachable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Workforce API is running",
	})
}
