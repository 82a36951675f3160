package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/middleware"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/services"
	"github.com/yukikurage/workforce-api/internal/utils"
	"go.uber.org/zap"
)

// respondError maps a service error to its HTTP response. Partial failures are
// checked first because they unwrap to the step's cause.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var (
		partial      *services.PartialFailureError
		notFound     *services.NotFoundError
		validation   *services.ValidationError
		transition   *services.InvalidTransitionError
		taken        *services.AlreadyTakenError
		isManager    *services.IsManagerError
		collaborator *services.CollaboratorError
	)

	switch {
	case errors.As(err, &partial):
		log.Error("operation partially applied", zap.String("operation", partial.Operation),
			zap.String("step", partial.Step), zap.Error(partial.Cause))
		apierrors.PartialFailure(c, partial.Error(), gin.H{"operation": partial.Operation, "step": partial.Step})
	case errors.As(err, &notFound):
		apierrors.NotFound(c, notFound.Error())
	case errors.As(err, &validation):
		apierrors.BadRequestWithDetails(c, validation.Error(), gin.H{"field": validation.Field, "reason": validation.Reason})
	case errors.As(err, &transition):
		current := string(transition.Current)
		if current == "" {
			current = "NONE"
		}
		apierrors.Conflict(c, apierrors.ErrCodeInvalidTransition, transition.Error(),
			gin.H{"current": current, "requested": transition.Requested})
	case errors.As(err, &taken):
		apierrors.Conflict(c, apierrors.ErrCodeAlreadyExists, taken.Error(), gin.H{"login": taken.Login})
	case errors.As(err, &isManager):
		apierrors.ForbiddenWithDetails(c, apierrors.ErrCodeIsManager, isManager.Error(), gin.H{"projects": isManager.ProjectIDs})
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, "")
	case errors.Is(err, services.ErrFaceNotRecognized):
		apierrors.Unauthorized(c, "Face not recognized")
	case errors.Is(err, identity.ErrDisabled), errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.As(err, &collaborator):
		log.Warn("collaborator failed", zap.String("collaborator", collaborator.Name), zap.Error(collaborator.Cause))
		apierrors.BadGateway(c, collaborator.Error(), gin.H{"collaborator": collaborator.Name})
	case errors.Is(err, services.ErrAINoTasksGenerated):
		apierrors.BadGateway(c, err.Error(), nil)
	default:
		log.Error("request failed", zap.Error(err))
		apierrors.InternalError(c, "")
	}
}

// parseID reads the :id path parameter, responding 400 when it is not a positive integer.
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid ID")
		return 0, false
	}
	return id, true
}

// currentActor returns the actor set by middleware.RequireAuth.
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return actor, ok
}

// listRequest reads the query and pagination parameters shared by every list endpoint.
func listRequest(c *gin.Context) (repository.Query, repository.ListOptions, bool) {
	query, err := repository.ParseQuery(c.Query("query"))
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return query, repository.ListOptions{}, false
	}
	if s := c.Query("search"); s != "" && query.SearchString == "" {
		query.SearchString = s
	}
	return query, repository.ListOptions{Pagination: utils.GetPaginationParams(c)}, true
}
