package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/auth"
	"github.com/yukikurage/workforce-api/internal/constants"
	"github.com/yukikurage/workforce-api/internal/dto"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/services"
	"go.uber.org/zap"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	tokenSecret []byte
	tokenTTL    time.Duration
	logger      *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, tokenSecret []byte, tokenTTL time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
		logger:      log,
	}
}

// Login authenticates a user by login and password, starts the session and
// returns a signed token in the auth-token header.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// FaceLogin authenticates the single active user recognised on the photo.
func (h *AuthHandler) FaceLogin(c *gin.Context) {
	var req dto.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, probability, err := h.authService.FaceLogin(c.Request.Context(), req.FacePhoto)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	h.logger.Info("face login", zap.Uint64("user_id", user.ID), zap.Float64("probability", probability))
	c.JSON(http.StatusOK, dto.FaceLoginResponse{User: dto.ToUserDTO(*user), Probability: probability})
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	token, err := auth.GenerateToken(user.ID, string(user.Role), user.FullName(), h.tokenSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Uint64("user_id", user.ID), zap.Error(err))
		apierrors.InternalError(c, "Failed to issue token")
		return false
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return false
	}

	c.Header(constants.AuthTokenHeader, token)
	return true
}
