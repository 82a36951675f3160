package middleware

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/auth"
	"github.com/yukikurage/workforce-api/internal/constants"
	apierrors "github.com/yukikurage/workforce-api/internal/errors"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/services"
	"gorm.io/gorm"
)

// RequireAuth identifies the caller by the signed token in the auth-token header
// (or a Bearer Authorization header), falling back to the session cookie. The user
// is re-read on every request so role and active changes apply immediately.
func RequireAuth(userRepo repository.UserRepository, tokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requestUserID(c, tokenSecret)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.Unauthorized(c, "")
			} else {
				apierrors.InternalError(c, "Failed to load user")
			}
			c.Abort()
			return
		}
		if !user.Active {
			apierrors.Forbidden(c, "User is inactive")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyActor, services.ActorFromUser(user))
		c.Next()
	}
}

func requestUserID(c *gin.Context, tokenSecret []byte) (uint64, bool) {
	token := c.GetHeader(constants.AuthTokenHeader)
	if token == "" {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token != "" {
		claims, err := auth.ParseToken(token, tokenSecret)
		if err != nil {
			return 0, false
		}
		return claims.ID, true
	}

	session := sessions.Default(c)
	return toUint64(session.Get(constants.ContextKeyUserID))
}

// RequireRole lets through only actors holding one of roles. Must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		apierrors.Forbidden(c, "Insufficient role")
		c.Abort()
	}
}

// GetActor retrieves the authenticated actor from context
func GetActor(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
