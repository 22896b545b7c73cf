package middleware

import (
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/logger"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLoader resolves the user behind a token together with its purchases.
type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware verifies the bearer token and puts both the claims and the
// request actor into the gin context.
func AuthMiddleware(secret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, util.ErrUserNotFound) {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}
		if user.Disabled {
			util.Error(c, http.StatusForbidden, "account disabled")
			c.Abort()
			return
		}

		c.Set(util.ContextClaimsKey, claims)
		c.Set(util.ContextActorKey, model.NewActor(user))
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := util.GetActorFromContext(c)
		if actor == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			if actor.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
