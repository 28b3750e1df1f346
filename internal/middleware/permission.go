package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	apperrors "homeserve/internal/errors"
)

// AccessChecker answers role and permission questions for a user.
type AccessChecker interface {
	HasPermission(ctx context.Context, userID uint, permission string) (bool, error)
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
}

// RequirePermission lets the request through only when the authenticated
// user holds permission. It must run after AuthMiddleware.
func RequirePermission(checker AccessChecker, permission string) gin.HandlerFunc {
	return requireAccess(func(ctx context.Context, userID uint) (bool, error) {
		return checker.HasPermission(ctx, userID, permission)
	})
}

// RequireRole lets the request through only when the authenticated user has
// role. It must run after AuthMiddleware.
func RequireRole(checker AccessChecker, role string) gin.HandlerFunc {
	return requireAccess(func(ctx context.Context, userID uint) (bool, error) {
		return checker.HasRole(ctx, userID, role)
	})
}

func requireAccess(check func(ctx context.Context, userID uint) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint(ContextUserID)
		if userID == 0 {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		allowed, err := check(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
