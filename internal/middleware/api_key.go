package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "homeserve/internal/errors"
)

var (
	errSupportNotConfigured = &apperrors.AppError{Code: "SUPPORT_NOT_CONFIGURED", Message: "Support endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	errInvalidAPIKey        = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// APIKeyAuth validates the X-API-Key header against the configured support
// key. An empty key disables the guarded routes.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			AbortWithError(c, errSupportNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			AbortWithError(c, errInvalidAPIKey)
			return
		}
		c.Next()
	}
}
