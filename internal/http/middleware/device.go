package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type ScreenLoader interface {
	GetScreenByDeviceToken(token string) (model.Screen, error)
}

// DeviceAuth identifies a paired player by its device token and sets
// “currentScreen” in context.
func DeviceAuth(screens ScreenLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "missing device token")
			return
		}
		screen, err := screens.GetScreenByDeviceToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid device token")
			return
		}
		if !screen.IsActive {
			abort(c, http.StatusForbidden, "screen is deactivated")
			return
		}
		c.Set("currentScreen", &screen)
		c.Next()
	}
}

// SharedSecret guards machine-to-machine endpoints such as the cron hook.
// An empty secret means the endpoint is not configured (503).
func SharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			abort(c, http.StatusServiceUnavailable, "endpoint is not configured")
			return
		}
		token, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			abort(c, http.StatusUnauthorized, "invalid secret")
			return
		}
		c.Next()
	}
}
