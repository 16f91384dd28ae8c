package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SharedSecretRequired authenticates webhook and admin callers with a
// constant-time comparison against the configured shared secret.
func (s *Server) SharedSecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.cfg.WebhookSecret
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: errorPayload{
				Type:    "service_unavailable",
				Message: "shared secret not configured",
			}})
			return
		}
		provided := c.GetHeader("X-Shared-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorPayload{
				Type:    "unauthorized",
				Message: "invalid shared secret",
			}})
			return
		}
		c.Next()
	}
}
