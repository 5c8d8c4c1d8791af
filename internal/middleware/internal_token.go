package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"buildledger/internal/pkg/response"
)

// InternalTokenAuth protects the operations routes (outbox drain, reconciliation)
// with a static bearer token shared with the scheduler that calls them.
func InternalTokenAuth(token string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			logAuthFailure(c, log, http.StatusForbidden, "token_not_configured")
			response.CustomError(c, http.StatusForbidden, "AUTH_INVALID", "Internal routes are disabled")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(c, log, http.StatusUnauthorized, "missing_auth")
			response.CustomError(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logAuthFailure(c, log, http.StatusUnauthorized, "invalid_auth_format")
			response.CustomError(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			logAuthFailure(c, log, http.StatusForbidden, "invalid_token")
			response.CustomError(c, http.StatusForbidden, "AUTH_INVALID", "Invalid internal token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func logAuthFailure(c *gin.Context, log logrus.FieldLogger, status int, reason string) {
	log.WithFields(logrus.Fields{
		"status":     status,
		"request_id": requestID(c),
		"client_ip":  c.ClientIP(),
		"reason":     reason,
	}).Warn("internal auth rejected")
}
