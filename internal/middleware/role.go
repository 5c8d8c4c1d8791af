package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buildledger/internal/pkg/response"
)

const (
	RoleAdmin          = "admin"
	RoleFinanceManager = "finance_manager"
	RoleProjectManager = "project_manager"
	RoleInvestor       = "investor"
)

// RequireRole lets the request through when the token role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		if s, _ := role.(string); !allowed[s] {
			response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// FinanceOnly guards approvals, capital movements and destructive lifecycle calls.
func FinanceOnly() gin.HandlerFunc {
	return RequireRole(RoleAdmin, RoleFinanceManager)
}

// AdminOnly guards operator routes: outbox inspection and reconciliation.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}
