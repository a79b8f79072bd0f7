package middleware

import (
	"strings"

	"codecampus/internal/gateway/service"
	pkgerrors "codecampus/pkg/errors"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AuthPolicy declares who may pass a route: public routes skip token
// checks entirely, protected routes may additionally pin allowed roles.
type AuthPolicy struct {
	Mode  string
	Roles []string
}

// AuthMiddleware authenticates the edge access token and enforces the
// route's role policy. On success the caller identity is stored for the
// proxy stage to turn into a trust assertion.
func AuthMiddleware(authService *service.AuthService, policy AuthPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(policy.Mode, "public") {
			c.Next()
			return
		}
		if authService == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
			return
		}

		token := extractBearerToken(c.GetHeader("Authorization"))
		info, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if len(policy.Roles) > 0 && !roleAllowed(info.Role, policy.Roles) {
			response.AbortWithErrorCode(c, pkgerrors.RoleNotAllowed, "")
			return
		}

		c.Set("user_id", info.ID)
		c.Set("user_role", info.Role)
		c.Next()
	}
}

func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func roleAllowed(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
