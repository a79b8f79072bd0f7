package trust

import (
	"context"
	"strings"

	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/contextkey"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RequireAssertion guards a protected route: the request must carry a
// valid trust assertion, optionally restricted to the given roles. The
// verified identity is placed into both the gin context and the request
// context for downstream logging and handlers.
func RequireAssertion(verifier *Verifier, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			response.AbortWithErrorCode(c, appErr.ServiceUnavailable, "trust verifier unavailable")
			return
		}
		assertion, err := verifier.Verify(strings.TrimSpace(c.GetHeader(Header)))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if len(roles) > 0 && !hasRole(assertion.Role, roles) {
			response.AbortWithErrorCode(c, appErr.RoleNotAllowed, "")
			return
		}

		c.Set("user_id", assertion.UserID)
		c.Set("user_role", assertion.Role)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, assertion.UserID)
		ctx = context.WithValue(ctx, contextkey.UserRole, assertion.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CallerFromContext returns the verified caller placed by RequireAssertion.
func CallerFromContext(c *gin.Context) (Assertion, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		return Assertion{}, false
	}
	role, ok := c.Get("user_role")
	if !ok {
		return Assertion{}, false
	}
	id, ok := userID.(int64)
	if !ok {
		return Assertion{}, false
	}
	roleStr, ok := role.(string)
	if !ok {
		return Assertion{}, false
	}
	return Assertion{UserID: id, Role: roleStr}, true
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
