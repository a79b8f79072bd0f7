package middleware

import (
	"fmt"
	"time"

	"codecampus/internal/gateway/service"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RateLimitPolicy bounds a route per caller and per client address.
type RateLimitPolicy struct {
	Window  time.Duration
	UserMax int
	IPMax   int
}

// RateLimitMiddleware enforces the route's rate limit policy. It runs
// after auth so the user dimension sees the verified identity.
func RateLimitMiddleware(rateService *service.RateLimitService, routeKey string, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateService == nil || policy.Window <= 0 {
			c.Next()
			return
		}
		if policy.IPMax > 0 {
			key := fmt.Sprintf("gateway:rate:ip:%s:%s", c.ClientIP(), routeKey)
			if err := rateService.Allow(c.Request.Context(), key, policy.IPMax, policy.Window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		if policy.UserMax > 0 {
			if userID, ok := c.Get("user_id"); ok {
				key := fmt.Sprintf("gateway:rate:user:%v:%s", userID, routeKey)
				if err := rateService.Allow(c.Request.Context(), key, policy.UserMax, policy.Window); err != nil {
					response.AbortWithError(c, err)
					return
				}
			}
		}
		c.Next()
	}
}
