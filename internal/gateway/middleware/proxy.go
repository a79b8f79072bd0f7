package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"codecampus/internal/trust"
	pkgerrors "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"
	"codecampus/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyHandler forwards a route to its upstream, exchanging the verified
// edge identity for a freshly minted trust assertion.
//
// The inbound assertion header is always stripped: only the gateway may
// produce it, a client-supplied value is a spoofing attempt.
func ProxyHandler(proxy *httputil.ReverseProxy, issuer *trust.Issuer, routeName string, timeout time.Duration, stripPrefix string) gin.HandlerFunc {
	if proxy != nil {
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			resp := response.Response{
				Code:    pkgerrors.ServiceUnavailable,
				Message: pkgerrors.ServiceUnavailable.Message(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(pkgerrors.ServiceUnavailable.HTTPStatus())
			_ = json.NewEncoder(w).Encode(resp)
		}
	}

	return func(c *gin.Context) {
		if proxy == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "upstream proxy unavailable")
			return
		}
		req := c.Request
		if timeout > 0 {
			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()
			req = req.WithContext(ctx)
		}
		if stripPrefix != "" && strings.HasPrefix(req.URL.Path, stripPrefix) {
			path := strings.TrimPrefix(req.URL.Path, stripPrefix)
			if path == "" {
				path = "/"
			}
			req.URL.Path = path
		}

		req.Header.Del(trust.Header)
		if err := stampAssertion(c, req, issuer); err != nil {
			logger.Error(c.Request.Context(), "mint trust assertion failed",
				zap.String("route", routeName),
				zap.Error(err))
			response.AbortWithErrorCode(c, pkgerrors.InternalServerError, "")
			return
		}
		forwardTraceHeaders(c, req)
		req.Header.Set("X-Route-Name", routeName)
		req.Header.Set("X-Real-IP", c.ClientIP())
		proxy.ServeHTTP(c.Writer, req)
	}
}

// stampAssertion mints the internal identity header for authenticated
// callers. Public routes carry no identity and forward without one.
func stampAssertion(c *gin.Context, req *http.Request, issuer *trust.Issuer) error {
	userID, hasUser := c.Get("user_id")
	role, hasRole := c.Get("user_role")
	if !hasUser || !hasRole || issuer == nil {
		return nil
	}
	id, ok := userID.(int64)
	if !ok {
		return nil
	}
	roleStr, ok := role.(string)
	if !ok {
		return nil
	}
	token, err := issuer.Issue(id, roleStr)
	if err != nil {
		return err
	}
	req.Header.Set(trust.Header, token)
	return nil
}

func forwardTraceHeaders(c *gin.Context, req *http.Request) {
	if traceID, ok := c.Get("trace_id"); ok {
		if s, ok := traceID.(string); ok {
			req.Header.Set("X-Trace-Id", s)
		}
	}
	if requestID, ok := c.Get("request_id"); ok {
		if s, ok := requestID.(string); ok {
			req.Header.Set("X-Request-Id", s)
		}
	}
}
