package trust_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codecampus/internal/trust"
	appErr "codecampus/pkg/errors"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter(t *testing.T, roles ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	verifier, err := trust.NewVerifier(testSecret, testIssuer)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	router := gin.New()
	router.GET("/protected", trust.RequireAssertion(verifier, roles...), func(c *gin.Context) {
		caller, ok := trust.CallerFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID, "role": caller.Role})
	})
	return router
}

func issueToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	issuer, err := trust.NewIssuer(testSecret, testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}
	token, err := issuer.Issue(userID, role)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(trust.Header, token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRequireAssertion_MissingAssertionRejected(t *testing.T) {
	router := newProtectedRouter(t)
	recorder := doRequest(router, "")
	if recorder.Code != appErr.AssertionMissing.HTTPStatus() {
		t.Errorf("status = %d, want %d", recorder.Code, appErr.AssertionMissing.HTTPStatus())
	}
}

func TestRequireAssertion_InvalidAssertionRejected(t *testing.T) {
	router := newProtectedRouter(t)
	recorder := doRequest(router, "garbage")
	if recorder.Code != appErr.AssertionInvalid.HTTPStatus() {
		t.Errorf("status = %d, want %d", recorder.Code, appErr.AssertionInvalid.HTTPStatus())
	}
}

func TestRequireAssertion_PassesCallerThrough(t *testing.T) {
	router := newProtectedRouter(t)
	recorder := doRequest(router, issueToken(t, 42, "student"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", recorder.Code, recorder.Body.String())
	}
	var body struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.UserID != 42 || body.Role != "student" {
		t.Errorf("caller = %+v", body)
	}
}

func TestRequireAssertion_RolePolicy(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		allowed    []string
		wantStatus int
	}{
		{"allowed role", "teacher", []string{"teacher"}, http.StatusOK},
		{"case insensitive", "Teacher", []string{"teacher"}, http.StatusOK},
		{"role not allowed", "student", []string{"teacher"}, appErr.RoleNotAllowed.HTTPStatus()},
		{"no restriction", "student", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newProtectedRouter(t, tt.allowed...)
			recorder := doRequest(router, issueToken(t, 7, tt.role))
			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
		})
	}
}
