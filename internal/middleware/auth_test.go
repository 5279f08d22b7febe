package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]string

func (s stubValidator) ValidateToken(_ context.Context, token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func serve(handler gin.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen string
	r.GET("/", handler, func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthMiddleware(t *testing.T) {
	mw := AuthMiddleware(stubValidator{"good": "u1"})

	tests := []struct {
		name   string
		target string
		header string
		code   int
		userID string
	}{
		{name: "bearer", target: "/", header: "Bearer good", code: http.StatusOK, userID: "u1"},
		{name: "lowercase scheme", target: "/", header: "bearer good", code: http.StatusOK, userID: "u1"},
		{name: "query token", target: "/?token=good", code: http.StatusOK, userID: "u1"},
		{name: "missing", target: "/", code: http.StatusUnauthorized},
		{name: "bad scheme", target: "/", header: "Basic good", code: http.StatusUnauthorized},
		{name: "rejected", target: "/", header: "Bearer nope", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, seen := serve(mw, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.userID, seen)
		})
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "alice")
	rec, seen := serve(DevAuthMiddleware(), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", seen)

	rec, _ = serve(DevAuthMiddleware(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeaderTrust(t *testing.T) {
	id, err := HeaderTrust{}.ValidateToken(context.Background(), " bob ")
	assert.NoError(t, err)
	assert.Equal(t, "bob", id)
}
