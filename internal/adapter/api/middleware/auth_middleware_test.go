package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if uid, ok := v[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var fromEcho, fromCtx string
	handler := mw(func(c echo.Context) error {
		fromEcho, _ = c.Get("uid").(string)
		fromCtx, _ = UserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})
	_ = handler(c)
	return rec, fromEcho, fromCtx
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(staticVerifier{"good": "alice"})

	tests := []struct {
		name   string
		header string
		query  string
		status int
		uid    string
	}{
		{"valid bearer", "Bearer good", "", http.StatusNoContent, "alice"},
		{"lowercase scheme", "bearer good", "", http.StatusNoContent, "alice"},
		{"query token", "", "good", http.StatusNoContent, "alice"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"malformed", "Token good", "", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec, fromEcho, fromCtx := run(t, m.Authenticate, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.uid, fromEcho)
			assert.Equal(t, tt.uid, fromCtx)
		})
	}
}

func TestIdentifyIsOptional(t *testing.T) {
	m := NewAuthMiddleware(staticVerifier{"good": "alice"})

	rec, _, uid := run(t, m.Identify, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, uid)

	rec, _, uid = run(t, m.Identify, httptest.NewRequest(http.MethodGet, "/ws?token=bad", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, uid)

	rec, _, uid = run(t, m.Identify, httptest.NewRequest(http.MethodGet, "/ws?token=good", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", uid)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)

	uid, ok := UserIDFromContext(WithUserID(context.Background(), "bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", uid)
}
