package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pasarchat/pkg/errors"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorAppError(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, fmt.Errorf("op: %w", apperrors.Forbidden("User is not a participant in this chat", nil))))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, apperrors.CodeForbidden, body.Error.Code)
}

func TestErrorRateLimitedSetsRetryAfter(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, apperrors.TooManyRequests("slow down", 1500*time.Millisecond)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestErrorUnknownIsInternal(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Error(c, fmt.Errorf("disk on fire")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeInternal, decode(t, rec).Error.Code)
}

func TestCreated(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, Created(c, map[string]string{"id": "m1"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode(t, rec).Success)
}
