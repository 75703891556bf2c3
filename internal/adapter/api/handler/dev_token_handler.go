package handler

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"pasarchat/pkg/errors"
	"pasarchat/pkg/response"
)

// TokenIssuer mints development tokens.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type DevTokenHandler struct {
	issuer TokenIssuer
}

// NewDevTokenHandler serves POST /v1/dev/token.
func NewDevTokenHandler(issuer TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issuer: issuer,
	}
}

type devTokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateToken mints a token for any user id so the API can be exercised
// without Firebase.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return response.Error(c, errors.Validation("user_id is required"))
	}

	token, expiresAt, err := h.issuer.Issue(userID)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to issue token", err))
	}

	return response.Success(c, devTokenResponse{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
}
