package utils

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"pasarchat/pkg/errors"
)

const MaxPageSize = 100

// PaginationParams represents limit/offset paging parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// GetPaginationParams extracts limit and offset, falling back to defaultLimit.
func GetPaginationParams(c echo.Context, defaultLimit int) PaginationParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{Limit: limit, Offset: offset}
}

// ParseTimeParam reads an RFC3339 timestamp query parameter. Missing means nil.
func ParseTimeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, errors.Validation(name + " must be an RFC3339 timestamp")
	}
	return &t, nil
}
