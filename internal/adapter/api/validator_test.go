package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	OtherUserID string `json:"other_user_id" validate:"required,notblank"`
	Content     string `json:"content" validate:"max=5"`
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&sample{OtherUserID: "bob"}))

	err := v.Validate(&sample{OtherUserID: "   ", Content: "too long"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "other_user_id", verrs[0].Field())
	assert.Equal(t, "notblank", verrs[0].Tag())
	assert.Equal(t, "content", verrs[1].Field())
}
