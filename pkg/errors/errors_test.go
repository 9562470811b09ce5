package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsSentinelIdentity(t *testing.T) {
	err := Clone(ErrNotFound, "program not found")
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, "program not found", FromError(wrapped).Message)
}

func TestFromErrorHidesUnknownCauses(t *testing.T) {
	cause := errors.New("pq: connection refused")
	appErr := FromError(cause)

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "internal server error", appErr.Message)
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, FromError(nil))
}

func TestWithFieldsDoesNotMutateSentinel(t *testing.T) {
	err := ErrValidation.WithFields(map[string]string{"email": "must be a valid email", "full_name": "is required"})

	assert.Nil(t, ErrValidation.Fields)
	assert.Equal(t, []string{"email", "full_name"}, FieldNames(err))
	assert.Equal(t, "is required", err.Fields["full_name"])

	again := Clone(err, "bad")
	again.Fields["email"] = "changed"
	assert.Equal(t, "must be a valid email", err.Fields["email"])
}
