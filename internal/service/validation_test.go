package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

func TestValidationErrorReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()
	err := v.Struct(dto.CreateUserRequest{Email: "not-an-email", Role: "student", Password: "short"})
	require.Error(t, err)

	appErr := appErrors.FromError(validationError(err, "invalid create user payload"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid create user payload", appErr.Message)
	assert.Equal(t, []string{"email", "full_name", "password"}, appErrors.FieldNames(appErr))
	assert.Equal(t, "must be a valid email", appErr.Fields["email"])
	assert.Equal(t, "is required", appErr.Fields["full_name"])
	assert.Equal(t, "must be at least 8 characters", appErr.Fields["password"])
}

func TestValidationErrorWithoutFieldErrors(t *testing.T) {
	appErr := appErrors.FromError(validationError(assert.AnError, "bad"))
	assert.Nil(t, appErr.Fields)
	assert.Equal(t, 400, appErr.Status)
}
