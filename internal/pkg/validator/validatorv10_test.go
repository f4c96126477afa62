package validator_test

import (
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyInput struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Token  string `json:"token" validate:"required"`
	Name   string `json:"name" validate:"omitempty,notblank"`
}

func TestV10Validator(t *testing.T) {
	t.Parallel()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(verifyInput{UserID: "0190a5c3-8f5e-7cc0-9d35-7c1a8e0b3f11", Token: "012345"}))

	err = v.Validate(verifyInput{UserID: "nope", Name: "   "})
	require.Error(t, err)

	var verr validator.V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user_id must be a valid UUID", verr.Values()["user_id"])
	assert.Equal(t, "token is a required field", verr.Values()["token"])
	assert.Equal(t, "name must not be blank", verr.Values()["name"])
}
