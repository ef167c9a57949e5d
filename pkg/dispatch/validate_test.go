package dispatch

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Channel  string `json:"channel,omitempty" validate:"omitempty,oneof=sms email"`
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(credentials{Username: "ana", Password: "secret"}))
}

func TestValidateStruct_NamesJSONField(t *testing.T) {
	err := ValidateStruct(credentials{Username: "ana"})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "password", validationErr.Field)
	assert.Equal(t, "password is required", err.Error())
}

func TestValidateStruct_AggregatesFailures(t *testing.T) {
	err := ValidateStruct(credentials{Channel: "fax"})
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 3)

	fields := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var validationErr *ValidationError
		require.True(t, errors.As(e, &validationErr))
		fields = append(fields, validationErr.Field)
	}
	assert.ElementsMatch(t, []string{"username", "password", "channel"}, fields)

	// The first failure is still reachable through the aggregate
	var first *ValidationError
	assert.True(t, errors.As(err, &first))
}

func TestRequired(t *testing.T) {
	assert.NoError(t, Required("apiKey", "k1"))

	err := Required("apiKey", "   ")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "apiKey", validationErr.Field)
}
