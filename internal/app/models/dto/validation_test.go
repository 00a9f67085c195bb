package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type voucherForm struct {
	Serial string `validate:"required"`
	Pin    string `validate:"required,len=6,numeric"`
}

func TestHandleValidationErrorListsFields(t *testing.T) {
	err := validator.New().Struct(voucherForm{Pin: "12"})
	require.Error(t, err)

	detail := HandleValidationError(err)

	assert.Equal(t, ErrorCodeValidationFailed, detail.Code)
	fields, ok := detail.Details.([]ErrorDetail)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "Serial", fields[0].Field)
	assert.Equal(t, "Serial is required", fields[0].Message)
	assert.Equal(t, "Pin must be exactly 6 characters", fields[1].Message)
	assert.Empty(t, detail.Field)
}

func TestHandleValidationErrorSingleField(t *testing.T) {
	err := validator.New().Struct(voucherForm{Serial: "S1", Pin: "12345a"})
	require.Error(t, err)

	detail := HandleValidationError(err)

	assert.Equal(t, "Pin", detail.Field)
}

func TestHandleValidationErrorMalformedJSON(t *testing.T) {
	var v map[string]any
	err := json.Unmarshal([]byte("{"), &v)

	detail := HandleValidationError(err)

	assert.Equal(t, ErrorCodeInvalidRequest, detail.Code)
}
