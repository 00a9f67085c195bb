package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

func TestCoerceSetting(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"GHS", "GHS"},
		{true, "true"},
		{float64(15000), "15000"},
		{2.5, "2.5"},
		{int64(7), "7"},
		{json.Number("1e3"), "1000"},
	}
	for _, tc := range cases {
		got, err := CoerceSetting(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%#v", tc.in)
	}

	_, err := CoerceSetting([]string{"a"})
	assert.Error(t, err)
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"voucher_price_postgraduate": 20000, "registration_open": false, "currency": "USD"}`), &payload))

	all, err := env.settings.Update(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "20000", all["voucher_price_postgraduate"])
	assert.Equal(t, "false", all["registration_open"])
	assert.Equal(t, "USD", all["currency"])
	assert.Equal(t, "UNI", all["id_prefix"])

	_, err = env.settings.Update(ctx, map[string]interface{}{})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.settings.Update(ctx, map[string]interface{}{" ": "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = env.settings.Update(ctx, map[string]interface{}{"nested": map[string]interface{}{"a": 1}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
