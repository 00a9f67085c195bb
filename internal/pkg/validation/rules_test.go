package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: "abcdef12"},
		{name: "too short", in: "ab1", wantErr: true},
		{name: "no digit", in: "abcdefgh", wantErr: true},
		{name: "no letter", in: "12345678", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Password(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRuleViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmailAndUsername(t *testing.T) {
	assert.NoError(t, Email(NormalizeEmail("  Kofi.Mensah@Example.COM ")))
	assert.Error(t, Email("not-an-email"))
	assert.NoError(t, Username("kofi_m"))
	assert.Error(t, Username("Ko"))
}
