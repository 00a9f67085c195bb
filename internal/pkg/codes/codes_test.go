package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigits(t *testing.T) {
	for _, n := range []int{1, 4, 10} {
		got, err := Digits(n)
		require.NoError(t, err)
		assert.Len(t, got, n)
		for _, r := range got {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
		}
	}
}

func TestDigitsRejectsNonPositiveLength(t *testing.T) {
	_, err := Digits(0)
	assert.Error(t, err)
}
