// Package codes generates the random numeric strings used for voucher
// serials, PINs and system identifiers.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const digits = "0123456789"

// Digits returns n cryptographically random decimal digits.
func Digits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("codes: length must be positive, got %d", n)
	}
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(digits)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("codes: secure random generation failed: %w", err)
		}
		b.WriteByte(digits[idx.Int64()])
	}
	return b.String(), nil
}

// Generator produces numeric codes. Tests replace it to force collisions.
type Generator func(n int) (string, error)

// Default is the crypto/rand backed generator.
var Default Generator = Digits
