package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation rule patterns
var (
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Usernames are lower-case letters, digits, dots, dashes and underscores
	UsernamePattern = `^[a-z0-9._\-]{3,50}$`

	PasswordMinLength = 8

	NameMinLength = 1
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email    *regexp.Regexp
	Username *regexp.Regexp
}{
	Email:    regexp.MustCompile(EmailPattern),
	Username: regexp.MustCompile(UsernamePattern),
}

// ErrRuleViolation is wrapped by every rule failure
var ErrRuleViolation = errors.New("validation rule violated")

// Password enforces the account password policy: minimum length, at least
// one letter and at least one digit.
func Password(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrRuleViolation, PasswordMinLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", ErrRuleViolation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", ErrRuleViolation)
	}
	return nil
}

// Email checks a normalized (lower-cased) email address
func Email(email string) error {
	if !CompiledPatterns.Email.MatchString(email) {
		return fmt.Errorf("%w: email format is invalid", ErrRuleViolation)
	}
	return nil
}

// Username checks a normalized username
func Username(username string) error {
	if !CompiledPatterns.Username.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-50 characters of letters, digits, '.', '-' or '_'", ErrRuleViolation)
	}
	return nil
}

// Name checks a personal name field
func Name(field, value string) error {
	n := len(strings.TrimSpace(value))
	if n < NameMinLength || n > NameMaxLength {
		return fmt.Errorf("%w: %s must be between %d and %d characters", ErrRuleViolation, field, NameMinLength, NameMaxLength)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
