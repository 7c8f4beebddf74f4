package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordMinLength applies when no policy length is configured.
const DefaultPasswordMinLength = 8

// ErrWeakPassword marks a password rejected by the strength policy.
var ErrWeakPassword = errors.New("password does not meet strength policy")

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidatePasswordStrength requires minLength characters with at least one
// letter and one digit.
func ValidatePasswordStrength(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if len([]rune(password)) < minLength {
		return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, minLength)
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
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: letters and digits required", ErrWeakPassword)
	}
	return nil
}
