// internal/app/system/authutil/password.go

// Package authutil provides password hashing and validation for
// password-based login.
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	BcryptCost        = 12
)

// Validation errors, phrased for direct display on the password form.
var (
	ErrPasswordTooShort = errors.New("La password deve contenere almeno 6 caratteri.")
	ErrPasswordTooLong  = errors.New("La password non può superare 128 caratteri.")
	ErrPasswordCommon   = errors.New("Questa password è troppo comune. Scegline un'altra.")
)

// commonPasswords holds the passwords that dominate breach lists, plus
// a few Italian favorites, all lowercase.
var commonPasswords = map[string]bool{}

func init() {
	for _, p := range []string{
		"123456", "1234567", "12345678", "123456789",
		"password", "password1", "qwerty", "qwerty123",
		"abc123", "abcdef", "111111", "000000", "123123", "654321",
		"iloveyou", "letmein", "welcome", "login", "admin",
		"dragon", "master", "sunshine", "princess",
		"football", "baseball", "superman", "batman",
		"ciaociao", "juventus", "napoli", "francesco", "giuseppe",
	} {
		commonPasswords[p] = true
	}
}

// PasswordRules describes the password requirements for display on the
// change-password form.
func PasswordRules() string {
	return "La password deve contenere almeno 6 caratteri e non può essere una password comune come \"123456\" o \"password\"."
}

// ValidatePassword checks a candidate password against the rules.
// Length wins over commonness, so a short common password reports
// ErrPasswordTooShort.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	case commonPasswords[strings.ToLower(password)]:
		return ErrPasswordCommon
	}
	return nil
}

// HashPassword hashes a password with bcrypt. Validate with
// ValidatePassword first; bcrypt itself only fails on inputs past its
// 72-byte limit or a bad cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
