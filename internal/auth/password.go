package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPassword indicates a password that does not match the configured hash.
	ErrInvalidPassword = errors.New("invalid admin password")

	errMissingPasswordHash = errors.New("admin password hash must be provided")
	errEmptyPassword       = errors.New("password must not be empty")
)

// PasswordVerifier checks candidate passwords against a bcrypt hash.
type PasswordVerifier struct {
	hash []byte
}

// NewPasswordVerifier validates that hash is a bcrypt hash.
func NewPasswordVerifier(hash string) (*PasswordVerifier, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, errMissingPasswordHash
	}
	if _, err := bcrypt.Cost([]byte(trimmed)); err != nil {
		return nil, err
	}
	return &PasswordVerifier{hash: []byte(trimmed)}, nil
}

// Verify returns ErrInvalidPassword on mismatch.
func (v *PasswordVerifier) Verify(password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
