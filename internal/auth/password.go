package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(log *zap.Logger, password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			// Unexpected errors still count as a mismatch.
			log.Warn("error comparing password hash", zap.Error(err))
		}
		return false
	}
	return true
}
