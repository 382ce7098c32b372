package auth

import (
	"fmt"

	"go.uber.org/zap"
)

// CredentialChecker verifies a username/password pair.
type CredentialChecker interface {
	Check(username, password string) bool
}

// DemoUsers is the fixed credential table shipped with the demo.
var DemoUsers = map[string]string{
	"demo":  "password123",
	"user":  "user123",
	"kent":  "advisor2024",
	"admin": "admin123",
	"guest": "guest123",
}

// StaticCredentials checks against a table loaded once at start. Only bcrypt hashes are kept.
type StaticCredentials struct {
	hashes map[string]string
	log    *zap.Logger
}

var _ CredentialChecker = (*StaticCredentials)(nil)

// NewStaticCredentials hashes every entry of users.
func NewStaticCredentials(users map[string]string, log *zap.Logger) (*StaticCredentials, error) {
	hashes := make(map[string]string, len(users))
	for name, password := range users {
		h, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", name, err)
		}
		hashes[name] = h
	}
	return &StaticCredentials{hashes: hashes, log: log.Named("credentials")}, nil
}

func (c *StaticCredentials) Check(username, password string) bool {
	hash, ok := c.hashes[username]
	if !ok {
		return false
	}
	return CheckPasswordHash(c.log, password, hash)
}
