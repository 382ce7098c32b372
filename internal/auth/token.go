package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
)

// Identity is what a valid session token resolves to.
type Identity struct {
	Username string
	IssuedAt time.Time
}

// UserID returns the stable user id derived from the username.
func (i Identity) UserID() string {
	return UserIDFor(i.Username)
}

// UserIDFor derives the user id for username.
func UserIDFor(username string) string {
	return "user_" + username
}

// TokenCodec issues and validates session tokens.
type TokenCodec interface {
	Issue(username string) (string, error)
	Validate(token string) (Identity, error)
}

// --- Demo codec ---

// DemoCodec produces base64("username:issuedAtMillis:nonce") tokens.
// The encoding is reversible and not encrypted; anyone can mint a token.
type DemoCodec struct {
	timeout time.Duration
	now     func() time.Time
}

var _ TokenCodec = (*DemoCodec)(nil)

// NewDemoCodec creates a codec whose tokens expire timeout after issue.
func NewDemoCodec(timeout time.Duration, now func() time.Time) *DemoCodec {
	if now == nil {
		now = time.Now
	}
	return &DemoCodec{timeout: timeout, now: now}
}

func (c *DemoCodec) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty username", ErrInvalidToken)
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	raw := fmt.Sprintf("%s:%d:%s", username, c.now().UnixMilli(), nonce)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

func (c *DemoCodec) Validate(token string) (Identity, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Parse from the right so usernames may contain ':'.
	raw := string(decoded)
	nonceSep := strings.LastIndex(raw, ":")
	if nonceSep <= 0 {
		return Identity{}, ErrInvalidToken
	}
	tsSep := strings.LastIndex(raw[:nonceSep], ":")
	if tsSep <= 0 {
		return Identity{}, ErrInvalidToken
	}

	username := raw[:tsSep]
	issuedMs, err := strconv.ParseInt(raw[tsSep+1:nonceSep], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad timestamp", ErrInvalidToken)
	}

	issuedAt := time.UnixMilli(issuedMs)
	if c.now().Sub(issuedAt) >= c.timeout {
		return Identity{}, ErrTokenExpired
	}
	return Identity{Username: username, IssuedAt: issuedAt}, nil
}

// --- JWT codec ---

// Claims is the JWT payload issued by JWTCodec.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTCodec issues HS256 tokens. It is selected with AUTH_TOKEN_MODE=jwt.
type JWTCodec struct {
	secret  []byte
	timeout time.Duration
	issuer  string
	now     func() time.Time
}

var _ TokenCodec = (*JWTCodec)(nil)

func NewJWTCodec(secret string, timeout time.Duration, issuer string, now func() time.Time) *JWTCodec {
	if now == nil {
		now = time.Now
	}
	return &JWTCodec{secret: []byte(secret), timeout: timeout, issuer: issuer, now: now}
}

func (c *JWTCodec) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty username", ErrInvalidToken)
	}
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Subject:   username,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Validate(token string) (Identity, error) {
	claims := &Claims{}
	// Expiry is checked below against the injected clock.
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return Identity{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	issuedAt := claims.IssuedAt.Time
	if c.now().Sub(issuedAt) >= c.timeout {
		return Identity{}, ErrTokenExpired
	}
	return Identity{Username: claims.Subject, IssuedAt: issuedAt}, nil
}
