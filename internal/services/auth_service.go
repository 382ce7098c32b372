package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/config"
	"kentj-backend/internal/models"
	"kentj-backend/internal/store"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const profileKeyPrefix = "kent_j_user_profile_"

type AuthService struct {
	creds       auth.CredentialChecker
	tokens      auth.TokenCodec
	kv          store.KVStore
	maxAttempts int
	now         func() time.Time
	log         *zap.Logger

	// attemptsMu guards the read-increment-write of a counter; lookups go straight to the cache.
	attemptsMu sync.Mutex
	attempts   *cache.Cache
}

func NewAuthService(creds auth.CredentialChecker, tokens auth.TokenCodec, kv store.KVStore, cfg config.AuthConfig, log *zap.Logger) *AuthService {
	expiry, cleanup := cache.NoExpiration, time.Duration(0)
	if cfg.LockoutWindow > 0 {
		expiry, cleanup = cfg.LockoutWindow, cfg.LockoutWindow
	}
	return &AuthService{
		creds:       creds,
		tokens:      tokens,
		kv:          kv,
		maxAttempts: cfg.MaxLoginAttempts,
		now:         time.Now,
		log:         log.Named("auth"),
		attempts:    cache.New(expiry, cleanup),
	}
}

// Login checks the failed-attempt counter, then the password. A success resets the counter;
// a failure increments it. Once the counter reaches the limit every attempt is refused,
// including ones with the right password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("Username and password are required")
	}

	if s.lockedOut(username) {
		s.log.Warn("login refused, too many attempts", zap.String("username", username))
		return nil, ErrTooManyAttempts
	}

	if !s.creds.Check(username, password) {
		n := s.recordFailure(username)
		s.log.Info("login failed", zap.String("username", username), zap.Int("attempts", n))
		return nil, ErrInvalidCredentials
	}
	s.attempts.Delete(username)

	token, err := s.tokens.Issue(username)
	if err != nil {
		s.log.Error("failed to issue token", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("issue token: %w", err)
	}

	profile, err := s.GetProfile(ctx, username)
	if err != nil {
		// A missing profile must not block login.
		s.log.Warn("failed to load profile", zap.String("username", username), zap.Error(err))
		profile = nil
	}

	s.log.Info("login succeeded", zap.String("username", username))
	return &models.User{
		ID:        auth.UserIDFor(username),
		Username:  username,
		Token:     token,
		LoginTime: s.now().UnixMilli(),
		Profile:   profile,
	}, nil
}

func (s *AuthService) lockedOut(username string) bool {
	n, ok := s.attempts.Get(username)
	return ok && n.(int) >= s.maxAttempts
}

// recordFailure bumps the failed-attempt counter and returns the new count. Setting the
// value again restarts the lockout window.
func (s *AuthService) recordFailure(username string) int {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	n := 1
	if prev, ok := s.attempts.Get(username); ok {
		n = prev.(int) + 1
	}
	s.attempts.Set(username, n, cache.DefaultExpiration)
	return n
}

// Authenticate validates a session token.
func (s *AuthService) Authenticate(token string) (auth.Identity, error) {
	return s.tokens.Validate(token)
}

// CurrentUser rebuilds the user record for an authenticated identity.
func (s *AuthService) CurrentUser(ctx context.Context, id auth.Identity) (*models.User, error) {
	profile, err := s.GetProfile(ctx, id.Username)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        id.UserID(),
		Username:  id.Username,
		LoginTime: id.IssuedAt.UnixMilli(),
		Profile:   profile,
	}, nil
}

// GetProfile returns the stored profile for username, or nil when none exists.
func (s *AuthService) GetProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := store.GetJSON(ctx, s.kv, profileKeyPrefix+username, &profile)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile merges updates into the stored profile and saves the result.
func (s *AuthService) UpdateProfile(ctx context.Context, username string, updates models.UserProfile) (models.UserProfile, error) {
	current, err := s.GetProfile(ctx, username)
	if err != nil {
		return models.UserProfile{}, err
	}
	var base models.UserProfile
	if current != nil {
		base = *current
	}
	merged := base.Merge(updates)
	if err := store.SetJSON(ctx, s.kv, profileKeyPrefix+username, merged); err != nil {
		s.log.Error("failed to save profile", zap.String("username", username), zap.Error(err))
		return models.UserProfile{}, fmt.Errorf("save profile: %w", err)
	}
	return merged, nil
}
