package api

import (
	"errors"
	"net/http"
	"strings"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/services"
	"kentj-backend/pkg/httputil"

	"go.uber.org/zap"
)

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireAuth verifies the session token from the Authorization header.
// If valid, it injects the identity into the request context.
func RequireAuth(authenticator Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				log.Debug("missing or malformed Authorization header", zap.String("path", r.URL.Path))
				httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
				return
			}

			id, err := authenticator.Authenticate(token)
			if err != nil {
				log.Debug("rejected session token", zap.String("path", r.URL.Path), zap.Error(err))
				if errors.Is(err, auth.ErrTokenExpired) {
					httputil.RespondError(w, http.StatusUnauthorized, services.MsgSessionExpired)
				} else {
					httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and otherwise lets the
// request through anonymously.
func OptionalAuth(authenticator Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				id, err := authenticator.Authenticate(token)
				if err == nil {
					r = r.WithContext(auth.WithIdentity(r.Context(), id))
				} else {
					log.Debug("ignoring invalid session token", zap.String("path", r.URL.Path), zap.Error(err))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBearerHeader only checks that an Authorization: Bearer header is present.
// The token itself is not validated.
func RequireBearerHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
