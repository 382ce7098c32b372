package handlers

import (
	"context"
	"errors"
	"net/http"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/models"
	"kentj-backend/internal/services"
	"kentj-backend/pkg/httputil"

	"go.uber.org/zap"
)

// AuthService defines the interface expected from the auth service.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	CurrentUser(ctx context.Context, id auth.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, username string, updates models.UserProfile) (models.UserProfile, error)
}

type AuthHandler struct {
	authService AuthService
	log         *zap.Logger
}

func NewAuthHandler(authSvc AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
		log:         log.Named("auth_handler"),
	}
}

// HandleLogin handles the POST /login request.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.log.Info("login failed", zap.String("username", req.Username), zap.Error(err))
		// Error Mapping
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			httputil.RespondError(w, http.StatusUnauthorized, services.MsgInvalidCredentials) // 401
		case errors.Is(err, services.ErrTooManyAttempts):
			httputil.RespondError(w, http.StatusTooManyRequests, services.MsgTooManyAttempts) // 429
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
		default:
			httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError) // 500
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		Token:   user.Token,
		User:    *user,
		Message: services.MsgLoginSuccess,
	})
}

// HandleMe handles GET /me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), id)
	if err != nil {
		h.log.Error("failed to load current user", zap.String("username", id.Username), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.MeResponse{Success: true, User: *user})
}

// HandleUpdateProfile handles PUT /me/profile. Only the fields present in the body change.
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
		return
	}

	var updates models.UserProfile
	if err := httputil.DecodeAndValidate(w, r, &updates); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.authService.UpdateProfile(r.Context(), id.Username, updates)
	if err != nil {
		h.log.Error("failed to update profile", zap.String("username", id.Username), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ProfileResponse{
		Success: true,
		Profile: profile,
		Message: services.MsgProfileUpdated,
	})
}
