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

// ConversationService defines the interface expected from the conversation store.
type ConversationService interface {
	CreateSession(ctx context.Context, userID, category string) (*models.ConversationSession, error)
	CurrentSession(ctx context.Context, userID string) (*models.ConversationSession, error)
	AddToCurrent(ctx context.Context, userID string, msg models.ChatMessage) (*models.ConversationSession, error)
	EndCurrent(ctx context.Context, userID string) (*models.ConversationSession, error)
	History(ctx context.Context, userID string) ([]models.ConversationSession, error)
	NewMessage(role, content, category string, meta *models.MessageMetadata) models.ChatMessage
}

// SessionHandler serves the per-user conversation session endpoints. All routes require auth.
type SessionHandler struct {
	conversations ConversationService
	log           *zap.Logger
}

func NewSessionHandler(conversations ConversationService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{conversations: conversations, log: log.Named("session_handler")}
}

func (h *SessionHandler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, services.MsgUnauthorized)
	}
	return id, ok
}

// sessionFailed writes 404 for a missing session and 500 for anything else.
func (h *SessionHandler) sessionFailed(w http.ResponseWriter, id auth.Identity, op string, err error) {
	if errors.Is(err, services.ErrNoActiveSession) {
		httputil.RespondError(w, http.StatusNotFound, "No active session")
		return
	}
	h.log.Error("session operation failed", zap.String("op", op), zap.String("user_id", id.UserID()), zap.Error(err))
	httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError)
}

// HandleCreate handles POST /sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req models.CreateSessionRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.conversations.CreateSession(r.Context(), id.UserID(), req.Category)
	if err != nil {
		h.log.Error("failed to create session", zap.String("user_id", id.UserID()), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, models.SessionResponse{Success: true, Session: session})
}

// HandleCurrent handles GET /sessions/current.
func (h *SessionHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	session, err := h.conversations.CurrentSession(r.Context(), id.UserID())
	if err != nil {
		h.sessionFailed(w, id, "load", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SessionResponse{Success: true, Session: session})
}

// HandleAddMessage handles POST /sessions/current/messages.
func (h *SessionHandler) HandleAddMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req models.AddMessageRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := req.Category
	if category == "" && req.Role == models.RoleUser {
		category = services.CategorizeMessage(req.Content)
	}
	msg := h.conversations.NewMessage(req.Role, req.Content, category, req.Metadata)

	updated, err := h.conversations.AddToCurrent(r.Context(), id.UserID(), msg)
	if err != nil {
		h.sessionFailed(w, id, "add_message", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SessionResponse{Success: true, Session: updated})
}

// HandleEnd handles POST /sessions/current/end.
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	session, err := h.conversations.EndCurrent(r.Context(), id.UserID())
	if err != nil {
		h.sessionFailed(w, id, "end", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SessionResponse{Success: true, Session: session})
}

// HandleHistory handles GET /sessions/history.
func (h *SessionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	history, err := h.conversations.History(r.Context(), id.UserID())
	if err != nil {
		h.log.Error("failed to load history", zap.String("user_id", id.UserID()), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, services.MsgServerError)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.HistoryResponse{Success: true, Sessions: history})
}
