package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/models"
	"kentj-backend/internal/services"
	"kentj-backend/pkg/httputil"

	"go.uber.org/zap"
)

// ChatService defines the interface expected from the chat proxy.
type ChatService interface {
	Reply(ctx context.Context, req models.ChatRequest, id *auth.Identity) (string, error)
}

// ChatHandlers handles POST /chat.
type ChatHandlers struct {
	chatService ChatService
	log         *zap.Logger
}

func NewChatHandlers(chatService ChatService, log *zap.Logger) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		log:         log.Named("chat_handler"),
	}
}

// HandleChat forwards the conversation to the chat workflow. A valid bearer token is optional;
// when present the exchange is also recorded for the user.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var idPtr *auth.Identity
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		idPtr = &id
	}

	reply, err := h.chatService.Reply(r.Context(), req, idPtr)
	if err != nil {
		var ve *services.ValidationError
		switch {
		case errors.Is(err, services.ErrNoUserMessage):
			httputil.RespondError(w, http.StatusBadRequest, "No user message found")
		case errors.Is(err, services.ErrSessionLimit):
			httputil.RespondError(w, http.StatusTooManyRequests, "Too many messages in session")
		case errors.As(err, &ve):
			httputil.RespondError(w, http.StatusBadRequest, ve.Msg)
		default:
			h.log.Error("error processing chat message", zap.Error(err))
			httputil.RespondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to process chat message",
				Message: services.MsgChatDifficulties,
			})
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ChatResponse{
		Message:   reply,
		Success:   true,
		Timestamp: models.FormatTime(time.Now()),
	})
}
