package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/config"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/models"

	"go.uber.org/zap"
)

// EventQueue accepts completed exchanges for delivery to the events workflow.
type EventQueue interface {
	Enqueue(ctx context.Context, event models.EventPayload)
}

// ProfileSource looks up the optional profile forwarded with events.
type ProfileSource interface {
	GetProfile(ctx context.Context, username string) (*models.UserProfile, error)
}

// ChatService proxies chat turns to the chat workflow. Authenticated exchanges are also
// recorded in the user's current session and queued for the events workflow.
type ChatService struct {
	client        *integrations.WebhookClient
	queue         EventQueue
	conversations *ConversationService
	profiles      ProfileSource
	cfg           config.ChatConfig
	app           config.AppConfig
	now           func() time.Time
	log           *zap.Logger
}

func NewChatService(
	client *integrations.WebhookClient,
	queue EventQueue,
	conversations *ConversationService,
	profiles ProfileSource,
	cfg config.ChatConfig,
	app config.AppConfig,
	log *zap.Logger,
) *ChatService {
	return &ChatService{
		client:        client,
		queue:         queue,
		conversations: conversations,
		profiles:      profiles,
		cfg:           cfg,
		app:           app,
		now:           time.Now,
		log:           log.Named("chat"),
	}
}

// Reply validates req, forwards it to the chat workflow and returns the assistant text.
// id is nil for anonymous requests.
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest, id *auth.Identity) (string, error) {
	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != models.RoleUser {
		return "", ErrNoUserMessage
	}
	userMessage := req.Messages[len(req.Messages)-1].Content

	// Checked before any outbound call.
	if len(req.Messages) > s.cfg.MaxMessagesPerSession {
		return "", ErrSessionLimit
	}
	if strings.TrimSpace(userMessage) == "" {
		return "", invalid("Message cannot be empty")
	}
	if s.cfg.MaxMessageLength > 0 && utf8.RuneCountInString(userMessage) > s.cfg.MaxMessageLength {
		return "", &ValidationError{
			Msg:  fmt.Sprintf("Message is too long. Please keep messages under %d characters.", s.cfg.MaxMessageLength),
			Kind: ErrMessageTooLong,
		}
	}

	history := req.Messages
	if n := s.cfg.ContextMessages; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	userID := ""
	if id != nil {
		userID = id.UserID()
	}

	body := models.ChatWebhookRequest{
		ChatInput:           userMessage,
		ConversationHistory: history,
		Metadata: models.ChatWebhookMetadata{
			Timestamp:    models.FormatTime(s.now()),
			ChatbotName:  s.app.Name,
			MessageCount: len(req.Messages),
			UserID:       userID,
		},
	}
	headers := map[string]string{
		"X-Kent-J-Version":     s.app.Version,
		"X-User-Message-Count": strconv.Itoa(len(req.Messages)),
	}

	s.log.Debug("forwarding message to chat workflow", zap.Int("message_count", len(req.Messages)))
	respBody, err := s.client.Post(ctx, body, headers)
	if err != nil {
		s.log.Error("chat workflow request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(respBody) > 0 && !json.Valid(respBody) {
		s.log.Error("chat workflow returned invalid JSON", zap.Int("bytes", len(respBody)))
		return "", fmt.Errorf("%w: invalid JSON response", ErrUpstream)
	}

	reply := extractReply(respBody)

	if id != nil {
		s.record(ctx, *id, req.Category, userMessage, reply)
	}
	return reply, nil
}

func extractReply(body []byte) string {
	var resp models.ChatWebhookResponse
	if len(body) > 0 && json.Unmarshal(body, &resp) == nil {
		if resp.Output != "" {
			return resp.Output
		}
		if resp.Message != "" {
			return resp.Message
		}
	}
	return MsgChatFallbackReply
}

// record appends the exchange to the user's session and queues the event. Failures are
// logged only; the caller already has its reply.
func (s *ChatService) record(ctx context.Context, id auth.Identity, category, userMessage, reply string) {
	if category == "" {
		category = CategorizeMessage(userMessage)
	}

	userMsg := s.conversations.NewMessage(models.RoleUser, userMessage, category, nil)
	assistantMsg := s.conversations.NewMessage(models.RoleAssistant, reply, category, nil)

	session, err := s.conversations.Append(ctx, id.UserID(), category, userMsg, assistantMsg)
	if err != nil {
		s.log.Warn("failed to record exchange", zap.String("user_id", id.UserID()), zap.Error(err))
		return
	}

	var profile *models.UserProfile
	if s.profiles != nil {
		if profile, err = s.profiles.GetProfile(ctx, id.Username); err != nil {
			s.log.Warn("failed to load profile for event", zap.String("username", id.Username), zap.Error(err))
			profile = nil
		}
	}

	if session.Category != "" {
		category = session.Category
	}
	s.queue.Enqueue(ctx, integrations.NewEventPayload(integrations.EventInput{
		SessionID:       session.ID,
		UserMessage:     userMessage,
		AIResponse:      reply,
		UserID:          id.UserID(),
		ChatbotName:     s.app.Name,
		Category:        category,
		MessageCount:    len(session.Messages),
		SessionDuration: s.conversations.SessionDuration(*session),
		UserProfile:     profile,
		Timestamp:       s.now(),
	}))
}
