package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kentj-backend/internal/models"
	"kentj-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	currentSessionKeyPrefix = "kent_j_current_session:"
	historyKeyPrefix        = "kent_j_conversations:"
)

// CategoryGeneral is returned when no keyword matches.
const CategoryGeneral = "general"

// Keyword groups are checked in order; the first group with a substring match wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"conversation", []string{"conversation", "talk", "chat", "say", "speak"}},
	{"confidence", []string{"confidence", "nervous", "anxiety", "shy", "scared"}},
	{"dating", []string{"date", "dating", "meet", "ask out", "first date"}},
	{"relationship", []string{"relationship", "boyfriend", "girlfriend", "partner"}},
	{"communication", []string{"communication", "argue", "fight", "talk", "listen"}},
}

// CategorizeMessage assigns a coarse advice category by keyword.
func CategorizeMessage(content string) string {
	lower := strings.ToLower(content)
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	return CategoryGeneral
}

// ConversationService keeps one current session per user plus a bounded history of ended ones.
type ConversationService struct {
	kv           store.KVStore
	historyLimit int
	now          func() time.Time
	log          *zap.Logger

	// mu serializes read-modify-write cycles on the store within this process.
	mu sync.Mutex
}

func NewConversationService(kv store.KVStore, historyLimit int, log *zap.Logger) *ConversationService {
	if historyLimit < 1 {
		historyLimit = 50
	}
	return &ConversationService{
		kv:           kv,
		historyLimit: historyLimit,
		now:          time.Now,
		log:          log.Named("conversations"),
	}
}

func newID(prefix string, now time.Time) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:11]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), nonce)
}

// NewMessage builds a message with a fresh id and the current time.
func (s *ConversationService) NewMessage(role, content, category string, meta *models.MessageMetadata) models.ChatMessage {
	now := s.now()
	return models.ChatMessage{
		ID:        newID("msg", now),
		Role:      role,
		Content:   content,
		Timestamp: now,
		Category:  category,
		Metadata:  meta,
	}
}

// CreateSession starts and stores a new current session for userID, replacing any existing one.
func (s *ConversationService) CreateSession(ctx context.Context, userID, category string) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSession(ctx, userID, category)
}

func (s *ConversationService) createSession(ctx context.Context, userID, category string) (*models.ConversationSession, error) {
	now := s.now()
	session := &models.ConversationSession{
		ID:           newID("session", now),
		UserID:       userID,
		Messages:     []models.ChatMessage{},
		StartTime:    now,
		LastActivity: now,
		Category:     category,
	}
	if err := store.SetJSON(ctx, s.kv, currentSessionKeyPrefix+userID, session); err != nil {
		s.log.Error("failed to save new session", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.log.Debug("session created", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return session, nil
}

// CurrentSession loads the current session of userID, or ErrNoActiveSession.
func (s *ConversationService) CurrentSession(ctx context.Context, userID string) (*models.ConversationSession, error) {
	var session models.ConversationSession
	err := store.GetJSON(ctx, s.kv, currentSessionKeyPrefix+userID, &session)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

// AddMessage returns a new session value with msg appended and lastActivity bumped, and stores
// it as the current session. The input session is not modified.
//
// The stored session is replaced by the value passed in. Callers holding a session that may
// be stale should use AddToCurrent instead.
func (s *ConversationService) AddMessage(ctx context.Context, session models.ConversationSession, msg models.ChatMessage) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMessage(ctx, session, msg)
}

func (s *ConversationService) addMessage(ctx context.Context, session models.ConversationSession, msg models.ChatMessage) (*models.ConversationSession, error) {
	messages := make([]models.ChatMessage, len(session.Messages), len(session.Messages)+1)
	copy(messages, session.Messages)
	updated := session
	updated.Messages = append(messages, msg)
	updated.LastActivity = s.now()

	if err := store.SetJSON(ctx, s.kv, currentSessionKeyPrefix+session.UserID, &updated); err != nil {
		s.log.Error("failed to save session", zap.String("session_id", session.ID), zap.Error(err))
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &updated, nil
}

// AddToCurrent appends msg to the stored current session of userID. The load and the write
// happen under one lock, so concurrent appends for the same user are all kept.
// It returns ErrNoActiveSession when the user has no current session.
func (s *ConversationService) AddToCurrent(ctx context.Context, userID string, msg models.ChatMessage) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.CurrentSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.addMessage(ctx, *session, msg)
}

// Append loads the current session of userID (creating one when missing) and appends msgs.
func (s *ConversationService) Append(ctx context.Context, userID, category string, msgs ...models.ChatMessage) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.CurrentSession(ctx, userID)
	if errors.Is(err, ErrNoActiveSession) {
		session, err = s.createSession(ctx, userID, category)
	}
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		session, err = s.addMessage(ctx, *session, m)
		if err != nil {
			return nil, err
		}
	}
	return session, nil
}

// EndSession appends session to the user's history, keeping the most recent entries only,
// and clears the current session.
func (s *ConversationService) EndSession(ctx context.Context, session models.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endSession(ctx, session)
}

// EndCurrent ends the stored current session of userID and returns it as archived.
// It returns ErrNoActiveSession when the user has no current session.
func (s *ConversationService) EndCurrent(ctx context.Context, userID string) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.CurrentSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.endSession(ctx, *session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ConversationService) endSession(ctx context.Context, session models.ConversationSession) error {
	history, err := s.History(ctx, session.UserID)
	if err != nil {
		return err
	}
	history = append(history, session)
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}

	if err := store.SetJSON(ctx, s.kv, historyKeyPrefix+session.UserID, history); err != nil {
		s.log.Error("failed to save history", zap.String("user_id", session.UserID), zap.Error(err))
		return fmt.Errorf("save history: %w", err)
	}
	if err := s.kv.Delete(ctx, currentSessionKeyPrefix+session.UserID); err != nil {
		return fmt.Errorf("clear current session: %w", err)
	}
	s.log.Debug("session ended",
		zap.String("session_id", session.ID),
		zap.Int("messages", len(session.Messages)),
		zap.Int("history_len", len(history)),
	)
	return nil
}

// History returns the ended sessions of userID, oldest first.
func (s *ConversationService) History(ctx context.Context, userID string) ([]models.ConversationSession, error) {
	var history []models.ConversationSession
	err := store.GetJSON(ctx, s.kv, historyKeyPrefix+userID, &history)
	if errors.Is(err, store.ErrNotFound) {
		return []models.ConversationSession{}, nil
	}
	if err != nil {
		// A corrupt history is reset rather than blocking new sessions.
		s.log.Warn("discarding unreadable history", zap.String("user_id", userID), zap.Error(err))
		return []models.ConversationSession{}, nil
	}
	return history, nil
}

// SessionDuration is the time elapsed since the session started.
func (s *ConversationService) SessionDuration(session models.ConversationSession) time.Duration {
	return s.now().Sub(session.StartTime)
}
