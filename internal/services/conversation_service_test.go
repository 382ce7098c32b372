package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"kentj-backend/internal/models"
	"kentj-backend/internal/store"
	"kentj-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConversations() *ConversationService {
	return NewConversationService(memory.New(), 50, zap.NewNop())
}

func TestCreateAndAddMessage(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_demo", "dating")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.ID, "session_"))
	assert.Equal(t, "dating", session.Category)
	assert.Empty(t, session.Messages)

	msg := svc.NewMessage(models.RoleUser, "hi", "", nil)
	assert.True(t, strings.HasPrefix(msg.ID, "msg_"))

	updated, err := svc.AddMessage(ctx, *session, msg)
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 1)
	assert.Empty(t, session.Messages, "input session must not change")
	assert.False(t, updated.LastActivity.Before(session.LastActivity))

	current, err := svc.CurrentSession(ctx, "user_demo")
	require.NoError(t, err)
	assert.Equal(t, updated.ID, current.ID)
	require.Len(t, current.Messages, 1)
	assert.Equal(t, "hi", current.Messages[0].Content)
}

func TestEndEmptySession(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user_demo", "")
	require.NoError(t, err)
	require.NoError(t, svc.EndSession(ctx, *session))

	history, err := svc.History(ctx, "user_demo")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, session.ID, history[0].ID)

	_, err = svc.CurrentSession(ctx, "user_demo")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestHistoryKeepsMostRecentFifty(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	for i := 0; i < 51; i++ {
		s := models.ConversationSession{ID: fmt.Sprintf("s%02d", i), UserID: "user_demo"}
		require.NoError(t, svc.EndSession(ctx, s))
	}

	history, err := svc.History(ctx, "user_demo")
	require.NoError(t, err)
	require.Len(t, history, 50)
	assert.Equal(t, "s01", history[0].ID)
	assert.Equal(t, "s50", history[49].ID)
}

func TestHistoryIsPerUser(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	require.NoError(t, svc.EndSession(ctx, models.ConversationSession{ID: "a", UserID: "user_demo"}))

	history, err := svc.History(ctx, "user_kent")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}

func TestAppendCreatesSession(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	a := svc.NewMessage(models.RoleUser, "q", "", nil)
	b := svc.NewMessage(models.RoleAssistant, "a", "", nil)
	session, err := svc.Append(ctx, "user_demo", "confidence", a, b)
	require.NoError(t, err)
	assert.Equal(t, "confidence", session.Category)
	assert.Len(t, session.Messages, 2)

	session, err = svc.Append(ctx, "user_demo", "dating", a)
	require.NoError(t, err)
	assert.Equal(t, "confidence", session.Category)
	assert.Len(t, session.Messages, 3)
}

func TestSessionDuration(t *testing.T) {
	svc := newTestConversations()
	now := time.Now()
	svc.now = func() time.Time { return now }

	d := svc.SessionDuration(models.ConversationSession{StartTime: now.Add(-90 * time.Second)})
	assert.Equal(t, 90*time.Second, d)
}

func TestCategorizeMessage(t *testing.T) {
	tests := map[string]string{
		"How do I start a conversation?":     "conversation",
		"I get nervous around people":        "confidence",
		"Where should we go on a first date": "dating",
		"My boyfriend never calls":           "relationship",
		"We argue all the time":              "communication",
		"I want to talk and listen better":   "conversation",
		"Any tips for weekend plans?":        CategoryGeneral,
		"SHY":                                "confidence",
	}
	for input, want := range tests {
		assert.Equal(t, want, CategorizeMessage(input), input)
	}
}

// slowStore adds read latency so interleaved read-modify-write cycles would overlap.
type slowStore struct {
	store.KVStore
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(s.delay)
	return s.KVStore.Get(ctx, key)
}

func TestConcurrentAppendsAreAllKept(t *testing.T) {
	svc := NewConversationService(slowStore{KVStore: memory.New(), delay: 2 * time.Millisecond}, 50, zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "user_demo", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddToCurrent(ctx, "user_demo", svc.NewMessage(models.RoleUser, fmt.Sprintf("m%02d", i), "", nil))
			assert.NoError(t, err)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Append(ctx, "user_demo", "",
			svc.NewMessage(models.RoleUser, "question", "", nil),
			svc.NewMessage(models.RoleAssistant, "answer", "", nil),
		)
		assert.NoError(t, err)
	}()
	wg.Wait()

	current, err := svc.CurrentSession(ctx, "user_demo")
	require.NoError(t, err)
	assert.Len(t, current.Messages, 22)
}

func TestEndCurrentKeepsConcurrentAppends(t *testing.T) {
	svc := NewConversationService(slowStore{KVStore: memory.New(), delay: 2 * time.Millisecond}, 50, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Append(ctx, "user_demo", "", svc.NewMessage(models.RoleUser, "first", "", nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Append(ctx, "user_demo", "", svc.NewMessage(models.RoleUser, "second", "", nil))
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.EndCurrent(ctx, "user_demo")
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Every message is either archived or in the session that Append started afterwards.
	total := 0
	history, err := svc.History(ctx, "user_demo")
	require.NoError(t, err)
	require.Len(t, history, 1)
	total += len(history[0].Messages)
	if current, err := svc.CurrentSession(ctx, "user_demo"); err == nil {
		total += len(current.Messages)
	}
	assert.Equal(t, 2, total)
}

func TestAddToCurrentWithoutSession(t *testing.T) {
	svc := newTestConversations()
	ctx := context.Background()

	_, err := svc.AddToCurrent(ctx, "user_demo", svc.NewMessage(models.RoleUser, "hi", "", nil))
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = svc.EndCurrent(ctx, "user_demo")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
