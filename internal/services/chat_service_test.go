package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/config"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	mu     sync.Mutex
	events []models.EventPayload
}

func (f *fakeQueue) Enqueue(_ context.Context, ev models.EventPayload) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

var testChatConfig = config.ChatConfig{
	Timeout:               time.Second,
	MaxMessagesPerSession: 100,
	MaxMessageLength:      1000,
	ContextMessages:       5,
}

var testApp = config.AppConfig{Name: "Kent J.", Version: "1.0.0"}

func newTestChatService(url string, queue EventQueue) (*ChatService, *ConversationService) {
	conversations := newTestConversations()
	client := integrations.NewWebhookClient(url, time.Second, nil)
	return NewChatService(client, queue, conversations, nil, testChatConfig, testApp, zap.NewNop()), conversations
}

func turns(n int) []models.ChatTurn {
	out := make([]models.ChatTurn, n)
	for i := range out {
		out[i] = models.ChatTurn{Role: models.RoleAssistant, Content: "earlier"}
	}
	out[n-1] = models.ChatTurn{Role: models.RoleUser, Content: "I'm nervous about my first date"}
	return out
}

func TestReplyForwardsToWorkflow(t *testing.T) {
	var got models.ChatWebhookRequest
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"output":"Be yourself."}`))
	}))
	defer server.Close()

	svc, _ := newTestChatService(server.URL, &fakeQueue{})
	reply, err := svc.Reply(context.Background(), models.ChatRequest{Messages: turns(8)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Be yourself.", reply)

	assert.Equal(t, "I'm nervous about my first date", got.ChatInput)
	assert.Len(t, got.ConversationHistory, 5)
	assert.Equal(t, 8, got.Metadata.MessageCount)
	assert.Equal(t, "Kent J.", got.Metadata.ChatbotName)
	assert.Equal(t, "", got.Metadata.UserID)
	assert.Equal(t, "1.0.0", header.Get("X-Kent-J-Version"))
	assert.Equal(t, "8", header.Get("X-User-Message-Count"))
}

func TestReplyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"From message"}`, "From message"},
		{"output wins", `{"output":"out","message":"msg"}`, "out"},
		{"empty object", `{}`, MsgChatFallbackReply},
		{"array", `[{"output":"x"}]`, MsgChatFallbackReply},
		{"empty body", ``, MsgChatFallbackReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc, _ := newTestChatService(server.URL, &fakeQueue{})
			reply, err := svc.Reply(context.Background(), models.ChatRequest{Messages: turns(1)}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestReplyValidation(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()
	svc, _ := newTestChatService(server.URL, &fakeQueue{})
	ctx := context.Background()

	_, err := svc.Reply(ctx, models.ChatRequest{}, nil)
	assert.ErrorIs(t, err, ErrNoUserMessage)

	_, err = svc.Reply(ctx, models.ChatRequest{Messages: []models.ChatTurn{{Role: models.RoleAssistant, Content: "x"}}}, nil)
	assert.ErrorIs(t, err, ErrNoUserMessage)

	_, err = svc.Reply(ctx, models.ChatRequest{Messages: turns(101)}, nil)
	assert.ErrorIs(t, err, ErrSessionLimit)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Reply(ctx, models.ChatRequest{Messages: []models.ChatTurn{{Role: models.RoleUser, Content: string(long)}}}, nil)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = svc.Reply(ctx, models.ChatRequest{Messages: []models.ChatTurn{{Role: models.RoleUser, Content: "  "}}}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestReplyUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	queue := &fakeQueue{}
	svc, _ := newTestChatService(server.URL, queue)
	_, err := svc.Reply(context.Background(), models.ChatRequest{Messages: turns(1)}, &auth.Identity{Username: "demo"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, queue.events)
}

func TestReplyRecordsAuthenticatedExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":"Plan something simple."}`))
	}))
	defer server.Close()

	queue := &fakeQueue{}
	svc, conversations := newTestChatService(server.URL, queue)
	id := &auth.Identity{Username: "demo", IssuedAt: time.Now()}

	_, err := svc.Reply(context.Background(), models.ChatRequest{Messages: turns(1)}, id)
	require.NoError(t, err)

	session, err := conversations.CurrentSession(context.Background(), "user_demo")
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, models.RoleUser, session.Messages[0].Role)
	assert.Equal(t, "Plan something simple.", session.Messages[1].Content)
	assert.Equal(t, "confidence", session.Category)

	require.Len(t, queue.events, 1)
	ev := queue.events[0]
	assert.Equal(t, session.ID, ev.SessionID)
	assert.Equal(t, "user_demo", ev.UserID)
	assert.Equal(t, "confidence", ev.Category)
	assert.Equal(t, 2, ev.Metadata.MessageCount)
	assert.Equal(t, "Kent J.", ev.ChatbotName)
}
