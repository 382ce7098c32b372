package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kentj-backend/internal/auth"
	"kentj-backend/internal/models"
	"kentj-backend/internal/services"
	"kentj-backend/internal/store"
	"kentj-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// latencyStore delays reads the way a networked or on-disk backend would.
type latencyStore struct {
	store.KVStore
}

func (s latencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(2 * time.Millisecond)
	return s.KVStore.Get(ctx, key)
}

func sessionRequest(t *testing.T, method string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/sessions/current", &buf)
	id := auth.Identity{Username: "demo", IssuedAt: time.Now()}
	return req.WithContext(auth.WithIdentity(req.Context(), id))
}

func TestHandleAddMessageConcurrent(t *testing.T) {
	conversations := services.NewConversationService(latencyStore{memory.New()}, 50, zap.NewNop())
	h := NewSessionHandler(conversations, zap.NewNop())
	ctx := context.Background()

	_, err := conversations.CreateSession(ctx, "user_demo", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.HandleAddMessage(rec, sessionRequest(t, http.MethodPost, models.AddMessageRequest{
				Role:    models.RoleUser,
				Content: fmt.Sprintf("message %d", i),
			}))
			assert.Equal(t, http.StatusOK, rec.Code)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := conversations.Append(ctx, "user_demo", "",
			conversations.NewMessage(models.RoleUser, "from chat", "", nil),
			conversations.NewMessage(models.RoleAssistant, "reply", "", nil),
		)
		assert.NoError(t, err)
	}()
	wg.Wait()

	current, err := conversations.CurrentSession(ctx, "user_demo")
	require.NoError(t, err)
	assert.Len(t, current.Messages, 22)
}

func TestHandleEndWithoutSession(t *testing.T) {
	conversations := services.NewConversationService(memory.New(), 50, zap.NewNop())
	h := NewSessionHandler(conversations, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleEnd(rec, sessionRequest(t, http.MethodPost, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleAddMessage(rec, sessionRequest(t, http.MethodPost, models.AddMessageRequest{Role: models.RoleUser, Content: "hi"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
