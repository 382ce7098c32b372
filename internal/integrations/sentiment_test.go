package integrations

import (
	"testing"
	"time"

	"kentj-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"positive", "I am so happy and excited", models.SentimentPositive},
		{"negative", "I feel sad and worried", models.SentimentNegative},
		{"tie", "happy but sad", models.SentimentNeutral},
		{"none", "what should I wear", models.SentimentNeutral},
		{"case insensitive", "AMAZING date", models.SentimentPositive},
		{"punctuation not stripped", "happy!", models.SentimentNeutral},
		{"empty", "", models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeSentiment(tt.message))
		})
	}
}

func TestNewEventPayload(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewEventPayload(EventInput{
		SessionID:       "session_1",
		UserMessage:     "I'm scared about the date",
		AIResponse:      "Take a breath.",
		UserID:          "user_demo",
		ChatbotName:     "Kent J.",
		MessageCount:    4,
		SessionDuration: 90 * time.Second,
		Timestamp:       ts,
	})

	assert.Equal(t, DefaultEventCategory, p.Category)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", p.Timestamp)
	assert.Equal(t, int64(90000), p.Metadata.SessionDuration)
	assert.Equal(t, 4, p.Metadata.MessageCount)
	assert.Equal(t, models.SentimentNegative, p.Metadata.Sentiment)
	assert.Nil(t, p.Metadata.UserProfile)

	p = NewEventPayload(EventInput{Category: "dating"})
	assert.Equal(t, "dating", p.Category)
}
