package integrations

import (
	"time"

	"kentj-backend/internal/models"
)

// DefaultEventCategory is used when an exchange has no category.
const DefaultEventCategory = "general_advice"

// EventInput carries what is known about a completed exchange.
type EventInput struct {
	SessionID       string
	UserMessage     string
	AIResponse      string
	UserID          string
	ChatbotName     string
	Category        string
	MessageCount    int
	SessionDuration time.Duration
	UserProfile     *models.UserProfile
	Timestamp       time.Time
}

// NewEventPayload builds the outbound payload for one exchange, filling in the default
// category and the sentiment of the user message.
func NewEventPayload(in EventInput) models.EventPayload {
	category := in.Category
	if category == "" {
		category = DefaultEventCategory
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.EventPayload{
		SessionID:   in.SessionID,
		Timestamp:   models.FormatTime(ts),
		UserMessage: in.UserMessage,
		AIResponse:  in.AIResponse,
		ChatbotName: in.ChatbotName,
		Category:    category,
		UserID:      in.UserID,
		Metadata: models.EventMetadata{
			MessageCount:    in.MessageCount,
			SessionDuration: in.SessionDuration.Milliseconds(),
			UserProfile:     in.UserProfile,
			Sentiment:       AnalyzeSentiment(in.UserMessage),
		},
	}
}
