package models

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Sentiment labels attached to messages and outbound events.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ChatMessage represents a single message in a conversation.
// Messages are immutable once created and only ever appended to a session.
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"` // "user", "assistant", "system"
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Category  string           `json:"category,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries optional annotations produced by the UI or the workflow.
type MessageMetadata struct {
	Confidence          *float64 `json:"confidence,omitempty"`
	Category            string   `json:"category,omitempty"`
	Sentiment           string   `json:"sentiment,omitempty"`
	FollowUpSuggestions []string `json:"followUpSuggestions,omitempty"`
}
