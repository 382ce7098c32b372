package models

// EventPayload is one completed user/assistant exchange delivered to the workflow endpoint.
type EventPayload struct {
	SessionID   string        `json:"sessionId"`
	Timestamp   string        `json:"timestamp"` // RFC 3339
	UserMessage string        `json:"userMessage"`
	AIResponse  string        `json:"aiResponse"`
	ChatbotName string        `json:"chatbotName"`
	Category    string        `json:"category"`
	UserID      string        `json:"userId"`
	Metadata    EventMetadata `json:"metadata"`
}

// EventMetadata is the context block attached to every EventPayload.
type EventMetadata struct {
	MessageCount    int          `json:"messageCount"`
	SessionDuration int64        `json:"sessionDuration"` // millis
	UserProfile     *UserProfile `json:"userProfile,omitempty"`
	Sentiment       string       `json:"sentiment,omitempty"`
}

// QueueStatus is a point-in-time view of the delivery queue.
type QueueStatus struct {
	QueueLength  int  `json:"queueLength"`
	IsProcessing bool `json:"isProcessing"`
}

// TestConnectionResult is the outcome of a diagnostic call to a workflow endpoint.
type TestConnectionResult struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	WorkflowURL string      `json:"workflowUrl,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}
