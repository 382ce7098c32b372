package models

// --- Auth ---

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

// MeResponse returns the identity behind a bearer token.
type MeResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// ProfileResponse returns a stored user profile.
type ProfileResponse struct {
	Success bool        `json:"success"`
	Profile UserProfile `json:"profile"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse defines the standard structure for API errors.
// Message carries a user-facing explanation when the error is degraded rather than fatal.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Success   *bool  `json:"success,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// --- Chat ---

// ChatTurn is one message as sent by the chat UI.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages  []ChatTurn `json:"messages"`
	SessionID string     `json:"sessionId,omitempty"`
	Category  string     `json:"category,omitempty"`
}

// ChatResponse is the assistant reply returned to the chat UI.
type ChatResponse struct {
	Message   string `json:"message"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// --- Conversation sessions ---

// CreateSessionRequest starts a new conversation session.
type CreateSessionRequest struct {
	Category string `json:"category,omitempty"`
}

// AddMessageRequest appends a message to the current session.
type AddMessageRequest struct {
	Role     string           `json:"role" validate:"required,oneof=user assistant system"`
	Content  string           `json:"content" validate:"required"`
	Category string           `json:"category,omitempty"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Success bool                 `json:"success"`
	Session *ConversationSession `json:"session"`
}

// HistoryResponse lists ended sessions, oldest first.
type HistoryResponse struct {
	Success  bool                  `json:"success"`
	Sessions []ConversationSession `json:"sessions"`
}

// --- Workflow integration ---

// IntegrationConfigView is the subset of workflow settings exposed to the UI.
type IntegrationConfigView struct {
	Enabled       bool   `json:"enabled"`
	WorkflowURL   string `json:"workflowUrl"`
	BatchSize     int    `json:"batchSize"`
	RetryAttempts int    `json:"retryAttempts"`
}

// IntegrationStatusResponse is returned by GET /integration-status.
type IntegrationStatusResponse struct {
	Success     bool                  `json:"success"`
	Config      IntegrationConfigView `json:"config"`
	QueueStatus QueueStatus           `json:"queueStatus"`
	Timestamp   string                `json:"timestamp"`
}

// IntegrationTestResponse is returned by POST /integration-test.
type IntegrationTestResponse struct {
	TestConnectionResult
	QueueStatus QueueStatus `json:"queueStatus"`
}

// WorkflowDescriptor describes what the chatbot sends to the workflow.
type WorkflowDescriptor struct {
	WorkflowURL string   `json:"workflowUrl"`
	Enabled     bool     `json:"enabled"`
	DataFields  []string `json:"dataFields"`
	Description string   `json:"description"`
}

// UpdateIntegrationConfigRequest is the body of POST /integration-config.
type UpdateIntegrationConfigRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// IntegrationConfigResponse is returned by the integration-config endpoints.
type IntegrationConfigResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Config  WorkflowDescriptor `json:"config"`
}

// --- Workflow wire formats ---

// ChatWebhookRequest is what the chat proxy sends to the chat workflow.
type ChatWebhookRequest struct {
	ChatInput           string              `json:"chatInput"`
	ConversationHistory []ChatTurn          `json:"conversationHistory"`
	Metadata            ChatWebhookMetadata `json:"metadata"`
}

// ChatWebhookMetadata describes the request context for the chat workflow.
type ChatWebhookMetadata struct {
	Timestamp    string `json:"timestamp"`
	ChatbotName  string `json:"chatbotName"`
	MessageCount int    `json:"messageCount"`
	UserID       string `json:"userId"`
}

// ChatWebhookResponse accepts either reply field the workflow may use.
type ChatWebhookResponse struct {
	Output  string `json:"output"`
	Message string `json:"message"`
}

// BatchEnvelope wraps a batch of events for the events workflow.
type BatchEnvelope struct {
	Batch    bool           `json:"batch"`
	Messages []EventPayload `json:"messages"`
	Metadata BatchMetadata  `json:"metadata"`
}

// BatchMetadata describes a delivered batch.
type BatchMetadata struct {
	BatchSize int    `json:"batchSize"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ConnectionTestRequest is the diagnostic body sent by TestConnection.
type ConnectionTestRequest struct {
	Test      bool   `json:"test"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string      `json:"status"`
	Version     string      `json:"version"`
	QueueStatus QueueStatus `json:"queueStatus"`
	Timestamp   string      `json:"timestamp"`
}
