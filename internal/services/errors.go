package services

import "errors"

// Sentinel errors shared by the services. Handlers map them to status codes with errors.Is.
var (
	ErrValidation         = errors.New("input validation failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrNoUserMessage      = errors.New("no user message found")
	ErrMessageTooLong     = errors.New("message too long")
	ErrSessionLimit       = errors.New("too many messages in session")
	ErrNoActiveSession    = errors.New("no active conversation session")
	ErrUpstream           = errors.New("workflow request failed")
)

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid username or password. Please check your credentials and try again."
	MsgTooManyAttempts    = "Too many login attempts. Please wait before trying again."
	MsgUnauthorized       = "You need to be logged in to access this feature."
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgServerError        = "An unexpected server error occurred. Please try again later."
	MsgLoginSuccess       = "Welcome back! Ready to continue your relationship journey?"
	MsgProfileUpdated     = "Profile updated successfully!"
	MsgValidationError    = "Invalid input provided. Please check your data and try again."

	MsgChatFallbackReply = "I'm sorry, I couldn't process your message right now. Please try again."
	MsgChatDifficulties  = "I'm experiencing some technical difficulties. Please try again in a moment."

	MsgProblemsDifficulties = "We're experiencing some technical difficulties. Please try again in a moment."
	MsgProblemsFallback     = "Using local fallback – n8n webhook URL not configured."
)

// ValidationError carries the exact message shown to the client. It matches ErrValidation
// and, when set, Kind.
type ValidationError struct {
	Msg  string
	Kind error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Kind != nil && target == e.Kind)
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
