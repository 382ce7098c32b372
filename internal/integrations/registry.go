package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"kentj-backend/internal/models"

	"go.uber.org/zap"
)

// Workflow names registered at startup.
const (
	WorkflowEvents   = "events"
	WorkflowChat     = "chat"
	WorkflowProblems = "problems"
)

// Connection test outcome messages.
const (
	MsgConnectionSuccess = "Successfully connected to workflow system."
	MsgConnectionFailed  = "Failed to connect to the workflow system. Your conversation is still saved locally."
)

const connectionTestMessage = "Connection test from Kent J. chatbot"

// Integration is a workflow endpoint that can be probed for reachability.
type Integration interface {
	// TestConnection sends a diagnostic request. It never returns an error; failures are
	// reported in the result.
	TestConnection(ctx context.Context) models.TestConnectionResult
}

// Probe tests a WebhookClient with the diagnostic body. It satisfies Integration for
// endpoints that have no richer behavior.
type Probe struct {
	client  *WebhookClient
	version string
	now     func() time.Time
}

var _ Integration = (*Probe)(nil)

func NewProbe(client *WebhookClient, version string) *Probe {
	return &Probe{client: client, version: version, now: time.Now}
}

func (p *Probe) TestConnection(ctx context.Context) models.TestConnectionResult {
	body := models.ConnectionTestRequest{
		Test:      true,
		Message:   connectionTestMessage,
		Timestamp: models.FormatTime(p.now()),
		Version:   p.version,
	}

	respBody, err := p.client.Post(ctx, body, map[string]string{"X-Test-Connection": "true"})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) || errors.Is(err, ErrWebhookNotConfigured) {
			return models.TestConnectionResult{Success: false, Message: MsgConnectionFailed}
		}
		return models.TestConnectionResult{Success: false, Message: err.Error()}
	}

	result := models.TestConnectionResult{
		Success:     true,
		Message:     MsgConnectionSuccess,
		WorkflowURL: p.client.URL(),
	}
	// Workflows may answer with plain text; only JSON is echoed back.
	var data interface{}
	if len(respBody) > 0 && json.Unmarshal(respBody, &data) == nil {
		result.Data = data
	}
	return result
}

// Registry holds the workflow endpoints by name.
type Registry struct {
	integrations map[string]Integration
	log          *zap.Logger
}

// NewRegistry creates a new integration registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		integrations: make(map[string]Integration),
		log:          log.Named("registry"),
	}
}

// Register adds an integration under name, replacing any previous one.
func (r *Registry) Register(name string, integration Integration) {
	if _, exists := r.integrations[name]; exists {
		r.log.Warn("workflow already registered, overwriting", zap.String("workflow", name))
	}
	r.integrations[name] = integration
	r.log.Debug("registered workflow", zap.String("workflow", name))
}

// Get retrieves an integration by name.
func (r *Registry) Get(name string) (Integration, error) {
	integration, exists := r.integrations[name]
	if !exists {
		return nil, fmt.Errorf("no workflow registered under name: %s", name)
	}
	return integration, nil
}

// Names lists the registered workflow names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.integrations))
	for name := range r.integrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
