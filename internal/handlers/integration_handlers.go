package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kentj-backend/internal/config"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/models"
	"kentj-backend/pkg/httputil"

	"go.uber.org/zap"
)

// QueueStatusProvider reports the delivery queue state.
type QueueStatusProvider interface {
	Status() models.QueueStatus
}

// IntegrationLookup resolves a workflow endpoint by name.
type IntegrationLookup interface {
	Get(name string) (integrations.Integration, error)
	Names() []string
}

var workflowDataFields = []string{"timestamp", "userMessage", "aiResponse", "chatbotName", "category"}

const workflowDescription = "Kent J. relationship advice chatbot integration"

// IntegrationHandler exposes the workflow integration status and diagnostics.
type IntegrationHandler struct {
	queue    QueueStatusProvider
	registry IntegrationLookup
	cfg      config.WorkflowConfig
	log      *zap.Logger
}

func NewIntegrationHandler(queue QueueStatusProvider, registry IntegrationLookup, cfg config.WorkflowConfig, log *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		queue:    queue,
		registry: registry,
		cfg:      cfg,
		log:      log.Named("integration_handler"),
	}
}

// HandleStatus handles GET /integration-status.
func (h *IntegrationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.IntegrationStatusResponse{
		Success: true,
		Config: models.IntegrationConfigView{
			Enabled:       h.cfg.Enabled,
			WorkflowURL:   h.cfg.URL,
			BatchSize:     h.cfg.BatchSize,
			RetryAttempts: h.cfg.RetryAttempts,
		},
		QueueStatus: h.queue.Status(),
		Timestamp:   models.FormatTime(time.Now()),
	})
}

// HandleTest handles POST /integration-test. The optional ?workflow= parameter picks the
// endpoint to probe (events, chat or problems); events is the default.
func (h *IntegrationHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("workflow")
	if name == "" {
		name = integrations.WorkflowEvents
	}

	target, err := h.registry.Get(name)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown workflow %q. Available: %s", name, strings.Join(h.registry.Names(), ", ")))
		return
	}

	// The probe must finish even if the client goes away, bounded by the client timeout.
	ctx := context.WithoutCancel(r.Context())
	result := target.TestConnection(ctx)
	h.log.Info("workflow connection test",
		zap.String("workflow", name),
		zap.Bool("success", result.Success),
		zap.String("message", result.Message),
	)

	httputil.RespondJSON(w, http.StatusOK, models.IntegrationTestResponse{
		TestConnectionResult: result,
		QueueStatus:          h.queue.Status(),
	})
}

func (h *IntegrationHandler) descriptor(enabled bool) models.WorkflowDescriptor {
	return models.WorkflowDescriptor{
		WorkflowURL: h.cfg.URL,
		Enabled:     enabled,
		DataFields:  workflowDataFields,
		Description: workflowDescription,
	}
}

// HandleGetConfig handles GET /integration-config.
func (h *IntegrationHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.IntegrationConfigResponse{
		Success: true,
		Config:  h.descriptor(h.cfg.Enabled),
	})
}

// HandleUpdateConfig handles POST /integration-config. Configuration is fixed for the process
// lifetime, so the requested flag is echoed without being applied.
func (h *IntegrationHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateIntegrationConfigRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to update configuration")
		return
	}

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	httputil.RespondJSON(w, http.StatusOK, models.IntegrationConfigResponse{
		Success: true,
		Message: "n8n integration " + state,
		Config:  h.descriptor(*req.Enabled),
	})
}
