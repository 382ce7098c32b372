package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kentj-backend/internal/config"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/models"

	"go.uber.org/zap"
)

// ProblemsService forwards community tracker actions to the problems workflow and shapes the
// reply per action.
type ProblemsService struct {
	client  *integrations.WebhookClient
	appName string
	version string
	now     func() time.Time
	log     *zap.Logger
}

func NewProblemsService(client *integrations.WebhookClient, cfg config.ProblemsConfig, version string, log *zap.Logger) *ProblemsService {
	return &ProblemsService{
		client:  client,
		appName: cfg.AppName,
		version: version,
		now:     time.Now,
		log:     log.Named("problems"),
	}
}

func (s *ProblemsService) timestamp() string {
	return models.FormatTime(s.now())
}

// ValidateRequest applies the action-specific field rules.
func ValidateRequest(req models.ProblemsRequest) error {
	if req.Action == "" {
		return invalid("Action is required")
	}
	if !isProblemAction(req.Action) {
		return invalid("Invalid action type")
	}

	d := req.Data
	switch req.Action {
	case models.ProblemActionCreate:
		if !truthy(d["title"]) || !truthy(d["description"]) || !truthy(d["place"]) || !truthy(d["area"]) {
			return invalid("Missing required fields for problem creation")
		}
	case models.ProblemActionUpdate:
		if !truthy(d["id"]) {
			return invalid("Problem ID is required for updates")
		}
	case models.ProblemActionDelete:
		if !truthy(d["id"]) {
			return invalid("Problem ID is required for deletion")
		}
	case models.ProblemActionSearch:
		if !truthy(d["query"]) && !truthy(d["filters"]) {
			return invalid("Search query or filters are required")
		}
	}
	return nil
}

func isProblemAction(action string) bool {
	for _, a := range models.ProblemActions {
		if a == action {
			return true
		}
	}
	return false
}

// Process validates and forwards a POST /problems request.
func (s *ProblemsService) Process(ctx context.Context, req models.ProblemsRequest, userID string) (*models.ProblemsResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if !s.client.Configured() {
		s.log.Error("problems workflow url not configured", zap.String("action", req.Action))
		return nil, integrations.ErrWebhookNotConfigured
	}

	now := s.now()
	body := models.ProblemsWebhookRequest{
		Action: req.Action,
		Data:   req.Data,
		Metadata: models.ProblemsWebhookMetadata{
			Timestamp: models.FormatTime(now),
			AppName:   s.appName,
			Version:   s.version,
			UserID:    &userID,
		},
	}
	headers := map[string]string{
		"X-App-Version": s.version,
		"X-Action-Type": req.Action,
		"X-Request-ID":  fmt.Sprintf("req_%d", now.UnixMilli()),
	}

	upstream, err := s.post(ctx, body, headers)
	if err != nil {
		return nil, err
	}
	return s.shape(req.Action, upstream), nil
}

// Query forwards a GET /problems request. When no workflow is configured it returns an empty
// fallback so the UI can still render.
func (s *ProblemsService) Query(ctx context.Context, action string, filters models.ProblemFilters) (*models.ProblemsResponse, error) {
	if action == "" {
		action = models.ProblemActionGetInsights
	}

	if !s.client.Configured() {
		s.log.Warn("problems workflow url not configured, returning fallback data", zap.String("action", action))
		return &models.ProblemsResponse{
			Success:    true,
			Action:     action,
			Data:       []interface{}{},
			Insights:   []interface{}{},
			Statistics: map[string]interface{}{},
			Message:    MsgProblemsFallback,
			Timestamp:  s.timestamp(),
		}, nil
	}

	body := models.ProblemsWebhookRequest{
		Action:  action,
		Filters: &filters,
		Metadata: models.ProblemsWebhookMetadata{
			Timestamp:   s.timestamp(),
			AppName:     s.appName,
			Version:     s.version,
			RequestType: "GET",
		},
	}
	headers := map[string]string{
		"X-App-Version":  s.version,
		"X-Action-Type":  action,
		"X-Request-Type": "GET",
	}

	upstream, err := s.post(ctx, body, headers)
	if err != nil {
		return nil, err
	}
	return &models.ProblemsResponse{
		Success:    true,
		Action:     action,
		Data:       or(field(upstream, "data"), upstream),
		Insights:   or(field(upstream, "insights"), []interface{}{}),
		Statistics: or(field(upstream, "statistics"), map[string]interface{}{}),
		Timestamp:  s.timestamp(),
	}, nil
}

// post sends body and decodes the reply into a generic JSON value. An empty reply decodes to nil.
func (s *ProblemsService) post(ctx context.Context, body models.ProblemsWebhookRequest, headers map[string]string) (interface{}, error) {
	s.log.Debug("sending request to problems workflow", zap.String("action", body.Action))
	respBody, err := s.client.Post(ctx, body, headers)
	if err != nil {
		s.log.Error("problems workflow request failed", zap.String("action", body.Action), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(respBody) == 0 {
		return nil, nil
	}
	var upstream interface{}
	if err := json.Unmarshal(respBody, &upstream); err != nil {
		s.log.Error("problems workflow returned invalid JSON", zap.String("action", body.Action), zap.Error(err))
		return nil, fmt.Errorf("%w: invalid JSON response", ErrUpstream)
	}
	return upstream, nil
}

func (s *ProblemsService) shape(action string, upstream interface{}) *models.ProblemsResponse {
	resp := &models.ProblemsResponse{
		Success:   true,
		Action:    action,
		Timestamp: s.timestamp(),
	}
	msg := func(def string) string {
		if m, ok := field(upstream, "message").(string); ok && m != "" {
			return m
		}
		return def
	}

	switch action {
	case models.ProblemActionCreate:
		resp.Problem = or(field(upstream, "problem"), field(upstream, "data"))
		resp.Message = msg("Problem created successfully")
	case models.ProblemActionUpdate:
		resp.Problem = or(field(upstream, "problem"), field(upstream, "data"))
		resp.Message = msg("Problem updated successfully")
	case models.ProblemActionDelete:
		resp.Message = msg("Problem deleted successfully")
	case models.ProblemActionAnalyze:
		resp.Analysis = or(field(upstream, "analysis"), field(upstream, "data"))
		resp.Insights = or(field(upstream, "insights"), []interface{}{})
		resp.Message = msg("Analysis completed")
	case models.ProblemActionSearch:
		resp.Results = or(field(upstream, "results"), field(upstream, "data"), []interface{}{})
		total := 0.0
		if t, ok := field(upstream, "total").(float64); ok {
			total = t
		}
		resp.Total = &total
		resp.Message = msg("Search completed")
	case models.ProblemActionGetInsights:
		resp.Insights = or(field(upstream, "insights"), field(upstream, "data"), []interface{}{})
		resp.Statistics = or(field(upstream, "statistics"), map[string]interface{}{})
		resp.Message = msg("Insights retrieved successfully")
	}
	return resp
}

// field returns v[key] when v is a JSON object.
func field(v interface{}, key string) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// truthy follows the JSON notion of an empty value: nil, false, 0 and "" are empty.
// Objects and arrays always count as set.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// or returns the first set value, or the last one.
func or(values ...interface{}) interface{} {
	for _, v := range values[:len(values)-1] {
		if truthy(v) {
			return v
		}
	}
	return values[len(values)-1]
}
