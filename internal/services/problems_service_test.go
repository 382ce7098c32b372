package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kentj-backend/internal/config"
	"kentj-backend/internal/integrations"
	"kentj-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProblemsService(url string) *ProblemsService {
	client := integrations.NewWebhookClient(url, time.Second, nil)
	return NewProblemsService(client, config.ProblemsConfig{AppName: "Community Tracker"}, "1.0.0", zap.NewNop())
}

func TestValidateRequest(t *testing.T) {
	full := map[string]interface{}{"title": "Pothole", "description": "Deep", "place": "Main St", "area": "North"}
	tests := []struct {
		name    string
		req     models.ProblemsRequest
		wantMsg string
	}{
		{"missing action", models.ProblemsRequest{}, "Action is required"},
		{"bad action", models.ProblemsRequest{Action: "explode"}, "Invalid action type"},
		{"create missing area", models.ProblemsRequest{Action: "create", Data: map[string]interface{}{"title": "x", "description": "y", "place": "z"}}, "Missing required fields for problem creation"},
		{"create empty title", models.ProblemsRequest{Action: "create", Data: map[string]interface{}{"title": "", "description": "y", "place": "z", "area": "a"}}, "Missing required fields for problem creation"},
		{"update without id", models.ProblemsRequest{Action: "update", Data: map[string]interface{}{}}, "Problem ID is required for updates"},
		{"delete without id", models.ProblemsRequest{Action: "delete"}, "Problem ID is required for deletion"},
		{"search without query", models.ProblemsRequest{Action: "search", Data: map[string]interface{}{"query": ""}}, "Search query or filters are required"},
		{"create ok", models.ProblemsRequest{Action: "create", Data: full}, ""},
		{"search with filters", models.ProblemsRequest{Action: "search", Data: map[string]interface{}{"filters": map[string]interface{}{}}}, ""},
		{"analyze needs nothing", models.ProblemsRequest{Action: "analyze"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantMsg, ve.Msg)
		})
	}
}

func TestProcessShapesResponses(t *testing.T) {
	var got models.ProblemsWebhookRequest
	var header http.Header
	reply := `{}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(reply))
	}))
	defer server.Close()
	svc := newTestProblemsService(server.URL)
	ctx := context.Background()

	reply = `{"data":{"id":"p1"}}`
	resp, err := svc.Process(ctx, models.ProblemsRequest{Action: "update", Data: map[string]interface{}{"id": "p1"}}, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"id": "p1"}, resp.Problem)
	assert.Equal(t, "Problem updated successfully", resp.Message)

	assert.Equal(t, "update", got.Action)
	assert.Equal(t, "Community Tracker", got.Metadata.AppName)
	require.NotNil(t, got.Metadata.UserID)
	assert.Equal(t, "", *got.Metadata.UserID)
	assert.Equal(t, "update", header.Get("X-Action-Type"))
	assert.Equal(t, "1.0.0", header.Get("X-App-Version"))
	assert.Regexp(t, `^req_\d+$`, header.Get("X-Request-ID"))

	reply = `{"data":[1,2]}`
	resp, err = svc.Process(ctx, models.ProblemsRequest{Action: "search", Data: map[string]interface{}{"query": "light"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0}, resp.Results)
	require.NotNil(t, resp.Total)
	assert.Equal(t, 0.0, *resp.Total)
	assert.Equal(t, "Search completed", resp.Message)

	reply = `{"message":"Done!","insights":["a"],"statistics":{"open":3}}`
	resp, err = svc.Process(ctx, models.ProblemsRequest{Action: "get-insights"}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a"}, resp.Insights)
	assert.Equal(t, map[string]interface{}{"open": 3.0}, resp.Statistics)
	assert.Equal(t, "Done!", resp.Message)

	reply = ``
	resp, err = svc.Process(ctx, models.ProblemsRequest{Action: "analyze"}, "")
	require.NoError(t, err)
	assert.Nil(t, resp.Analysis)
	assert.Equal(t, []interface{}{}, resp.Insights)
	assert.Equal(t, "Analysis completed", resp.Message)
}

func TestProcessErrors(t *testing.T) {
	svc := newTestProblemsService("")
	_, err := svc.Process(context.Background(), models.ProblemsRequest{Action: "analyze"}, "")
	assert.ErrorIs(t, err, integrations.ErrWebhookNotConfigured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	_, err = newTestProblemsService(server.URL).Process(context.Background(), models.ProblemsRequest{Action: "analyze"}, "")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestQueryFallbackWhenUnconfigured(t *testing.T) {
	svc := newTestProblemsService("")
	resp, err := svc.Query(context.Background(), "", models.ProblemFilters{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "get-insights", resp.Action)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Equal(t, MsgProblemsFallback, resp.Message)
}

func TestQueryForwardsFilters(t *testing.T) {
	var raw map[string]interface{}
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`[{"id":"p1"}]`))
	}))
	defer server.Close()

	area := "North"
	resp, err := newTestProblemsService(server.URL).Query(context.Background(), "search", models.ProblemFilters{Area: &area})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"id": "p1"}}, resp.Data)
	assert.Equal(t, []interface{}{}, resp.Insights)
	assert.Equal(t, map[string]interface{}{}, resp.Statistics)

	assert.Equal(t, "GET", header.Get("X-Request-Type"))
	filters := raw["filters"].(map[string]interface{})
	assert.Equal(t, "North", filters["area"])
	assert.Contains(t, filters, "status")
	assert.Nil(t, filters["status"])
	meta := raw["metadata"].(map[string]interface{})
	assert.Equal(t, "GET", meta["requestType"])
	assert.NotContains(t, meta, "userId")
}
