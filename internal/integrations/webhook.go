package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrWebhookNotConfigured is returned when a client has no target URL.
var ErrWebhookNotConfigured = errors.New("webhook url not configured")

// StatusError reports a non-2xx response from a workflow endpoint.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

const maxErrorBody = 4 << 10

// WebhookClient posts JSON documents to a single workflow endpoint.
type WebhookClient struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// NewWebhookClient creates a client for url. Each call is bounded by timeout.
// A nil httpClient uses http.DefaultClient.
func NewWebhookClient(url string, timeout time.Duration, httpClient *http.Client) *WebhookClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebhookClient{url: url, timeout: timeout, httpClient: httpClient}
}

// URL returns the configured endpoint, possibly empty.
func (c *WebhookClient) URL() string {
	return c.url
}

// Configured reports whether the client has a target.
func (c *WebhookClient) Configured() bool {
	return c.url != ""
}

// Post sends body as JSON with the extra headers and returns the raw response body.
func (c *WebhookClient) Post(ctx context.Context, body interface{}, headers map[string]string) ([]byte, error) {
	if c.url == "" {
		return nil, ErrWebhookNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode webhook body: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: c.url, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	return respBody, nil
}

// PostJSON is Post followed by decoding the response into out. An empty body leaves out untouched.
func (c *WebhookClient) PostJSON(ctx context.Context, body interface{}, headers map[string]string, out interface{}) error {
	respBody, err := c.Post(ctx, body, headers)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	return nil
}
