// Package voice is a client for the outbound voice-call provider (Vapi HTTP API).
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://api.vapi.ai"
	// maxErrorBody caps how much of a failed response is kept in the error.
	maxErrorBody = 2048
)

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("voice: API key not configured")

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("voice: %s failed status=%d body=%s", e.Op, e.Status, e.Body)
}

// Client calls the provider's assistant and call endpoints with a bearer key.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL (default https://api.vapi.ai). Outbound
// requests are traced with otelhttp.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateAssistant registers a scripted assistant and returns its id.
func (c *Client) CreateAssistant(ctx context.Context, a *Assistant) (*AssistantRef, error) {
	var ref AssistantRef
	if err := c.do(ctx, http.MethodPost, "/assistant", "create assistant", a, &ref); err != nil {
		return nil, err
	}
	if ref.ID == "" {
		return nil, errors.New("voice: create assistant returned no id")
	}
	return &ref, nil
}

// CreateCall starts an outbound call.
func (c *Client) CreateCall(ctx context.Context, req *CallRequest) (*Call, error) {
	var call Call
	if err := c.do(ctx, http.MethodPost, "/call", "create call", req, &call); err != nil {
		return nil, err
	}
	if call.ID == "" {
		return nil, errors.New("voice: create call returned no id")
	}
	return &call, nil
}

// GetCall reads the current state of a call.
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	if id == "" {
		return nil, errors.New("voice: call id is empty")
	}
	var call Call
	if err := c.do(ctx, http.MethodGet, "/call/"+url.PathEscape(id), "get call", nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) do(ctx context.Context, method, path, op string, in, out interface{}) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("voice: %s: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("voice: %s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice: %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("voice: %s: decode response: %w", op, err)
	}
	return nil
}
