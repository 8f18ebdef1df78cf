// Package client talks to a running "guardian serve" over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/guardian/internal/model"
)

// HTTPClient calls the guardian REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for baseURL (e.g. "http://localhost:8080").
// When token is non-empty, an Authorization header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LogsResponse is the body of GET /v1/logs.
type LogsResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Cap     int              `json:"cap"`
	Seq     uint64           `json:"seq"`
}

// Logs returns the server's current log, newest first.
func (c *HTTPClient) Logs(ctx context.Context) (*LogsResponse, error) {
	var resp LogsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/logs", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Emit posts an already-encoded payload to POST /v1/events. The payload
// must match the server's contract.
func (c *HTTPClient) Emit(ctx context.Context, payload []byte) error {
	return c.do(ctx, http.MethodPost, "/v1/events", payload, nil)
}

// Health returns the server's health status ("ok" when serving).
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// decodeAPIError builds an APIError from a failed reply. The server answers
// with {"error": ...}; the health endpoint answers with {"status": ...}.
func decodeAPIError(code int, body []byte) *APIError {
	var reply struct {
		Error  string `json:"error"`
		Status string `json:"status"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &reply) == nil {
		switch {
		case reply.Error != "":
			msg = reply.Error
		case reply.Status != "":
			msg = reply.Status
		}
	}
	return &APIError{StatusCode: code, Message: msg}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends body, if any, and decodes a successful reply into result unless
// result is nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s reply: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, data)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding %s reply: %w", path, err)
	}
	return nil
}
