package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// routeHeader mirrors the server's X-Chat-Route response header.
const routeHeader = "X-Chat-Route"

type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClientWithCmd builds a client from the --api-key/--api-url flags,
// falling back to the environment (after loading .env) and the saved config.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var flagKey, flagURL string
	if cmd != nil {
		flagKey, _ = cmd.Flags().GetString("api-key")
		flagURL, _ = cmd.Flags().GetString("api-url")
	}

	_, apiKey, baseURL, err := ResolveCredentials(flagKey, flagURL)
	if err != nil {
		return nil, err
	}
	return NewAPIClientWithConfig(apiKey, baseURL), nil
}

// NewAPIClientWithConfig creates an APIClient with explicit settings. The
// client has no overall timeout because chat replies are streamed.
func NewAPIClientWithConfig(apiKey, baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// APIResponse is the server's JSON envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *APIClient) Post(ctx context.Context, path string, body interface{}) (*APIResponse, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *APIClient) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// StreamResponse is an open streamed reply. Callers must close Body.
type StreamResponse struct {
	Route string
	Body  io.ReadCloser
}

// PostStream sends body and returns the response body unread so it can be
// consumed as it arrives.
func (c *APIClient) PostStream(ctx context.Context, path string, body interface{}) (*StreamResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return &StreamResponse{Route: resp.Header.Get(routeHeader), Body: resp.Body}, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (*APIResponse, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &apiResp, nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil || apiResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Error}
}
