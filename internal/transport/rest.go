// Package transport provides the REST and websocket clients for the
// dashboard backend. It knows the wire envelope and auth conventions;
// retry and fallback decisions live in internal/watch.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/statusdeck/statusdeck/internal/protocol"
)

const requestTimeout = 10 * time.Second

// RESTClient makes REST calls to the dashboard backend.
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:4173").
func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// GetJSON performs a GET against path and unwraps the standard
// {success, data} envelope, returning the raw data payload.
func (c *RESTClient) GetJSON(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}

	var env protocol.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("GET %s: decode envelope: %w", path, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("GET %s: backend error: %s", path, env.Error)
	}
	return env.Data, nil
}

func (c *RESTClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
