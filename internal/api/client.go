// Package api provides the HTTP fetch gate and a client for the Tado API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the Tado v2 API root.
const DefaultBaseURL = "https://my.tado.com/api/v2"

// maxErrorBody bounds the response body kept in a RemoteStatusError.
const maxErrorBody = 512

// Authorizer adds credentials to an outgoing request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// invalidator is implemented by authorizers that cache credentials.
type invalidator interface {
	Invalidate()
}

// Gate performs single HTTP exchanges. It never retries: retry policy
// belongs to the callers.
type Gate struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGate creates a gate with a tuned transport.
func NewGate(timeout time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Do sends one request and returns the body of a 2xx response. A non-nil
// body is JSON encoded. auth may be nil.
func (g *Gate) Do(ctx context.Context, method, rawURL string, body any, auth Authorizer) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Only the path is logged, query strings may carry credentials.
	path := req.URL.Path

	if auth != nil {
		if err := auth.Authorize(ctx, req); err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("authorize: %w", err)}
		}
	}

	g.logger.Debug("API request", "method", method, "path", path)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Debug("Non-2xx status", "method", method, "path", path, "status", resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := auth.(invalidator); ok {
				g.logger.Info("Credentials rejected, dropping cached token", "path", path)
				inv.Invalidate()
			}
		}
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &RemoteStatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	g.logger.Debug("API response", "method", method, "path", path, "bytes", len(data))

	return data, nil
}

// Client talks to the Tado API.
type Client struct {
	gate    *Gate
	baseURL string
	auth    Authorizer
}

// NewClient creates a Tado API client rooted at baseURL.
func NewClient(gate *Gate, baseURL string, auth Authorizer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		gate:    gate,
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
	}
}

// doRequest performs an authorized request against a path below the base URL.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	return c.gate.Do(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body, c.auth)
}

// decode unmarshals data into v, wrapping failures as DecodeError.
func decode(what string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{What: what, Err: err}
	}
	return nil
}
