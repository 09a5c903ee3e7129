// Package vaultapi implements the VaultStore and Authenticator ports against
// the remote vault service's REST/JSON API.
package vaultapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.VaultStore    = (*Client)(nil)
	_ driven.Authenticator = (*Client)(nil)
)

// DefaultBaseURL is where the service listens in a local development setup.
const DefaultBaseURL = "http://localhost:8000/api"

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer credential attached to vault requests.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the vault service. Every request is attempted once; the
// client never retries and keeps no response cache.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	tokens  TokenSource
	logger  *slog.Logger
}

// NewClient creates a Client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, tokens, logger)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. Tests
// use it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parsing base URL: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{http: httpClient, baseURL: u, tokens: tokens, logger: logger}, nil
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint joins path onto the API root.
func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// HealthURL returns the service health endpoint, which lives at the service
// root rather than under the API prefix.
func (c *Client) HealthURL() string {
	root := *c.baseURL
	root.Path = "/health"
	root.RawQuery = ""
	return root.String()
}

// Health reports whether the service answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &driven.NetworkError{Op: "health", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &driven.ServiceError{Op: "health", Status: resp.StatusCode}
	}
	return nil
}

// do sends one JSON request and decodes a successful response into out.
// authed requests carry the bearer credential from the token source.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s: reading session credential: %w", op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("vault api: request failed", "op", op, "request_id", requestID, "error", err)
		return &driven.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("vault api: response",
		"op", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &driven.ServiceError{Op: op, Status: resp.StatusCode, Message: "empty response body"}
		}
		return &driven.ServiceError{Op: op, Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// mapStatus turns a non-success response into the port's error vocabulary.
func mapStatus(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	field, message := parseDetail(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, driven.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, driven.ErrNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &model.ValidationError{Field: field, Message: message}
	default:
		return &driven.ServiceError{Op: op, Status: resp.StatusCode, Message: message}
	}
}

// errorBody is the error envelope of the service. detail is either a plain
// string or a list of field errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts the first field name and message from an error body.
// Bodies that are not JSON yield their trimmed text as the message.
func parseDetail(raw []byte) (field, message string) {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return "", strings.TrimSpace(string(raw))
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return "", text
	}

	var fields []fieldError
	if err := json.Unmarshal(body.Detail, &fields); err == nil && len(fields) > 0 {
		first := fields[0]
		// loc is ["body", "<field>"] for request-body errors.
		if n := len(first.Loc); n > 0 {
			if name, ok := first.Loc[n-1].(string); ok && name != "body" {
				field = name
			}
		}
		return field, first.Msg
	}

	return "", strings.TrimSpace(string(body.Detail))
}
