// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 4 << 10

// ErrUnauthorized matches any 401 response via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError reports a non-success HTTP status from the backend.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed (status %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// HTTP implements API over REST endpoints.
type HTTP struct {
	// baseURL is the base URL for all HTTP requests (e.g., "https://app.example.com/api")
	baseURL string
	// endpoints contains the URL paths for the auth endpoints
	endpoints Endpoints
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	// userAgent is sent on every request
	userAgent string
}

// Option customizes the HTTP client.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying *http.Client. The client is copied,
// so later options never modify the caller's value.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			cp := *c
			h.client = &cp
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// newHTTP creates a new HTTP client with the given base URL and endpoints.
// It configures a 10-second timeout unless an option says otherwise.
func newHTTP(baseURL string, endpoints Endpoints, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints.WithDefaults(),
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "gatekeep-cli",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// authorized returns a client that attaches the bearer token to every request.
func (h *HTTP) authorized(token string) *http.Client {
	base := h.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: h.client.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

// newRequest builds a JSON request against path with the standard headers.
func (h *HTTP) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do sends req and converts non-2xx responses into *StatusError.
// The caller owns the returned body.
func (h *HTTP) do(client *http.Client, req *http.Request, op string) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// decodeJSON decodes the response body into v and closes it.
func decodeJSON(resp *http.Response, op string, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
