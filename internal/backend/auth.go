// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gatekeep/cli/internal/model"
)

// loginRequest represents the login request body
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login calls POST {Login} with { email, password }.
// Credentials are forwarded as-is; the backend owns validation.
func (h *HTTP) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "login"

	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.Login, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := h.do(h.client, req, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	return parseLoginResponse(body, resp.Header)
}

// parseLoginResponse accepts { token, user } and the common token aliases,
// falling back to a bearer token in the response headers.
func parseLoginResponse(body []byte, header http.Header) (*LoginResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("login: failed to decode response: %w", err)
	}
	var payload struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("login: failed to decode user: %w", err)
	}

	token := extractAccessToken(raw)
	if token == "" {
		token = findBearerTokenInHeaders(header)
	}
	if token == "" {
		return nil, errors.New("login: no token in response")
	}
	if payload.User == nil {
		return nil, errors.New("login: no user in response")
	}
	return &LoginResult{Token: token, User: payload.User}, nil
}

// Logout calls POST {Logout} with an empty JSON object and the bearer token.
func (h *HTTP) Logout(ctx context.Context, token string) error {
	const op = "logout"

	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.Logout, struct{}{})
	if err != nil {
		return err
	}
	resp, err := h.do(h.authorized(token), req, op)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
