// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"net/http"

	"gatekeep/cli/internal/model"
)

// Me calls GET {Me} with the bearer token and returns the user as sent.
// The role list is left exactly as the backend returned it, including absent.
func (h *HTTP) Me(ctx context.Context, token string) (*model.User, error) {
	const op = "get-me"

	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Me, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.do(h.authorized(token), req, op)
	if err != nil {
		return nil, err
	}

	var user *model.User
	if err := decodeJSON(resp, op, &user); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("get-me: empty user in response")
	}
	return user, nil
}

// Roles calls GET {Roles} for userID with the bearer token.
// A JSON null body is an empty list.
func (h *HTTP) Roles(ctx context.Context, token string, userID model.ID) ([]model.Role, error) {
	const op = "get-roles"

	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.RolesPath(userID.String()), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.do(h.authorized(token), req, op)
	if err != nil {
		return nil, err
	}

	var roles []model.Role
	if err := decodeJSON(resp, op, &roles); err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return roles, nil
}
