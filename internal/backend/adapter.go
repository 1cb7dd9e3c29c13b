// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating with the
// authentication backend. It defines the API contract for login, session validation,
// role lookup and logout, and an HTTP implementation over the REST endpoints.
package backend

import (
	"context"

	"gatekeep/cli/internal/model"
)

// API defines backend operations the session manager depends on.
// Implementations may call real HTTP endpoints or provide mocks for tests.
type API interface {
	// Login exchanges credentials for a session token and the user record.
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Me returns the user the token belongs to. Roles may be absent.
	Me(ctx context.Context, token string) (*model.User, error)
	// Roles lists the roles of the given user.
	Roles(ctx context.Context, token string, userID model.ID) ([]model.Role, error)
	// Logout invalidates the token on the backend.
	Logout(ctx context.Context, token string) error
}

// LoginResult is the decoded login response.
type LoginResult struct {
	Token string
	User  *model.User
}
