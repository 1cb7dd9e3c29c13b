// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/url"
	"strings"
)

// Endpoints contains REST API endpoint paths relative to the base URL.
type Endpoints struct {
	Login  string `json:"login"  env:"LOGIN"`  // e.g., "/auth/login"
	Logout string `json:"logout" env:"LOGOUT"` // e.g., "/auth/logout"
	Me     string `json:"me"     env:"ME"`     // e.g., "/auth/me"
	Roles  string `json:"roles"  env:"ROLES"`  // e.g., "/users/{id}/roles"
}

// DefaultEndpoints returns the stock endpoint layout.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:  "/auth/login",
		Logout: "/auth/logout",
		Me:     "/auth/me",
		Roles:  "/users/{id}/roles",
	}
}

// WithDefaults fills empty paths from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.Me == "" {
		e.Me = d.Me
	}
	if e.Roles == "" {
		e.Roles = d.Roles
	}
	return e
}

// RolesPath expands the {id} placeholder with the escaped user identifier.
func (e Endpoints) RolesPath(userID string) string {
	return strings.ReplaceAll(e.Roles, "{id}", url.PathEscape(userID))
}
