// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the user and role records shared between the backend
// client and the session manager.
//
// The types are decoded straight from the backend's JSON responses and are
// handed to consumers only as copies, so nothing outside the session manager
// can change the published user.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// adminMarker is matched as a case-insensitive substring of a role name.
const adminMarker = "admin"

// ID is a backend identifier. The backend may send it as a JSON string or a
// JSON number; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*id = ID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Role is a named permission tag attached to a user.
type Role struct {
	ID       ID     `json:"id,omitempty"`
	RoleName string `json:"role_name"`
}

// User is the signed-in account.
// Roles is nil when the backend did not send a role list at all.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Roles []Role `json:"roles,omitempty"`
}

// Clone returns a deep copy of u. A nil user clones to nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Roles != nil {
		c.Roles = make([]Role, len(u.Roles))
		copy(c.Roles, u.Roles)
	}
	return &c
}

// WithRoles returns a copy of u whose role list is replaced by roles.
func (u *User) WithRoles(roles []Role) *User {
	c := u.Clone()
	if c == nil {
		return nil
	}
	c.Roles = make([]Role, len(roles))
	copy(c.Roles, roles)
	return c
}

// HasAdminRole reports whether any role name contains "admin",
// case-insensitively. "super-admin-ui" and "administrative-assistant" both
// qualify; this is a substring test, not an exact match.
func (u *User) HasAdminRole() bool {
	if u == nil || len(u.Roles) == 0 {
		return false
	}
	for _, r := range u.Roles {
		if strings.Contains(strings.ToLower(r.RoleName), adminMarker) {
			return true
		}
	}
	return false
}

// RoleNames lists the role names in order.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.RoleName)
	}
	return names
}

// DisplayName picks the friendliest identifier available for greetings.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	default:
		return u.ID.String()
	}
}
