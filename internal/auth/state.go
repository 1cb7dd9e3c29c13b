// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"gatekeep/cli/internal/model"
)

// State is the coarse session state derived from a Snapshot.
type State int

const (
	// StateLoading holds while the one-time bootstrap is in flight.
	StateLoading State = iota
	// StateAnonymous means no user is signed in.
	StateAnonymous
	// StateAuthenticated means a user is signed in.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a read-only view of the session: the current user (nil when
// anonymous) and whether bootstrap is still running. User is a private copy.
type Snapshot struct {
	User    *model.User
	Loading bool
}

// State derives the session state. Loading wins over everything else.
func (s Snapshot) State() State {
	switch {
	case s.Loading:
		return StateLoading
	case s.User == nil:
		return StateAnonymous
	default:
		return StateAuthenticated
	}
}

// IsAdmin applies the administrator check to the snapshot's user.
func (s Snapshot) IsAdmin() bool {
	return s.User.HasAdminRole()
}
