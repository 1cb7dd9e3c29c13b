// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package tokenstore defines the single persistent slot that holds the session
// token, together with the in-memory and redis implementations. The OS keyring
// implementation lives in internal/keychain.
package tokenstore

import (
	"context"
	"errors"
)

// Key is the fixed name of the token slot.
const Key = "token"

// ErrNotFound is returned by Load when no token is stored.
var ErrNotFound = errors.New("token not found")

// Store persists at most one session token.
// Delete on an empty slot is not an error.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}
