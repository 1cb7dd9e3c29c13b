// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import "context"

type managerKey struct{}

// WithManager returns a child context that carries m. Everything running
// under that context reaches the same session through FromContext.
func WithManager(ctx context.Context, m *Manager) context.Context {
	if m == nil {
		panic("auth: WithManager called with a nil manager")
	}
	return context.WithValue(ctx, managerKey{}, m)
}

// Lookup returns the manager carried by ctx, if any.
func Lookup(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(managerKey{}).(*Manager)
	return m, ok && m != nil
}

// FromContext returns the manager carried by ctx. Calling it on a context
// that was never given one is a programming error and panics.
func FromContext(ctx context.Context) *Manager {
	m, ok := Lookup(ctx)
	if !ok {
		panic("auth: FromContext must be used within a context prepared by auth.WithManager")
	}
	return m
}

// IsAdmin reports whether the signed-in user of the session in ctx is an
// administrator. It panics like FromContext when ctx carries no session.
func IsAdmin(ctx context.Context) bool {
	return FromContext(ctx).IsAdmin()
}
