// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so failures that are recovered locally (bootstrap,
// role lookup, logout notification) can still be recorded and inspected.
//
// The package supports wrapping underlying errors while maintaining error kind information;
// wrapped errors stay reachable through the standard errors.Is / errors.As helpers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// BootstrapFailed indicates the persisted token could not be validated at startup.
	BootstrapFailed Kind = "bootstrap_failed"
	// RoleFetchFailed indicates the role list could not be loaded after login.
	RoleFetchFailed Kind = "role_fetch_failed"
	// TokenPersistFailed indicates the session token could not be written to the store.
	TokenPersistFailed Kind = "token_persist_failed"
	// LogoutNotifyFailed indicates the backend was not told about a logout.
	LogoutNotifyFailed Kind = "logout_notify_failed"
	// StoreUnavailable indicates the token store could not be opened or read.
	StoreUnavailable Kind = "store_unavailable"
	// ConfigInvalid indicates configuration failed validation.
	ConfigInvalid Kind = "config_invalid"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is matches another *E of the same kind, so a bare New(kind, "") works as a target.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	return ok && t.Kind == e.Kind
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// IsKind reports whether err or anything it wraps is an *E of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *E
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf returns the outermost kind carried by err, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
