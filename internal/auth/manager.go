// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth holds the session manager: the single owner of the signed-in
// user and the persisted session token.
//
// A Manager is created once per process and handed to the rest of the program
// through a context (WithManager / FromContext). It restores a previous
// session at startup (Bootstrap), signs users in (Login) and out (Logout), and
// answers read-only questions about the session (Snapshot, IsAdmin).
//
// Login, Logout and Bootstrap never interleave: each holds the manager's flow
// slot for its local work. Reads never wait on the network.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"gatekeep/cli/internal/backend"
	apperrors "gatekeep/cli/internal/errors"
	"gatekeep/cli/internal/model"
	"gatekeep/cli/internal/tokenstore"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultNotifyTimeout bounds the detached logout notification.
const DefaultNotifyTimeout = 10 * time.Second

// Manager owns the current user and the persisted session token.
// The zero value is not usable; call NewManager.
type Manager struct {
	api           backend.API
	store         tokenstore.Store
	log           zerolog.Logger
	notifyTimeout time.Duration

	// flow serializes Bootstrap, Login and the local part of Logout.
	flow *semaphore.Weighted

	mu      sync.RWMutex
	user    *model.User
	loading bool
	bootErr error

	bootOnce sync.Once
	ready    chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	pending sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithNotifyTimeout bounds the backend logout notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

// NewManager returns a manager in the loading state. Both dependencies are
// required; a nil one panics.
func NewManager(api backend.API, store tokenstore.Store, opts ...Option) *Manager {
	if api == nil || store == nil {
		panic("auth: NewManager requires a backend API and a token store")
	}
	m := &Manager{
		api:           api,
		store:         store,
		log:           zerolog.Nop(),
		notifyTimeout: DefaultNotifyTimeout,
		flow:          semaphore.NewWeighted(1),
		loading:       true,
		ready:         make(chan struct{}),
		subs:          make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap restores the session from the persisted token. It runs once per
// Manager; later and concurrent calls return after the first run finished.
//
// Without a token the session becomes anonymous without any network call. A
// token the backend rejects (for any reason) is deleted and the session
// becomes anonymous; the failure is logged and kept in BootstrapErr, never
// returned. Loading ends exactly once, whatever happened.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootOnce.Do(func() { m.bootstrap(ctx) })
}

func (m *Manager) bootstrap(ctx context.Context) {
	var (
		user    *model.User
		bootErr error
	)
	defer func() { m.finishBootstrap(user, bootErr) }()

	local := context.WithoutCancel(ctx)
	_ = m.flow.Acquire(local, 1)
	defer m.flow.Release(1)

	token, err := m.store.Load(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) || (err == nil && token == "") {
		m.log.Debug().Msg("no persisted session token")
		return
	}
	if err != nil {
		bootErr = apperrors.Wrap(apperrors.StoreUnavailable, "read session token", err)
		m.log.Warn().Err(bootErr).Msg("token store unreadable, starting anonymous")
		return
	}

	me, err := m.api.Me(ctx, token)
	if err != nil {
		bootErr = apperrors.Wrap(apperrors.BootstrapFailed, "validate persisted session", err)
		m.log.Error().Err(bootErr).Msg("persisted session rejected, signing out locally")
		if derr := m.store.Delete(local); derr != nil {
			m.log.Warn().Err(derr).Msg("failed to delete rejected session token")
		}
		return
	}
	user = me
	m.log.Debug().Str("user_id", me.ID.String()).Msg("session restored")
}

func (m *Manager) finishBootstrap(user *model.User, bootErr error) {
	m.mu.Lock()
	m.user = user.Clone()
	m.loading = false
	m.bootErr = bootErr
	snap := m.snapshotLocked()
	m.mu.Unlock()

	close(m.ready)
	m.notify(snap)
}

// Login signs in with the given credentials, which are passed to the backend
// untouched. A failed login call is returned exactly as the backend client
// produced it and leaves the session unchanged.
//
// On success the token is persisted before anything else, then the user's
// roles are fetched. If that fetch fails the user is published with an empty
// role list and the failure is only logged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := m.flow.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.flow.Release(1)

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if res == nil || res.User == nil || res.Token == "" {
		return errors.New("login: backend returned no session")
	}

	if err := m.store.Save(ctx, res.Token); err != nil {
		return apperrors.Wrap(apperrors.TokenPersistFailed, "persist session token", err)
	}

	roles, err := m.api.Roles(ctx, res.Token, res.User.ID)
	if err != nil {
		m.log.Warn().
			Err(apperrors.Wrap(apperrors.RoleFetchFailed, "load roles", err)).
			Str("user_id", res.User.ID.String()).
			Msg("could not load roles, continuing without them")
		roles = nil
	}

	user := res.User.WithRoles(roles)
	m.publish(user)
	m.log.Debug().Str("user_id", user.ID.String()).Int("roles", len(user.Roles)).Msg("signed in")
	return nil
}

// Logout signs out locally at once: the token is deleted and the user cleared
// before any network activity. If a token was present the backend is told in
// the background; that outcome is discarded. Logout never fails and is safe
// to call when nobody is signed in. Use Drain to wait for the notification.
func (m *Manager) Logout(ctx context.Context) {
	local := context.WithoutCancel(ctx)
	_ = m.flow.Acquire(local, 1)

	token, err := m.store.Load(local)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		m.log.Debug().Err(err).Msg("could not read session token during logout")
	}
	if err != nil {
		token = ""
	}
	if derr := m.store.Delete(local); derr != nil {
		m.log.Warn().Err(derr).Msg("failed to delete session token")
	}
	m.publish(nil)

	if token == "" {
		m.flow.Release(1)
		return
	}

	// Registered under the flow lock so Drain never starts waiting mid-Add.
	m.pending.Add(1)
	m.flow.Release(1)
	go func() {
		defer m.pending.Done()
		nctx, cancel := context.WithTimeout(local, m.notifyTimeout)
		defer cancel()
		if err := m.api.Logout(nctx, token); err != nil {
			m.log.Debug().
				Err(apperrors.Wrap(apperrors.LogoutNotifyFailed, "notify backend", err)).
				Msg("logout notification dropped")
		}
	}()
}

// Drain waits for background logout notifications to finish or ctx to end.
// Login and Logout wait while a drain is in progress.
func (m *Manager) Drain(ctx context.Context) error {
	if err := m.flow.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		m.flow.Release(1)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current user (a copy) and the loading flag.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// State is shorthand for Snapshot().State().
func (m *Manager) State() State {
	return m.Snapshot().State()
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *model.User {
	return m.Snapshot().User
}

// Loading reports whether bootstrap is still running.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// IsAdmin reports whether any role of the signed-in user contains "admin",
// case-insensitively. No user or no roles means false.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.HasAdminRole()
}

// BootstrapErr returns why bootstrap ended anonymous despite a stored token,
// or nil.
func (m *Manager) BootstrapErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bootErr
}

// Ready is closed once bootstrap has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Subscribe registers fn to receive a snapshot after every change of the
// session. fn runs on the goroutine that made the change and must not call
// Login, Logout or Bootstrap. The returned func unregisters fn.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) publish(user *model.User) {
	m.mu.Lock()
	m.user = user.Clone()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{User: m.user.Clone(), Loading: m.loading}
}

func (m *Manager) notify(snap Snapshot) {
	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(Snapshot{User: snap.User.Clone(), Loading: snap.Loading})
	}
}
