// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain keeps the session token in the OS keychain/credential store.
// It is the default token slot for interactive use: macOS Keychain, Windows
// Credential Manager, the Linux Secret Service (or KWallet/pass), and an
// encrypted file under the XDG state directory when none of those exist.
//
// Manager satisfies tokenstore.Store and is safe for concurrent use.
package keychain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gatekeep/cli/internal/tokenstore"
	"gatekeep/cli/internal/xdg"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "gatekeep"

// PassphraseEnv unlocks the encrypted-file fallback without prompting.
const PassphraseEnv = "GATEKEEP_KEYRING_PASSPHRASE"

var _ tokenstore.Store = (*Manager)(nil)

// Manager provides thread-safe access to the token slot in the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// Options tunes how the keyring is opened.
type Options struct {
	// FileDir overrides where the encrypted-file fallback lives.
	FileDir string
	// Passphrase unlocks the encrypted-file fallback. Empty means
	// PassphraseEnv, and then an interactive terminal prompt.
	Passphrase string
}

// New opens the OS keyring for ServiceName.
func New(opts Options) (*Manager, error) {
	ring, err := openRing(opts)
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithRing wraps an already opened keyring (tests use keyring.NewArrayKeyring).
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// allowedBackends lists native backends first and the encrypted file last.
func allowedBackends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend, keyring.FileBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend, keyring.FileBackend}
	default:
		return []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	}
}

func openRing(opts Options) (keyring.Keyring, error) {
	dir := opts.FileDir
	if dir == "" {
		stateDir, err := xdg.StateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve keyring directory: %w", err)
		}
		dir = filepath.Join(stateDir, "keyring")
	}

	passphrase := opts.Passphrase
	if passphrase == "" {
		passphrase = os.Getenv(PassphraseEnv)
	}
	prompt := keyring.PromptFunc(keyring.TerminalPrompt)
	if passphrase != "" {
		prompt = keyring.FixedStringPrompt(passphrase)
	}

	cfg := keyring.Config{
		ServiceName:      ServiceName,
		AllowedBackends:  allowedBackends(),
		PassPrefix:       ServiceName,
		KWalletAppID:     ServiceName,
		KWalletFolder:    ServiceName,
		FileDir:          dir,
		FilePasswordFunc: prompt,
	}

	// Hint prefixes where supported to minimize namespace collisions
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// Load retrieves the session token. A missing or empty item is
// tokenstore.ErrNotFound.
func (m *Manager) Load(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(tokenstore.Key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", tokenstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read token from keychain: %w", err)
	}
	if len(it.Data) == 0 {
		return "", tokenstore.ErrNotFound
	}
	return string(it.Data), nil
}

// Save stores the session token, replacing any previous one.
func (m *Manager) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.ring.Set(keyring.Item{
		Key:         tokenstore.Key,
		Data:        []byte(token),
		Label:       ServiceName + " session token",
		Description: "Session token for the gatekeep CLI",
	})
	if err != nil {
		return fmt.Errorf("write token to keychain: %w", err)
	}
	return nil
}

// Delete removes the session token. Removing a missing token succeeds.
func (m *Manager) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.ring.Remove(tokenstore.Key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !os.IsNotExist(err) {
		return fmt.Errorf("remove token from keychain: %w", err)
	}
	return nil
}
