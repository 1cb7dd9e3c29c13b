// Package xdg provides helpers to resolve XDG Base Directory paths for gatekeep.
// It implements the XDG Base Directory specification for determining where the
// configuration file and the encrypted keyring fallback live.
//
// The package falls back to traditional locations when XDG environment
// variables are not set and creates directories with private permissions,
// since both locations may hold credentials.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "gatekeep"

// ConfigDir returns the XDG config directory for gatekeep.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/gatekeep when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for gatekeep.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/gatekeep when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeFallback string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeFallback)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
