// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"gatekeep/cli/internal/backend/backendtest"
	apperrors "gatekeep/cli/internal/errors"
	"gatekeep/cli/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slotKey = "gatekeep:token"

type harness struct {
	t     *testing.T
	srv   *backendtest.Server
	redis *miniredis.Miniredis
}

// newHarness points the CLI at a fake backend and a miniredis token store,
// with config and state directories under t.TempDir. The backend's who-am-I
// answer carries the role list, so later invocations see the same roles.
func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := backendtest.New(t)
	srv.MeIncludesRoles = true
	srv.AddAccount("a@b.com", "pw",
		model.User{ID: "7", Email: "a@b.com", Name: "Ada"},
		model.Role{ID: "1", RoleName: "Admin"})
	mr := miniredis.RunT(t)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("GATEKEEP_SERVER", srv.URL)
	t.Setenv("GATEKEEP_STORE_BACKEND", "redis")
	t.Setenv("GATEKEEP_STORE_REDIS_ADDR", mr.Addr())
	for _, k := range []string{envEmail, envPassword} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	return &harness{t: t, srv: srv, redis: mr}
}

// run executes the CLI once, like a separate process invocation would.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	resetCommandState(rootCmd)

	var stdout, stderr bytes.Buffer
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.ExecuteContext(context.Background())
	shutdown()
	return stdout.String(), stderr.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, stderr, err := h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin")
	require.NoError(h.t, err, stderr)
}

func (h *harness) slot() (string, bool) {
	v, err := h.redis.Get(slotKey)
	if errors.Is(err, miniredis.ErrKeyNotFound) {
		return "", false
	}
	require.NoError(h.t, err)
	return v, true
}

func resetCommandState(c *cobra.Command) {
	c.SetContext(nil)
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandState(sub)
	}
}

func TestVersionFlag(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "--version")

	require.NoError(t, err)
	assert.Equal(t, "gatekeep "+Version+"\n", stdout)
	assert.Empty(t, h.srv.Calls(), "version must not touch the backend")
}

func TestRootCommandRunsWithoutSession(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	a := currentApp()
	require.NotNil(t, a)
	assert.Nil(t, a.manager, "help must not open the token store")
	assert.Empty(t, h.srv.Calls())
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "You're not logged in yet!")
	assert.Zero(t, h.srv.CallsTo("/auth/me"), "no token, no validation call")

	stdout, stderr, err := h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "a@b.com")
	token, ok := h.slot()
	require.True(t, ok)
	assert.Equal(t, "t1", token)

	stdout, _, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current user: a@b.com")
	assert.Contains(t, stdout, "ID:    7")
	assert.Contains(t, stdout, "Roles: Admin")
	assert.Contains(t, stdout, "Administrator")

	stdout, _, err = h.run("", "is-admin")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", stdout)

	stdout, _, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out")
	_, ok = h.slot()
	assert.False(t, ok)
	assert.False(t, h.srv.SessionActive("t1"), "backend was notified before the process ended")

	stdout, _, err = h.run("", "is-admin")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Equal(t, "no\n", stdout)
}

func TestIsAdmin_RestoredSessionWithoutRolesFromMe(t *testing.T) {
	h := newHarness(t)
	h.srv.MeIncludesRoles = false

	stdout, stderr, err := h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin")
	require.NoError(t, err, stderr)
	assert.NotContains(t, stdout, "No roles are assigned", "login itself fetches roles")

	stdout, _, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current user: a@b.com")
	assert.Contains(t, stdout, "Roles: (none)")
	assert.NotContains(t, stdout, "Administrator")

	stdout, _, err = h.run("", "is-admin")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Equal(t, "no\n", stdout)
	assert.Equal(t, 1, h.srv.CallsTo("/users/"), "only login fetches roles")
}

func TestLogin_SendsBearerOnLaterCalls(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, _, err := h.run("", "whoami")
	require.NoError(t, err)

	var found bool
	for _, c := range h.srv.Calls() {
		if c.Path == "/auth/me" {
			found = true
			assert.Equal(t, "Bearer t1", c.Authorization)
			assert.NotEmpty(t, c.RequestID)
			assert.True(t, strings.HasPrefix(c.UserAgent, "gatekeep-cli/"))
		}
	}
	assert.True(t, found)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run("nope\n", "login", "--email", "a@b.com", "--password-stdin")

	require.Error(t, err)
	assert.Contains(t, stderr, "Invalid email or password.")
	_, ok := h.slot()
	assert.False(t, ok)
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Already logged in as a@b.com")
	assert.Equal(t, 1, h.srv.CallsTo("/auth/login"))

	_, _, err = h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin", "--force")
	require.NoError(t, err)
	assert.Equal(t, 2, h.srv.CallsTo("/auth/login"))
	token, _ := h.slot()
	assert.Equal(t, "t2", token)
}

func TestLogin_FromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv(envEmail, "a@b.com")
	t.Setenv(envPassword, "pw")

	_, stderr, err := h.run("", "login")

	require.NoError(t, err, stderr)
	token, _ := h.slot()
	assert.Equal(t, "t1", token)
}

func TestLogin_NonInteractiveWithoutPassword(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "login", "--email", "a@b.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
	assert.Zero(t, h.srv.CallsTo("/auth/login"))
}

func TestLogin_RoleOutage(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail(backendtest.RouteRoles, http.StatusServiceUnavailable)

	stdout, stderr, err := h.run("pw\n", "login", "--email", "a@b.com", "--password-stdin")

	require.NoError(t, err)
	assert.Contains(t, stdout, "No roles are assigned")
	assert.Contains(t, stderr, "could not load roles")
	token, _ := h.slot()
	assert.Equal(t, "t1", token)
}

func TestWhoami_ExpiredSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.redis.Set(slotKey, "revoked"))

	stdout, _, err := h.run("", "whoami")

	require.NoError(t, err)
	assert.Contains(t, stdout, "no longer valid")
	assert.Contains(t, stdout, "You're not logged in yet!")
	_, ok := h.slot()
	assert.False(t, ok, "rejected token is removed")
}

func TestWhoami_JSON(t *testing.T) {
	h := newHarness(t)
	h.login()

	stdout, _, err := h.run("", "whoami", "--json")
	require.NoError(t, err)

	var view struct {
		State   string      `json:"state"`
		User    *model.User `json:"user"`
		IsAdmin bool        `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, "authenticated", view.State)
	assert.True(t, view.IsAdmin)
	require.NotNil(t, view.User)
	assert.Equal(t, model.ID("7"), view.User.ID)
	assert.Equal(t, []string{"Admin"}, view.User.RoleNames())
}

func TestLogout_BackendDown(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.srv.Fail(backendtest.RouteLogout, http.StatusInternalServerError)

	stdout, _, err := h.run("", "logout")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out")
	_, ok := h.slot()
	assert.False(t, ok)
}

func TestLogout_WhenAnonymous(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "logout")

	require.NoError(t, err)
	assert.Contains(t, stdout, "not logged in")
	assert.Zero(t, h.srv.CallsTo("/auth/logout"))
}

func TestInvalidConfigurationIsRejected(t *testing.T) {
	h := newHarness(t)
	t.Setenv("GATEKEEP_STORE_BACKEND", "s3")

	_, _, err := h.run("", "whoami")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ConfigInvalid))
}

func TestConfigSetServerAndShow(t *testing.T) {
	newHarness(t)
	os.Unsetenv("GATEKEEP_SERVER")
	h := &harness{t: t}

	stdout, _, err := h.run("", "config", "set-server", "https://auth.example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Server set to https://auth.example.com")

	stdout, _, err = h.run("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"server": "https://auth.example.com"`)
	assert.Contains(t, stdout, "config.json")

	_, _, err = h.run("", "config", "set-server", "not-a-url")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ConfigInvalid))
}

func TestServerFlagOverridesConfig(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("", "config", "show", "--server", "https://flag.example.com")

	require.NoError(t, err)
	assert.Contains(t, stdout, `"server": "https://flag.example.com"`)
}
