package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "gatekeep/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{
		"GATEKEEP_SERVER", "GATEKEEP_LOG_LEVEL", "GATEKEEP_TIMEOUT",
		"GATEKEEP_STORE_BACKEND", "GATEKEEP_STORE_REDIS_ADDR", "GATEKEEP_ENDPOINT_ME",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	isolate(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, c.Validate())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := isolate(t)

	c := Default()
	c.Server = "https://auth.example.com"
	c.Timeout = Duration(3 * time.Second)
	c.Store = StoreConfig{Backend: StoreRedis, RedisAddr: "localhost:6379", RedisPassword: "secret"}
	require.NoError(t, Save(c))

	p := filepath.Join(dir, "gatekeep", "config.json")
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timeout": "3s"`)
	assert.NotContains(t, string(raw), "secret", "redis password is never written to disk")

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com", got.Server)
	assert.Equal(t, 3*time.Second, got.Timeout.Std())
	assert.Equal(t, "localhost:6379", got.Store.RedisAddr)
	assert.Empty(t, got.Store.RedisPassword)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gatekeep"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gatekeep", "config.json"),
		[]byte(`{"server":"https://x.example.com","endpoints":{"me":"/v2/me"}}`), 0o600))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://x.example.com", c.Server)
	assert.Equal(t, "/v2/me", c.Endpoints.Me)
	assert.Equal(t, "/auth/login", c.Endpoints.Login)
	assert.Equal(t, StoreKeyring, c.Store.Backend)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gatekeep"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gatekeep", "config.json"), []byte(`{`), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadLayered_EnvWinsOverDotenvAndFile(t *testing.T) {
	isolate(t)

	c := Default()
	c.Server = "https://file.example.com"
	c.LogLevel = "info"
	require.NoError(t, Save(c))

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"GATEKEEP_SERVER=https://dotenv.example.com\nGATEKEEP_STORE_BACKEND=memory\n"), 0o600))
	t.Setenv("GATEKEEP_SERVER", "https://env.example.com")
	t.Setenv("GATEKEEP_TIMEOUT", "2s")

	got, err := LoadLayered(dotenv)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", got.Server)
	assert.Equal(t, StoreMemory, got.Store.Backend)
	assert.Equal(t, "info", got.LogLevel, "unset variables keep file values")
	assert.Equal(t, 2*time.Second, got.Timeout.Std())
}

func TestLoadLayered_MissingDotenvIsIgnored(t *testing.T) {
	isolate(t)

	_, err := LoadLayered(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestApplyEnv_BadDuration(t *testing.T) {
	isolate(t)
	t.Setenv("GATEKEEP_TIMEOUT", "soon")

	c := Default()
	assert.Error(t, c.ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing server", mutate: func(c *Config) { c.Server = "" }, wantErr: "Server is required"},
		{name: "relative server", mutate: func(c *Config) { c.Server = "localhost" }, wantErr: "Server must be an absolute URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "Timeout must be >"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "s3" }, wantErr: "Store.Backend must be one of"},
		{name: "redis without addr", mutate: func(c *Config) { c.Store.Backend = StoreRedis }, wantErr: "Store.RedisAddr is required"},
		{name: "redis with addr", mutate: func(c *Config) {
			c.Store.Backend = StoreRedis
			c.Store.RedisAddr = "127.0.0.1:6379"
		}},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LogFormat must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.ConfigInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
