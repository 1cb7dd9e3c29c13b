// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are written to disk; the session token lives in the
// token store and secrets for the stores come from the environment.
//
// Settings are layered: defaults, then config.json, then a .env file, then
// GATEKEEP_* environment variables. Command-line flags are applied last by
// the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gatekeep/cli/internal/backend"
	apperrors "gatekeep/cli/internal/errors"
	"gatekeep/cli/internal/xdg"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "GATEKEEP_"

// DefaultServer is the backend used when nothing else is configured.
const DefaultServer = "http://localhost:8080"

// Token store backends.
const (
	StoreKeyring = "keyring"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	Server    string            `json:"server"     env:"SERVER"     validate:"required,url"`
	LogLevel  string            `json:"log_level"  env:"LOG_LEVEL"`
	LogFormat string            `json:"log_format" env:"LOG_FORMAT" validate:"omitempty,oneof=console json"`
	Timeout   Duration          `json:"timeout"    env:"TIMEOUT"    validate:"gt=0"`
	Endpoints backend.Endpoints `json:"endpoints"  envPrefix:"ENDPOINT_"`
	Store     StoreConfig       `json:"store"      envPrefix:"STORE_"`
}

// StoreConfig selects and tunes the token store.
type StoreConfig struct {
	Backend       string `json:"backend"                env:"BACKEND"        validate:"oneof=keyring redis memory"`
	RedisAddr     string `json:"redis_addr,omitempty"   env:"REDIS_ADDR"     validate:"required_if=Backend redis"`
	RedisPassword string `json:"-"                      env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db,omitempty"     env:"REDIS_DB"       validate:"gte=0"`
	RedisPrefix   string `json:"redis_prefix,omitempty" env:"REDIS_PREFIX"`
	KeyringDir    string `json:"keyring_dir,omitempty"  env:"KEYRING_DIR"`
}

// Duration is a time.Duration that reads and writes as "10s" in JSON and env.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:    DefaultServer,
		LogLevel:  "warn",
		LogFormat: "console",
		Timeout:   Duration(backend.DefaultTimeout),
		Endpoints: backend.DefaultEndpoints(),
		Store:     StoreConfig{Backend: StoreKeyring},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults. Keys absent from
// the file keep their default values.
func Load() (Config, error) {
	c := Default()
	p, err := Path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", p, err)
	}
	c.Endpoints = c.Endpoints.WithDefaults()
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// LoadLayered reads config.json, then the given .env files (default ".env";
// missing ones are skipped), then GATEKEEP_* environment variables. Variables
// already set in the environment win over .env entries.
func LoadLayered(dotenvFiles ...string) (Config, error) {
	c, err := Load()
	if err != nil {
		return c, fmt.Errorf("load config file: %w", err)
	}
	if err := loadDotenv(dotenvFiles...); err != nil {
		return c, err
	}
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	return c, nil
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays GATEKEEP_* environment variables. Unset variables leave
// the current values alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	c.Endpoints = c.Endpoints.WithDefaults()
	return nil
}

// Validate checks the settings and reports every problem at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.ConfigInvalid, "validate config", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.New(apperrors.ConfigInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when " + fe.Param()
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
