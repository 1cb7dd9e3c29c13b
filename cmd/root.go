// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Gatekeep CLI.
// It implements subcommands for signing in and out, inspecting the current
// session and managing configuration using the Cobra CLI framework.
//
// Every command that needs the session runs under a context prepared by the
// root command: configuration is loaded, the token store is opened, and one
// auth.Manager is bootstrapped and attached with auth.WithManager.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gatekeep/cli/internal/auth"
	"gatekeep/cli/internal/backend"
	"gatekeep/cli/internal/config"
	"gatekeep/cli/internal/keychain"
	"gatekeep/cli/internal/logging"
	"gatekeep/cli/internal/tokenstore"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// annotationNoSession marks commands that run without a session manager.
const annotationNoSession = "gatekeep/no-session"

var (
	showVersion   bool
	flagServer    string
	flagStore     string
	flagLogLevel  string
	flagTimeout   time.Duration
	flagVerbose   bool
	flagDotenvDir string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gatekeep",
	Short: "Gatekeep CLI for signing in to the authentication service",
	Long: `Gatekeep signs you in to the authentication service, keeps the session token
in your OS keychain (or a configured redis), and restores the session on every run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "gatekeep %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// app holds what setup built for the running command.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	manager *auth.Manager

	closeOnce sync.Once
	closers   []func() error
}

var (
	currentMu sync.Mutex
	current   *app
)

// Execute runs the CLI application and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	shutdown()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, logging.PresentError("Error", err))
	os.Exit(1)
}

// exitError ends the process with a status code and no message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "Authentication service base URL (overrides config)")
	pf.StringVar(&flagStore, "store", "", "Token store: keyring, redis or memory")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Request timeout, e.g. 10s")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flagDotenvDir, "env-dir", "", "Directory to read .env from (default: working directory)")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	a := &app{cfg: cfg, log: logger}
	setCurrent(a)

	if !cmd.HasParent() || skipsSession(cmd) {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	api := backend.New(cfg.Server, cfg.Endpoints,
		backend.WithTimeout(cfg.Timeout.Std()),
		backend.WithUserAgent("gatekeep-cli/"+Version),
	)
	a.manager = auth.NewManager(api, store,
		auth.WithLogger(logger),
		auth.WithNotifyTimeout(cfg.Timeout.Std()),
	)

	ctx := auth.WithManager(cmd.Context(), a.manager)
	cmd.SetContext(ctx)

	stop := startSpinner(cmd.ErrOrStderr(), "Restoring session")
	a.manager.Bootstrap(ctx)
	stop()
	return nil
}

// loadConfig layers config file, .env and environment, then applies flags.
// The result is not validated; commands that need a session do that.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var dotenv []string
	if flagDotenvDir != "" {
		dotenv = []string{flagDotenvDir + string(os.PathSeparator) + ".env"}
	}
	cfg, err := config.LoadLayered(dotenv...)
	if err != nil {
		return cfg, fmt.Errorf("load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = flagServer
	}
	if flags.Changed("store") {
		cfg.Store.Backend = flagStore
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("timeout") {
		cfg.Timeout = config.Duration(flagTimeout)
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// openStore opens the configured token store. The returned close func may be nil.
func openStore(cfg config.Config) (tokenstore.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		rs := tokenstore.NewRedisStore(tokenstore.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		})
		return rs, rs.Close, nil
	case config.StoreMemory:
		return tokenstore.NewMemoryStore(), nil, nil
	default:
		km, err := keychain.New(keychain.Options{FileDir: cfg.Store.KeyringDir})
		if err != nil {
			return nil, nil, err
		}
		return km, nil, nil
	}
}

func skipsSession(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoSession] == "true" {
			return true
		}
	}
	return false
}

func setCurrent(a *app) {
	currentMu.Lock()
	prev := current
	current = a
	currentMu.Unlock()
	if prev != nil {
		prev.close()
	}
}

func currentApp() *app {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// shutdown waits for pending logout notifications and releases the store.
func shutdown() {
	if a := currentApp(); a != nil {
		a.close()
	}
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.manager != nil {
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Timeout.Std())
			if err := a.manager.Drain(ctx); err != nil {
				a.log.Debug().Err(err).Msg("gave up waiting for logout notification")
			}
			cancel()
		}
		for _, c := range a.closers {
			if err := c(); err != nil {
				a.log.Debug().Err(err).Msg("close token store")
			}
		}
	})
}

// serverURL returns the backend URL the running command uses.
func serverURL() string {
	if a := currentApp(); a != nil {
		return a.cfg.Server
	}
	return config.DefaultServer
}
