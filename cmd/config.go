// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"

	"gatekeep/cli/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// configCmd groups the configuration subcommands. None of them touch the session.
var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect or change CLI configuration",
	Annotations: map[string]string{annotationNoSession: "true"},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after layering config.json, .env, GATEKEEP_* environment
variables and flags. Secrets are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := currentApp()
		if a == nil {
			return fmt.Errorf("configuration not loaded")
		}
		path, err := config.Path()
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(a.cfg, "", "  ")
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "# %s\n%s\n", path, b)
		if err := a.cfg.Validate(); err != nil {
			pterm.Fprintln(cmd.ErrOrStderr(), pterm.Warning.Sprint(err.Error()))
		}
		return nil
	},
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Save the authentication service base URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		c.Server = args[0]
		if err := c.Validate(); err != nil {
			return err
		}
		if err := config.Save(c); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Server set to %s\n", c.Server)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetServerCmd)
}
