// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"gatekeep/cli/internal/auth"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// logoutCmd signs out. The local session is cleared immediately; the backend
// is told in the background and its answer does not matter.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the saved session token",
	Long: `The logout command removes the session token from the token store and signs you
out locally right away. It also notifies the authentication service so the session
is revoked there (best-effort: an unreachable service does not make logout fail).`,

	RunE: func(cmd *cobra.Command, args []string) error {
		m := auth.FromContext(cmd.Context())
		w := cmd.OutOrStdout()

		if m.User() == nil {
			m.Logout(cmd.Context())
			pterm.Fprintln(w, "You were not logged in.")
			return nil
		}

		m.Logout(cmd.Context())
		pterm.Fprintln(w, "✅ Logged out. The session token has been removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
