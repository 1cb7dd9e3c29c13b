// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"gatekeep/cli/internal/auth"
	apperrors "gatekeep/cli/internal/errors"
	"gatekeep/cli/internal/model"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var whoamiJSON bool

// whoamiView is the --json shape of whoami.
type whoamiView struct {
	State   auth.State  `json:"state"`
	User    *model.User `json:"user"`
	IsAdmin bool        `json:"is_admin"`
}

// whoamiCmd shows the account restored from the saved session.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the current authenticated account",
	Long: `The whoami command shows the account of the current session. The saved token is
validated with the authentication service when the CLI starts; if it was rejected
you are signed out and asked to log in again.

Roles of a restored session are the ones the service returns from who-am-I.
Roles are only fetched separately when you log in, so a service that leaves them
out of who-am-I shows "(none)" here until the next login.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		m := auth.FromContext(cmd.Context())
		w := cmd.OutOrStdout()
		snap := m.Snapshot()

		if whoamiJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(whoamiView{State: snap.State(), User: snap.User, IsAdmin: snap.IsAdmin()})
		}

		if snap.User == nil {
			if apperrors.IsKind(m.BootstrapErr(), apperrors.BootstrapFailed) {
				pterm.Fprintln(w, "⌛ Your previous session is no longer valid.")
			}
			notLoggedIn(w)
			return nil
		}

		u := snap.User
		pterm.Fprintln(w, fmt.Sprintf("👤 Current user: %s", u.DisplayName()))
		if u.Name != "" && u.Name != u.DisplayName() {
			pterm.Fprintln(w, fmt.Sprintf("   Name:  %s", u.Name))
		}
		pterm.Fprintln(w, fmt.Sprintf("   ID:    %s", u.ID))
		if len(u.Roles) == 0 {
			pterm.Fprintln(w, "   Roles: (none)")
		} else {
			pterm.Fprintln(w, fmt.Sprintf("   Roles: %s", strings.Join(u.RoleNames(), ", ")))
		}
		if snap.IsAdmin() {
			pterm.Fprintln(w, "   🛡️  Administrator")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Print the session as JSON")
}
