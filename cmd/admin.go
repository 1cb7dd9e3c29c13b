// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"gatekeep/cli/internal/auth"

	"github.com/spf13/cobra"
)

// isAdminCmd answers whether the signed-in user is an administrator, for use
// in scripts: it prints yes or no and exits 1 for no.
var isAdminCmd = &cobra.Command{
	Use:   "is-admin",
	Short: "Report whether the current user has an admin role",
	Long: `The is-admin command prints "yes" and exits 0 when the signed-in user has a role
whose name contains "admin" (case-insensitive). Otherwise, including when nobody
is signed in, it prints "no" and exits 1.

A session restored from the saved token only knows the roles the authentication
service returns from its who-am-I endpoint. If that endpoint sends no roles, a
restored session is never an administrator until you log in again.`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if auth.IsAdmin(cmd.Context()) {
			fmt.Fprintln(cmd.OutOrStdout(), "yes")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "no")
		return &exitError{code: 1}
	},
}

func init() {
	rootCmd.AddCommand(isAdminCmd)
}
