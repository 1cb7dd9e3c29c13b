// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"gatekeep/cli/internal/auth"
	"gatekeep/cli/internal/httperrors"
	"gatekeep/cli/internal/model"
	"gatekeep/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Credential environment variables read by login when flags are absent.
const (
	envEmail    = "GATEKEEP_EMAIL"
	envPassword = "GATEKEEP_PASSWORD"
)

var (
	loginEmail         string
	loginPasswordStdin bool
	loginForce         bool
)

// loginCmd signs in with email and password.
// Credentials come from flags, then the environment, then an interactive prompt.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with email and password",
	Long: `The login command signs in to the authentication service. The session token is
stored in the configured token store and reused by later commands until you log out
or the backend rejects it.

The email is taken from --email or GATEKEEP_EMAIL, the password from stdin
(--password-stdin) or GATEKEEP_PASSWORD. Anything missing is prompted for when
running in a terminal. If you are already logged in the command does nothing
unless --force is given.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m := auth.FromContext(ctx)
		w := cmd.OutOrStdout()

		if u := m.User(); u != nil && !loginForce {
			fmt.Fprintf(w, "Already logged in as %s\n", u.DisplayName())
			return nil
		}

		email, password, err := readCredentials(cmd)
		if err != nil {
			return err
		}

		stop := startSpinner(cmd.ErrOrStderr(), "Signing in")
		err = m.Login(ctx, email, password)
		stop()
		if err != nil {
			return httperrors.RenderLoginError(cmd.ErrOrStderr(), err, serverURL())
		}

		showLoginGreeting(w, m.User())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (or GATEKEEP_EMAIL)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Sign in again even if already logged in")
}

func readCredentials(cmd *cobra.Command) (email, password string, err error) {
	in := bufio.NewReader(cmd.InOrStdin())
	w := cmd.OutOrStdout()
	stdin, _ := cmd.InOrStdin().(*os.File)
	interactive := terminal.IsInteractive(stdin)

	email = strings.TrimSpace(loginEmail)
	if email == "" {
		email = strings.TrimSpace(os.Getenv(envEmail))
	}

	if loginPasswordStdin {
		if email == "" {
			return "", "", errors.New("--password-stdin requires --email or " + envEmail)
		}
		password, err = readPasswordLine(in)
		if err != nil {
			return "", "", err
		}
		return email, password, nil
	}

	if email == "" {
		if !interactive {
			return "", "", errors.New("email is required: pass --email or set " + envEmail)
		}
		prompt := "Email: "
		email, err = terminal.ReadLine(in, w, prompt)
		if err != nil {
			return "", "", fmt.Errorf("read email: %w", err)
		}
	}

	password = os.Getenv(envPassword)
	if password == "" {
		if !interactive {
			return "", "", errors.New("password is required: use --password-stdin or set " + envPassword)
		}
		prompt := "Password: "
		password, err = terminal.ReadPassword(stdin, w, prompt)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		if f, ok := w.(*os.File); ok {
			terminal.ClearPreviousLines(f, len(prompt))
		}
	}
	return email, password, nil
}

func readPasswordLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// showLoginGreeting displays a friendly greeting after a successful login.
func showLoginGreeting(w io.Writer, u *model.User) {
	if u == nil {
		pterm.Fprintln(w, "✅ Login successful!")
		return
	}
	pterm.Fprintln(w, getRandomLoginGreeting(u.DisplayName()))
	if len(u.Roles) == 0 {
		pterm.Fprintln(w, "   No roles are assigned to this account.")
	}
}

// getRandomLoginGreeting returns a random greeting phrase with the user's identifier.
func getRandomLoginGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"💫 Successfully authenticated as %s",
		"🌟 Welcome aboard, %s!",
		"✅ Authentication complete! Hi %s!",
		"🎯 You're in, %s!",
		"🔓 Access granted! Welcome %s!",
	}
	return fmt.Sprintf(greetings[rand.Intn(len(greetings))], identifier)
}
