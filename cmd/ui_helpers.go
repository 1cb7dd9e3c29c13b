package cmd

import (
	"io"
	"os"

	"gatekeep/cli/internal/terminal"

	"github.com/pterm/pterm"
)

// startSpinner shows a spinner with text on w while a network call runs and
// returns the function that removes it. Nothing is drawn unless w is a
// terminal, so piped and captured output stays clean.
func startSpinner(w io.Writer, text string) func() {
	f, ok := w.(*os.File)
	if !ok || !terminal.IsInteractive(f) {
		return func() {}
	}
	sp, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(true).
		WithSequence("|", "/", "-", "\\").
		Start(text)
	if err != nil {
		return func() {}
	}
	return func() { _ = sp.Stop() }
}

// notLoggedIn prints the hint shown to anonymous users.
func notLoggedIn(w io.Writer) {
	pterm.Fprintln(w, "🔒 You're not logged in yet!")
	pterm.Fprintln(w, "   Run 'gatekeep login' to get started.")
}
