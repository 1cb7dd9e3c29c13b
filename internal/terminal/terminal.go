// Package terminal provides prompt helpers and utilities for clearing
// previously printed text.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is attempted without a terminal.
var ErrNotInteractive = errors.New("not an interactive terminal")

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ReadLine prints prompt to out and reads one trimmed line from r.
func ReadLine(r *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassword prints prompt to out and reads a line from in without echo.
func ReadPassword(in *os.File, out io.Writer, prompt string) (string, error) {
	if !IsInteractive(in) {
		return "", ErrNotInteractive
	}
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClearPreviousLines clears text from the terminal that was previously printed.
// It calculates how many lines were used by the provided text based on the current
// terminal width, then moves up and clears each line.
//
// textLength is the total number of characters to clear (prompt + user input).
// One extra line is cleared for the newline the user typed.
func ClearPreviousLines(out *os.File, textLength int) {
	if !IsInteractive(out) {
		return
	}

	termWidth := 80
	if width, _, err := term.GetSize(int(out.Fd())); err == nil && width > 0 {
		termWidth = width
	}

	totalLines := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if totalLines < 1 {
		totalLines = 1
	}
	linesToClear := totalLines + 1

	c := cursor.NewCursor().WithWriter(out)
	for i := 0; i < linesToClear; i++ {
		c.ClearLine()
		if i < linesToClear-1 {
			c.Up(1)
		}
	}
}
