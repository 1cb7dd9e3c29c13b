// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns backend and network failures into user-friendly
// terminal messages.
package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"gatekeep/cli/internal/backend"

	"github.com/pterm/pterm"
)

// Category is the broad class of a failure, used to pick the advice shown.
type Category int

const (
	Other Category = iota
	Unauthorized
	Timeout
	DNS
	ConnectionRefused
	TLS
	Server
)

// Classify inspects err and returns its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return Other
	case errors.Is(err, backend.ErrUnauthorized):
		return Unauthorized
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	case isServerError(err):
		return Server
	default:
		return Other
	}
}

// FormatNetworkError prints a user-friendly explanation of err to w and
// returns err wrapped for the caller. action completes "... while <action>";
// server is the backend base URL.
func FormatNetworkError(w io.Writer, err error, action, server string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(w, err, action, ExtractHostFromURL(server))
	return fmt.Errorf("%s: %w", action, err)
}

// RenderLoginError explains a failed sign-in. Rejected credentials get a short
// message; everything else is treated as a connectivity problem.
func RenderLoginError(w io.Writer, err error, server string) error {
	if err == nil {
		return nil
	}
	if Classify(err) == Unauthorized {
		pterm.Fprintln(w, pterm.Error.Sprint("Invalid email or password."))
		return fmt.Errorf("login failed: %w", err)
	}
	return FormatNetworkError(w, err, "signing in", server)
}

func displayErrorMessage(w io.Writer, err error, action, host string) {
	switch Classify(err) {
	case Unauthorized:
		showUnauthorizedError(w, action)
	case Timeout:
		showTimeoutError(w, action)
	case DNS:
		showDNSError(w, action, host)
	case ConnectionRefused:
		showConnectionRefusedError(w, action, host)
	case TLS:
		showSSLError(w, action)
	case Server:
		showServerError(w, action)
	default:
		showGenericError(w, action, host, err.Error())
	}
}

func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError prefers the status code; the text check covers proxies that
// answer with a bare error page.
func isServerError(err error) bool {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout")
}

func showUnauthorizedError(w io.Writer, action string) {
	pterm.Fprintln(w, fmt.Sprintf("🔑 Session rejected while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Your session is missing or has expired. Run `gatekeep login` to sign in again.")
	pterm.Fprintln(w)
}

func showTimeoutError(w io.Writer, action string) {
	pterm.Fprintln(w, fmt.Sprintf("⏱️  Connection timeout while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "The server took too long to respond. This could mean:")
	pterm.Fprintln(w, "  • Slow network connection")
	pterm.Fprintln(w, "  • Server is under heavy load")
	pterm.Fprintln(w, "  • A firewall is dropping the connection")
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Try again, or raise the limit with --timeout / GATEKEEP_TIMEOUT.")
	pterm.Fprintln(w)
}

func showDNSError(w io.Writer, action, host string) {
	pterm.Fprintln(w, fmt.Sprintf("🌐 Cannot resolve server address while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, fmt.Sprintf("Unable to look up %s. Please check:", host))
	pterm.Fprintln(w, "  • The server address (`gatekeep config show`)")
	pterm.Fprintln(w, "  • Your network connection and DNS settings")
	pterm.Fprintln(w)
}

func showConnectionRefusedError(w io.Writer, action, host string) {
	pterm.Fprintln(w, fmt.Sprintf("🚫 Connection refused while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, fmt.Sprintf("Nothing is accepting connections at %s. This could mean:", host))
	pterm.Fprintln(w, "  • The authentication service is down")
	pterm.Fprintln(w, "  • Wrong server address or port")
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Point the CLI elsewhere with `gatekeep config set-server <url>`.")
	pterm.Fprintln(w)
}

func showSSLError(w io.Writer, action string) {
	pterm.Fprintln(w, fmt.Sprintf("🔒 Secure connection failed while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Cannot establish a secure HTTPS connection. This could mean:")
	pterm.Fprintln(w, "  • Certificate problem on the server")
	pterm.Fprintln(w, "  • A proxy interfering with HTTPS")
	pterm.Fprintln(w, "  • The system clock is wrong")
	pterm.Fprintln(w)
}

func showServerError(w io.Writer, action string) {
	pterm.Fprintln(w, fmt.Sprintf("⚠️  Server error while %s", action))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "The authentication service failed to handle the request.")
	pterm.Fprintln(w, "This is not a problem with your setup. Please try again in a few minutes.")
	pterm.Fprintln(w)
}

func showGenericError(w io.Writer, action, host, details string) {
	pterm.Fprintln(w, fmt.Sprintf("❌ Request to %s failed while %s", host, action))
	pterm.Fprintln(w)

	if details != "" {
		short := details
		if len(short) > 100 {
			short = short[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", short)
		pterm.Fprintln(w)
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
