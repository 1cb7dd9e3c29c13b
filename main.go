// Package main is the entry point for the Gatekeep CLI application.
// It signs users in to the authentication service and manages the session token.
package main

import (
	"gatekeep/cli/cmd"
)

// main is the entry point for the Gatekeep CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
