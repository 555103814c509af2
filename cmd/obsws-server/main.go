// Obsws-server is a WebSocket RPC/event server.
//
// It accepts WebSocket connections, performs a challenge-response
// authenticated handshake, and fans event broadcasts out to identified,
// subscribed clients. Sessions negotiate JSON or MsgPack framing through the
// Content-Type header of the upgrade request.
//
// Usage:
//
//	obsws-server [flags]
//
// Running without a subcommand starts the server. See
// 'obsws-server --help' for the setup wizard and other commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/obsws/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "obsws-server",
	Short: "obsws WebSocket RPC/event server",
	Long: `A standalone WebSocket RPC/event server.

Clients connect over WebSocket, complete a challenge-response handshake when
authentication is enabled, and receive the event categories they subscribe
to. Configuration lives in a YAML file written by 'obsws-server setup';
command-line flags override individual settings for one run.

If no command is specified, the server starts in the foreground and runs
until interrupted.`,
	Version: version.Version,
	RunE:    runServe,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(connectInfoCmd)
	rootCmd.AddCommand(versionCmd)
}
