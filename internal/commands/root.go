// Package commands provides the routerchat CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// Version info (set at build time)
var Version = "0.1.0"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "routerchat",
		Short: "Password-protected chat page for OpenRouter models",
		Long: `routerchat serves a single-user chat page. After logging in with the
configured APP_USER / APP_PASSWORD_HASH pair, messages are sent to an
OpenAI-compatible chat-completions endpoint with the API key, model and
temperature chosen in the page.

Examples:
  routerchat                  Start the server (same as "routerchat serve")
  routerchat hash-password    Print a bcrypt hash for APP_PASSWORD_HASH`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHashPasswordCmd())
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
