package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	// cfgFile allows specifying a config file
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "tagbridge",
		Short: "Tag-manager bridge for hybrid pages",
		Long: `tagbridge exposes the tag-manager plugin to a hybrid page over a
websocket/HTTP bridge. Pages call initGTM, exitGTM, trackEvent, pushEvent,
trackPage and dispatch; hits are queued locally and sent to a collector.

Settings come from --config (yaml, json or toml), TAGBRIDGE_* environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .json or .toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error|off")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newCollectorCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tagbridge %s (commit: %s)\n", Version, Commit)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
