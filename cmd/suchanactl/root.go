// Package main provides suchanactl, a command line client for
// org.freedesktop.Notifications servers such as suchanad.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/suchana/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	globalOpts struct {
		verbose bool
		timeout time.Duration
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "suchanactl",
	Short: "Send and inspect desktop notifications",
	Long: `suchanactl talks to the desktop notification server on the session bus.

It can send and close notifications, show server information and watch
notification traffic. It works with any org.freedesktop.Notifications
server, not only suchanad.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 10*time.Second,
		"Timeout for bus calls")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// connect opens a client on the session bus.
func connect() (*dbus.Client, error) {
	client, err := dbus.NewClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}
