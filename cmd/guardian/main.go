package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/config"
	"github.com/alfredjeanlab/guardian/internal/logging"
)

var (
	logLevel  string
	logFormat string
	natsURL   string

	// cfg is loaded once per invocation, before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "guardian <command>",
	Short:         "Monitor short-video activity and flag what needs attention",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			c.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			c.LogFormat = logFormat
		}
		if flags.Changed("nats-url") {
			c.NATSURL = natsURL
		}
		cfg = c
		return nil
	},
}

// newLogger installs the configured stderr logger as the slog default.
func newLogger() *slog.Logger {
	return logging.Init(logging.ParseFormat(cfg.LogFormat), logging.ParseLevel(cfg.LogLevel))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "NATS server URL (overrides GUARDIAN_NATS_URL)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "monitor", Title: "Monitoring:"},
		&cobra.Group{ID: "sources", Title: "Event sources:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Monitoring
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(logsCmd)

	// Event sources
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(emitCmd)

	// System
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
