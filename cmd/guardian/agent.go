package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/agent"
	"github.com/alfredjeanlab/guardian/internal/events"
)

var agentCmd = &cobra.Command{
	Use:     "agent",
	Short:   "Watch Chrome history and publish Shorts visits",
	GroupID: "sources",
	Long: `Polls a copy of Chrome's History database for newly visited YouTube
Shorts, looks up each title, and publishes {url, title} on the configured
topic. Visits from before the agent started are ignored unless --since
reaches back further. With --dry-run nothing is published; each visit is
only logged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		once, _ := cmd.Flags().GetBool("once")
		lookback, _ := cmd.Flags().GetDuration("since")
		noTitles, _ := cmd.Flags().GetBool("no-titles")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		path := cfg.ChromeHistory
		if path == "" {
			p, err := agent.DefaultHistoryPath()
			if err != nil {
				return fmt.Errorf("locating Chrome history: %w", err)
			}
			path = p
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("chrome history: %w", err)
		}

		var pub events.Publisher = &events.NoopPublisher{}
		if !dryRun {
			np, err := events.NewNATSPublisher(brokerURL(), linkHandlers(logger, nil)...)
			if err != nil {
				return err
			}
			pub = np
		}
		defer pub.Close()

		opts := agent.Options{
			Topic:    cfg.Topic,
			Contract: cfg.Contract,
			Interval: cfg.AgentInterval.Duration,
			Since:    time.Now().Add(-lookback),
			Logger:   logger,
		}
		if !noTitles {
			opts.Titles = agent.NewOEmbed()
		}
		a := agent.New(agent.NewHistoryReader(path), pub, opts)

		if once {
			n, err := a.PollOnce(context.Background())
			if err != nil {
				return err
			}
			verb := "published"
			if dryRun {
				verb = "found"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d visit(s)\n", verb, n)
			return nil
		}

		logger.Info("history agent started", "history", path, "nats_url", brokerURL(), "dry_run", dryRun)
		if err := a.Start(); err != nil {
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		a.Stop()
		logger.Info("history agent stopped")
		return nil
	},
}

func init() {
	agentCmd.Flags().Bool("once", false, "poll once and exit")
	agentCmd.Flags().Duration("since", 0, "also publish visits this far in the past")
	agentCmd.Flags().Bool("no-titles", false, "skip the oEmbed title lookup")
	agentCmd.Flags().Bool("dry-run", false, "log visits without publishing them")
}
