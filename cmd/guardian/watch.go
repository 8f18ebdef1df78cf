package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/feed"
	"github.com/alfredjeanlab/guardian/internal/logging"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/tui"
	"github.com/alfredjeanlab/guardian/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Show the live analysis report",
	GroupID: "monitor",
	Long: `Subscribes to the analysis agent's events and shows the most recent
entries, newest first. Entries whose analysis (or, without analysis, whose
URL) matches the configured markers are flagged for attention.

With --plain, entries are printed as lines instead of the full-screen view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")

		// Log lines would tear the full-screen view.
		logger := logging.Discard()
		if plain {
			logger = newLogger()
		}

		stopBroker, err := startBroker(logger)
		if err != nil {
			return err
		}
		defer stopBroker()

		store := logstore.New(logstore.Options{Cap: cfg.LogCap, Policy: cfg.Classify})
		defer store.Close()

		if plain {
			return watchPlain(cmd.OutOrStdout(), store, logger)
		}
		return watchTUI(store, logger)
	},
}

func init() {
	watchCmd.Flags().Bool("plain", false, "print entries as lines instead of the full-screen view")
}

// subscribe connects to the broker and starts feeding store.
func subscribe(ctx context.Context, store *logstore.Store, logger *slog.Logger, onLink func(up bool)) (*feed.Listener, func(), error) {
	sub, err := events.NewNATSSubscriber(brokerURL(), linkHandlers(logger, onLink)...)
	if err != nil {
		return nil, nil, err
	}
	l := feed.New(sub, store, feed.Options{
		Topic:    cfg.Topic,
		Contract: cfg.Contract,
		Logger:   logger,
	})
	if err := l.Start(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}
	return l, func() {
		l.Stop()
		if err := sub.Close(); err != nil {
			logger.Warn("closing subscriber", "err", err)
		}
	}, nil
}

func watchTUI(store *logstore.Store, logger *slog.Logger) error {
	m := tui.New(store)
	defer m.Release()

	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, release, err := subscribe(ctx, store, logger, func(up bool) {
		state := tui.LinkUp
		if !up {
			state = tui.LinkDown
		}
		p.Send(tui.LinkMsg(state))
	})
	if err != nil {
		return err
	}
	defer release()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running display: %w", err)
	}
	return nil
}

func watchPlain(w io.Writer, store *logstore.Store, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}

	changes, cancel := store.Watch()
	defer cancel()

	l, release, err := subscribe(ctx, store, logger, nil)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintln(w, ui.RenderAccent("SILVER GUARDIAN")+" "+ui.RenderMuted("watching "+cfg.Topic+" (Ctrl+C to stop)"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, ui.FormatEntry(c.Entry))
		}
	}
}
