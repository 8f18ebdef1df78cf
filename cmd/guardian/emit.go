package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/client"
	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/model"
)

var emitCmd = &cobra.Command{
	Use:     "emit --url <url> [--analysis <text>] [--title <title>]",
	Short:   "Publish a single classification event",
	GroupID: "sources",
	Long: `Publishes one event on the configured topic, the way the analysis agent
would. Useful for testing a running display.

An empty --analysis is still an analysis: it is classified by the analysis
markers, not the URL. Omit the flag to send an event without analysis.

With --http-url the event is POSTed to a running "guardian serve" instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		rawURL, _ := flags.GetString("url")
		title, _ := flags.GetString("title")
		contractFlag, _ := flags.GetString("contract")
		httpURL, _ := flags.GetString("http-url")

		contract := cfg.Contract
		if contractFlag != "" {
			c, err := events.ParseContract(contractFlag)
			if err != nil {
				return err
			}
			contract = c
		}

		ev := model.ClassificationEvent{URL: strings.TrimSpace(rawURL), Title: title}
		if flags.Changed("analysis") {
			analysis, _ := flags.GetString("analysis")
			ev = ev.WithAnalysis(analysis)
		}
		if err := model.ValidateEvent(ev); err != nil {
			return err
		}
		if contract == events.ContractV0 && (ev.HasAnalysis || ev.Title != "") {
			return fmt.Errorf("contract v0 carries only the URL; drop --analysis and --title or use --contract v1")
		}

		raw, err := events.Encode(contract, ev)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if httpURL != "" {
			if err := client.NewHTTPClient(httpURL, cfg.AuthToken).Emit(ctx, raw); err != nil {
				return fmt.Errorf("posting event: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s to %s\n", ev.URL, httpURL)
			return nil
		}

		pub, err := events.NewNATSPublisher(brokerURL())
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.Publish(ctx, cfg.Topic, raw); err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "emitted %s on %s\n", ev.URL, cfg.Topic)
		return nil
	},
}

func init() {
	emitCmd.Flags().String("url", "", "video URL (required)")
	emitCmd.Flags().String("analysis", "", "analysis text")
	emitCmd.Flags().String("title", "", "video title")
	emitCmd.Flags().String("contract", "", "payload contract (v0 or v1; default from config)")
	emitCmd.Flags().String("http-url", "", "POST to this guardian server instead of publishing on NATS")
	_ = emitCmd.MarkFlagRequired("url")
}
