package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/client"
	"github.com/alfredjeanlab/guardian/internal/ui"
)

var (
	serverURL  string
	jsonOutput bool
)

// newClient targets --server when given, else the configured server_url.
func newClient() *client.HTTPClient {
	url := serverURL
	if url == "" {
		url = cfg.ServerURL
	}
	return client.NewHTTPClient(url, cfg.AuthToken)
}

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "Print the current log of a running server",
	GroupID: "monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := newClient().Logs(ctx)
		if err != nil {
			return fmt.Errorf("fetching logs: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		if len(resp.Entries) == 0 {
			fmt.Fprintln(out, ui.RenderMuted("no entries yet"))
			return nil
		}
		for _, e := range resp.Entries {
			fmt.Fprintln(out, ui.FormatEntry(e))
		}
		fmt.Fprintln(out, ui.RenderMuted(fmt.Sprintf("%d of %d", len(resp.Entries), resp.Cap)))
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of a running server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		status, err := newClient().Health(ctx)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(map[string]string{"status": status}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}
		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{logsCmd, healthCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "guardian server URL (default: server_url from config)")
		c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}
}
