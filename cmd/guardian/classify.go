package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/model"
	"github.com/alfredjeanlab/guardian/internal/ui"
)

var classifyCmd = &cobra.Command{
	Use:     "classify <url>",
	Short:   "Show how an event would be classified",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ev := model.ClassificationEvent{URL: args[0]}
		if cmd.Flags().Changed("analysis") {
			analysis, _ := cmd.Flags().GetString("analysis")
			ev = ev.WithAnalysis(analysis)
		}
		if err := model.ValidateEvent(ev); err != nil {
			return err
		}

		sev := cfg.Classify.Classify(ev)
		basis := "url"
		if ev.HasAnalysis {
			basis = "analysis"
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			data, err := json.MarshalIndent(map[string]string{
				"severity": sev.String(),
				"basis":    basis,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprintf(out, "%s (%s, by %s)\n", sev, ui.SeverityLabel(sev), basis)
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("analysis", "", "analysis text (omit for an event without analysis)")
	classifyCmd.Flags().Bool("json", false, "output as JSON")
}
