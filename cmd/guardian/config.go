package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Print the effective configuration as TOML",
	GroupID: "system",
	Long: `Prints the configuration after applying the config file and GUARDIAN_*
environment variables. The output is a valid config file; the auth token
is never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Encode(cmd.OutOrStdout())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
}
