package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-rogue/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration YAML",
	Long: `Print the built-in default configuration.

Redirect it to a file to start customizing:
  rogue config > ~/.rogue/config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Stdout.Write(config.DefaultYAML())
	},
}
