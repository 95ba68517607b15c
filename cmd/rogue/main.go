// rogue is a terminal roguelike with a fully decoupled simulation core.
//
// Usage:
//
//	rogue play                - Start a dungeon run in this terminal
//	rogue serve               - Start SSH server for remote play
//	rogue history             - Show the record of past runs
//	rogue snapshots list      - List saved snapshots
//	rogue snapshots rm <name> - Delete a saved snapshot
//	rogue config              - Print the default configuration YAML
//
// Global flags:
//
//	--config <path> - Use a custom config YAML
//	--db <path>     - Set database path (default from config)
//	--seed <value>  - Set RNG seed for reproducible dungeons
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig string
	flagDBPath string
	flagSeed   int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rogue",
	Short: "A terminal roguelike dungeon crawler",
	Long: `rogue is a terminal dungeon crawler. The simulation runs on its own
goroutine and the interface talks to it only through a lock-free bridge,
so the dungeon never stalls the screen and the screen never stalls the
dungeon.

Available commands:
  play       - Start a dungeon run in this terminal
  serve      - Start SSH server for remote play
  history    - Show past runs and the deepest depth reached
  snapshots  - Inspect and prune saved games
  config     - Print the default configuration YAML

Examples:
  rogue play
  rogue play --difficulty hard --seed 42
  rogue serve --ssh :2222
  rogue snapshots list`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to record database (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(configCmd)
}
