package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-rogue/internal/config"
	"github.com/vovakirdan/tui-rogue/internal/storage"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the record of past runs",
	Long: `Display the most recent runs and the deepest depth ever reached.

Examples:
  rogue history
  rogue history --limit 25
  rogue history clear`,
	Run: runHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all run records",
	Run:   runHistoryClear,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 10, "How many runs to show")
	historyCmd.AddCommand(historyClearCmd)
}

func openStore() *storage.Store {
	cfg, err := loadGameConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.Open(config.ExpandHome(cfg.Paths.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening record database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runHistory(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	sessions, err := store.RecentSessions(flagHistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving runs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Run History")
	fmt.Println()

	if len(sessions) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'rogue play' to make history.")
		return
	}

	fmt.Printf("  %-8s  %-6s  %-5s  %-6s  %s\n", "Result", "Turns", "Depth", "Gold", "Date")
	fmt.Printf("  %-8s  %-6s  %-5s  %-6s  %s\n", "------", "-----", "-----", "----", "----")
	for _, s := range sessions {
		fmt.Printf("  %-8s  %-6d  %-5d  %-6d  %s\n",
			s.Result, s.Turns, s.Depth, s.Gold, s.CreatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	deepest, err := store.DeepestRun()
	if err == nil && deepest > 0 {
		fmt.Printf("Deepest depth reached: %d\n", deepest)
	}
}

func runHistoryClear(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	if err := store.ClearSessions(); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing runs: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Run history cleared.")
}
