package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect and prune saved games",
	Long: `Manage the saved snapshots recorded in the database.

Each snapshot is two files on disk (world state plus the raw memory
region) and one index row keyed by name.

Examples:
  rogue snapshots list
  rogue snapshots rm save-20260830-152301`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Run:   runSnapshotsList,
}

var snapshotsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runSnapshotsRm,
}

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsRmCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	snaps, err := store.ListSnapshots()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
		os.Exit(1)
	}

	if len(snaps) == 0 {
		fmt.Println("No snapshots saved.")
		fmt.Println()
		fmt.Println("Press 'S' during a run to save one.")
		return
	}

	fmt.Printf("  %-24s  %-6s  %-10s  %s\n", "Name", "Turn", "Arena", "Date")
	fmt.Printf("  %-24s  %-6s  %-10s  %s\n", "----", "----", "-----", "----")
	for _, s := range snaps {
		fmt.Printf("  %-24s  %-6d  %-10d  %s\n",
			s.Name, s.Turn, s.ArenaBytes, s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func runSnapshotsRm(cmd *cobra.Command, args []string) {
	name := args[0]
	store := openStore()
	defer store.Close()

	snap, err := store.SnapshotByName(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up snapshot: %v\n", err)
		os.Exit(1)
	}
	if snap == nil {
		fmt.Fprintf(os.Stderr, "Error: no snapshot named %q\n", name)
		os.Exit(1)
	}

	// Best effort on the files; the index row is authoritative.
	os.Remove(snap.StatePath)
	os.Remove(snap.ArenaPath)

	if err := store.DeleteSnapshot(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted snapshot %q.\n", name)
}
