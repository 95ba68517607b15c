package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-rogue/internal/bridge"
	"github.com/vovakirdan/tui-rogue/internal/config"
	"github.com/vovakirdan/tui-rogue/internal/platform/tui"
	"github.com/vovakirdan/tui-rogue/internal/storage"
)

var (
	flagDifficulty string
	flagFPS        int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a dungeon run",
	Long: `Start a dungeon run in this terminal.

Controls:
  h/j/k/l    - Move (y/u/b/n for diagonals)
  .          - Wait a turn
  ,          - Pick up what you stand on
  >          - Descend stairs
  o/c        - Open/close a door (asks for a direction)
  K          - Kick (pick a direction)
  f/t        - Fire/throw (pick a direction, enter to loose)
  S          - Save the run
  Q          - Give up
  ?          - Toggle key help

Difficulty options:
  easy   - Fewer monsters
  normal - The intended experience
  hard   - Twice the monsters

Examples:
  rogue play
  rogue play --difficulty hard
  rogue play --seed 1337 --config ./my-rogue.yaml`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard")
	playCmd.Flags().IntVar(&flagFPS, "fps", 30, "Screen refresh rate (frames per second)")
}

// loadGameConfig resolves the YAML config and folds the global flag
// overrides into it. Shared by play and serve.
func loadGameConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagSeed != 0 {
		cfg.Engine.Seed = flagSeed
	}
	if flagDBPath != "" {
		cfg.Paths.Database = flagDBPath
	}
	if flagDifficulty != "" {
		cfg.Difficulty = config.DifficultyPreset(flagDifficulty)
	}
	config.ApplyPreset(&cfg, cfg.Difficulty)
	return cfg, cfg.Validate()
}

func runPlay(cmd *cobra.Command, args []string) {
	cfg, err := loadGameConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The map plus the status bar, message log, and help footer.
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		if w < cfg.Engine.Width || h < cfg.Engine.Height+8 {
			fmt.Fprintf(os.Stderr, "Warning: terminal is %dx%d, the dungeon wants at least %dx%d\n",
				w, h, cfg.Engine.Width, cfg.Engine.Height+8)
		}
	}

	// Open record storage
	store, err := storage.Open(config.ExpandHome(cfg.Paths.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open record database: %v\n", err)
		// Continue without storage - the run still works
		store = nil
	}

	bcfg := bridge.Config{
		QueueCapacity: cfg.Bridge.RenderQueueCapacity,
		ArenaSize:     cfg.Bridge.ArenaSize,
		ScriptDir:     config.ExpandHome(cfg.Paths.Scripts),
		SnapshotDir:   config.ExpandHome(cfg.Paths.Snapshots),
	}
	bcfg.Engine.Width = cfg.Engine.Width
	bcfg.Engine.Height = cfg.Engine.Height
	bcfg.Engine.Monsters = cfg.Engine.Monsters
	bcfg.Engine.Seed = cfg.Engine.Seed
	bcfg.Engine.InputBuffer = cfg.Bridge.InputBuffer

	// Stderr logging would tear the alt screen; the SSH server keeps it.
	deps := bridge.Deps{Logger: log.New(io.Discard)}
	if store != nil {
		deps.Recorder = store
		deps.Index = store
	}

	facade, err := bridge.New(bcfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building bridge: %v\n", err)
		os.Exit(1)
	}
	if err := facade.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing bridge: %v\n", err)
		os.Exit(1)
	}

	opts := tui.Options{
		TickRate:    flagFPS,
		SnapshotDir: config.ExpandHome(cfg.Paths.Snapshots),
		MapW:        cfg.Engine.Width,
		MapH:        cfg.Engine.Height,
	}
	runErr := tui.Run(facade, opts)

	// End the session before closing the store: run records flush on stop.
	cleanupErr := facade.Cleanup()
	if store != nil {
		store.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", runErr)
		os.Exit(1)
	}
	if cleanupErr != nil {
		fmt.Fprintf(os.Stderr, "Error during cleanup: %v\n", cleanupErr)
		os.Exit(1)
	}
}
