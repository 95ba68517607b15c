package bridge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/arena"
)

// StateCodec is the simulation's own serializer, used only while the
// simulation goroutine is stopped.
type StateCodec interface {
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
	Turn() uint64
}

// SnapshotIndex records snapshot metadata for later listing. Implemented
// by the sqlite store; may be nil.
type SnapshotIndex interface {
	RecordSnapshot(name, statePath, arenaPath string, turn uint64, arenaBytes int) error
}

// SnapshotIntegrator couples the simulation's game-state stream with the
// raw arena bytes. The two artifacts are one unit: the game-state
// deserializer reconstructs offsets that only resolve into valid memory
// once the arena bytes are back in place, so restore always replays the
// arena first.
type SnapshotIntegrator struct {
	mem   *arena.Arena
	index SnapshotIndex
	log   *log.Logger
}

// NewSnapshotIntegrator creates an integrator over the given arena.
func NewSnapshotIntegrator(mem *arena.Arena, index SnapshotIndex, logger *log.Logger) *SnapshotIntegrator {
	if logger == nil {
		logger = log.Default()
	}
	return &SnapshotIntegrator{mem: mem, index: index, log: logger.WithPrefix("snapshot")}
}

// StatePath returns the game-state artifact path for a snapshot.
func StatePath(path string) string { return path + ".state" }

// ArenaPath returns the arena artifact path for a snapshot.
func ArenaPath(path string) string { return path + ".arena" }

// Save writes both snapshot artifacts: the logical game graph first, then
// the arena bytes tagged with byte and allocation counts.
func (s *SnapshotIntegrator) Save(path string, codec StateCodec) error {
	stateFile, err := os.Create(StatePath(path))
	if err != nil {
		return fmt.Errorf("snapshot: create state file: %w", err)
	}
	if err := codec.SaveState(stateFile); err != nil {
		stateFile.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := stateFile.Close(); err != nil {
		return fmt.Errorf("snapshot: close state file: %w", err)
	}

	arenaFile, err := os.Create(ArenaPath(path))
	if err != nil {
		return fmt.Errorf("snapshot: create arena file: %w", err)
	}
	written, err := s.mem.WriteTo(arenaFile)
	if err != nil {
		arenaFile.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := arenaFile.Close(); err != nil {
		return fmt.Errorf("snapshot: close arena file: %w", err)
	}

	if s.index != nil {
		if err := s.index.RecordSnapshot(path, StatePath(path), ArenaPath(path), codec.Turn(), int(written)); err != nil {
			s.log.Warn("recording snapshot in index failed", "path", path, "err", err)
		}
	}

	s.log.Info("snapshot saved", "path", path, "turn", codec.Turn(), "arena_bytes", written)
	return nil
}

// Restore replays both artifacts, arena first. A missing or unreadable
// snapshot falls back to a freshly wiped arena and returns restored=false:
// partial memory is judged worse than starting over. Only genuine I/O
// surprises surface as errors.
func (s *SnapshotIntegrator) Restore(path string, codec StateCodec) (restored bool, err error) {
	arenaFile, err := os.Open(ArenaPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("no arena artifact, starting fresh", "path", path)
		s.mem.Wipe()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot: open arena file: %w", err)
	}
	defer arenaFile.Close()

	if _, err := s.mem.ReadFrom(arenaFile); err != nil {
		s.log.Warn("arena artifact unreadable, starting fresh", "path", path, "err", err)
		s.mem.Wipe()
		return false, nil
	}

	stateFile, err := os.Open(StatePath(path))
	if err != nil {
		s.log.Warn("game-state artifact missing, starting fresh", "path", path, "err", err)
		s.mem.Wipe()
		return false, nil
	}
	defer stateFile.Close()

	if err := codec.LoadState(stateFile); err != nil {
		s.log.Warn("game-state artifact unreadable, starting fresh", "path", path, "err", err)
		s.mem.Wipe()
		return false, nil
	}

	s.log.Info("snapshot restored", "path", path, "turn", codec.Turn())
	return true, nil
}
