// Package script hosts the per-session scripting subsystem. Dungeon hook
// scripts are plain Go interpreted at runtime with Yaegi, so content can
// ship and change without recompiling the binary.
//
// An Engine instance belongs to exactly one session: the lifecycle
// controller destroys it on shutdown and creates a fresh one on reinit,
// so no interpreter state survives an arena wipe.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// allowedImports is the stdlib whitelist for hook scripts. Anything
// touching the filesystem, network, or processes is rejected up front.
var allowedImports = map[string]bool{
	"fmt":     true,
	"math":    true,
	"sort":    true,
	"strconv": true,
	"strings": true,
	"time":    true,
}

// defaultScript is evaluated when no script directory is configured, so
// the hook surface is always exercised.
const defaultScript = `package hooks

import "fmt"

func OnLevelEnter(depth int) string {
	if depth == 1 {
		return "A chill wind follows you down the stairs."
	}
	if depth%5 == 0 {
		return fmt.Sprintf("Depth %d. The air grows heavy.", depth)
	}
	return ""
}

func OnTurn(turn int) {
}
`

// Engine is one interpreter instance plus the hook functions it exported.
type Engine struct {
	interp  *interp.Interpreter
	log     *log.Logger
	dir     string
	onLevel func(int) string
	onTurn  func(int)
	closed  bool
}

// New creates an engine that will load scripts from dir; an empty dir
// loads the built-in default script.
func New(dir string, logger *log.Logger) *Engine {
	return &Engine{dir: dir, log: logger}
}

// Load builds a fresh interpreter and evaluates every hook script. Called
// once per session by the lifecycle controller.
func (e *Engine) Load() error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("script: load stdlib symbols: %w", err)
	}
	e.interp = i

	sources, err := e.collectSources()
	if err != nil {
		return err
	}
	for name, src := range sources {
		if err := validateImports(src); err != nil {
			return fmt.Errorf("script: %s: %w", name, err)
		}
		if _, err := i.Eval(src); err != nil {
			return fmt.Errorf("script: eval %s: %w", name, err)
		}
	}

	e.bindHooks()
	e.closed = false
	return nil
}

// collectSources returns hook sources keyed by display name, sorted for
// deterministic evaluation order.
func (e *Engine) collectSources() (map[string]string, error) {
	if e.dir == "" {
		return map[string]string{"<builtin>": defaultScript}, nil
	}

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("script: read dir %s: %w", e.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return map[string]string{"<builtin>": defaultScript}, nil
	}

	sources := make(map[string]string, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(e.dir, name))
		if err != nil {
			return nil, fmt.Errorf("script: read %s: %w", name, err)
		}
		sources[name] = string(data)
	}
	return sources, nil
}

// bindHooks looks up the optional hook functions. Missing hooks are fine.
func (e *Engine) bindHooks() {
	e.onLevel = nil
	e.onTurn = nil

	if v, err := e.interp.Eval("hooks.OnLevelEnter"); err == nil {
		if fn, ok := v.Interface().(func(int) string); ok {
			e.onLevel = fn
		}
	}
	if v, err := e.interp.Eval("hooks.OnTurn"); err == nil {
		if fn, ok := v.Interface().(func(int)); ok {
			e.onTurn = fn
		}
	}
}

// LevelEntered runs the level-entry hook, returning its announcement.
func (e *Engine) LevelEntered(depth int) (string, error) {
	if e.closed || e.onLevel == nil {
		return "", nil
	}
	return e.onLevel(depth), nil
}

// TurnPassed runs the per-turn hook.
func (e *Engine) TurnPassed(turn uint64) error {
	if e.closed || e.onTurn == nil {
		return nil
	}
	e.onTurn(int(turn))
	return nil
}

// Close releases the interpreter. The engine must not be used afterwards;
// the next session gets a fresh instance.
func (e *Engine) Close() {
	e.closed = true
	e.interp = nil
	e.onLevel = nil
	e.onTurn = nil
}

// Closed reports whether Close has run.
func (e *Engine) Closed() bool {
	return e.closed
}

// validateImports rejects scripts importing outside the whitelist.
func validateImports(src string) error {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)

		var path string
		switch {
		case strings.HasPrefix(line, `import "`):
			path = strings.Trim(strings.TrimPrefix(line, "import "), `"`)
		case strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`):
			path = strings.Trim(line, `"`)
		default:
			continue
		}
		if path != "" && !allowedImports[path] {
			return fmt.Errorf("import %q is not allowed in hook scripts", path)
		}
	}
	return nil
}
