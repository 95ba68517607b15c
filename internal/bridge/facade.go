package bridge

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-rogue/internal/arena"
	"github.com/vovakirdan/tui-rogue/internal/engine"
)

// EventState is the facade's request/response state.
type EventState int32

const (
	// EventIdle accepts new input and ticks.
	EventIdle EventState = iota
	// EventProcessing means a command is mid-flight; calls are rejected
	// rather than queued.
	EventProcessing
	// EventNeedsInput means the simulation raised a prompt the UI must
	// answer out-of-band via AnswerPrompt.
	EventNeedsInput
	// EventGameOver is terminal for the session.
	EventGameOver
)

// String returns a human-readable name for the state.
func (s EventState) String() string {
	switch s {
	case EventIdle:
		return "idle"
	case EventProcessing:
		return "processing"
	case EventNeedsInput:
		return "needs-input"
	case EventGameOver:
		return "game-over"
	default:
		return "unknown"
	}
}

// Facade errors.
var (
	ErrBusy         = errors.New("bridge: busy, try later")
	ErrNoSession    = errors.New("bridge: no active session")
	ErrGameOver     = errors.New("bridge: session is over")
	ErrInvalidInput = errors.New("bridge: invalid input byte")
	ErrNotPrompting = errors.New("bridge: no prompt to answer")
)

// SessionRecorder persists finished-session records. Implemented by the
// sqlite store; may be nil.
type SessionRecorder interface {
	RecordSession(result string, turns uint64, depth, gold int) error
}

// Config holds everything needed to build a facade.
type Config struct {
	Engine engine.Config

	// QueueCapacity sizes the render queue; must be a power of two.
	QueueCapacity int

	// ArenaSize is the static region size in bytes.
	ArenaSize int

	ScriptDir   string
	SnapshotDir string
}

// DefaultFacadeConfig returns the sizes used when nothing is configured.
func DefaultFacadeConfig() Config {
	return Config{
		Engine:        engine.DefaultConfig(),
		QueueCapacity: 4096,
		ArenaSize:     1 << 20,
	}
}

// Deps are the facade's optional collaborators.
type Deps struct {
	Logger    *log.Logger
	Recorder  SessionRecorder
	Index     SnapshotIndex
	OpenData  func() error
	CloseData func() error
}

// Facade composes the bridge primitives into a non-blocking
// request/response surface for a UI event loop. One ProcessInput call
// drives at most one command through the simulation and returns
// immediately; completion is observed through the state word.
type Facade struct {
	cfg Config
	log *log.Logger

	mem     *arena.Arena
	queue   *RenderQueue
	pending *PendingActionQueue
	lc      *Controller
	snap    *SnapshotIntegrator

	eng      *engine.Engine
	runDone  chan error
	recorder SessionRecorder

	state  atomic.Int32
	prompt atomic.Pointer[string]

	// Driver-context caches, reset on reinit.
	lastStatus engine.StatusSnapshot
	haveStatus bool
}

// New builds a facade. Init must run before the first session.
func New(cfg Config, deps Deps) (*Facade, error) {
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultFacadeConfig().QueueCapacity
	}
	if cfg.ArenaSize == 0 {
		cfg.ArenaSize = DefaultFacadeConfig().ArenaSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("bridge")

	queue, err := NewRenderQueue(cfg.QueueCapacity, logger)
	if err != nil {
		return nil, err
	}

	mem := arena.New(cfg.ArenaSize)
	f := &Facade{
		cfg:      cfg,
		log:      logger,
		mem:      mem,
		queue:    queue,
		recorder: deps.Recorder,
		snap:     NewSnapshotIntegrator(mem, deps.Index, logger),
	}
	f.pending = NewPendingActionQueue(f.wake, Bounds{W: cfg.Engine.Width, H: cfg.Engine.Height}, logger)
	f.lc = NewController(ControllerConfig{
		Arena:       mem,
		Logger:      logger,
		ScriptDir:   cfg.ScriptDir,
		SnapshotDir: cfg.SnapshotDir,
		OpenData:    deps.OpenData,
		CloseData:   deps.CloseData,
	})
	f.lc.RegisterCacheReset(func() {
		f.lastStatus = engine.StatusSnapshot{}
		f.haveStatus = false
		f.prompt.Store(nil)
	})
	return f, nil
}

// wake feeds the pending-action sentinel into the current engine.
func (f *Facade) wake(b byte) bool {
	eng := f.eng
	if eng == nil {
		return false
	}
	return eng.PushInput(b)
}

// Lifecycle returns the session lifecycle controller.
func (f *Facade) Lifecycle() *Controller {
	return f.lc
}

// Queue returns the render queue for direct consumer access.
func (f *Facade) Queue() *RenderQueue {
	return f.queue
}

// State returns the facade state.
func (f *Facade) State() EventState {
	return EventState(f.state.Load())
}

// PromptText returns the question behind a NeedsInput state.
func (f *Facade) PromptText() string {
	if p := f.prompt.Load(); p != nil {
		return *p
	}
	return ""
}

// Init performs first-time bridge initialization.
func (f *Facade) Init() error {
	return f.lc.Init()
}

// StartSession generates a fresh dungeon and starts the simulation
// goroutine. The lifecycle controller must be Ready.
func (f *Facade) StartSession() error {
	eng, err := f.buildEngine()
	if err != nil {
		return err
	}
	if err := eng.Generate(); err != nil {
		return err
	}
	return f.activate(eng)
}

// Load restores a snapshot and starts a session from it. A missing or
// corrupt snapshot starts a fresh session instead; the lifecycle
// controller ends up Active either way, never crashed.
func (f *Facade) Load(path string) error {
	eng, err := f.buildEngine()
	if err != nil {
		return err
	}
	restored, err := f.snap.Restore(path, eng)
	if err != nil {
		return err
	}
	if !restored {
		if err := eng.Generate(); err != nil {
			return err
		}
	}
	return f.activate(eng)
}

func (f *Facade) buildEngine() (*engine.Engine, error) {
	if f.lc.State() != StateReady {
		return nil, fmt.Errorf("%w: start from %s", ErrBadTransition, f.lc.State())
	}
	cfg := f.cfg.Engine
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	var hooks engine.Hooks
	if s := f.lc.Scripts(); s != nil {
		hooks = s
	}
	return engine.New(cfg, f.mem, f.log.WithPrefix("engine"), queueEvents{f.queue}, f.pending, hooks), nil
}

func (f *Facade) activate(eng *engine.Engine) error {
	eng.OnPrompt = f.onPrompt
	eng.OnCommandDone = f.onCommandDone

	if err := f.lc.Activate(eng.Teardown); err != nil {
		return err
	}
	f.eng = eng
	f.runDone = make(chan error, 1)
	f.state.Store(int32(EventIdle))

	go f.run(eng)
	return nil
}

// run hosts the simulation goroutine for one session.
func (f *Facade) run(eng *engine.Engine) {
	err := eng.Run()

	switch {
	case errors.Is(err, engine.ErrPlayerDied):
		// The death path already freed the dynamic objects.
		f.lc.MarkCleanupDone()
		f.lc.SetGameOver(true)
		f.state.Store(int32(EventGameOver))
		f.record("died", eng)
	case errors.Is(err, engine.ErrQuit):
		f.lc.SetGameOver(true)
		f.state.Store(int32(EventGameOver))
		f.record("quit", eng)
	case errors.Is(err, engine.ErrStopped):
		f.record("stopped", eng)
	default:
		f.log.Error("simulation exited unexpectedly", "err", err)
		f.state.Store(int32(EventGameOver))
	}
	f.runDone <- err
}

func (f *Facade) record(result string, eng *engine.Engine) {
	if f.recorder == nil {
		return
	}
	obs := eng.Observe()
	if err := f.recorder.RecordSession(result, eng.Turn(), obs.Status.Depth, obs.Status.Gold); err != nil {
		f.log.Warn("recording session failed", "err", err)
	}
}

// onPrompt runs on the simulation goroutine just before it blocks on a
// prompt answer.
func (f *Facade) onPrompt(question string) {
	q := question
	f.prompt.Store(&q)
	f.state.CompareAndSwap(int32(EventProcessing), int32(EventNeedsInput))
}

// onCommandDone runs on the simulation goroutine after each command.
func (f *Facade) onCommandDone() {
	f.prompt.Store(nil)
	f.state.CompareAndSwap(int32(EventProcessing), int32(EventIdle))
}

// ProcessInput submits one ordinary input byte. Rejected unless Idle.
func (f *Facade) ProcessInput(b byte) error {
	if b == engine.WakeSentinel {
		return fmt.Errorf("%w: %#x", ErrInvalidInput, b)
	}
	if f.eng == nil {
		return ErrNoSession
	}
	if !f.state.CompareAndSwap(int32(EventIdle), int32(EventProcessing)) {
		switch f.State() {
		case EventGameOver:
			return ErrGameOver
		default:
			return ErrBusy
		}
	}
	if !f.eng.PushInput(b) {
		f.state.CompareAndSwap(int32(EventProcessing), int32(EventIdle))
		return ErrBusy
	}
	return nil
}

// AnswerPrompt answers an out-of-band prompt. Rejected unless NeedsInput.
func (f *Facade) AnswerPrompt(b byte) error {
	if f.eng == nil {
		return ErrNoSession
	}
	if !f.state.CompareAndSwap(int32(EventNeedsInput), int32(EventProcessing)) {
		return ErrNotPrompting
	}
	if !f.eng.PushInput(b) {
		f.state.CompareAndSwap(int32(EventProcessing), int32(EventNeedsInput))
		return ErrBusy
	}
	return nil
}

// SubmitAction injects a directional command through the pending queue.
// Rejected unless Idle: the state word moves to Processing before the
// action is staged, so Save can never observe Idle while the injected
// command is mutating the world.
func (f *Facade) SubmitAction(kind engine.ActionKind, dx, dy int) error {
	if f.eng == nil || !f.lc.InProgress() {
		return ErrNoSession
	}
	if !f.state.CompareAndSwap(int32(EventIdle), int32(EventProcessing)) {
		switch f.State() {
		case EventGameOver:
			return ErrGameOver
		default:
			return ErrBusy
		}
	}
	if err := f.pending.Submit(kind, dx, dy); err != nil {
		f.state.CompareAndSwap(int32(EventProcessing), int32(EventIdle))
		return err
	}
	return nil
}

// Tick refreshes the pending status/display recalculation. Returns false
// when the facade is busy ("try later", not an error). Never blocks.
func (f *Facade) Tick() bool {
	if f.State() != EventIdle {
		return false
	}
	f.refreshStatusBuf()
	return true
}

// Dequeue drains one render element. Driver context only. Status elements
// are cached for the status-line recalculation on the next Tick.
func (f *Facade) Dequeue() (Element, bool) {
	el, ok := f.queue.Dequeue()
	if !ok {
		return Element{}, false
	}
	if el.Kind == ElemStatus {
		f.lastStatus = el.Status
		f.haveStatus = true
	}
	return el, true
}

// StatusLine returns the formatted status-bar text from the display
// buffer maintained by Tick.
func (f *Facade) StatusLine() string {
	return string(f.lc.StatusBuf())
}

// refreshStatusBuf formats the cached status snapshot into the
// lifecycle-owned display buffer.
func (f *Facade) refreshStatusBuf() {
	buf := f.lc.StatusBuf()
	if buf == nil || !f.haveStatus {
		return
	}
	st := f.lastStatus
	buf = buf[:0]
	buf = append(buf, "HP:"...)
	buf = strconv.AppendInt(buf, int64(st.HP), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(st.MaxHP), 10)
	buf = append(buf, "  $"...)
	buf = strconv.AppendInt(buf, int64(st.Gold), 10)
	buf = append(buf, "  Depth:"...)
	buf = strconv.AppendInt(buf, int64(st.Depth), 10)
	buf = append(buf, "  T:"...)
	buf = strconv.AppendUint(buf, st.Turn, 10)
	buf = append(buf, "  Kills:"...)
	buf = strconv.AppendInt(buf, int64(st.Kills), 10)
	f.lc.SetStatusBuf(buf)
}

// Save writes a snapshot of the current session. The facade must be Idle
// so the simulation is quiescent, blocked on its input read, and no
// injected action may be waiting.
func (f *Facade) Save(path string) error {
	if f.eng == nil {
		return ErrNoSession
	}
	if f.pending.Staged() {
		return ErrBusy
	}
	if !f.state.CompareAndSwap(int32(EventIdle), int32(EventProcessing)) {
		return ErrBusy
	}
	defer f.state.CompareAndSwap(int32(EventProcessing), int32(EventIdle))
	return f.snap.Save(path, f.eng)
}

// Cleanup ends the session (if any) and drives the full
// shutdown → wipe → reinit sequence, leaving the bridge Ready for the
// next session with nothing inherited from this one.
func (f *Facade) Cleanup() error {
	if f.eng != nil {
		f.eng.Stop()
		<-f.runDone
		f.eng = nil
		f.runDone = nil
	}

	// A staged action the dead session never consumed must not leak
	// into the next session's run loop.
	f.pending.Take()

	var errs []error
	if f.lc.State() == StateActive {
		if err := f.lc.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.lc.State() == StateShuttingDown {
		if err := f.lc.Wipe(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.lc.State() == StateWiped {
		if err := f.lc.Reinit(); err != nil {
			errs = append(errs, err)
		}
	}

	// Drain anything the dead session left in the queue.
	for {
		if _, ok := f.queue.Dequeue(); !ok {
			break
		}
	}
	f.state.Store(int32(EventIdle))
	return errors.Join(errs...)
}
