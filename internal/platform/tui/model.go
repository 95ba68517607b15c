package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-rogue/internal/bridge"
	"github.com/vovakirdan/tui-rogue/internal/core"
	"github.com/vovakirdan/tui-rogue/internal/engine"
)

const maxMessages = 4

// Options tunes the terminal driver.
type Options struct {
	TickRate    int    // display refresh rate, frames per second
	SnapshotDir string // where the save key writes
	MapW, MapH  int
}

// DefaultOptions returns the values used when nothing is configured.
func DefaultOptions() Options {
	return Options{TickRate: 30, MapW: 72, MapH: 18}
}

// targeting is an in-progress directed action: the player picked a
// command and is now picking where it lands.
type targeting struct {
	kind   engine.ActionKind
	ranged bool
	d      core.Delta
}

// Model is the Bubble Tea model driving one dungeon session through the
// bridge facade. It owns the driver side of the bridge: it drains the
// render queue, answers prompts, and submits directed actions; the
// simulation itself never runs on this goroutine.
type Model struct {
	facade *bridge.Facade
	opts   Options

	keys KeyMap
	help help.Model

	screen   *core.Screen
	messages []string
	flash    string
	status   string
	target   *targeting

	quitting bool
}

// NewModel creates a model over an initialized facade. The facade must
// not have a running session yet; the model starts one.
func NewModel(facade *bridge.Facade, opts Options) Model {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultOptions().TickRate
	}
	return Model{
		facade: facade,
		opts:   opts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		screen: core.NewScreen(opts.MapW, opts.MapH),
	}
}

// Init starts the session and the display refresh loop.
func (m Model) Init() tea.Cmd {
	if err := m.facade.StartSession(); err != nil {
		return tea.Sequence(
			tea.Println("cannot start session: "+err.Error()),
			tea.Quit,
		)
	}
	return tickCmd(m.opts.TickRate)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

// handleKey routes a key press to the right facade surface depending on
// what the session is waiting for.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.shutdown()
	}

	switch m.facade.State() {
	case bridge.EventNeedsInput:
		return m.answerPrompt(msg)
	case bridge.EventGameOver:
		return m.handleGameOverKey(msg)
	}

	if m.target != nil {
		return m.handleTargetKey(msg)
	}

	// Directed actions start a targeting step instead of sending a byte.
	if kind, ranged, ok := actionForKey(m.keys, msg); ok {
		m.target = &targeting{kind: kind, ranged: ranged}
		m.flash = fmt.Sprintf("%s in which direction?", kind)
		return m, nil
	}

	switch s := msg.String(); s {
	case "Q":
		m.forward('Q')
	case ".":
		m.forward('.')
	case ",":
		m.forward(',')
	case ">":
		m.forward('>')
	case "o":
		m.forward('o')
	case "c":
		m.forward('c')
	case "S":
		m.save()
	case "?":
		m.help.ShowAll = !m.help.ShowAll
	default:
		if _, b, ok := dirForKey(msg); ok {
			m.forward(b)
		}
	}
	return m, nil
}

// answerPrompt feeds the next key press to a simulation that is blocked
// on a question.
func (m Model) answerPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.report(m.facade.AnswerPrompt(engine.KeyEscape))
		return m, nil
	}
	if _, b, ok := dirForKey(msg); ok {
		m.report(m.facade.AnswerPrompt(b))
	}
	return m, nil
}

// handleTargetKey drives the targeting step of a directed action.
// Adjacent-only actions fire on the first direction key; ranged actions
// walk a cursor outward and fire on enter.
func (m Model) handleTargetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.target
	switch msg.String() {
	case "esc":
		m.target = nil
		m.flash = "Never mind."
		return m, nil
	case "enter":
		if t.ranged && !t.d.IsZero() {
			m.submitTarget()
		}
		return m, nil
	}

	d, _, ok := dirForKey(msg)
	if !ok {
		return m, nil
	}
	if !t.ranged {
		t.d = d
		m.submitTarget()
		return m, nil
	}
	t.d.DX += d.DX
	t.d.DY += d.DY
	m.flash = fmt.Sprintf("%s at (%+d,%+d), enter to loose", t.kind, t.d.DX, t.d.DY)
	return m, nil
}

func (m *Model) submitTarget() {
	t := m.target
	m.target = nil
	m.flash = ""
	m.report(m.facade.SubmitAction(t.kind, t.d.DX, t.d.DY))
}

func (m Model) handleGameOverKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		if err := m.facade.Cleanup(); err != nil {
			m.flash = err.Error()
			return m, nil
		}
		m.screen.Clear()
		m.messages = nil
		m.flash = ""
		if err := m.facade.StartSession(); err != nil {
			m.flash = err.Error()
		}
	case "q", "Q", "esc":
		return m.shutdown()
	}
	return m, nil
}

func (m Model) shutdown() (tea.Model, tea.Cmd) {
	m.quitting = true
	//nolint:errcheck // Best-effort teardown on the way out
	m.facade.Cleanup()
	return m, tea.Quit
}

// forward sends one raw byte to the simulation.
func (m *Model) forward(b byte) {
	m.report(m.facade.ProcessInput(b))
}

// report surfaces a rejected request on the flash line. Busy is common
// and transient, so it gets a softer wording.
func (m *Model) report(err error) {
	switch {
	case err == nil:
		m.flash = ""
	case err == bridge.ErrBusy:
		m.flash = "(still thinking...)"
	default:
		m.flash = err.Error()
	}
}

func (m *Model) save() {
	name := time.Now().Format("20060102_150405")
	path := filepath.Join(m.opts.SnapshotDir, name)
	if err := m.facade.Save(path); err != nil {
		m.report(err)
		return
	}
	m.flash = "Saved as " + name + "."
}

// handleTick drains the render queue into the screen buffer and
// refreshes the status line.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	for {
		el, ok := m.facade.Dequeue()
		if !ok {
			break
		}
		switch el.Kind {
		case bridge.ElemClear:
			m.screen.Clear()
		case bridge.ElemTile:
			m.screen.SetCell(el.X, el.Y, el.Glyph, el.Color)
		case bridge.ElemMessage:
			if el.Window != "prompt" {
				m.messages = append(m.messages, el.Text)
				if len(m.messages) > maxMessages {
					m.messages = m.messages[len(m.messages)-maxMessages:]
				}
			}
		}
	}

	if m.facade.Tick() {
		m.status = m.facade.StatusLine()
	}
	return m, tickCmd(m.opts.TickRate)
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb []byte
	sb = append(sb, statusStyle.Render(pad(m.status, m.screen.Width()))...)
	sb = append(sb, '\n')
	sb = append(sb, RenderScreen(m.screen)...)
	sb = append(sb, '\n')

	switch {
	case m.facade.State() == bridge.EventGameOver:
		sb = append(sb, deadStyle.Render("Game over. [r]estart  [q]uit")...)
	case m.facade.State() == bridge.EventNeedsInput:
		sb = append(sb, promptStyle.Render(m.facade.PromptText())...)
	case m.target != nil:
		sb = append(sb, targetStyle.Render(m.flash)...)
	case m.flash != "":
		sb = append(sb, messageStyle.Render(m.flash)...)
	}
	sb = append(sb, '\n')

	for _, msg := range m.messages {
		sb = append(sb, messageStyle.Render(msg)...)
		sb = append(sb, '\n')
	}
	sb = append(sb, m.help.View(m.keys)...)
	return string(sb)
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

// Run starts the Bubble Tea program over an initialized facade and
// blocks until the player leaves.
func Run(facade *bridge.Facade, opts Options) error {
	p := tea.NewProgram(
		NewModel(facade, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
