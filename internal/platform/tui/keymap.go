package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-rogue/internal/core"
	"github.com/vovakirdan/tui-rogue/internal/engine"
)

// KeyMap declares the session key bindings. The lower-case command keys
// are forwarded to the simulation as raw bytes; the capital-letter keys
// start a directed action that goes through the injected-action path
// instead of the ordinary input stream.
type KeyMap struct {
	Move    key.Binding
	Wait    key.Binding
	Pickup  key.Binding
	Descend key.Binding
	Open    key.Binding
	Close   key.Binding

	Kick   key.Binding
	Fire   key.Binding
	Throw  key.Binding
	Lock   key.Binding
	Unlock key.Binding

	Confirm key.Binding
	Cancel  key.Binding
	Save    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the rogue-style bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Move:    key.NewBinding(key.WithKeys("h", "j", "k", "l", "y", "u", "b", "n"), key.WithHelp("hjkl", "move")),
		Wait:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "wait")),
		Pickup:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "pick up")),
		Descend: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "descend")),
		Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Close:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "close")),

		Kick:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "kick")),
		Fire:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fire")),
		Throw:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "throw")),
		Lock:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "lock")),
		Unlock: key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "unlock")),

		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Save:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save")),
		Quit:    key.NewBinding(key.WithKeys("Q", "ctrl+c"), key.WithHelp("Q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Move, k.Wait, k.Pickup, k.Descend, k.Kick, k.Fire, k.Save, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Move, k.Wait, k.Pickup, k.Descend},
		{k.Open, k.Close, k.Kick, k.Fire, k.Throw},
		{k.Lock, k.Unlock, k.Save, k.Quit},
	}
}

// dirForKey maps a vi movement key press to its delta and raw byte.
func dirForKey(msg tea.KeyMsg) (core.Delta, byte, bool) {
	s := msg.String()
	if len(s) != 1 {
		return core.Delta{}, 0, false
	}
	b := s[0]
	switch b {
	case 'h':
		return core.Delta{DX: -1}, b, true
	case 'l':
		return core.Delta{DX: 1}, b, true
	case 'k':
		return core.Delta{DY: -1}, b, true
	case 'j':
		return core.Delta{DY: 1}, b, true
	case 'y':
		return core.Delta{DX: -1, DY: -1}, b, true
	case 'u':
		return core.Delta{DX: 1, DY: -1}, b, true
	case 'b':
		return core.Delta{DX: -1, DY: 1}, b, true
	case 'n':
		return core.Delta{DX: 1, DY: 1}, b, true
	}
	return core.Delta{}, 0, false
}

// actionForKey maps a key press to an injectable action kind. The second
// result reports whether the action targets beyond the adjacent ring.
func actionForKey(k KeyMap, msg tea.KeyMsg) (engine.ActionKind, bool, bool) {
	switch {
	case key.Matches(msg, k.Kick):
		return engine.ActionKick, false, true
	case key.Matches(msg, k.Fire):
		return engine.ActionFire, true, true
	case key.Matches(msg, k.Throw):
		return engine.ActionThrow, true, true
	case key.Matches(msg, k.Lock):
		return engine.ActionLock, false, true
	case key.Matches(msg, k.Unlock):
		return engine.ActionUnlock, false, true
	}
	return 0, false, false
}
