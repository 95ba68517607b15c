// Package tui provides the Bubble Tea front end for dungeon sessions. It
// drives the bridge facade from the terminal event loop: key presses go
// in through the facade's input surface, render elements come back out
// through the queue on every tick.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg is sent to trigger a queue drain and display refresh.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends tick messages at the specified rate.
func tickCmd(tickRate int) tea.Cmd {
	interval := time.Second / time.Duration(tickRate)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
