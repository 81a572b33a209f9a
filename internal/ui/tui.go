// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the engine monitor
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FlushMsg asks the engine to drop queued and buffered audio
type FlushMsg struct{}

// QuitMsg asks the application to shut down
type QuitMsg struct{}

// Control carries user requests from the TUI to the application
type Control struct {
	Flush chan FlushMsg
	Quit  chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Flush: make(chan FlushMsg, 10),
		Quit:  make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		state:   "idle",
		control: ctrl,
	}
}

// Run creates the TUI program; the caller starts it
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
