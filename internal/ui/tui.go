// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels back to the app
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume or mute change from the keyboard
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels for user actions
type Controls struct {
	Toggle  chan struct{}
	Volume  chan VolumeChangeMsg
	QuitReq chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Toggle:  make(chan struct{}, 1),
		Volume:  make(chan VolumeChangeMsg, 10),
		QuitReq: make(chan struct{}, 1),
	}
}

func (c *Controls) toggle() {
	if c == nil {
		return
	}
	select {
	case c.Toggle <- struct{}{}:
	default:
	}
}

func (c *Controls) setVolume(volume int, muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- VolumeChangeMsg{Volume: volume, Muted: muted}:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.QuitReq <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(info Info, controls *Controls) Model {
	volume := info.Volume
	if volume <= 0 {
		volume = 100
	}
	return Model{
		state:    "idle",
		status:   "Ready",
		model:    info.Model,
		voice:    info.Voice,
		language: info.Language,
		mic:      info.Mic,
		speaker:  info.Speaker,
		volume:   volume,
		controls: controls,
	}
}

// TUI runs the bubbletea program
type TUI struct {
	program *tea.Program
}

// New creates the TUI program
func New(info Info, controls *Controls) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(info, controls), tea.WithAltScreen()),
	}
}

// Run blocks until the program exits
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Send delivers a StatusMsg or LevelsMsg to the model
func (t *TUI) Send(msg tea.Msg) {
	t.program.Send(msg)
}

// Stop quits the program
func (t *TUI) Stop() {
	t.program.Quit()
}
