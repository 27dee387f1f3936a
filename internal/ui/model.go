// ABOUTME: Bubbletea model for the translation TUI
// ABOUTME: Defines session display state and key handling
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model represents the TUI state
type Model struct {
	// Session
	state     string
	status    string
	warning   bool
	sessionID string

	// Configuration
	model    string
	voice    string
	language string
	mic      string
	speaker  string

	// Meters (0-1 peak)
	inputLevel  float64
	outputLevel float64

	// Playback
	volume int
	muted  bool

	// Stats
	sent     int64
	received int64
	skipped  int64
	dropped  int64
	clamped  int64
	queuedMs int64

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Info is the static session description shown in the header
type Info struct {
	Model    string
	Voice    string
	Language string
	Mic      string
	Speaker  string
	Volume   int
}

// StatusMsg updates TUI state. Zero fields are left unchanged.
type StatusMsg struct {
	State     string
	Status    string
	Warning   bool
	SessionID string
	Mic       string

	Sent     int64
	Received int64
	Skipped  int64
	Dropped  int64
	Clamped  int64
}

// LevelsMsg updates the meters and the playout queue depth
type LevelsMsg struct {
	Input    float64
	Output   float64
	QueuedMs int64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case LevelsMsg:
		m.inputLevel = msg.Input
		m.outputLevel = msg.Output
		m.queuedMs = msg.QueuedMs
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("Live Translate"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Status:   "))
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	rows := []struct{ label, value string }{
		{"Model:    ", m.model},
		{"Voice:    ", m.voice},
		{"Language: ", m.language},
		{"Mic:      ", m.mic},
		{"Speaker:  ", m.speaker},
	}
	for _, row := range rows {
		b.WriteString(headerStyle.Render(row.label))
		b.WriteString(valueStyle.Render(truncate(row.value, 48)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("In:       "))
	b.WriteString(renderBar(MeterPercent(m.inputLevel), 100, 30))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Out:      "))
	b.WriteString(renderBar(MeterPercent(m.outputLevel), 100, 30))
	b.WriteString("\n")

	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	b.WriteString(headerStyle.Render("Volume:   "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)))
	b.WriteString("\n\n")

	b.WriteString(m.renderStats())
	b.WriteString("\n\n")

	b.WriteString(m.renderHelp())

	return b.String()
}

// renderStatus renders the status line, highlighting warnings
func (m Model) renderStatus() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	switch {
	case m.warning:
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	case m.state == "online":
		style = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	case m.state == "connecting":
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	}

	text := m.status
	if m.state == "online" {
		text = "● " + strings.ToUpper(m.status)
	}
	return style.Render(text)
}

// renderStats renders session counters
func (m Model) renderStats() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render(
		fmt.Sprintf("Sent: %d  Received: %d  Skipped: %d  Dropped: %d  Late: %d  Queued: %dms",
			m.sent, m.received, m.skipped, m.dropped, m.clamped, m.queuedMs))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	action := "Start"
	if m.state == "online" || m.state == "connecting" {
		action = "Stop"
	}
	return lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("space/enter:%s  ↑/↓:Volume  m:Mute  q:Quit", action))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ", "enter":
		m.controls.toggle()
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.controls.setVolume(m.volume, m.muted)
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.controls.setVolume(m.volume, m.muted)
		}
	case "m":
		m.muted = !m.muted
		m.controls.setVolume(m.volume, m.muted)
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Status != "" {
		m.status = msg.Status
		m.warning = msg.Warning
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.Mic != "" {
		m.mic = msg.Mic
	}
	if msg.Sent != 0 {
		m.sent = msg.Sent
	}
	if msg.Received != 0 {
		m.received = msg.Received
	}
	if msg.Skipped != 0 {
		m.skipped = msg.Skipped
	}
	if msg.Dropped != 0 {
		m.dropped = msg.Dropped
	}
	if msg.Clamped != 0 {
		m.clamped = msg.Clamped
	}
}

// MeterPercent scales a peak level to the meter width, saturating at 100
func MeterPercent(level float64) int {
	p := int(level * 300)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
