// ABOUTME: Bubbletea model for the engine monitor TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"strings"

	"github.com/Sendspin/audiosink/internal/debug"
	"github.com/Sendspin/audiosink/pkg/sink"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// boxWidth is the printable width inside the frame
const boxWidth = 52

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	helpStyle = lipgloss.NewStyle().Faint(true)

	stateStyles = map[string]lipgloss.Style{
		"running":       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		"shutting down": lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"stopped":       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
)

// Model represents the TUI state
type Model struct {
	control *Control

	// Engine
	engineID string
	state    string
	stats    sink.Stats

	// Metadata
	title  string
	artist string
	album  string

	// Debug
	showDebug  bool
	packets    debug.Summary
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Dimensions
	width  int
	height int
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
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderBuffers()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// line frames one row; styled content must already fit the box
func line(format string, args ...any) string {
	s := truncate(fmt.Sprintf(format, args...), boxWidth)
	pad := boxWidth - lipgloss.Width(s)
	if pad < 0 {
		pad = 0
	}
	return "│ " + s + strings.Repeat(" ", pad) + " │\n"
}

func separator() string {
	return "├" + strings.Repeat("─", boxWidth+2) + "┤\n"
}

// renderHeader renders engine identity and state
func (m Model) renderHeader() string {
	id := m.engineID
	if len(id) > 8 {
		id = id[:8]
	}

	state := m.state
	if style, ok := stateStyles[state]; ok {
		state = style.Render(state)
	}

	s := "┌─ " + titleStyle.Render("Audio Sink") + " " + strings.Repeat("─", boxWidth-11) + "┐\n"
	s += line("Engine: %s", id)
	s += line("State:  %s", state)
	s += separator()
	return s
}

// renderStreamInfo renders formats and metadata
func (m Model) renderStreamInfo() string {
	if m.stats.Source.SampleRate == 0 {
		return line("No stream")
	}

	s := ""
	if m.title != "" {
		s += line("Track:  %s", m.title)
		s += line("Artist: %s", m.artist)
		s += line("Album:  %s", m.album)
		s += line("")
	}

	src := m.stats.Source
	s += line("Source: %s %dHz %s", src.SampleFormat, src.SampleRate, channelName(src.Channels))

	dev := m.stats.Device
	if dev.SampleRate == 0 {
		s += line("Device: (playback disabled)")
	} else {
		s += line("Device: %s %dHz %s", dev.Format, dev.SampleRate, channelName(dev.Channels))
		if dev.Name != "" {
			s += line("        %s", dev.Name)
		}
	}
	return s
}

// renderBuffers renders queue and ring buffer fill
func (m Model) renderBuffers() string {
	capMs := 0
	if m.stats.Device.SampleRate > 0 {
		capMs = int(int64(m.stats.BufferCap) * 1000 / int64(m.stats.Device.SampleRate))
	}

	s := line("")
	s += line("Queue:  [%s] %d/%d packets",
		renderBar(m.stats.QueueDepth, m.stats.QueueCap, 10), m.stats.QueueDepth, m.stats.QueueCap)
	s += line("Buffer: [%s] %dms", renderBar(m.stats.BufferMs, capMs, 10), m.stats.BufferMs)
	return s
}

// renderStats renders engine counters
func (m Model) renderStats() string {
	s := separator()
	s += line("RX: %d  Dropped: %d  Discarded: %d", m.stats.Received, m.stats.Dropped, m.stats.Discarded)
	s += line("Underruns: %d  Lock misses: %d  Evicted: %d", m.stats.Underruns, m.stats.LockMisses, m.stats.Evicted)
	s += line("")
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return line("%s", helpStyle.Render("f:Flush  d:Debug  q:Quit")) +
		"└" + strings.Repeat("─", boxWidth+2) + "┘\n"
}

// renderDebug renders packet analysis and runtime information
func (m Model) renderDebug() string {
	last := m.packets.Last
	s := line("DEBUG:")
	s += line("  Packets: %d (%d bytes)", m.packets.Packets, m.packets.Bytes)
	s += line("  Last: min=%d max=%d rms=%.1f (%.1f dBFS)", last.Min, last.Max, last.RMS, last.DBFS)
	s += line("  Rate: expected %.0fHz, calculated %.0fHz", m.packets.ExpectedRate, m.packets.CalculatedRate)
	s += line("  Callbacks: %d  Short samples: %d", m.stats.Callbacks, m.stats.ShortSamples)
	s += line("  Goroutines: %d", m.goroutines)
	s += line("  Memory: %.1fMB alloc, %.1fMB sys", float64(m.memAlloc)/(1024*1024), float64(m.memSys)/(1024*1024))
	return s
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "f":
		if m.control != nil {
			select {
			case m.control.Flush <- FlushMsg{}:
			default:
			}
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Engine != nil {
		m.stats = *msg.Engine
		m.engineID = msg.Engine.ID
		m.state = msg.Engine.State.String()
	}
	if msg.Packets != nil {
		m.packets = *msg.Packets
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.artist = msg.Artist
		m.album = msg.Album
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// StatusMsg updates TUI state; nil and zero fields are left unchanged
type StatusMsg struct {
	Engine     *sink.Stats
	Packets    *debug.Summary
	Title      string
	Artist     string
	Album      string
	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
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
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
