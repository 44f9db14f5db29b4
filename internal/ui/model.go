// Package ui renders live capture levels and pipeline progress in the
// terminal. The display loop ticks at 20 Hz, fully decoupled from the
// capture callbacks feeding the level monitor and from the orchestration
// goroutine publishing state events.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voxd/voxpipe/internal/audio"
	"github.com/voxd/voxpipe/internal/pipeline"
)

const (
	refreshInterval = 50 * time.Millisecond // 20 Hz
	meterWidth      = 30
	// meterFullScale is the RMS treated as a full bar. Speech RMS rarely
	// exceeds ~0.3, so 0.5 leaves visible headroom.
	meterFullScale = 0.5
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Width(9)
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Control carries user intents from the UI back to the orchestration
// loop.
type Control struct {
	Toggle chan struct{}
	Quit   chan struct{}
}

// NewControl creates the UI control channels.
func NewControl() *Control {
	return &Control{
		Toggle: make(chan struct{}, 1),
		Quit:   make(chan struct{}, 1),
	}
}

// TickMsg drives the 20 Hz refresh.
type TickMsg time.Time

// LevelsMsg applies new peak levels to the meters.
type LevelsMsg struct {
	Mic  float64
	Loop float64
}

// StatusMsg applies a pipeline state transition.
type StatusMsg pipeline.Event

// Model is the bubbletea model for the level/status display.
type Model struct {
	monitor *audio.LevelMonitor
	events  <-chan pipeline.Event
	ctrl    *Control

	micLevel  float64
	loopLevel float64
	hasLoop   bool

	state   pipeline.State
	message string

	width int
}

// NewModel creates the display model. monitor and events may be nil in
// tests; levels and status then arrive via LevelsMsg and StatusMsg.
func NewModel(monitor *audio.LevelMonitor, events <-chan pipeline.Event, hasLoop bool, ctrl *Control) Model {
	return Model{
		monitor: monitor,
		events:  events,
		ctrl:    ctrl,
		hasLoop: hasLoop,
		state:   pipeline.StateIdle,
	}
}

// Init schedules the first refresh tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case TickMsg:
		if m.monitor != nil {
			mic, loop := m.monitor.GetAndResetPeaks()
			m.micLevel, m.loopLevel = mic, loop
		}
		m = m.drainEvents()
		if m.state == pipeline.StateCleaned || m.state == pipeline.StateFailed {
			return m, tea.Quit
		}
		return m, tick()

	case LevelsMsg:
		m.micLevel, m.loopLevel = msg.Mic, msg.Loop

	case StatusMsg:
		m.state, m.message = msg.State, msg.Message
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ":
		if m.ctrl != nil {
			select {
			case m.ctrl.Toggle <- struct{}{}:
			default:
			}
		}
	}
	return m, nil
}

// drainEvents consumes any pending pipeline events without blocking.
func (m Model) drainEvents() Model {
	if m.events == nil {
		return m
	}
	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return m
			}
			m.state, m.message = ev.State, ev.Message
		default:
			return m
		}
	}
}

// View renders the meters and the current pipeline state.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voxpipe"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("mic"))
	b.WriteString(renderMeter(m.micLevel))
	b.WriteString("\n")

	if m.hasLoop {
		b.WriteString(labelStyle.Render("loopback"))
		b.WriteString(renderMeter(m.loopLevel))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	style := stateStyle
	if m.state == pipeline.StateFailed {
		style = failedStyle
	}
	b.WriteString(style.Render(fmt.Sprintf("[%s]", m.state)))
	if m.message != "" {
		b.WriteString(" " + m.message)
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("space: start/stop recording · q: quit"))
	b.WriteString("\n")

	return b.String()
}

// renderMeter draws a fixed-width level bar. Negative levels mean the
// source is not configured.
func renderMeter(level float64) string {
	if level < 0 {
		return helpStyle.Render("(off)")
	}
	filled := int(level / meterFullScale * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
	return meterStyle.Render(bar)
}
