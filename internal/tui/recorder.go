// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grec/internal/analysis"
	"grec/internal/audio"
	"grec/internal/message"
	"grec/internal/processor"
)

// maxTakes bounds the take history shown on screen.
const maxTakes = 5

// Controller is the part of the engine the monitor drives.
type Controller interface {
	Record() error
	Pause() error
	Stop() error
}

// RecorderModel shows the live state of a take and maps keys to engine
// commands. Engine calls run as commands so Update never blocks on the
// engine while the engine is sending to the program.
type RecorderModel struct {
	ctrl       Controller
	gate       *audio.LevelGate
	sampleRate float64
	maxFrames  int

	state      processor.State
	progress   message.Progress
	maxReached bool
	takes      []message.RecordingSaved
	err        error

	bar   progress.Model
	level progress.Model
	help  help.Model
	width int
}

type controlErrMsg struct {
	action string
	err    error
}

// NewRecorderModel builds the monitor for a recorder with the given
// capacity.
func NewRecorderModel(ctrl Controller, gate *audio.LevelGate, sampleRate float64, maxFrames int) RecorderModel {
	if gate == nil {
		gate = audio.NewLevelGate()
	}
	return RecorderModel{
		ctrl:       ctrl,
		gate:       gate,
		sampleRate: sampleRate,
		maxFrames:  maxFrames,
		state:      processor.Idle,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		level:      progress.New(progress.WithSolidFill("#25A065"), progress.WithoutPercentage()),
		help:       help.New(),
		width:      60,
	}
}

func (m RecorderModel) Init() tea.Cmd {
	return nil
}

func (m RecorderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 10)
		m.level.Width = max(msg.Width-20, 10)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Record):
			m.err = nil
			m.maxReached = false
			return m, m.control("record", m.ctrl.Record)
		case key.Matches(msg, keys.Pause):
			return m, m.control("pause", m.ctrl.Pause)
		case key.Matches(msg, keys.Stop):
			return m, m.control("stop", m.ctrl.Stop)
		case key.Matches(msg, keys.Gate):
			if m.gate.Enabled() {
				m.gate.Disable()
			} else {
				m.gate.Enable()
			}
		}

	case message.Event:
		switch msg.Type {
		case message.ProgressUpdate:
			m.progress = msg.Progress
		case message.MaxLengthReached:
			m.maxReached = true
			m.state = processor.Stopped
		}

	case message.StateChanged:
		m.state = parseState(msg.State)
		if m.state == processor.Stopped || m.state == processor.Idle {
			m.progress = message.Progress{}
		}

	case message.RecordingSaved:
		m.takes = append(m.takes, msg)
		if len(m.takes) > maxTakes {
			m.takes = m.takes[len(m.takes)-maxTakes:]
		}

	case controlErrMsg:
		m.err = fmt.Errorf("%s: %w", msg.action, msg.err)
	}

	return m, nil
}

// control runs an engine call off the update loop.
func (m RecorderModel) control(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return controlErrMsg{action: action, err: err}
		}
		return nil
	}
}

func (m RecorderModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("grec"))
	sb.WriteString("  ")
	sb.WriteString(stateStyles[m.state.String()].Render(strings.ToUpper(m.state.String())))
	if m.maxReached {
		sb.WriteString("  ")
		sb.WriteString(errorStyle.Render("maximum length reached"))
	}
	sb.WriteString("\n\n")

	maxSeconds := 0.0
	if m.sampleRate > 0 {
		maxSeconds = float64(m.maxFrames) / m.sampleRate
	}
	sb.WriteString(fmt.Sprintf("%s %6.2fs / %.2fs\n", infoStyle.Render("Time "), m.progress.ElapsedSeconds, maxSeconds))
	sb.WriteString("      " + m.bar.ViewAs(m.fill()) + "\n\n")

	sb.WriteString(fmt.Sprintf("%s %6.1f dBFS  %s\n", infoStyle.Render("Level"), analysis.DBFS(m.progress.RMS), m.gateLabel()))
	sb.WriteString("      " + m.level.ViewAs(levelFill(m.progress.RMS)) + "\n\n")

	sb.WriteString(infoStyle.Render("Takes") + "\n")
	if len(m.takes) == 0 {
		sb.WriteString(dimStyle.Render("  none yet") + "\n")
	}
	for i := len(m.takes) - 1; i >= 0; i-- {
		t := m.takes[i]
		line := fmt.Sprintf("  %s  %.2fs  peak %.1f dBFS  %.0f Hz",
			filepath.Base(t.Path), t.DurationSeconds, t.Summary.PeakDBFS, t.Summary.DominantHz)
		if t.Final {
			line += "  (final)"
		}
		if i == len(m.takes)-1 {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	sb.WriteString("\n" + m.help.View(keys))
	return lipgloss.NewStyle().MaxWidth(max(m.width, 20)).Render(sb.String())
}

func (m RecorderModel) fill() float64 {
	if m.maxFrames <= 0 {
		return 0
	}
	return min(float64(m.progress.RecordedFrames)/float64(m.maxFrames), 1)
}

func (m RecorderModel) gateLabel() string {
	if !m.gate.Enabled() {
		return dimStyle.Render("gate off")
	}
	if m.gate.Open(m.progress.RMS) {
		return highlightStyle.Render("signal")
	}
	return dimStyle.Render("silence")
}

// levelFill maps -60..0 dBFS onto the meter.
func levelFill(rms float64) float64 {
	db := analysis.DBFS(rms)
	return min(max((db+60)/60, 0), 1)
}

func parseState(s string) processor.State {
	for _, st := range []processor.State{processor.Idle, processor.Recording, processor.Paused, processor.Stopped} {
		if st.String() == s {
			return st
		}
	}
	return processor.Idle
}

// RunRecorder runs the monitor until the user quits or ctx is cancelled.
// sink is attached to the program before it starts.
func RunRecorder(ctx context.Context, model RecorderModel, sink *ProgramSink) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(p)
	defer sink.Close()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
