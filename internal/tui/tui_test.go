// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"grec/internal/audio"
	"grec/internal/message"
	"grec/internal/processor"
)

type fakeController struct {
	calls []string
	err   error
}

func (f *fakeController) Record() error { f.calls = append(f.calls, "record"); return f.err }
func (f *fakeController) Pause() error  { f.calls = append(f.calls, "pause"); return f.err }
func (f *fakeController) Stop() error   { f.calls = append(f.calls, "stop"); return f.err }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (RecorderModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(RecorderModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return rm, cmd
}

func TestRecorderKeysRunController(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"r", "record"},
		{" ", "record"},
		{"p", "pause"},
		{"s", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ctrl := &fakeController{}
			m := NewRecorderModel(ctrl, nil, 16000, 160000)

			_, cmd := update(t, m, runes(tt.key))
			if cmd == nil {
				t.Fatal("expected a command")
			}
			if len(ctrl.calls) != 0 {
				t.Fatal("controller called from Update")
			}
			if msg := cmd(); msg != nil {
				t.Errorf("cmd() = %v, want nil", msg)
			}
			if len(ctrl.calls) != 1 || ctrl.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", ctrl.calls, tt.want)
			}
		})
	}
}

func TestRecorderControlError(t *testing.T) {
	ctrl := &fakeController{err: audio.ErrTakeFinished}
	m := NewRecorderModel(ctrl, nil, 16000, 160000)

	m, cmd := update(t, m, runes("p"))
	m, _ = update(t, m, cmd())

	if !errors.Is(m.err, audio.ErrTakeFinished) {
		t.Fatalf("err = %v", m.err)
	}
	if !strings.Contains(m.View(), "pause") {
		t.Error("view should name the failed action")
	}

	// Record clears the error.
	m, _ = update(t, m, runes("r"))
	if m.err != nil {
		t.Errorf("err = %v after record", m.err)
	}
}

func TestRecorderQuit(t *testing.T) {
	m := NewRecorderModel(&fakeController{}, nil, 16000, 160000)
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestRecorderEvents(t *testing.T) {
	m := NewRecorderModel(&fakeController{}, nil, 16000, 16000)

	m, _ = update(t, m, message.StateChanged{Type: message.StateChangedTag, State: "recording"})
	if m.state != processor.Recording {
		t.Fatalf("state = %v", m.state)
	}

	m, _ = update(t, m, message.NewProgress(8000, 0.5, 0.5))
	if m.progress.RecordedFrames != 8000 {
		t.Fatalf("progress = %+v", m.progress)
	}
	if got := m.fill(); got != 0.5 {
		t.Errorf("fill = %v, want 0.5", got)
	}
	view := m.View()
	for _, want := range []string{"RECORDING", "0.50s", "1.00s", "signal"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = update(t, m, message.NewMaxLengthReached())
	if !m.maxReached || m.state != processor.Stopped {
		t.Errorf("maxReached=%v state=%v", m.maxReached, m.state)
	}
	if !strings.Contains(m.View(), "maximum length reached") {
		t.Error("view should report the maximum length")
	}

	m, _ = update(t, m, message.StateChanged{Type: message.StateChangedTag, State: "stopped"})
	if m.progress.RecordedFrames != 0 {
		t.Errorf("progress not reset on stop: %+v", m.progress)
	}
}

func TestRecorderTakeHistory(t *testing.T) {
	m := NewRecorderModel(&fakeController{}, nil, 16000, 16000)
	if !strings.Contains(m.View(), "none yet") {
		t.Error("empty history should say so")
	}

	for i := range maxTakes + 2 {
		m, _ = update(t, m, message.RecordingSaved{
			Type:            message.RecordingSavedTag,
			Path:            "/tmp/take-" + string(rune('a'+i)) + ".wav",
			DurationSeconds: 1,
			Final:           i == maxTakes+1,
		})
	}

	if len(m.takes) != maxTakes {
		t.Fatalf("takes = %d, want %d", len(m.takes), maxTakes)
	}
	if m.takes[0].Path != "/tmp/take-c.wav" {
		t.Errorf("oldest take = %s", m.takes[0].Path)
	}
	view := m.View()
	if !strings.Contains(view, "take-g.wav") || !strings.Contains(view, "(final)") {
		t.Errorf("view missing latest take:\n%s", view)
	}
}

func TestRecorderGateToggle(t *testing.T) {
	gate := audio.NewLevelGate()
	m := NewRecorderModel(&fakeController{}, gate, 16000, 16000)

	m, _ = update(t, m, runes("g"))
	if gate.Enabled() {
		t.Fatal("g should disable the gate")
	}
	if !strings.Contains(m.View(), "gate off") {
		t.Error("view should show the gate is off")
	}

	update(t, m, runes("g"))
	if !gate.Enabled() {
		t.Error("second g should enable the gate")
	}
}

func TestLevelFill(t *testing.T) {
	tests := []struct {
		rms  float64
		want float64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{0.001, 0}, // -60 dBFS
	}
	for _, tt := range tests {
		if got := levelFill(tt.rms); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("levelFill(%v) = %v, want %v", tt.rms, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, st := range []processor.State{processor.Idle, processor.Recording, processor.Paused, processor.Stopped} {
		if got := parseState(st.String()); got != st {
			t.Errorf("parseState(%q) = %v", st.String(), got)
		}
	}
	if got := parseState("bogus"); got != processor.Idle {
		t.Errorf("parseState(bogus) = %v", got)
	}
}

func TestProgramSinkDetached(t *testing.T) {
	s := NewProgramSink()
	if err := s.Send(message.NewProgress(1, 0, 0)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000, IsDefaultInput: true},
		{ID: 3, Name: "USB Interface", MaxInputChannels: 4, DefaultSampleRate: 44100},
	}
}

func updateList(t *testing.T, m tea.Model, msg tea.Msg) DeviceListModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(DeviceListModel)
}

func TestDeviceListSelection(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices(), nil })

	msg := m.Init()()
	m = updateList(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updateList(t, m, msg)

	view := m.View()
	if !strings.Contains(view, "Built-in Microphone") || !strings.Contains(view, "[default]") {
		t.Fatalf("device list view:\n%s", view)
	}

	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	if got := sampleRates[m.sampleRateIndex]; got != 44100 {
		t.Errorf("preselected rate = %v, want device default 44100", got)
	}

	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection")
	}
	if sel.Device.ID != 3 || sel.SampleRate != 22050 {
		t.Errorf("selection = %+v", sel)
	}
	if got := sel.Flags(); got != "--device 3 --sample-rate 22050" {
		t.Errorf("Flags() = %q", got)
	}
}

func TestDeviceListBack(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices(), nil })
	m = updateList(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updateList(t, m, m.Init()())

	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.activeScreen != ListScreen {
		t.Error("esc should return to the list")
	}
	if _, ok := m.Selection(); ok {
		t.Error("no selection expected")
	}
}

func TestDeviceListError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	m = updateList(t, m, m.Init()())
	if !strings.Contains(m.View(), "no host") {
		t.Errorf("view = %q", m.View())
	}
}

func TestDeviceListEmpty(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, nil })
	m = updateList(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m = updateList(t, m, m.Init()())
	if !strings.Contains(m.View(), "No input devices") {
		t.Errorf("view = %q", m.View())
	}

	// Enter with nothing listed stays on the list.
	m = updateList(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ListScreen {
		t.Error("enter on an empty list should do nothing")
	}
}
