package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/protocol"
)

func newTestModel(t *testing.T, d protocol.Dialect) Model {
	t.Helper()
	layout, err := display.NewLayout(d, display.DefaultWidth, display.DefaultHeight)
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	return NewModel(layout, "test")
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return model
}

func TestViewPlaceholders(t *testing.T) {
	m := newTestModel(t, protocol.DialectSingle)
	view := m.View()

	for _, want := range []string{AppName, "TEMP", "HUMID", "MOIST", "VOICE", "--.-", "READY"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestBoxPaint(t *testing.T) {
	m := newTestModel(t, protocol.DialectSingle)
	state := display.NewState(m.layout)
	if _, ok := state.Apply(protocol.SetTemperature{Value: 22.5}); !ok {
		t.Fatal("Apply() changed = false, want true")
	}
	id := display.BoxID{Kind: display.KindTemp}
	paint, ok := display.PaintBox(state, id)
	if !ok {
		t.Fatal("PaintBox() ok = false")
	}

	m = update(t, m, boxMsg(paint))

	if got := m.boxes[id].Value; got != paint.Value {
		t.Errorf("stored value = %q, want %q", got, paint.Value)
	}
	if !strings.Contains(m.View(), paint.Value) {
		t.Errorf("View() missing painted value %q", paint.Value)
	}
}

func TestMoodPaint(t *testing.T) {
	m := newTestModel(t, protocol.DialectMood)
	if strings.Contains(m.View(), Face(display.Unhealthy)) {
		t.Fatal("View() shows a face before the first mood paint")
	}

	m = update(t, m, moodMsg(display.MoodPaint{
		Mood:       display.Unhealthy,
		Background: display.Unhealthy.Background(),
		Foreground: display.White,
		Lines:      []string{"WATER", "ME"},
		Rect:       display.Rect{W: display.DefaultWidth, H: 240, Y: 80},
	}))

	view := m.View()
	for _, want := range []string{Face(display.Unhealthy), "WATER ME"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestLog(t *testing.T) {
	m := newTestModel(t, protocol.DialectSingle)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < LogLines+3; i++ {
		m = update(t, m, logMsg{time: now, line: "S T 20", reply: "OK TEMP"})
	}
	m = update(t, m, logMsg{time: now, line: "BOGUS", reply: "ERR Unknown: BOGUS"})

	if m.lines != LogLines+4 {
		t.Errorf("lines = %d, want %d", m.lines, LogLines+4)
	}
	if m.rejected != 1 {
		t.Errorf("rejected = %d, want 1", m.rejected)
	}
	if len(m.log) != LogLines {
		t.Errorf("len(log) = %d, want %d", len(m.log), LogLines)
	}
	if last := m.log[len(m.log)-1]; last.line != "BOGUS" {
		t.Errorf("last log line = %q, want %q", last.line, "BOGUS")
	}
	if !strings.Contains(m.View(), "03:04:05") {
		t.Error("View() missing log timestamp")
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		msg      tea.KeyMsg
		wantQuit bool
		check    func(Model) bool
	}{
		{
			name:  "l toggles log",
			msg:   tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")},
			check: func(m Model) bool { return !m.showLog },
		},
		{
			name:  "? toggles help",
			msg:   tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")},
			check: func(m Model) bool { return m.help.ShowAll },
		},
		{
			name:     "q quits",
			msg:      tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")},
			wantQuit: true,
		},
		{
			name:     "ctrl+c quits",
			msg:      tea.KeyMsg{Type: tea.KeyCtrlC},
			wantQuit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, protocol.DialectSingle)
			next, cmd := m.Update(tt.msg)

			if tt.wantQuit {
				if cmd == nil {
					t.Fatal("Update() cmd = nil, want tea.Quit")
				}
				if _, ok := cmd().(tea.QuitMsg); !ok {
					t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
				}
				return
			}
			if !tt.check(next.(Model)) {
				t.Errorf("key %q did not change the model", tt.msg.String())
			}
		})
	}
}

func TestWindowSize(t *testing.T) {
	m := newTestModel(t, protocol.DialectDual)
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})

	if m.width != 160 || m.height != 40 {
		t.Errorf("size = %dx%d, want 160x40", m.width, m.height)
	}
	// four boxes per row across the panel width
	if got, want := m.columns(display.DefaultWidth/4), 160/4-2; got != want {
		t.Errorf("columns() = %d, want %d", got, want)
	}
	if got := m.columns(1); got != MinBoxWidth {
		t.Errorf("columns(1) = %d, want %d", got, MinBoxWidth)
	}
}
