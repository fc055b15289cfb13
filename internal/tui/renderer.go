package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/firmware"
)

// Renderer forwards paints from the controller to a running emulator
// program. Send blocks until the program has started, so run the program
// before starting the controller.
type Renderer struct {
	program *tea.Program
}

// NewProgram creates the emulator program for a layout
func NewProgram(layout *display.Layout, source string, opts ...tea.ProgramOption) *tea.Program {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return tea.NewProgram(NewModel(layout, source), opts...)
}

// NewRenderer wraps a program created by NewProgram
func NewRenderer(p *tea.Program) *Renderer {
	return &Renderer{program: p}
}

// DrawBox implements display.Renderer
func (r *Renderer) DrawBox(p display.BoxPaint) error {
	r.program.Send(boxMsg(p))
	return nil
}

// DrawMood implements display.Renderer
func (r *Renderer) DrawMood(p display.MoodPaint) error {
	r.program.Send(moodMsg(p))
	return nil
}

// Observe is a firmware observer adding each handled line to the
// exchange log
func (r *Renderer) Observe(ev firmware.Event) {
	r.program.Send(logMsg{time: ev.Time, line: ev.Line, reply: ev.Reply})
}
