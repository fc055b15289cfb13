package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/protocol"
)

// Messages sent by Renderer from the controller goroutine
type boxMsg display.BoxPaint
type moodMsg display.MoodPaint
type logMsg struct {
	time  time.Time
	line  string
	reply string
}

// keyMap defines the emulator key bindings
type keyMap struct {
	Log  key.Binding
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Log, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Log, k.Help, k.Quit}}
}

var keys = keyMap{
	Log: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle log"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the terminal emulation of the display panel. It keeps the last
// paint of every region and redraws them as styled blocks scaled to the
// terminal width.
type Model struct {
	layout *display.Layout
	source string

	boxes map[display.BoxID]display.BoxPaint
	mood  *display.MoodPaint

	log      []logMsg
	showLog  bool
	lines    int
	rejected int

	width  int
	height int

	help help.Model
	keys keyMap
}

// NewModel creates an emulator for the given layout. source names the
// transport in the title bar.
func NewModel(layout *display.Layout, source string) Model {
	return Model{
		layout:  layout,
		source:  source,
		boxes:   make(map[display.BoxID]display.BoxPaint),
		showLog: true,
		width:   DefaultWidth,
		help:    help.New(),
		keys:    keys,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Log):
			m.showLog = !m.showLog
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case boxMsg:
		m.boxes[msg.ID] = display.BoxPaint(msg)

	case moodMsg:
		p := display.MoodPaint(msg)
		m.mood = &p

	case logMsg:
		m.lines++
		if strings.HasPrefix(msg.reply, protocol.ReplyError) {
			m.rejected++
		}
		m.log = append(m.log, msg)
		if len(m.log) > LogLines {
			m.log = m.log[len(m.log)-LogLines:]
		}
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	title := TitleStyle.Render(AppName) + "  " +
		SubtitleStyle.Render(fmt.Sprintf("%s · %s · %d lines · %d rejected",
			m.layout.Dialect, m.source, m.lines, m.rejected))

	sections := []string{title, m.renderPanel()}
	if m.showLog {
		sections = append(sections, m.renderLog())
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// region is one rendered screen area waiting to be placed in a row
type region struct {
	rect display.Rect
	view string
}

func (m Model) renderPanel() string {
	var regions []region
	for _, b := range m.layout.Boxes() {
		regions = append(regions, region{rect: b.Rect, view: m.renderBox(b)})
	}
	if r, ok := m.layout.MoodRect(); ok {
		regions = append(regions, region{rect: r, view: m.renderMood(r)})
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].rect.Y != regions[j].rect.Y {
			return regions[i].rect.Y < regions[j].rect.Y
		}
		return regions[i].rect.X < regions[j].rect.X
	})

	var rows []string
	for i := 0; i < len(regions); {
		j := i
		var row []string
		for ; j < len(regions) && regions[j].rect.Y == regions[i].rect.Y; j++ {
			row = append(row, regions[j].view)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
		i = j
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// columns scales a pixel width to terminal cells, leaving room for the
// region border
func (m Model) columns(pixels int) int {
	width := m.width
	if width <= 0 {
		width = DefaultWidth
	}
	return max(pixels*width/m.layout.Width-2, MinBoxWidth)
}

func (m Model) renderBox(b display.Box) string {
	p, ok := m.boxes[b.ID]
	if !ok {
		p = display.BoxPaint{
			ID:         b.ID,
			Rect:       b.Rect,
			Background: b.Background,
			Border:     display.White,
			Foreground: display.TextOn(b.Background),
			Label:      b.Label,
			Value:      b.Placeholder,
		}
	}
	value := lipgloss.NewStyle().Bold(true).Render(p.Value)
	return panelStyle(m.columns(p.Rect.W), p.Background, p.Foreground, p.Border).
		Render(p.Label + "\n" + value)
}

func (m Model) renderMood(r display.Rect) string {
	if m.mood == nil {
		bg := display.Healthy.Background()
		return panelStyle(m.columns(r.W), bg, display.TextOn(bg), display.White).Render("")
	}
	p := *m.mood
	content := Face(p.Mood) + "\n" + strings.Join(p.Lines, " ")
	return panelStyle(m.columns(p.Rect.W), p.Background, p.Foreground, p.Background).
		Height(BoxTextHeight + 1).
		Render(content)
}

// Face is the text stand-in for the mood panel's drawn face
func Face(mood display.Mood) string {
	if mood == display.Unhealthy {
		return "(x_x)"
	}
	return "(^_^)"
}

func (m Model) renderLog() string {
	if len(m.log) == 0 {
		return LogStyle.Render(SubtitleStyle.Render("waiting for commands..."))
	}
	lines := make([]string, 0, len(m.log))
	for _, e := range m.log {
		replyStyle := LogOKStyle
		if strings.HasPrefix(e.reply, protocol.ReplyError) {
			replyStyle = LogErrStyle
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			SubtitleStyle.Render(e.time.Format("15:04:05")),
			LogRxStyle.Render("> "+e.line),
			replyStyle.Render("< "+e.reply)))
	}
	return LogStyle.Render(strings.Join(lines, "\n"))
}
