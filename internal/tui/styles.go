package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/sensordash/internal/display"
)

// AppName is shown in the emulator title bar
const AppName = "SENSORDASH DISPLAY"

// Layout constants
const (
	DefaultWidth  = 80 // used until the first WindowSizeMsg
	MinBoxWidth   = 8
	BoxTextHeight = 2 // label line + value line
	LogLines      = 8
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple
	SuccessColor = lipgloss.Color("#43BF6D") // Green
	ErrorColor   = lipgloss.Color("#FF5555") // Red
	SubtleColor  = lipgloss.Color("#626262") // Gray
	TextColor    = lipgloss.Color("#FFFFFF") // White
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	LogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)

	LogRxStyle  = lipgloss.NewStyle().Foreground(TextColor)
	LogOKStyle  = lipgloss.NewStyle().Foreground(SuccessColor)
	LogErrStyle = lipgloss.NewStyle().Foreground(ErrorColor)
)

// panelStyle returns the style of one screen region drawn with the
// panel's RGB565 colors
func panelStyle(width int, bg, fg, border display.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Height(BoxTextHeight).
		Align(lipgloss.Center).
		Background(lipgloss.Color(bg.Hex())).
		Foreground(lipgloss.Color(fg.Hex())).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(border.Hex())).
		BorderBackground(lipgloss.Color(bg.Hex()))
}
