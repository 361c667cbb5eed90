// Package tui renders styled terminal output for solarfocus commands.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette.
const (
	ColorHeader    = lipgloss.Color("#F5A623")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("255")
	ColorMuted     = lipgloss.Color("240")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorCritical  = lipgloss.Color("196")
	ColorBorder    = lipgloss.Color("63")
	ColorHighlight = lipgloss.Color("220")
)

// Icons.
const (
	IconArrowUp    = "↑"
	IconArrowDown  = "↓"
	IconArrowRight = "→"
	IconSun        = "☀"
	IconLeaf       = "🌱"
)

// Layout constants.
const (
	defaultWidth  = 80
	minWidth      = 40
	borderPadding = 2
	labelWidth    = 22
)

// Shared styles.
//
//nolint:gochecknoglobals // Style values are immutable once built.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	SubtleStyle   = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	OKStyle       = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	BoxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// TerminalWidth returns the width of f when it is a terminal, or a default
// width otherwise.
func TerminalWidth(f *os.File) int {
	if f == nil {
		return defaultWidth
	}
	fd := int(f.Fd()) //nolint:gosec // File descriptors fit in int.
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w < minWidth {
		return defaultWidth
	}
	return w
}

// labelRow renders a left-aligned label followed by a value.
func labelRow(label, value string) string {
	return LabelStyle.Width(labelWidth).Render(label) + ValueStyle.Render(value)
}

// box wraps content in the standard border sized to width.
func box(content string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	return BoxStyle.Width(width - borderPadding).Render(content)
}
