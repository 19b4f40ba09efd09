package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vpntools/vpnconsole/internal/model"
)

var (
	ColorNavy   = lipgloss.Color("#1A1B33")
	ColorWhite  = lipgloss.Color("#FFFFFF")
	ColorGray   = lipgloss.Color("#888888")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorYellow = lipgloss.Color("#FFAA00")
	ColorRed    = lipgloss.Color("#FF4444")
	ColorBlue   = lipgloss.Color("#00CAC7")
	ColorPurple = lipgloss.Color("#B794F6")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	statusLineStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorNavy).
			Padding(0, 1)

	activeChipStyle = lipgloss.NewStyle().
			Background(ColorBlue).
			Foreground(ColorNavy).
			Padding(0, 1)

	inactiveChipStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Padding(0, 1)
)

// categoryStyles maps each log category to its display color.
var categoryStyles = map[model.Category]lipgloss.Style{
	model.CategoryConnection:     lipgloss.NewStyle().Foreground(ColorGreen),
	model.CategoryAuthentication: lipgloss.NewStyle().Foreground(ColorPurple),
	model.CategoryError:          lipgloss.NewStyle().Foreground(ColorRed),
	model.CategoryWarning:        lipgloss.NewStyle().Foreground(ColorYellow),
	model.CategoryInfo:           lipgloss.NewStyle().Foreground(ColorWhite),
	model.CategorySystem:         lipgloss.NewStyle().Foreground(ColorBlue),
	model.CategoryNetwork:        lipgloss.NewStyle().Foreground(lipgloss.Color("#35DD2F")),
}

func categoryStyle(c model.Category) lipgloss.Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return dimStyle
}
