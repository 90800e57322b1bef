package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	inTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	offTuneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555"))

	wallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	guideStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// noteColor returns the color of a pitch class; sharps take their natural
func noteColor(name string) lipgloss.Color {
	if name == "" {
		return lipgloss.Color("#FAFAFA")
	}
	if c, ok := noteColors[name[:1]]; ok {
		return lipgloss.Color(c)
	}
	return lipgloss.Color("#FAFAFA")
}

// Get the next note in the scale (for sharp note colors)
func nextNatural(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

func badgeStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333"))
}

// noteBadge renders a pitch class as a colored block. Sharps are split
// between the colors of the two neighbouring naturals.
func noteBadge(name string) string {
	if name == "" || name == "--" {
		return badgeStyle("#333333").Padding(2, 4).Render("--")
	}

	if !strings.HasSuffix(name, "#") {
		color, ok := noteColors[name]
		if !ok {
			color = "#333333"
		}
		return badgeStyle(color).Padding(2, 4).Render(name)
	}

	base := name[:1]
	left := badgeStyle(noteColors[base]).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(3).
		PaddingRight(1).
		PaddingTop(2).
		PaddingBottom(2)
	right := badgeStyle(noteColors[nextNatural(base)]).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(3).
		PaddingTop(2).
		PaddingBottom(2)
	return lipgloss.JoinHorizontal(lipgloss.Top, left.Render(base), right.Render("#"))
}
