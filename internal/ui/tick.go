// Package ui holds the bubbletea front-ends. Each model drives its
// controller from a display-rate tick; ticks carry the generation of the
// capture session that scheduled them and are dropped once it has ended.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FrameInterval is the display tick period (about 60 Hz)
const FrameInterval = time.Second / 60

// toneInterval is how often the tone indicator is refreshed while idle
const toneInterval = 100 * time.Millisecond

// tickMsg is a display tick for capture session gen
type tickMsg struct {
	gen int
}

// toneMsg refreshes the reference tone indicator
type toneMsg struct{}

// startMsg requests capture on program start
type startMsg struct{}

func tick(gen int) tea.Cmd {
	return tea.Tick(FrameInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func toneTick() tea.Cmd {
	return tea.Tick(toneInterval, func(time.Time) tea.Msg {
		return toneMsg{}
	})
}

func start() tea.Msg { return startMsg{} }
