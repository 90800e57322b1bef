package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/tunearcade/internal/pitch"
	"github.com/0xlemi/tunearcade/internal/tuner"
)

const (
	gaugeWidth = 41 // odd so 0 cents has a center cell
	meterWidth = 30
	meterFloor = -60 // dBFS shown as an empty meter
)

// TunerModel is the tuner screen
type TunerModel struct {
	ctrl   *tuner.Controller
	gen    int
	status string
	width  int
	height int
}

// NewTunerModel creates the tuner screen. Capture starts on Init.
func NewTunerModel(ctrl *tuner.Controller) TunerModel {
	return TunerModel{ctrl: ctrl}
}

// Init requests capture
func (m TunerModel) Init() tea.Cmd {
	return start
}

// Update handles keys and ticks
func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			m.gen++
			if err := m.ctrl.Close(); err != nil {
				m.status = err.Error()
			}
			return m, tea.Quit
		case " ":
			if m.ctrl.State() == tuner.StateListening {
				return m.stop(), nil
			}
			return m.start()
		case "1", "2", "3", "4", "5", "6":
			idx := int(key[0] - '1')
			if err := m.ctrl.ToggleString(idx); err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.status = ""
			return m, toneTick()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case startMsg:
		return m.start()

	case tickMsg:
		// a tick from an ended capture session must never touch the device
		if msg.gen != m.gen || m.ctrl.State() != tuner.StateListening {
			return m, nil
		}
		m.ctrl.Tick()
		return m, tick(m.gen)

	case toneMsg:
		if _, ok := m.ctrl.Playing(); ok {
			return m, toneTick()
		}
	}

	return m, nil
}

func (m TunerModel) start() (tea.Model, tea.Cmd) {
	// a refused start leaves a notice on the controller
	if err := m.ctrl.Start(); err != nil {
		return m, nil
	}
	m.gen++
	return m, tick(m.gen)
}

func (m TunerModel) stop() TunerModel {
	m.gen++
	if err := m.ctrl.Stop(); err != nil {
		m.status = err.Error()
	}
	return m
}

// View renders the tuner
func (m TunerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TuneArcade - Tuner"))
	b.WriteString("\n")

	d := m.ctrl.Display()
	b.WriteString(noteBadge(d.Note))
	b.WriteString("\n")

	if d.Empty() {
		if m.ctrl.State() == tuner.StateListening {
			b.WriteString(infoStyle.Render("Listening for audio..."))
		} else {
			b.WriteString(infoStyle.Render("Not listening"))
		}
		b.WriteString("\n")
	} else {
		tuning := offTuneStyle.Render(fmt.Sprintf("%+d cents", d.Cents))
		if d.InTune {
			tuning = inTuneStyle.Render("in tune")
		}
		b.WriteString(infoStyle.Render(fmt.Sprintf("Frequency: %d Hz (%.1f) | ", d.Hz, d.Smoothed)))
		b.WriteString(tuning)
		b.WriteString("\n")
	}
	b.WriteString(gauge(d))
	b.WriteString("\n")

	_, db := m.ctrl.Level()
	b.WriteString(infoStyle.Render(fmt.Sprintf("Level %s %6.1f dB", meter(db), db)))
	b.WriteString("\n\n")

	b.WriteString(m.stringButtons(d))
	b.WriteString("\n")

	if n := m.ctrl.Notice(); n != "" {
		b.WriteString(noticeStyle.Render(n))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(noticeStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render("space: start/stop  1-6: reference tone  q: quit"))
	return b.String()
}

// gauge draws the cents deviation as a marker on a [-50, 50] scale
func gauge(d tuner.Display) string {
	cells := []rune(strings.Repeat("─", gaugeWidth))
	center := gaugeWidth / 2
	cells[center] = '┼'
	if d.Empty() {
		return guideStyle.Render(string(cells))
	}

	pos := center + int(math.Round(float64(d.Cents)/50*float64(center)))
	pos = max(0, min(gaugeWidth-1, pos))

	style := offTuneStyle
	if d.InTune {
		style = inTuneStyle
	}
	return guideStyle.Render(string(cells[:pos])) +
		style.Render("▲") +
		guideStyle.Render(string(cells[pos+1:]))
}

// meter draws a dBFS level bar
func meter(db float32) string {
	level := (float64(db) - meterFloor) / -meterFloor
	level = max(0, min(1, level))
	filled := int(math.Round(level * meterWidth))
	return inTuneStyle.Render(strings.Repeat("█", filled)) +
		guideStyle.Render(strings.Repeat("░", meterWidth-filled))
}

func (m TunerModel) stringButtons(d tuner.Display) string {
	playing, isPlaying := m.ctrl.Playing()
	buttons := make([]string, len(pitch.GuitarStrings))
	for i, s := range pitch.GuitarStrings {
		style := buttonStyle
		if i == d.String {
			style = style.BorderForeground(lipgloss.Color("#00FF00"))
		}
		if isPlaying && i == playing {
			style = style.Reverse(true)
		}
		buttons[i] = style.Render(fmt.Sprintf("%d %s", i+1, s.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}
