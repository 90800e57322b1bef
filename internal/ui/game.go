package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/tunearcade/internal/game"
	"github.com/0xlemi/tunearcade/internal/pitch"
)

const (
	defaultFieldCols = 64
	defaultFieldRows = 20
)

var fieldStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("#555555"))

// GameModel is the obstacle course screen
type GameModel struct {
	session *game.Session
	gen     int
	cols    int
	rows    int
}

// NewGameModel creates the game screen. The game starts on enter.
func NewGameModel(session *game.Session) GameModel {
	return GameModel{
		session: session,
		cols:    defaultFieldCols,
		rows:    defaultFieldRows,
	}
}

// Init does nothing until the player starts a run
func (m GameModel) Init() tea.Cmd {
	return nil
}

// Update handles keys and ticks
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.gen++
			_ = m.session.Stop()
			return m, tea.Quit
		case "enter", " ":
			if m.session.Simulation().State() == game.StateRunning {
				return m, nil
			}
			// a refused start leaves a notice on the session
			if err := m.session.Start(); err != nil {
				return m, nil
			}
			m.gen++
			return m, tick(m.gen)
		}

	case tea.WindowSizeMsg:
		m.cols = max(32, min(120, msg.Width-2))
		m.rows = max(10, min(40, msg.Height-8))

	case tickMsg:
		if msg.gen != m.gen || m.session.Simulation().State() != game.StateRunning {
			return m, nil
		}
		if ev := m.session.Tick(); ev.Collided {
			m.gen++
			return m, nil
		}
		return m, tick(m.gen)
	}

	return m, nil
}

// View renders the score line and the playfield
func (m GameModel) View() string {
	sim := m.session.Simulation()

	var b strings.Builder
	b.WriteString(titleStyle.Render("TuneArcade - Pitch Runner"))
	b.WriteString("\n")

	note := sim.Note()
	if note == "" {
		note = "--"
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("Score: %d  Note: ", sim.Score())))
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(noteColor(sim.Note())).Render(note))
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Speed: %.1f", sim.Speed())))
	b.WriteString("\n")

	b.WriteString(fieldStyle.Render(renderField(sim, m.cols, m.rows)))
	b.WriteString("\n")

	switch sim.State() {
	case game.StateIdle:
		b.WriteString(infoStyle.Render("Sing or play to steer the ball through the gaps. Press enter to start."))
	case game.StateGameOver:
		b.WriteString(noticeStyle.Render(fmt.Sprintf("Game over! Final score: %d. Press enter to play again.", sim.Score())))
	case game.StateRunning:
		b.WriteString(infoStyle.Render("Higher pitch moves the ball up."))
	}
	b.WriteString("\n")

	if n := m.session.Notice(); n != "" {
		b.WriteString(noticeStyle.Render(n))
		b.WriteString("\n")
	}
	b.WriteString(infoStyle.Render("enter: start  q: quit"))
	return b.String()
}

type cell struct {
	r     rune
	style *lipgloss.Style
}

// renderField rasterizes the simulation onto a cols x rows character grid
func renderField(sim *game.Simulation, cols, rows int) string {
	cfg := sim.Config()
	sx := cfg.Width / float64(cols)
	sy := cfg.Height / float64(rows)
	row := func(y float64) int {
		return max(0, min(rows-1, int(y/sy)))
	}

	grid := make([][]cell, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		for c := range grid[r] {
			grid[r][c] = cell{r: ' '}
		}
	}

	for _, line := range sim.ReferenceLines() {
		r := row(line.Y)
		for c := range grid[r] {
			grid[r][c] = cell{r: '·', style: &guideStyle}
		}
	}

	for _, o := range sim.Obstacles() {
		first := int(math.Floor(o.X / sx))
		last := int(math.Ceil((o.X+cfg.ObstacleWidth)/sx)) - 1
		for c := max(0, first); c <= min(cols-1, last); c++ {
			for r := 0; r < rows; r++ {
				y := (float64(r) + 0.5) * sy
				if y < o.GapTop() || y > o.GapBottom() {
					grid[r][c] = cell{r: '█', style: &wallStyle}
				}
			}
		}

		label := lipgloss.NewStyle().Bold(true).Foreground(noteColor(o.Note[:1]))
		r := row(o.GapCenter)
		for i, ch := range o.Note {
			if c := first + i; c >= 0 && c < cols {
				grid[r][c] = cell{r: ch, style: &label}
			}
		}
	}

	ball := lipgloss.NewStyle().Bold(true).Foreground(noteColor(pitch.NoteName(sim.LastPitch().Hz())))
	bc := max(0, min(cols-1, int(cfg.PlayerX/sx)))
	grid[row(sim.PlayerY())][bc] = cell{r: '●', style: &ball}

	lines := make([]string, rows)
	for r := range grid {
		var b strings.Builder
		for _, c := range grid[r] {
			if c.style == nil {
				b.WriteRune(c.r)
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}
