package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/game"
	"github.com/0xlemi/tunearcade/internal/pitch"
	"github.com/0xlemi/tunearcade/internal/tone"
	"github.com/0xlemi/tunearcade/internal/tuner"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTuner(t *testing.T) (TunerModel, *tuner.Controller, *audio.SyntheticCapturer) {
	t.Helper()
	capturer := audio.NewSyntheticCapturer(2048, 44100, audio.Sine(440, 0.5))
	synth := tone.NewSynthesizer(8000, nil, nil)
	ctrl := tuner.NewController(capturer, pitch.NewAutocorrelationDetector(), synth, nil, tuner.DefaultConfig())
	return NewTunerModel(ctrl), ctrl, capturer
}

func TestTunerStartsOnInit(t *testing.T) {
	m, ctrl, capturer := newTuner(t)

	next, cmd := m.Update(m.Init()())
	require.NotNil(t, cmd)
	assert.Equal(t, tuner.StateListening, ctrl.State())
	assert.Equal(t, 1, capturer.Open())

	tm := next.(TunerModel)
	next, cmd = tm.Update(tickMsg{gen: tm.gen})
	assert.NotNil(t, cmd, "live ticks reschedule")
	assert.Equal(t, "A", ctrl.Display().Note)
	assert.Contains(t, next.View(), "Hz")
}

func TestTunerDropsStaleTick(t *testing.T) {
	m, ctrl, capturer := newTuner(t)
	next, _ := m.Update(startMsg{})
	stale := next.(TunerModel).gen

	next, _ = next.Update(key(" "))
	assert.Equal(t, tuner.StateIdle, ctrl.State())
	assert.Equal(t, 0, capturer.Open())

	// a tick scheduled before the stop must not restart polling
	_, cmd := next.Update(tickMsg{gen: stale})
	assert.Nil(t, cmd)
	assert.Equal(t, tuner.EmptyDisplay, ctrl.Display())

	// restarting issues a new generation
	next, _ = next.Update(key(" "))
	assert.NotEqual(t, stale, next.(TunerModel).gen)
	_, cmd = next.Update(tickMsg{gen: stale})
	assert.Nil(t, cmd)
}

func TestTunerDeniedShowsNotice(t *testing.T) {
	m, _, capturer := newTuner(t)
	capturer.Deny(true)

	next, cmd := m.Update(startMsg{})
	assert.Nil(t, cmd)
	assert.Contains(t, next.View(), "Microphone unavailable")
}

func TestTunerStringKeys(t *testing.T) {
	m, ctrl, _ := newTuner(t)

	_, cmd := m.Update(key("2"))
	assert.NotNil(t, cmd)
	idx, ok := ctrl.Playing()
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	m.Update(key("2"))
	_, ok = ctrl.Playing()
	assert.False(t, ok)
}

func TestGameLifecycle(t *testing.T) {
	capturer := audio.NewSyntheticCapturer(1024, 44100, audio.Sine(1000, 0.5))
	session := game.NewSession(capturer, pitch.NewAutocorrelationDetector(), game.NewSimulation(game.DefaultConfig(), 1), nil)
	var m tea.Model = NewGameModel(session)
	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "Press enter to start")

	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, capturer.Open())

	// drive ticks until the ball hits a wall
	for i := 0; i < 1000 && cmd != nil; i++ {
		m, cmd = m.Update(tickMsg{gen: m.(GameModel).gen})
	}
	assert.Nil(t, cmd)
	assert.Equal(t, game.StateGameOver, session.Simulation().State())
	assert.Equal(t, 0, capturer.Open())
	assert.Contains(t, m.View(), "Game over")
}

func TestRenderField(t *testing.T) {
	sim := game.NewSimulation(game.DefaultConfig(), 1)
	sim.Start()
	for i := 0; i < 50; i++ {
		sim.Step(pitch.Estimate(220))
	}

	out := renderField(sim, 40, 10)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, 1, strings.Count(out, "●"))
	assert.Contains(t, out, "█")
	assert.Contains(t, out, sim.Obstacles()[0].Note)
}

func TestNoteBadge(t *testing.T) {
	assert.Contains(t, noteBadge("A"), "A")
	assert.Contains(t, noteBadge("--"), "--")
	sharp := noteBadge("C#")
	assert.Contains(t, sharp, "C")
	assert.Contains(t, sharp, "#")
	assert.Equal(t, "D", nextNatural("C"))
	assert.Equal(t, "C", nextNatural("B"))
}

func TestGaugeMarker(t *testing.T) {
	assert.NotContains(t, gauge(tuner.EmptyDisplay), "▲")
	assert.Contains(t, gauge(tuner.Display{Note: "A", Cents: 12, String: -1}), "▲")
	assert.Contains(t, gauge(tuner.Display{Note: "A", Cents: -50, String: -1}), "▲")
}
