package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/pitch"
)

type outcomes struct {
	passed int
	overs  []int
}

func (o *outcomes) RecordObstaclesPassed(n int) { o.passed += n }
func (o *outcomes) RecordGameOver(score int)    { o.overs = append(o.overs, score) }

func newTestSession(signal audio.SignalFunc) (*Session, *audio.SyntheticCapturer) {
	capturer := audio.NewSyntheticCapturer(1024, 44100, signal)
	sim := NewSimulation(DefaultConfig(), testSeed)
	return NewSession(capturer, pitch.NewAutocorrelationDetector(), sim, nil), capturer
}

func TestSessionDeniedDevice(t *testing.T) {
	s, capturer := newTestSession(audio.Silence)
	capturer.Deny(true)

	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrDeviceUnavailable)
	assert.Equal(t, StateIdle, s.Simulation().State())
	assert.Contains(t, s.Notice(), "Microphone unavailable")
	assert.Equal(t, 0, capturer.Open())

	// ticking without a device does nothing
	assert.Equal(t, Events{}, s.Tick())

	// the next attempt succeeds once access is granted
	capturer.Deny(false)
	require.NoError(t, s.Start())
	assert.Empty(t, s.Notice())
	assert.Equal(t, 1, capturer.Open())
	require.NoError(t, s.Stop())
}

func TestSessionReleasesDeviceOnGameOver(t *testing.T) {
	s, capturer := newTestSession(audio.Sine(1000, 0.5))
	rec := &outcomes{}
	s.SetRecorder(rec)

	require.NoError(t, s.Start())
	first := s.RunID()
	assert.NotEqual(t, uuid.Nil, first)
	assert.Equal(t, 1, capturer.Open())

	collided := false
	for i := 0; i < 1000 && !collided; i++ {
		collided = s.Tick().Collided
	}
	require.True(t, collided)
	assert.Equal(t, StateGameOver, s.Simulation().State())
	assert.Equal(t, 0, capturer.Open(), "stream released on game over")
	assert.Equal(t, []int{0}, rec.overs)

	// a restart re-acquires the device under a new run id
	require.NoError(t, s.Start())
	assert.Equal(t, 1, capturer.Open())
	assert.NotEqual(t, first, s.RunID())
	assert.Equal(t, StateRunning, s.Simulation().State())

	require.NoError(t, s.Stop())
	assert.Equal(t, 0, capturer.Open())
	assert.Equal(t, StateIdle, s.Simulation().State())
}

func TestSessionSilenceDropsBall(t *testing.T) {
	s, capturer := newTestSession(audio.Silence)
	require.NoError(t, s.Start())

	s.Tick()
	assert.InDelta(t, 210, s.Simulation().PlayerY(), 1e-9)
	assert.Equal(t, "", s.Simulation().Note())

	capturer.SetSignal(audio.Sine(220, 0.5))
	s.Tick()
	assert.Equal(t, "A", s.Simulation().Note())
	require.NoError(t, s.Stop())
}

func TestSessionStartWhileRunning(t *testing.T) {
	s, capturer := newTestSession(audio.Silence)
	require.NoError(t, s.Start())
	id := s.RunID()

	require.NoError(t, s.Start())
	assert.Equal(t, id, s.RunID())
	assert.Equal(t, 1, capturer.Open())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
