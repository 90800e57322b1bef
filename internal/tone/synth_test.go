package tone

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 8000

type fakeSink struct {
	starts int
	stops  int
	err    error
	fill   func([]float32)
}

func (f *fakeSink) Start(fill func([]float32)) error {
	if f.err != nil {
		return f.err
	}
	f.starts++
	f.fill = fill
	return nil
}

func (f *fakeSink) Stop() error {
	f.stops++
	return nil
}

type reasons []string

func (r *reasons) RecordVoice(reason string) { *r = append(*r, reason) }

func TestEnvelopeShape(t *testing.T) {
	env := DefaultEnvelope

	g, ok := env.Gain(0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, g)

	g, _ = env.Gain(50 * time.Millisecond)
	assert.InDelta(t, 0.15, g, 1e-9)

	g, _ = env.Gain(100 * time.Millisecond)
	assert.InDelta(t, 0.3, g, 1e-9)

	mid, _ := env.Gain(2 * time.Second)
	assert.Less(t, mid, 0.3)
	assert.Greater(t, mid, 0.01)

	g, ok = env.Gain(4 * time.Second)
	assert.True(t, ok)
	assert.InDelta(t, 0.01, g, 1e-9)

	_, ok = env.Gain(4*time.Second + time.Millisecond)
	assert.False(t, ok)
}

func TestSecondPlayReplacesVoice(t *testing.T) {
	sink := &fakeSink{}
	rec := &reasons{}
	s := NewSynthesizer(testRate, sink, nil)
	s.SetRecorder(rec)

	require.NoError(t, s.Play(110))
	first := make([]float32, 400)
	s.Fill(first)

	require.NoError(t, s.Play(220))
	freq, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, 220.0, freq)

	// the output is exactly a fresh 220 Hz voice, nothing of the first one
	got := make([]float32, 800)
	s.Fill(got)
	want := make([]float32, 800)
	newVoice(220, testRate, DefaultEnvelope).render(want)
	assert.Equal(t, want, got)

	assert.Equal(t, 1, sink.starts, "sink is started once")
	assert.Equal(t, []string{"start", "preempt", "start"}, []string(*rec))
}

func TestVoiceSilencesAfterEnvelope(t *testing.T) {
	s := NewSynthesizer(testRate, nil, nil)
	require.NoError(t, s.Play(196))
	assert.Equal(t, StageAttack, s.Stage())

	buf := make([]float32, testRate) // one second
	s.Fill(buf)
	assert.Equal(t, StageDecay, s.Stage())

	for i := 0; i < 3; i++ {
		s.Fill(buf)
	}
	_, ok := s.Active()
	assert.True(t, ok, "still sounding at exactly 4s")

	s.Fill(buf)
	_, ok = s.Active()
	assert.False(t, ok)
	assert.Equal(t, StageDone, s.Stage())
	for _, v := range buf[1:] {
		require.Equal(t, float32(0), v)
	}
}

func TestStopReleasesQuickly(t *testing.T) {
	s := NewSynthesizer(testRate, nil, nil)
	require.NoError(t, s.Play(329.63))

	buf := make([]float32, testRate/2)
	s.Fill(buf)
	s.Stop()
	assert.Equal(t, StageRelease, s.Stage())

	// 100ms release at 8kHz is 800 samples
	tail := make([]float32, 1000)
	s.Fill(tail)
	_, ok := s.Active()
	assert.False(t, ok)
	for _, v := range tail[800:] {
		assert.Equal(t, float32(0), v)
	}

	// stopping with nothing sounding is harmless
	s.Stop()
}

func TestPlayRejectsInvalidFrequency(t *testing.T) {
	s := NewSynthesizer(testRate, nil, nil)
	for _, f := range []float64{0, -10, testRate} {
		err := s.Play(f)
		assert.True(t, errors.Is(err, ErrInvalidFrequency), "%v Hz", f)
	}
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestPlaySinkFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("busy")}
	s := NewSynthesizer(testRate, sink, nil)
	assert.Error(t, s.Play(440))
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestCloseStopsSink(t *testing.T) {
	sink := &fakeSink{}
	s := NewSynthesizer(testRate, sink, nil)
	require.NoError(t, s.Close())
	assert.Equal(t, 0, sink.stops, "never started")

	require.NoError(t, s.Play(440))
	require.NoError(t, s.Close())
	assert.Equal(t, 1, sink.stops)
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestCloseDrainsRelease(t *testing.T) {
	sink := &fakeSink{}
	s := NewSynthesizer(testRate, sink, nil)
	require.NoError(t, s.Play(440))
	fill := sink.fill

	// render the attack, then keep pulling buffers like an output device
	warm := make([]float32, testRate/20)
	fill(warm)

	var rendered []float32
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]float32, 64)
		for {
			fill(buf)
			rendered = append(rendered, buf...)
			if _, ok := s.Active(); !ok {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.NoError(t, s.Close())
	<-done
	assert.Equal(t, 1, sink.stops)

	// the release ramps down to silence instead of cutting off
	last := -1
	for i, v := range rendered {
		if v != 0 {
			last = i
		}
	}
	require.Greater(t, last, 64)
	assert.Greater(t, peakOf(rendered[:64]), float32(0.05))
	assert.Less(t, peakOf(rendered[last-64:last+1]), float32(0.03))
}

func peakOf(samples []float32) float32 {
	var peak float32
	for _, v := range samples {
		peak = max(peak, abs32(v))
	}
	return peak
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTriangleRange(t *testing.T) {
	assert.Equal(t, -1.0, triangle(0))
	assert.Equal(t, 1.0, triangle(0.5))
	assert.Equal(t, 0.0, triangle(0.25))
}
