// Package tone generates reference tones for ear training. At most one
// voice sounds at a time; a new request replaces the previous voice.
package tone

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	drainPoll  = 5 * time.Millisecond
	drainSlack = 50 * time.Millisecond // output buffer latency
)

// ErrInvalidFrequency is returned for frequencies that cannot be rendered
// at the synthesizer's sample rate
var ErrInvalidFrequency = errors.New("invalid tone frequency")

// Envelope shapes a voice: a linear attack to Peak, then an exponential
// decay reaching Floor at Decay (measured from the start of the voice).
// Release is the linear fade applied when a voice is stopped early.
type Envelope struct {
	Attack  time.Duration
	Peak    float64
	Decay   time.Duration
	Floor   float64
	Release time.Duration
}

// DefaultEnvelope is a plucked-string like shape with a long tail
var DefaultEnvelope = Envelope{
	Attack:  100 * time.Millisecond,
	Peak:    0.3,
	Decay:   4 * time.Second,
	Floor:   0.01,
	Release: 100 * time.Millisecond,
}

// Gain returns the envelope gain t after the voice started, and false once
// the envelope has completed
func (e Envelope) Gain(t time.Duration) (float64, bool) {
	switch {
	case t < 0:
		return 0, true
	case t <= e.Attack:
		if e.Attack == 0 {
			return e.Peak, true
		}
		return e.Peak * float64(t) / float64(e.Attack), true
	case t <= e.Decay:
		span := float64(e.Decay - e.Attack)
		progress := float64(t-e.Attack) / span
		return e.Peak * math.Pow(e.Floor/e.Peak, progress), true
	default:
		return 0, false
	}
}

// Stage is the envelope stage of a voice
type Stage int

const (
	StageAttack Stage = iota
	StageDecay
	StageRelease
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageRelease:
		return "release"
	default:
		return "done"
	}
}

// Voice is one sounding triangle-wave tone
type Voice struct {
	frequency  float64
	sampleRate int
	env        Envelope

	phase   float64 // oscillator phase in [0, 1)
	elapsed int64   // samples rendered

	releasing   bool
	releaseFrom float64 // gain when the release began
	releaseLeft int64   // samples until silence
	releaseLen  int64
}

func newVoice(freq float64, sampleRate int, env Envelope) *Voice {
	return &Voice{frequency: freq, sampleRate: sampleRate, env: env}
}

// Frequency returns the voice frequency in Hz
func (v *Voice) Frequency() float64 {
	return v.frequency
}

// Stage returns the current envelope stage
func (v *Voice) Stage() Stage {
	switch {
	case v.releasing && v.releaseLeft > 0:
		return StageRelease
	case v.releasing:
		return StageDone
	}
	t := v.time()
	switch {
	case t <= v.env.Attack:
		return StageAttack
	case t <= v.env.Decay:
		return StageDecay
	default:
		return StageDone
	}
}

func (v *Voice) time() time.Duration {
	return time.Duration(v.elapsed) * time.Second / time.Duration(v.sampleRate)
}

// release starts the early fade out from the current gain
func (v *Voice) release() {
	if v.releasing {
		return
	}
	g, ok := v.env.Gain(v.time())
	if !ok {
		g = 0
	}
	v.releasing = true
	v.releaseFrom = g
	v.releaseLen = int64(v.env.Release.Seconds() * float64(v.sampleRate))
	v.releaseLeft = v.releaseLen
}

// gain returns the gain for the next sample and whether the voice is still sounding
func (v *Voice) gain() (float64, bool) {
	if v.releasing {
		if v.releaseLeft <= 0 {
			return 0, false
		}
		g := v.releaseFrom * float64(v.releaseLeft) / float64(v.releaseLen)
		v.releaseLeft--
		return g, true
	}
	return v.env.Gain(v.time())
}

// render writes the voice into out and reports whether it has finished
func (v *Voice) render(out []float32) bool {
	step := v.frequency / float64(v.sampleRate)
	for i := range out {
		g, ok := v.gain()
		if !ok {
			clear(out[i:])
			return true
		}
		out[i] = float32(g * triangle(v.phase))
		_, v.phase = math.Modf(v.phase + step)
		v.elapsed++
	}
	return v.Stage() == StageDone
}

// triangle maps a phase in [0, 1) to a triangle wave in [-1, 1]
func triangle(phase float64) float64 {
	return 1 - 4*math.Abs(phase-0.5)
}

// Sink is an audio output that pulls samples through fill
type Sink interface {
	Start(fill func(out []float32)) error
	Stop() error
}

// Recorder is notified of voice lifecycle events
type Recorder interface {
	RecordVoice(reason string)
}

// Synthesizer owns at most one Voice and renders it into a Sink
type Synthesizer struct {
	sampleRate int
	env        Envelope
	sink       Sink
	logger     *slog.Logger
	recorder   Recorder

	mu      sync.Mutex
	voice   *Voice
	started bool
}

// NewSynthesizer creates a synthesizer. The sink is started on the first
// Play; a nil sink renders only through Fill.
func NewSynthesizer(sampleRate int, sink Sink, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		sampleRate: sampleRate,
		env:        DefaultEnvelope,
		sink:       sink,
		logger:     logger,
	}
}

// SetEnvelope replaces the envelope used for new voices
func (s *Synthesizer) SetEnvelope(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

// SetRecorder attaches a lifecycle recorder
func (s *Synthesizer) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Play starts a tone at freq, cutting off any voice already sounding
func (s *Synthesizer) Play(freq float64) error {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) || freq >= float64(s.sampleRate)/2 {
		return fmt.Errorf("%w: %.2f Hz at %d Hz sample rate", ErrInvalidFrequency, freq, s.sampleRate)
	}

	if err := s.ensureStarted(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voice != nil {
		s.logger.Debug("tone preempted", "frequency", s.voice.frequency, "stage", s.voice.Stage().String())
		s.record("preempt")
	}
	s.voice = newVoice(freq, s.sampleRate, s.env)
	s.record("start")
	s.logger.Debug("tone started", "frequency", freq)
	return nil
}

// Stop fades out the active voice, if any
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		return
	}
	s.voice.release()
	s.record("stop")
}

// Active returns the frequency of the sounding voice
func (s *Synthesizer) Active() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		return 0, false
	}
	return s.voice.frequency, true
}

// Stage returns the sounding voice's stage, or StageDone when silent
func (s *Synthesizer) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice == nil {
		return StageDone
	}
	return s.voice.Stage()
}

// Fill renders the active voice into out. It is called from the audio
// thread and fills silence when no voice is active.
func (s *Synthesizer) Fill(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voice == nil {
		clear(out)
		return
	}
	if s.voice.render(out) {
		s.voice = nil
	}
}

// Close fades out the active voice, waits for the sink to render the
// release and then releases the sink
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	started := s.started
	var wait time.Duration
	if s.voice != nil && started {
		s.voice.release()
		wait = s.voice.env.Release + drainSlack
	}
	s.mu.Unlock()

	if wait > 0 {
		s.drain(wait)
	}

	s.mu.Lock()
	s.voice = nil
	s.started = false
	s.mu.Unlock()

	if s.sink == nil || !started {
		return nil
	}
	return s.sink.Stop()
}

// drain polls until Fill has retired the voice or limit elapses
func (s *Synthesizer) drain(limit time.Duration) {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		if _, ok := s.Active(); !ok {
			return
		}
		time.Sleep(drainPoll)
	}
	s.logger.Debug("tone release not drained", "limit", limit)
}

func (s *Synthesizer) ensureStarted() error {
	s.mu.Lock()
	if s.sink == nil || s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// the sink may invoke Fill synchronously, so start it unlocked
	if err := s.sink.Start(s.Fill); err != nil {
		return fmt.Errorf("tone output: %w", err)
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Synthesizer) record(reason string) {
	if s.recorder != nil {
		s.recorder.RecordVoice(reason)
	}
}
