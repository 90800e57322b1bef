package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// ErrDeviceUnavailable is returned when an input or output device cannot
// be acquired (permission denied, busy, missing).
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// DefaultWindowSize is the analysis window used by the tuner and the game
const DefaultWindowSize = 2048

// AudioBuffer represents one captured frame of mono audio samples.
// A buffer handed out by a Stream is never written again.
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Capturer opens capture streams on an input device
type Capturer interface {
	// Start acquires the device and begins capture. Failures wrap
	// ErrDeviceUnavailable.
	Start() (Stream, error)
}

// Stream is a running capture. Stop releases the device; calling it more
// than once returns the result of the first call.
type Stream interface {
	// GetBuffer returns the most recent complete frame, or false when no
	// frame has been captured yet. It never blocks.
	GetBuffer() (*AudioBuffer, bool)

	// Stop ends capture and releases the device
	Stop() error
}

// FrameSlot holds the latest captured frame. One goroutine stores, one
// loads; older frames are overwritten, never queued.
type FrameSlot struct {
	latest atomic.Pointer[AudioBuffer]
}

// Store publishes buf as the latest frame
func (s *FrameSlot) Store(buf *AudioBuffer) {
	s.latest.Store(buf)
}

// Load returns the latest frame, if any
func (s *FrameSlot) Load() (*AudioBuffer, bool) {
	buf := s.latest.Load()
	return buf, buf != nil
}

// Reset drops the stored frame
func (s *FrameSlot) Reset() {
	s.latest.Store(nil)
}

// SignalFunc returns the sample value at time t (seconds)
type SignalFunc func(t float64) float64

// Sine returns a SignalFunc for a pure sine of the given frequency and peak amplitude
func Sine(freq, amplitude float64) SignalFunc {
	return func(t float64) float64 {
		return amplitude * math.Sin(2*math.Pi*freq*t)
	}
}

// Silence is a SignalFunc that always returns zero
func Silence(float64) float64 { return 0 }

// SyntheticCapturer produces frames from a generator function instead of a
// device. It is used for headless runs and tests.
type SyntheticCapturer struct {
	windowSize int
	sampleRate int

	mu     sync.Mutex
	signal SignalFunc
	clock  int64 // samples generated so far
	denied bool
	open   int
}

// NewSyntheticCapturer creates a capturer that renders signal at sampleRate
func NewSyntheticCapturer(windowSize, sampleRate int, signal SignalFunc) *SyntheticCapturer {
	if signal == nil {
		signal = Silence
	}
	return &SyntheticCapturer{
		windowSize: windowSize,
		sampleRate: sampleRate,
		signal:     signal,
	}
}

// SetSignal swaps the generator. Subsequent frames continue from the
// current clock so phase stays continuous.
func (c *SyntheticCapturer) SetSignal(signal SignalFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if signal == nil {
		signal = Silence
	}
	c.signal = signal
}

// Deny makes subsequent Start calls fail as if permission was refused
func (c *SyntheticCapturer) Deny(denied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denied = denied
}

// Start begins synthetic capture
func (c *SyntheticCapturer) Start() (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denied {
		return nil, fmt.Errorf("%w: permission denied", ErrDeviceUnavailable)
	}
	c.open++
	return &syntheticStream{capturer: c}, nil
}

// Open returns the number of streams started and not yet stopped
func (c *SyntheticCapturer) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// render produces the next frame
func (c *SyntheticCapturer) render() *AudioBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := &AudioBuffer{
		Samples:    make([]float32, c.windowSize),
		SampleRate: c.sampleRate,
	}
	for i := range buf.Samples {
		t := float64(c.clock+int64(i)) / float64(c.sampleRate)
		buf.Samples[i] = float32(c.signal(t))
	}
	c.clock += int64(c.windowSize)
	return buf
}

type syntheticStream struct {
	capturer *SyntheticCapturer
	stopped  atomic.Bool
}

// GetBuffer renders a fresh frame on every call
func (s *syntheticStream) GetBuffer() (*AudioBuffer, bool) {
	if s.stopped.Load() {
		return nil, false
	}
	return s.capturer.render(), true
}

// Stop marks the stream as released
func (s *syntheticStream) Stop() error {
	if s.stopped.Swap(true) {
		return nil
	}
	s.capturer.mu.Lock()
	s.capturer.open--
	s.capturer.mu.Unlock()
	return nil
}
