package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements audio capture using PortAudio
type PortAudioCapturer struct {
	bufferSize    int
	sampleRate    int
	channels      int
	amplification float32 // Audio signal amplification factor
	logger        *slog.Logger
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
// The device is not touched until Start.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int, logger *slog.Logger) *PortAudioCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioCapturer{
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 1.0,
		logger:        logger,
	}
}

// SetAmplification sets the audio amplification factor applied to new streams
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}
	c.amplification = factor
}

// Start initialises PortAudio and opens the default input stream. Every
// partially acquired resource is released again on failure.
func (c *PortAudioCapturer) Start() (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceUnavailable, err)
	}

	s := &portAudioStream{
		channels:      c.channels,
		sampleRate:    c.sampleRate,
		amplification: c.amplification,
		logger:        c.logger,
	}

	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.bufferSize, // frames per buffer
		s.processAudio,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open input: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start input: %v", ErrDeviceUnavailable, err)
	}
	s.stream = stream

	c.logger.Info("audio capture started",
		"sample_rate", c.sampleRate,
		"window", c.bufferSize,
		"channels", c.channels,
	)
	return s, nil
}

// portAudioStream is one acquired input device
type portAudioStream struct {
	stream        *portaudio.Stream
	slot          FrameSlot
	channels      int
	sampleRate    int
	amplification float32
	logger        *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// processAudio runs on the PortAudio thread. Each call publishes a fresh
// buffer so readers never observe a frame being overwritten.
func (s *portAudioStream) processAudio(in []float32) {
	frames := len(in) / s.channels
	buf := &AudioBuffer{
		Samples:    make([]float32, frames),
		SampleRate: s.sampleRate,
	}

	// If we have multi-channel input, we'll average the channels
	if s.channels > 1 {
		for i := 0; i < frames; i++ {
			sum := float32(0)
			for ch := 0; ch < s.channels; ch++ {
				sum += in[i*s.channels+ch]
			}
			buf.Samples[i] = (sum / float32(s.channels)) * s.amplification
		}
	} else {
		for i, sample := range in {
			buf.Samples[i] = sample * s.amplification
		}
	}

	s.slot.Store(buf)
}

// GetBuffer returns the most recent complete frame
func (s *portAudioStream) GetBuffer() (*AudioBuffer, bool) {
	return s.slot.Load()
}

// Stop stops and closes the stream, then terminates PortAudio
func (s *portAudioStream) Stop() error {
	s.stopOnce.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.stopErr = fmt.Errorf("stop input: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.stopErr == nil {
			s.stopErr = fmt.Errorf("close input: %w", err)
		}
		if err := portaudio.Terminate(); err != nil && s.stopErr == nil {
			s.stopErr = fmt.Errorf("terminate: %w", err)
		}
		s.slot.Reset()
		s.logger.Info("audio capture stopped")
	})
	return s.stopErr
}

// PortAudioOutput plays mono samples on the default output device. The
// fill function runs on the PortAudio thread.
type PortAudioOutput struct {
	sampleRate      int
	framesPerBuffer int
	logger          *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioOutput creates an output that is opened lazily by Start
func NewPortAudioOutput(sampleRate, framesPerBuffer int, logger *slog.Logger) *PortAudioOutput {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioOutput{
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}
}

// SampleRate returns the output sample rate
func (o *PortAudioOutput) SampleRate() int {
	return o.sampleRate
}

// Start opens the default output stream. It is a no-op when already running.
func (o *PortAudioOutput) Start(fill func(out []float32)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize: %v", ErrDeviceUnavailable, err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(o.sampleRate), o.framesPerBuffer, fill)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: open output: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start output: %v", ErrDeviceUnavailable, err)
	}
	o.stream = stream
	o.logger.Debug("audio output started", "sample_rate", o.sampleRate)
	return nil
}

// Stop closes the output stream, if open
func (o *PortAudioOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream == nil {
		return nil
	}

	err := o.stream.Stop()
	if cerr := o.stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	o.stream = nil
	o.logger.Debug("audio output stopped")
	return err
}
