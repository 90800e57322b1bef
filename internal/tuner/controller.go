// Package tuner turns a live capture stream into a tuning display and lets
// the user toggle reference tones for the open guitar strings.
package tuner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/pitch"
)

// ErrUnknownString is returned for reference string indexes outside GuitarStrings
var ErrUnknownString = errors.New("unknown guitar string")

// State is the capture state of the tuner
type State int

const (
	StateIdle State = iota
	StateListening
)

func (s State) String() string {
	if s == StateListening {
		return "listening"
	}
	return "idle"
}

// Config tunes the display behaviour
type Config struct {
	InTuneCents    int     // |cents| below this is in tune
	Smoothing      float64 // EMA weight of each new estimate for the smoothed frequency
	MatchTolerance float64 // Hz distance for a reading to match a guitar string
}

// DefaultConfig returns the standard tuner settings
func DefaultConfig() Config {
	return Config{
		InTuneCents:    5,
		Smoothing:      0.2,
		MatchTolerance: 10,
	}
}

// Display is what the tuner shows for the latest valid reading
type Display struct {
	Note     string // pitch class, "--" when nothing was detected
	Octave   int
	Hz       int // rounded estimate
	Smoothed float64
	Cents    int
	InTune   bool
	String   int // index into pitch.GuitarStrings, -1 when no string matches
}

// EmptyDisplay is shown while idle and before the first detection
var EmptyDisplay = Display{Note: "--", String: -1}

// Empty reports whether d holds no reading
func (d Display) Empty() bool {
	return d.Note == EmptyDisplay.Note
}

// Player plays one reference tone at a time
type Player interface {
	Play(freq float64) error
	Stop()
	Active() (float64, bool)
}

// Controller is the tuner state machine. All methods are called from the
// tick goroutine.
type Controller struct {
	capturer audio.Capturer
	detector pitch.Detector
	player   Player
	logger   *slog.Logger
	cfg      Config

	state   State
	stream  audio.Stream
	display Display
	rms     float32
	db      float32
	notice  string
	playing int
}

// NewController creates an idle tuner. player may be nil when no output
// device is available.
func NewController(capturer audio.Capturer, detector pitch.Detector, player Player, logger *slog.Logger, cfg Config) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		capturer: capturer,
		detector: detector,
		player:   player,
		logger:   logger,
		cfg:      cfg,
		display:  EmptyDisplay,
		db:       audio.SilenceDB,
		playing:  -1,
	}
}

// State returns the capture state
func (c *Controller) State() State { return c.state }

// Display returns the current reading
func (c *Controller) Display() Display { return c.display }

// Level returns the RMS and dBFS of the last captured frame
func (c *Controller) Level() (rms, db float32) { return c.rms, c.db }

// Notice returns the last user-facing message
func (c *Controller) Notice() string { return c.notice }

// Start acquires the input device and enters Listening
func (c *Controller) Start() error {
	if c.state == StateListening {
		return nil
	}

	stream, err := c.capturer.Start()
	if err != nil {
		c.notice = "Microphone unavailable: allow microphone access to tune."
		c.logger.Warn("tuner start refused", "err", err)
		return fmt.Errorf("start tuner: %w", err)
	}

	c.stream = stream
	c.state = StateListening
	c.notice = ""
	c.logger.Info("tuner listening")
	return nil
}

// Stop releases the input device and clears the display
func (c *Controller) Stop() error {
	if c.state != StateListening {
		return nil
	}

	err := c.stream.Stop()
	c.stream = nil
	c.state = StateIdle
	c.display = EmptyDisplay
	c.rms, c.db = 0, audio.SilenceDB
	if err != nil {
		c.logger.Warn("releasing input device", "err", err)
		return fmt.Errorf("stop tuner: %w", err)
	}
	c.logger.Info("tuner stopped")
	return nil
}

// Toggle switches between Idle and Listening
func (c *Controller) Toggle() error {
	if c.state == StateListening {
		return c.Stop()
	}
	return c.Start()
}

// Tick pulls the latest frame and updates the display. A frame without a
// pitch keeps the previous reading.
func (c *Controller) Tick() Display {
	if c.state != StateListening {
		return c.display
	}

	buf, ok := c.stream.GetBuffer()
	if !ok {
		return c.display
	}
	c.rms, c.db = audio.Level(buf)

	est := c.detector.Detect(buf)
	if !est.Valid() {
		return c.display
	}
	c.update(est.Hz())
	return c.display
}

func (c *Controller) update(freq float64) {
	note, ok := pitch.FrequencyToNote(freq)
	if !ok {
		return
	}

	smoothed := freq
	if !c.display.Empty() {
		smoothed = c.display.Smoothed + c.cfg.Smoothing*(freq-c.display.Smoothed)
	}

	hz := int(math.Round(freq))
	c.display = Display{
		Note:     note.Name,
		Octave:   note.Octave,
		Hz:       hz,
		Smoothed: smoothed,
		Cents:    note.Cents,
		InTune:   note.InTune(c.cfg.InTuneCents),
		String:   c.matchString(note.Name, float64(hz)),
	}
}

// matchString returns the guitar string with the same pitch class within
// MatchTolerance Hz
func (c *Controller) matchString(name string, hz float64) int {
	for i, s := range pitch.GuitarStrings {
		if s.Name == name && math.Abs(hz-s.Frequency) < c.cfg.MatchTolerance {
			return i
		}
	}
	return -1
}

// Playing returns the index of the reference string currently sounding
func (c *Controller) Playing() (int, bool) {
	if c.playing < 0 || c.player == nil {
		return -1, false
	}
	if _, ok := c.player.Active(); !ok {
		c.playing = -1
		return -1, false
	}
	return c.playing, true
}

// ToggleString plays the reference tone of string idx. Asking for the string
// already sounding stops it; asking for another replaces it.
func (c *Controller) ToggleString(idx int) error {
	if idx < 0 || idx >= len(pitch.GuitarStrings) {
		return fmt.Errorf("%w: %d", ErrUnknownString, idx)
	}
	if c.player == nil {
		return fmt.Errorf("reference tone: %w", audio.ErrDeviceUnavailable)
	}

	if current, ok := c.Playing(); ok && current == idx {
		c.player.Stop()
		c.playing = -1
		return nil
	}

	s := pitch.GuitarStrings[idx]
	if err := c.player.Play(s.Frequency); err != nil {
		c.logger.Warn("reference tone failed", "string", s.Label, "err", err)
		return fmt.Errorf("reference tone %s: %w", s.Label, err)
	}
	c.playing = idx
	return nil
}

// Close stops capture and any sounding tone
func (c *Controller) Close() error {
	if c.player != nil {
		c.player.Stop()
		c.playing = -1
	}
	return c.Stop()
}
