package game

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/pitch"
)

// Recorder receives game outcome events
type Recorder interface {
	RecordObstaclesPassed(n int)
	RecordGameOver(score int)
}

// Session runs a Simulation from live audio. It owns the capture stream for
// exactly as long as the simulation is Running.
type Session struct {
	capturer audio.Capturer
	detector pitch.Detector
	sim      *Simulation
	logger   *slog.Logger
	recorder Recorder

	stream audio.Stream
	runID  uuid.UUID
	notice string
}

// NewSession creates an idle session
func NewSession(capturer audio.Capturer, detector pitch.Detector, sim *Simulation, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		capturer: capturer,
		detector: detector,
		sim:      sim,
		logger:   logger,
	}
}

// SetRecorder attaches an outcome recorder
func (s *Session) SetRecorder(r Recorder) {
	s.recorder = r
}

// Simulation returns the underlying simulation for rendering
func (s *Session) Simulation() *Simulation {
	return s.sim
}

// Notice returns the last user-facing message, e.g. a permission failure
func (s *Session) Notice() string {
	return s.notice
}

// RunID identifies the current or last run in logs
func (s *Session) RunID() uuid.UUID {
	return s.runID
}

// Start acquires the input device and starts a fresh run. On failure the
// simulation is left untouched and a notice is set.
func (s *Session) Start() error {
	if s.sim.State() == StateRunning {
		return nil
	}

	stream, err := s.capturer.Start()
	if err != nil {
		s.notice = "Microphone unavailable: allow microphone access to play."
		s.logger.Warn("game start refused", "err", err)
		return fmt.Errorf("start game: %w", err)
	}

	s.stream = stream
	s.runID = uuid.New()
	s.notice = ""
	s.sim.Start()
	s.logger.Info("game started", "run_id", s.runID)
	return nil
}

// Tick advances the game by one display frame. It is a no-op unless running.
func (s *Session) Tick() Events {
	if s.sim.State() != StateRunning || s.stream == nil {
		return Events{}
	}

	est := pitch.NoPitch
	if buf, ok := s.stream.GetBuffer(); ok {
		est = s.detector.Detect(buf)
	}

	ev := s.sim.Step(est)
	if ev.Passed > 0 && s.recorder != nil {
		s.recorder.RecordObstaclesPassed(ev.Passed)
	}
	if ev.Collided {
		s.logger.Info("game over", "run_id", s.runID, "score", s.sim.Score())
		if s.recorder != nil {
			s.recorder.RecordGameOver(s.sim.Score())
		}
		s.release()
	}
	return ev
}

// Stop aborts a running game and releases the device
func (s *Session) Stop() error {
	s.sim.Abort()
	return s.release()
}

func (s *Session) release() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Stop()
	s.stream = nil
	if err != nil {
		s.logger.Warn("releasing input device", "err", err)
	}
	return err
}
