// Package game implements the pitch-steered obstacle course. Simulation is
// a pure fixed-step state machine; Session binds it to a capture stream.
package game

import (
	"math/rand"

	"github.com/0xlemi/tunearcade/internal/pitch"
)

// State is the lifecycle state of a game
type State int

const (
	StateIdle State = iota
	StateRunning
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateGameOver:
		return "game over"
	default:
		return "idle"
	}
}

// Config holds the playfield geometry and tuning. Horizontal and vertical
// distances share one unit (canvas pixels); y grows downwards.
type Config struct {
	Width  float64
	Height float64

	PlayerX      float64 // fixed horizontal position of the ball
	PlayerRadius float64
	StartY       float64

	ObstacleWidth float64
	GapHeight     float64
	SpawnDistance float64 // distance from the right edge before the next spawn
	CullMargin    float64 // obstacles further left than -CullMargin are removed

	InitialSpeed float64
	SpeedStep    float64
	SpeedEvery   int // score interval between speed increases

	Follow float64 // fraction of the distance to the target covered per tick
	Fall   float64 // fraction of the distance to the floor covered per silent tick

	MinFrequency     float64 // maps to the bottom of the field
	MaxFrequency     float64 // maps to the top of the field
	SilenceFrequency float64 // estimates below this count as silence
}

// DefaultConfig returns the standard 800x400 field
func DefaultConfig() Config {
	return Config{
		Width:            800,
		Height:           400,
		PlayerX:          100,
		PlayerRadius:     15,
		StartY:           200,
		ObstacleWidth:    40,
		GapHeight:        120,
		SpawnDistance:    300,
		CullMargin:       50,
		InitialSpeed:     3,
		SpeedStep:        0.5,
		SpeedEvery:       5,
		Follow:           0.1,
		Fall:             0.05,
		MinFrequency:     110,
		MaxFrequency:     300,
		SilenceFrequency: 80,
	}
}

// TargetNote is a note an obstacle gap can be tuned to
type TargetNote struct {
	Name      string
	Frequency float64
}

// TargetNotes is the C major scale from C3 to C4
var TargetNotes = []TargetNote{
	{Name: "C3", Frequency: 130.81},
	{Name: "D3", Frequency: 146.83},
	{Name: "E3", Frequency: 164.81},
	{Name: "F3", Frequency: 174.61},
	{Name: "G3", Frequency: 196.00},
	{Name: "A3", Frequency: 220.00},
	{Name: "B3", Frequency: 246.94},
	{Name: "C4", Frequency: 261.63},
}

// LookupTarget returns the target note with the given name
func LookupTarget(name string) (TargetNote, bool) {
	for _, n := range TargetNotes {
		if n.Name == name {
			return n, true
		}
	}
	return TargetNote{}, false
}

// Obstacle is a wall with a gap the ball must pass through
type Obstacle struct {
	ID        int
	X         float64 // left edge
	GapCenter float64
	GapHeight float64
	Note      string // target note label
	Passed    bool
}

// GapTop returns the upper bound of the gap
func (o Obstacle) GapTop() float64 { return o.GapCenter - o.GapHeight/2 }

// GapBottom returns the lower bound of the gap
func (o Obstacle) GapBottom() float64 { return o.GapCenter + o.GapHeight/2 }

// Events reports what happened during one tick
type Events struct {
	Spawned  bool
	Passed   int
	Collided bool
}

// Simulation is the game state. It is not safe for concurrent use; all
// mutation happens on the tick goroutine.
type Simulation struct {
	cfg Config
	rng *rand.Rand

	state     State
	playerY   float64
	velocity  float64 // kept for rendering; position is pitch driven
	obstacles []Obstacle
	speed     float64
	score     int
	nextID    int

	lastPitch pitch.Estimate
	note      string
}

// NewSimulation creates an idle simulation. The seed fixes the sequence of
// obstacle notes.
func NewSimulation(cfg Config, seed int64) *Simulation {
	s := &Simulation{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
	s.reset()
	return s
}

// Config returns the simulation configuration
func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) reset() {
	s.state = StateIdle
	s.playerY = s.cfg.StartY
	s.velocity = 0
	s.obstacles = nil
	s.speed = s.cfg.InitialSpeed
	s.score = 0
	s.nextID = 0
	s.lastPitch = pitch.NoPitch
	s.note = ""
}

// Start re-initialises every field and enters Running
func (s *Simulation) Start() {
	s.reset()
	s.state = StateRunning
}

// Abort leaves Running without a collision
func (s *Simulation) Abort() {
	if s.state == StateRunning {
		s.state = StateIdle
	}
}

// State returns the lifecycle state
func (s *Simulation) State() State { return s.state }

// Score returns the number of obstacles passed
func (s *Simulation) Score() int { return s.score }

// PlayerY returns the ball's vertical position
func (s *Simulation) PlayerY() float64 { return s.playerY }

// Velocity returns the ball's vertical movement during the last tick
func (s *Simulation) Velocity() float64 { return s.velocity }

// Speed returns the current scroll speed per tick
func (s *Simulation) Speed() float64 { return s.speed }

// Note returns the pitch class of the last valid estimate, or ""
func (s *Simulation) Note() string { return s.note }

// LastPitch returns the last valid estimate
func (s *Simulation) LastPitch() pitch.Estimate { return s.lastPitch }

// Obstacles returns a copy of the live obstacles, oldest first
func (s *Simulation) Obstacles() []Obstacle {
	out := make([]Obstacle, len(s.obstacles))
	copy(out, s.obstacles)
	return out
}

// BandPosition maps a frequency to a normalized height: 0 is the top (high
// pitch) and 1 the bottom. Frequencies outside the band clamp to its edges.
func (s *Simulation) BandPosition(freq float64) float64 {
	span := s.cfg.MaxFrequency - s.cfg.MinFrequency
	percent := (freq - s.cfg.MinFrequency) / span
	percent = max(0, min(1, percent))
	return 1 - percent
}

// Lane returns the vertical position for a frequency
func (s *Simulation) Lane(freq float64) float64 {
	return s.BandPosition(freq) * s.cfg.Height
}

// ReferenceLine marks the lane of a target note
type ReferenceLine struct {
	Note string
	Y    float64
}

// ReferenceLines returns the lanes of every target note, low to high
func (s *Simulation) ReferenceLines() []ReferenceLine {
	lines := make([]ReferenceLine, len(TargetNotes))
	for i, n := range TargetNotes {
		lines[i] = ReferenceLine{Note: n.Name, Y: s.Lane(n.Frequency)}
	}
	return lines
}

// Step advances the simulation by one tick using est as the current pitch
func (s *Simulation) Step(est pitch.Estimate) Events {
	var ev Events
	if s.state != StateRunning {
		return ev
	}

	s.steer(est)
	ev.Spawned = s.spawn()

	for i := range s.obstacles {
		s.obstacles[i].X -= s.speed
	}

	if s.collides() {
		s.state = StateGameOver
		ev.Collided = true
		return ev
	}

	ev.Passed = s.scorePassed()
	s.cull()
	return ev
}

func (s *Simulation) steer(est pitch.Estimate) {
	prev := s.playerY
	if est.Valid() && est.Hz() >= s.cfg.SilenceFrequency {
		s.lastPitch = est
		s.note = pitch.NoteName(est.Hz())
		target := s.Lane(est.Hz())
		s.playerY += (target - s.playerY) * s.cfg.Follow
	} else {
		s.playerY += (s.cfg.Height - s.playerY) * s.cfg.Fall
	}
	s.velocity = s.playerY - prev
}

func (s *Simulation) spawn() bool {
	if n := len(s.obstacles); n > 0 && s.obstacles[n-1].X >= s.cfg.Width-s.cfg.SpawnDistance {
		return false
	}

	target := TargetNotes[s.rng.Intn(len(TargetNotes))]
	s.obstacles = append(s.obstacles, Obstacle{
		ID:        s.nextID,
		X:         s.cfg.Width,
		GapCenter: s.Lane(target.Frequency),
		GapHeight: s.cfg.GapHeight,
		Note:      target.Name,
	})
	s.nextID++
	return true
}

func (s *Simulation) collides() bool {
	r := s.cfg.PlayerRadius
	for _, o := range s.obstacles {
		overlapsX := s.cfg.PlayerX+r > o.X && s.cfg.PlayerX-r < o.X+s.cfg.ObstacleWidth
		if !overlapsX {
			continue
		}
		if s.playerY-r < o.GapTop() || s.playerY+r > o.GapBottom() {
			return true
		}
	}
	return false
}

func (s *Simulation) scorePassed() int {
	passed := 0
	for i := range s.obstacles {
		o := &s.obstacles[i]
		if o.Passed || o.X >= s.cfg.PlayerX {
			continue
		}
		o.Passed = true
		s.score++
		passed++
		if s.cfg.SpeedEvery > 0 && s.score%s.cfg.SpeedEvery == 0 {
			s.speed += s.cfg.SpeedStep
		}
	}
	return passed
}

func (s *Simulation) cull() {
	kept := s.obstacles[:0]
	for _, o := range s.obstacles {
		if o.X > -s.cfg.CullMargin {
			kept = append(kept, o)
		}
	}
	s.obstacles = kept
}
