package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/tunearcade/internal/pitch"
)

const testSeed = 42

func newRunning(t *testing.T) *Simulation {
	t.Helper()
	s := NewSimulation(DefaultConfig(), testSeed)
	s.Start()
	require.Equal(t, StateRunning, s.State())
	return s
}

// targetPitch returns the pitch of the first obstacle the ball has not yet
// cleared horizontally
func targetPitch(s *Simulation) pitch.Estimate {
	cfg := s.Config()
	for _, o := range s.Obstacles() {
		if o.X+cfg.ObstacleWidth >= cfg.PlayerX-cfg.PlayerRadius {
			n, ok := LookupTarget(o.Note)
			if !ok {
				return pitch.NoPitch
			}
			return pitch.Estimate(n.Frequency)
		}
	}
	return pitch.NoPitch
}

func TestScoringOncePerObstacle(t *testing.T) {
	s := newRunning(t)

	total := 0
	for tick := 0; tick < 20000 && s.Score() < 25; tick++ {
		ev := s.Step(targetPitch(s))
		require.False(t, ev.Collided, "collision at tick %d", tick)
		assert.LessOrEqual(t, ev.Passed, 1)
		total += ev.Passed

		for _, o := range s.Obstacles() {
			if o.X < s.Config().PlayerX {
				assert.True(t, o.Passed, "obstacle %d left of the ball but not passed", o.ID)
			}
		}
	}

	assert.Equal(t, StateRunning, s.State())
	assert.GreaterOrEqual(t, s.Score(), 25)
	assert.Equal(t, total, s.Score())
	// 25 points means five speed steps
	assert.InDelta(t, 3+5*0.5, s.Speed(), 1e-9)
}

func TestCollisionEndsGameOnce(t *testing.T) {
	s := newRunning(t)

	// a high pitch pins the ball against the top, above every gap
	high := pitch.Estimate(1000)
	collisions := 0
	for tick := 0; tick < 1000; tick++ {
		if s.Step(high).Collided {
			collisions++
		}
	}

	assert.Equal(t, 1, collisions)
	assert.Equal(t, StateGameOver, s.State())
	assert.Equal(t, 0, s.Score())

	// terminal: further ticks change nothing
	before := s.Obstacles()
	assert.Equal(t, Events{}, s.Step(high))
	assert.Equal(t, before, s.Obstacles())
}

func TestRestartResetsState(t *testing.T) {
	s := newRunning(t)
	for i := 0; i < 400 && s.State() == StateRunning; i++ {
		s.Step(pitch.Estimate(1000))
	}
	require.Equal(t, StateGameOver, s.State())

	s.Start()
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, 0, s.Score())
	assert.Empty(t, s.Obstacles())
	assert.Equal(t, s.Config().StartY, s.PlayerY())
	assert.Equal(t, s.Config().InitialSpeed, s.Speed())
	assert.Equal(t, "", s.Note())
}

func TestIdleDoesNotTick(t *testing.T) {
	s := NewSimulation(DefaultConfig(), testSeed)
	assert.Equal(t, Events{}, s.Step(pitch.Estimate(220)))
	assert.Empty(t, s.Obstacles())
	assert.Equal(t, StateIdle, s.State())
}

func TestSpawnPolicy(t *testing.T) {
	s := newRunning(t)
	cfg := s.Config()

	ev := s.Step(pitch.NoPitch)
	assert.True(t, ev.Spawned)
	obs := s.Obstacles()
	require.Len(t, obs, 1)
	assert.Equal(t, cfg.Width-cfg.InitialSpeed, obs[0].X)

	n, ok := LookupTarget(obs[0].Note)
	require.True(t, ok)
	assert.Equal(t, s.Lane(n.Frequency), obs[0].GapCenter)
	assert.Equal(t, cfg.GapHeight, obs[0].GapHeight)

	// no second obstacle until the first is SpawnDistance from the edge
	for s.Obstacles()[0].X >= cfg.Width-cfg.SpawnDistance {
		assert.False(t, s.Step(pitch.NoPitch).Spawned)
	}
	assert.True(t, s.Step(pitch.NoPitch).Spawned)
	assert.Len(t, s.Obstacles(), 2)
}

func TestSameSeedSameCourse(t *testing.T) {
	a := newRunning(t)
	b := newRunning(t)
	for i := 0; i < 500; i++ {
		a.Step(pitch.NoPitch)
		b.Step(pitch.NoPitch)
	}
	assert.Equal(t, a.Obstacles(), b.Obstacles())
}

func TestSteering(t *testing.T) {
	s := newRunning(t)

	s.Step(pitch.Estimate(300)) // top of the band
	assert.InDelta(t, 180, s.PlayerY(), 1e-9)
	assert.Equal(t, "D", s.Note())
	assert.InDelta(t, -20, s.Velocity(), 1e-9)

	s.Start()
	s.Step(pitch.NoPitch)
	assert.InDelta(t, 210, s.PlayerY(), 1e-9)

	// below 80 Hz is silence
	s.Start()
	s.Step(pitch.Estimate(60))
	assert.InDelta(t, 210, s.PlayerY(), 1e-9)
	assert.Equal(t, "", s.Note())
	assert.Equal(t, pitch.NoPitch, s.LastPitch())
}

func TestBandPosition(t *testing.T) {
	s := NewSimulation(DefaultConfig(), testSeed)
	assert.Equal(t, 1.0, s.BandPosition(110))
	assert.Equal(t, 0.0, s.BandPosition(300))
	assert.Equal(t, 0.5, s.BandPosition(205))
	assert.Equal(t, 1.0, s.BandPosition(90))
	assert.Equal(t, 0.0, s.BandPosition(900))

	// C4 sits above C3 on the field
	c3, _ := LookupTarget("C3")
	c4, _ := LookupTarget("C4")
	assert.Less(t, s.Lane(c4.Frequency), s.Lane(c3.Frequency))
}

func TestReferenceLines(t *testing.T) {
	s := NewSimulation(DefaultConfig(), testSeed)
	lines := s.ReferenceLines()
	require.Len(t, lines, len(TargetNotes))
	assert.Equal(t, "C3", lines[0].Note)
	for i := 1; i < len(lines); i++ {
		assert.Less(t, lines[i].Y, lines[i-1].Y, "higher notes sit higher")
	}
}

func TestSpeedRampAndCull(t *testing.T) {
	s := newRunning(t)
	cfg := s.Config()

	s.score = 4
	s.obstacles = []Obstacle{
		{ID: 90, X: -cfg.CullMargin + 1, GapCenter: 200, GapHeight: 400, Passed: true},
		{ID: 91, X: cfg.PlayerX + 1, GapCenter: 200, GapHeight: 400},
		{ID: 92, X: 600, GapCenter: 200, GapHeight: 400},
	}
	s.playerY = 200

	ev := s.Step(pitch.Estimate(205))
	require.False(t, ev.Collided)
	assert.Equal(t, 1, ev.Passed)
	assert.Equal(t, 5, s.Score())
	assert.Equal(t, cfg.InitialSpeed+cfg.SpeedStep, s.Speed())

	ids := []int{}
	for _, o := range s.Obstacles() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int{91, 92}, ids, "the leftmost obstacle is culled")
}

func TestObstacleGapBounds(t *testing.T) {
	o := Obstacle{GapCenter: 200, GapHeight: 120}
	assert.Equal(t, 140.0, o.GapTop())
	assert.Equal(t, 260.0, o.GapBottom())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "game over", StateGameOver.String())
}
