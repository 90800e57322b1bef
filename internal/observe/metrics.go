// Package observe records tunearcade metrics through the OpenTelemetry
// Metrics API. [InitProvider] bridges them to a Prometheus /metrics endpoint;
// tests build [Metrics] on a ManualReader instead.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/0xlemi/tunearcade"

// FrameBudget is the display tick budget an estimate must fit in.
const FrameBudget = 16 * time.Millisecond

// Metrics holds the metric instruments. It implements pitch.Recorder,
// tone.Recorder and game.Recorder.
type Metrics struct {
	// EstimateDuration tracks estimator wall time per frame in milliseconds.
	EstimateDuration metric.Float64Histogram

	// Frames counts analysed frames. Use with attribute:
	//   attribute.String("result", "pitch"|"no_pitch")
	Frames metric.Int64Counter

	// BudgetOverruns counts estimates slower than FrameBudget.
	BudgetOverruns metric.Int64Counter

	ObstaclesPassed metric.Int64Counter
	GameOvers       metric.Int64Counter

	// Voices counts tone voice events. Use with attribute:
	//   attribute.String("reason", "start"|"preempt"|"stop")
	Voices metric.Int64Counter
}

// estimateBuckets are histogram boundaries in milliseconds around the tick budget.
var estimateBuckets = []float64{
	0.5, 1, 2, 4, 8, 12, 16, 24, 32, 64,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EstimateDuration, err = m.Float64Histogram("tunearcade.pitch.estimate.duration",
		metric.WithDescription("Wall time of one pitch estimate."),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(estimateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("tunearcade.pitch.frames",
		metric.WithDescription("Analysed frames by result."),
	); err != nil {
		return nil, err
	}
	if met.BudgetOverruns, err = m.Int64Counter("tunearcade.pitch.budget_overruns",
		metric.WithDescription("Estimates that exceeded the display tick budget."),
	); err != nil {
		return nil, err
	}
	if met.ObstaclesPassed, err = m.Int64Counter("tunearcade.game.obstacles_passed",
		metric.WithDescription("Obstacles passed across all games."),
	); err != nil {
		return nil, err
	}
	if met.GameOvers, err = m.Int64Counter("tunearcade.game.overs",
		metric.WithDescription("Games ended by a collision."),
	); err != nil {
		return nil, err
	}
	if met.Voices, err = m.Int64Counter("tunearcade.tone.voices",
		metric.WithDescription("Reference tone voice events by reason."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordEstimate records one estimator run.
func (m *Metrics) RecordEstimate(elapsed time.Duration, valid bool) {
	ctx := context.Background()
	m.EstimateDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond))

	result := "no_pitch"
	if valid {
		result = "pitch"
	}
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	if elapsed > FrameBudget {
		m.BudgetOverruns.Add(ctx, 1)
	}
}

// RecordVoice records a tone voice event.
func (m *Metrics) RecordVoice(reason string) {
	m.Voices.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordObstaclesPassed records scored obstacles.
func (m *Metrics) RecordObstaclesPassed(n int) {
	m.ObstaclesPassed.Add(context.Background(), int64(n))
}

// RecordGameOver records the end of a game.
func (m *Metrics) RecordGameOver(int) {
	m.GameOvers.Add(context.Background(), 1)
}
