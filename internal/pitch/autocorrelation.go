package pitch

import (
	"math"

	"github.com/0xlemi/tunearcade/internal/audio"
)

// Defaults for the autocorrelation detector
const (
	DefaultSilenceRMS    = 0.01
	DefaultTrimThreshold = 0.2
)

// minTrimmedLength is the shortest trimmed frame that can hold a parabola
const minTrimmedLength = 3

// AutocorrelationDetector estimates pitch from the first dominant peak of
// the time-domain autocorrelation. The correlation is O(n²) in the frame
// length, so frames are kept around 2048 samples.
type AutocorrelationDetector struct {
	silenceRMS    float64 // frames quieter than this are not analyzed
	trimThreshold float64 // amplitude used to trim frame edges
}

// NewAutocorrelationDetector creates a detector with the default thresholds
func NewAutocorrelationDetector() *AutocorrelationDetector {
	return &AutocorrelationDetector{
		silenceRMS:    DefaultSilenceRMS,
		trimThreshold: DefaultTrimThreshold,
	}
}

// WithThresholds returns a copy using the given silence RMS and trim amplitude
func (d *AutocorrelationDetector) WithThresholds(silenceRMS, trimThreshold float64) *AutocorrelationDetector {
	c := *d
	if silenceRMS > 0 {
		c.silenceRMS = silenceRMS
	}
	if trimThreshold > 0 {
		c.trimThreshold = trimThreshold
	}
	return &c
}

// Detect analyzes an audio buffer and returns its fundamental frequency
func (d *AutocorrelationDetector) Detect(buffer *audio.AudioBuffer) Estimate {
	if buffer == nil || len(buffer.Samples) == 0 || buffer.SampleRate <= 0 {
		return NoPitch
	}

	if rms(buffer.Samples) < d.silenceRMS {
		return NoPitch
	}

	buf := d.trim(buffer.Samples)
	if len(buf) < minTrimmedLength {
		return NoPitch
	}

	c := autocorrelate(buf)

	lag := peakLag(c)
	if lag < 0 {
		return NoPitch
	}

	refined := refineLag(c, lag)
	if refined <= 0 {
		return NoPitch
	}

	return Estimate(float64(buffer.SampleRate) / refined)
}

// trim drops the leading and trailing edges up to the first sample whose
// magnitude falls below the trim threshold. Bounds fall back to the full
// frame when no such sample exists.
func (d *AutocorrelationDetector) trim(samples []float32) []float64 {
	size := len(samples)
	start, end := 0, size-1

	for i := 0; i < size/2; i++ {
		if math.Abs(float64(samples[i])) < d.trimThreshold {
			start = i
			break
		}
	}
	for i := 1; i < size/2; i++ {
		if math.Abs(float64(samples[size-i])) < d.trimThreshold {
			end = size - i
			break
		}
	}

	out := make([]float64, 0, end-start+1)
	for _, s := range samples[start : end+1] {
		out = append(out, float64(s))
	}
	return out
}

func rms(samples []float32) float64 {
	sumSquares := 0.0
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// autocorrelate returns c[lag] = Σ buf[i]·buf[i+lag] over the overlap
func autocorrelate(buf []float64) []float64 {
	size := len(buf)
	c := make([]float64, size)
	for lag := 0; lag < size; lag++ {
		sum := 0.0
		for i := 0; i < size-lag; i++ {
			sum += buf[i] * buf[i+lag]
		}
		c[lag] = sum
	}
	return c
}

// peakLag skips the slope falling away from the zero-lag peak and returns
// the lag of the largest remaining value, or -1 if none qualifies.
func peakLag(c []float64) int {
	d := 0
	for d+1 < len(c) && c[d] > c[d+1] {
		d++
	}

	maxVal, maxPos := -1.0, -1
	for i := d; i < len(c); i++ {
		if c[i] > maxVal {
			maxVal = c[i]
			maxPos = i
		}
	}
	return maxPos
}

// refineLag fits a parabola through the peak and its neighbours and returns
// the vertex. Flat curvature or an edge peak keeps the integer lag.
func refineLag(c []float64, lag int) float64 {
	if lag <= 0 || lag >= len(c)-1 {
		return float64(lag)
	}

	x1, x2, x3 := c[lag-1], c[lag], c[lag+1]
	a := (x1 + x3 - 2*x2) / 2
	b := (x3 - x1) / 2
	if a == 0 {
		return float64(lag)
	}
	return float64(lag) - b/(2*a)
}
