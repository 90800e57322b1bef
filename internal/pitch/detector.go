package pitch

import (
	"math"
	"time"

	"github.com/0xlemi/tunearcade/internal/audio"
)

// Estimate is a fundamental-frequency estimate in Hz. NoPitch marks a frame
// without a reliable periodic signal.
type Estimate float64

// NoPitch is returned for silent, noisy or degenerate frames
const NoPitch Estimate = -1

// Valid reports whether e carries a usable frequency
func (e Estimate) Valid() bool {
	f := float64(e)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Hz returns the frequency, or 0 for NoPitch
func (e Estimate) Hz() float64 {
	if !e.Valid() {
		return 0
	}
	return float64(e)
}

// Detector defines the interface for pitch detection. Implementations are
// pure: they never fail and never retain the buffer.
type Detector interface {
	// Detect analyzes one frame and returns its fundamental frequency
	Detect(buffer *audio.AudioBuffer) Estimate
}

// Recorder receives per-frame detection timings
type Recorder interface {
	RecordEstimate(elapsed time.Duration, valid bool)
}

// MeteredDetector reports the duration and outcome of every detection
type MeteredDetector struct {
	next     Detector
	recorder Recorder
	now      func() time.Time
}

// NewMeteredDetector wraps d so each call is reported to rec
func NewMeteredDetector(d Detector, rec Recorder) *MeteredDetector {
	return &MeteredDetector{next: d, recorder: rec, now: time.Now}
}

// Detect runs the wrapped detector and records its timing
func (m *MeteredDetector) Detect(buffer *audio.AudioBuffer) Estimate {
	start := m.now()
	est := m.next.Detect(buffer)
	m.recorder.RecordEstimate(m.now().Sub(start), est.Valid())
	return est
}

var (
	_ Detector = (*FFTDetector)(nil)
	_ Detector = (*AutocorrelationDetector)(nil)
	_ Detector = (*MeteredDetector)(nil)
)

// New returns the detector registered under name: "autocorrelation"
// (default) or "fft".
func New(name string, silenceRMS, trimThreshold float64) Detector {
	switch name {
	case "fft":
		d := NewFFTDetector()
		if silenceRMS > 0 {
			d.volumeThreshold = silenceRMS
		}
		return d
	default:
		return NewAutocorrelationDetector().WithThresholds(silenceRMS, trimThreshold)
	}
}
