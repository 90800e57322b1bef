package pitch

import (
	"math/cmplx"
	"sort"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTDetector implements pitch detection by picking the strongest spectral
// peak. It is cheaper than autocorrelation but prone to octave errors on
// harmonically rich input.
type FFTDetector struct {
	minFrequency    float64 // Lowest frequency to detect (Hz)
	maxFrequency    float64 // Highest frequency to detect (Hz)
	noiseFloor      float64 // Minimum spectral magnitude considered signal
	peakThreshold   float64 // Minimum peak height as fraction of highest peak
	volumeThreshold float64 // Minimum RMS volume level for note detection
}

// NewFFTDetector creates a new FFT-based pitch detector
func NewFFTDetector() *FFTDetector {
	return &FFTDetector{
		minFrequency:    80.0,   // E2 on guitar is ~82 Hz
		maxFrequency:    1200.0, // well above the top of the playable range
		noiseFloor:      0.01,
		peakThreshold:   0.2,
		volumeThreshold: DefaultSilenceRMS,
	}
}

// Detect analyzes an audio buffer and returns the strongest in-range peak
func (d *FFTDetector) Detect(buffer *audio.AudioBuffer) Estimate {
	if buffer == nil || len(buffer.Samples) < 2 || buffer.SampleRate <= 0 {
		return NoPitch
	}

	if rms(buffer.Samples) < d.volumeThreshold {
		return NoPitch
	}

	// Apply windowing function (Hann window)
	coeffs := window.Hann(len(buffer.Samples))
	windowed := make([]float64, len(buffer.Samples))
	for i, sample := range buffer.Samples {
		windowed[i] = float64(sample) * coeffs[i]
	}

	spectrum := fft.FFTReal(windowed)

	peakFreq, ok := d.findFundamentalFrequency(spectrum, buffer.SampleRate)
	if !ok || peakFreq < d.minFrequency || peakFreq > d.maxFrequency {
		return NoPitch
	}
	return Estimate(peakFreq)
}

// Peak represents a peak in the frequency spectrum
type Peak struct {
	Bin       int
	Magnitude float64
	Frequency float64
}

// findFundamentalFrequency returns the interpolated frequency of the
// highest spectral peak inside the detection range
func (d *FFTDetector) findFundamentalFrequency(spectrum []complex128, sampleRate int) (float64, bool) {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	spectrumHalf := spectrum[:len(spectrum)/2]
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	minBin := int(d.minFrequency / binSizeHz)
	if minBin < 1 {
		minBin = 1 // Avoid DC component
	}
	maxBin := int(d.maxFrequency / binSizeHz)
	if maxBin >= len(spectrumHalf) {
		maxBin = len(spectrumHalf) - 1
	}
	if minBin+1 >= maxBin {
		return 0, false
	}

	maxMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		if magnitude := cmplx.Abs(spectrumHalf[i]); magnitude > maxMagnitude {
			maxMagnitude = magnitude
		}
	}
	if maxMagnitude < d.noiseFloor {
		return 0, false
	}

	var peaks []Peak
	for i := minBin + 1; i < maxBin; i++ {
		prev := cmplx.Abs(spectrumHalf[i-1])
		current := cmplx.Abs(spectrumHalf[i])
		next := cmplx.Abs(spectrumHalf[i+1])

		if current <= prev || current <= next || current <= maxMagnitude*d.peakThreshold {
			continue
		}

		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		freq := float64(i) * binSizeHz
		if denom := prev - 2*current + next; denom != 0 {
			freq = (float64(i) + 0.5*(prev-next)/denom) * binSizeHz
		}
		peaks = append(peaks, Peak{Bin: i, Magnitude: current, Frequency: freq})
	}

	if len(peaks) == 0 {
		return 0, false
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
	return peaks[0].Frequency, true
}
