package audio

import "math"

// SilenceDB is reported for buffers with no measurable energy
const SilenceDB = -100

// Level calculates the RMS and dBFS level of a buffer
func Level(buffer *AudioBuffer) (rms, db float32) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return 0, SilenceDB
	}

	sumSquares := float64(0)
	for _, sample := range buffer.Samples {
		sumSquares += float64(sample) * float64(sample)
	}
	rms = float32(math.Sqrt(sumSquares / float64(len(buffer.Samples))))

	// protect against log(0)
	if rms > 0.0000001 {
		db = 20 * float32(math.Log10(float64(rms)))
	} else {
		db = SilenceDB
	}
	return rms, db
}
