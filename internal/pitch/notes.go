package pitch

import (
	"fmt"
	"math"
)

// A4 is the tuning reference (MIDI note 69)
const (
	A4Frequency  = 440.0
	A4NoteNumber = 69
)

// Note represents a musical note reading
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Source frequency in Hz
	Cents     int     // Deviation from the nearest equal-tempered pitch, [-50, 50)
}

// String formats the note as name and octave, e.g. "A4"
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// InTune reports whether the reading is within tolerance cents of its pitch
func (n Note) InTune(tolerance int) bool {
	c := n.Cents
	if c < 0 {
		c = -c
	}
	return c < tolerance
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNames returns the 12 pitch classes starting at C
func NoteNames() []string {
	out := make([]string, len(noteNames))
	copy(out, noteNames)
	return out
}

// NoteNumber returns the continuous MIDI note number of freq
func NoteNumber(freq float64) float64 {
	return 12*math.Log2(freq/A4Frequency) + A4NoteNumber
}

// NoteFrequency returns the equal-tempered frequency of a MIDI note number
func NoteFrequency(noteNumber int) float64 {
	return A4Frequency * math.Pow(2, float64(noteNumber-A4NoteNumber)/12)
}

// FrequencyToNote converts a frequency to a musical note. It returns false
// when freq is not a positive finite frequency.
func FrequencyToNote(freq float64) (Note, bool) {
	if !Estimate(freq).Valid() {
		return Note{}, false
	}

	n := NoteNumber(freq)
	rounded := math.Round(n)
	cents := int(math.Round((n - rounded) * 100))

	// +50 belongs to the next semitone
	if cents >= 50 {
		cents -= 100
		rounded++
	}

	idx := int(rounded)
	return Note{
		Name:      noteNames[mod12(idx)],
		Octave:    floorDiv(idx, 12) - 1,
		Frequency: freq,
		Cents:     cents,
	}, true
}

// NoteName returns the pitch class of freq, or "" for invalid frequencies
func NoteName(freq float64) string {
	if !Estimate(freq).Valid() {
		return ""
	}
	return noteNames[mod12(int(math.Round(NoteNumber(freq))))]
}

func mod12(n int) int {
	m := n % 12
	if m < 0 {
		m += 12
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ReferenceNote is a named reference pitch, e.g. an open guitar string
type ReferenceNote struct {
	Name      string
	Label     string
	Frequency float64
}

// GuitarStrings lists the six open strings in standard tuning, low to high
var GuitarStrings = []ReferenceNote{
	{Name: "E", Label: "Low E", Frequency: 82.41},
	{Name: "A", Label: "A", Frequency: 110.00},
	{Name: "D", Label: "D", Frequency: 146.83},
	{Name: "G", Label: "G", Frequency: 196.00},
	{Name: "B", Label: "B", Frequency: 246.94},
	{Name: "E", Label: "High E", Frequency: 329.63},
}
