package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path on top of [Default] and
// returns the validated result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Fields missing from r keep their defaults; unknown fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Analysis window bounds accepted by [Validate].
const (
	MinWindowSize = 256
	MaxWindowSize = 4096
)

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is too low; minimum 8000", cfg.Audio.SampleRate))
	}
	// the autocorrelation is quadratic in the window and must fit a 60 Hz tick
	if cfg.Audio.WindowSize < MinWindowSize || cfg.Audio.WindowSize > MaxWindowSize {
		errs = append(errs, fmt.Errorf("audio.window_size %d is out of range [%d, %d]", cfg.Audio.WindowSize, MinWindowSize, MaxWindowSize))
	}
	if cfg.Audio.Amplification <= 0 {
		errs = append(errs, fmt.Errorf("audio.amplification %.2f must be positive", cfg.Audio.Amplification))
	}

	switch cfg.Pitch.Detector {
	case DetectorAutocorrelation, DetectorFFT:
	default:
		errs = append(errs, fmt.Errorf("pitch.detector %q is invalid; valid values: autocorrelation, fft", cfg.Pitch.Detector))
	}
	if cfg.Pitch.SilenceRMS < 0 || cfg.Pitch.SilenceRMS >= 1 {
		errs = append(errs, fmt.Errorf("pitch.silence_rms %.3f is out of range [0, 1)", cfg.Pitch.SilenceRMS))
	}
	if cfg.Pitch.TrimThreshold < 0 || cfg.Pitch.TrimThreshold >= 1 {
		errs = append(errs, fmt.Errorf("pitch.trim_threshold %.3f is out of range [0, 1)", cfg.Pitch.TrimThreshold))
	}

	if cfg.Tuner.InTuneCents < 1 || cfg.Tuner.InTuneCents > 50 {
		errs = append(errs, fmt.Errorf("tuner.in_tune_cents %d is out of range [1, 50]", cfg.Tuner.InTuneCents))
	}
	if cfg.Tuner.Smoothing <= 0 || cfg.Tuner.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("tuner.smoothing %.2f is out of range (0, 1]", cfg.Tuner.Smoothing))
	}

	if cfg.Game.Width < 400 || cfg.Game.Height < 200 {
		errs = append(errs, fmt.Errorf("game field %.0fx%.0f is too small; minimum 400x200", cfg.Game.Width, cfg.Game.Height))
	}

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}
