// Package config defines the tunearcade configuration file and its defaults.
package config

import (
	"log/slog"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Detector names accepted by pitch.detector.
const (
	DetectorAutocorrelation = "autocorrelation"
	DetectorFFT             = "fft"
)

// Config is the root configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Pitch   PitchConfig   `yaml:"pitch"`
	Tuner   TunerConfig   `yaml:"tuner"`
	Game    GameConfig    `yaml:"game"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AudioConfig configures capture.
type AudioConfig struct {
	// SampleRate is requested from the input and output devices.
	SampleRate int `yaml:"sample_rate"`

	// WindowSize is the number of samples per analysis frame.
	WindowSize int `yaml:"window_size"`

	// Amplification scales captured samples before analysis.
	Amplification float64 `yaml:"amplification"`
}

// PitchConfig selects and tunes the pitch estimator.
type PitchConfig struct {
	Detector      string  `yaml:"detector"`
	SilenceRMS    float64 `yaml:"silence_rms"`
	TrimThreshold float64 `yaml:"trim_threshold"`
}

// TunerConfig tunes the tuner display.
type TunerConfig struct {
	InTuneCents int     `yaml:"in_tune_cents"`
	Smoothing   float64 `yaml:"smoothing"`
}

// GameConfig configures the obstacle course.
type GameConfig struct {
	// Seed fixes the obstacle sequence. Zero picks a time based seed.
	Seed   int64   `yaml:"seed"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// LogConfig configures the file logger. The terminal belongs to the UI.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
	File  string   `yaml:"file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every field set.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:    44100,
			WindowSize:    2048,
			Amplification: 1.0,
		},
		Pitch: PitchConfig{
			Detector:      DetectorAutocorrelation,
			SilenceRMS:    0.01,
			TrimThreshold: 0.2,
		},
		Tuner: TunerConfig{
			InTuneCents: 5,
			Smoothing:   0.2,
		},
		Game: GameConfig{
			Width:  800,
			Height: 400,
		},
		Log: LogConfig{
			Level: LogInfo,
			File:  "tunearcade.log",
		},
	}
}
