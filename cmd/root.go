package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"github.com/0xlemi/tunearcade/internal/audio"
	"github.com/0xlemi/tunearcade/internal/config"
	"github.com/0xlemi/tunearcade/internal/observe"
	"github.com/0xlemi/tunearcade/internal/pitch"
	"github.com/0xlemi/tunearcade/internal/tone"
)

const (
	// Audio settings
	channels        = 1
	outputFrames    = 512
	simulatedVolume = 0.5
)

var opts struct {
	configPath  string
	sampleRate  int
	window      int
	detector    string
	seed        int64
	logLevel    string
	logFile     string
	metricsAddr string
	simulate    float64
}

var rootCmd = &cobra.Command{
	Use:          "tunearcade",
	Short:        "Guitar tuner and pitch-steered arcade game",
	Long:         `TuneArcade listens to the microphone, shows the detected note and its tuning, plays reference tones and runs a game steered by your voice or instrument.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.IntVar(&opts.sampleRate, "sample-rate", 0, "capture and playback sample rate in Hz")
	pf.IntVar(&opts.window, "window", 0, "analysis window in samples")
	pf.StringVar(&opts.detector, "detector", "", "pitch detector: autocorrelation or fft")
	pf.Int64Var(&opts.seed, "seed", 0, "game seed (0 picks one from the clock)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFile, "log-file", "", "log file path")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.Float64Var(&opts.simulate, "simulate", 0, "replace the microphone with a sine at this frequency")
}

// loadConfig reads the config file, if any, and applies flags set on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = opts.sampleRate
	}
	if flags.Changed("window") {
		cfg.Audio.WindowSize = opts.window
	}
	if flags.Changed("detector") {
		cfg.Pitch.Detector = opts.detector
	}
	if flags.Changed("seed") {
		cfg.Game.Seed = opts.seed
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = config.LogLevel(opts.logLevel)
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to the configured file since the terminal belongs to the UI
func newLogger(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	handlerOpts := &slog.HandlerOptions{Level: cfg.Level.Level()}
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOpts)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, handlerOpts)), f.Close, nil
}

// app holds what every subcommand shares
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observe.Metrics

	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	a := &app{cfg: cfg, logger: logger}

	if cfg.Metrics.Addr != "" {
		mp, shutdown, err := observe.InitProvider(cmd.Context(), observe.ProviderConfig{})
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return shutdown(ctx)
		})
		a.metrics, err = observe.NewMetrics(mp)
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	} else if a.metrics, err = observe.NewMetrics(noop.NewMeterProvider()); err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	a.closers = append(a.closers, closeLog)

	logger.Info("starting",
		"command", cmd.Name(),
		"sample_rate", cfg.Audio.SampleRate,
		"window", cfg.Audio.WindowSize,
		"detector", cfg.Pitch.Detector,
	)
	return a, nil
}

// Close flushes metrics and closes the log file
func (a *app) Close() error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// capturer returns the microphone, or a synthetic sine with --simulate
func (a *app) capturer() audio.Capturer {
	if opts.simulate > 0 {
		a.logger.Info("using simulated input", "frequency", opts.simulate)
		return audio.NewSyntheticCapturer(a.cfg.Audio.WindowSize, a.cfg.Audio.SampleRate, audio.Sine(opts.simulate, simulatedVolume))
	}
	c := audio.NewPortAudioCapturer(a.cfg.Audio.WindowSize, a.cfg.Audio.SampleRate, channels, a.logger)
	c.SetAmplification(float32(a.cfg.Audio.Amplification))
	return c
}

// detector returns the configured estimator reporting to the metrics
func (a *app) detector() pitch.Detector {
	d := pitch.New(a.cfg.Pitch.Detector, a.cfg.Pitch.SilenceRMS, a.cfg.Pitch.TrimThreshold)
	return pitch.NewMeteredDetector(d, a.metrics)
}

// synthesizer returns a tone synthesizer on the default output device.
// Simulated runs stay silent.
func (a *app) synthesizer() *tone.Synthesizer {
	var sink tone.Sink
	if opts.simulate <= 0 {
		sink = audio.NewPortAudioOutput(a.cfg.Audio.SampleRate, outputFrames, a.logger)
	}
	s := tone.NewSynthesizer(a.cfg.Audio.SampleRate, sink, a.logger)
	s.SetRecorder(a.metrics)
	a.closers = append([]func() error{s.Close}, a.closers...)
	return s
}

// runProgram runs a full-screen bubbletea model alongside the metrics
// endpoint. Either one failing stops the other.
func (a *app) runProgram(ctx context.Context, model tea.Model) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("ui: %w", err)
		}
		return nil
	})

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           observe.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
