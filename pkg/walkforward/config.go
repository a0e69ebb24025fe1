package walkforward

import (
	"errors"
	"fmt"
	"math"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/logger"
)

const (
	DefaultOverfitThreshold = 0.1
	DefaultBootstrapSamples = 1000
	DefaultConfidence       = 0.95
)

var (
	// ErrInvalidConfig is returned when window lengths are not usable.
	ErrInvalidConfig = errors.New("invalid walk-forward config")

	// ErrInvalidDates is returned when the date sequence is not strictly increasing.
	ErrInvalidDates = errors.New("dates must be strictly increasing")
)

// Config holds the walk-forward window layout. Period lengths are counted in
// date indices, not wall clock time.
type Config struct {
	TrainPeriod      int
	TestPeriod       int
	StepSize         int
	MinTrainSize     int // 0 means TrainPeriod/2
	Anchored         bool
	OverfitThreshold float64
	Maximize         bool

	BootstrapSamples int
	Confidence       float64

	Logger    logger.Logger
	Telemetry *telemetry.Recorder
}

// NewConfig creates a rolling window configuration
func NewConfig(trainPeriod, testPeriod, stepSize int) *Config {
	return &Config{
		TrainPeriod:      trainPeriod,
		TestPeriod:       testPeriod,
		StepSize:         stepSize,
		OverfitThreshold: DefaultOverfitThreshold,
		Maximize:         true,
		BootstrapSamples: DefaultBootstrapSamples,
		Confidence:       DefaultConfidence,
	}
}

// WithMinTrainSize sets the smallest accepted training window
func (c *Config) WithMinTrainSize(size int) *Config {
	c.MinTrainSize = size
	return c
}

// WithAnchored keeps every training window starting at the first date
func (c *Config) WithAnchored(anchored bool) *Config {
	c.Anchored = anchored
	return c
}

// WithOverfitThreshold sets the gap above which a window counts as overfitting
func (c *Config) WithOverfitThreshold(threshold float64) *Config {
	c.OverfitThreshold = threshold
	return c
}

// WithMaximize sets the optimization direction used for every window
func (c *Config) WithMaximize(maximize bool) *Config {
	c.Maximize = maximize
	return c
}

// WithBootstrap configures the confidence interval of the mean test score
func (c *Config) WithBootstrap(samples int, confidence float64) *Config {
	c.BootstrapSamples = samples
	c.Confidence = confidence
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(log logger.Logger) *Config {
	c.Logger = log
	return c
}

// WithTelemetry records window outcomes on recorder
func (c *Config) WithTelemetry(recorder *telemetry.Recorder) *Config {
	c.Telemetry = recorder
	return c
}

// Validate checks the window layout.
func (c *Config) Validate() error {
	switch {
	case c.TrainPeriod < 1:
		return fmt.Errorf("%w: train period must be positive, got %d", ErrInvalidConfig, c.TrainPeriod)
	case c.TestPeriod < 1:
		return fmt.Errorf("%w: test period must be positive, got %d", ErrInvalidConfig, c.TestPeriod)
	case c.StepSize < 1:
		return fmt.Errorf("%w: step size must be positive, got %d", ErrInvalidConfig, c.StepSize)
	case c.MinTrainSize < 0:
		return fmt.Errorf("%w: min train size cannot be negative", ErrInvalidConfig)
	case c.MinTrainSize > c.TrainPeriod:
		return fmt.Errorf("%w: min train size %d exceeds train period %d", ErrInvalidConfig, c.MinTrainSize, c.TrainPeriod)
	case math.IsNaN(c.OverfitThreshold) || math.IsInf(c.OverfitThreshold, 0):
		return fmt.Errorf("%w: overfit threshold must be finite", ErrInvalidConfig)
	case c.BootstrapSamples < 0:
		return fmt.Errorf("%w: bootstrap samples cannot be negative", ErrInvalidConfig)
	case c.BootstrapSamples > 0 && (c.Confidence <= 0 || c.Confidence >= 1):
		return fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidConfig, c.Confidence)
	}
	return nil
}

func (c *Config) minTrainSize() int {
	if c.MinTrainSize == 0 {
		return c.TrainPeriod / 2
	}
	return c.MinTrainSize
}
