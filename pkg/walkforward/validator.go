package walkforward

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/optimizer"
)

// Validator re-optimizes on each training window and scores the chosen
// parameters on the following unseen test window.
type Validator struct {
	config    Config
	log       logger.Logger
	telemetry *telemetry.Recorder
}

// NewValidator creates a validator from a valid config.
func NewValidator(config *Config) (*Validator, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Validator{
		config:    *config,
		log:       logger.OrNop(config.Logger).WithField("component", "walkforward"),
		telemetry: config.Telemetry,
	}, nil
}

// Windows returns the window layout over dates, without running anything.
func (v *Validator) Windows(dates []time.Time) []Window {
	windows := v.config.GenerateWindows(len(dates))
	for i := range windows {
		windows[i].Train = windows[i].Train.bind(dates)
		windows[i].Test = windows[i].Test.bind(dates)
	}
	return windows
}

// Validate runs every window in time order. A window whose optimization or
// test evaluation fails is logged, kept in the report with its error and
// left out of the statistics; the next window still runs. Only invalid
// inputs and context cancellation stop the run.
func (v *Validator) Validate(ctx context.Context, factory ObjectiveFactory, opt optimizer.Optimizer,
	space optimizer.ParameterSpace, data Dataset, dates []time.Time) (*Report, error) {

	if factory == nil {
		return nil, errors.New("objective factory cannot be nil")
	}
	if opt == nil {
		return nil, errors.New("optimizer cannot be nil")
	}
	if err := checkDates(dates); err != nil {
		return nil, err
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}

	windows := v.Windows(dates)
	v.log.WithFields(map[string]any{
		"anchored": v.config.Anchored,
		"train":    v.config.TrainPeriod,
		"test":     v.config.TestPeriod,
		"step":     v.config.StepSize,
	}).Infof("Walk-forward validation: %d windows over %d dates", len(windows), len(dates))

	start := time.Now()
	for i := range windows {
		if err := ctx.Err(); err != nil {
			return newReport(windows[:i], &v.config), err
		}

		window := &windows[i]
		log := v.log.WithFields(map[string]any{
			"window": window.Index,
			"train":  window.Train.String(),
			"test":   window.Test.String(),
		})

		if err := v.runWindow(ctx, factory, opt, space, data, window); err != nil {
			window.Err = err
			window.TrainScore, window.TestScore, window.OverfitGap = math.NaN(), math.NaN(), math.NaN()
			log.WithError(err).Warnf("Window %d/%d skipped", i+1, len(windows))
			v.telemetry.ObserveWindow(telemetry.WindowSkipped)
			continue
		}

		log.Infof("Window %d/%d: train=%.4f test=%.4f gap=%.4f %s", i+1, len(windows),
			window.TrainScore, window.TestScore, window.OverfitGap, window.OptimalParameters)
		v.telemetry.ObserveWindow(telemetry.WindowCompleted)
	}

	report := newReport(windows, &v.config)
	v.log.WithFields(map[string]any{
		"completed": report.Completed,
		"skipped":   report.Skipped,
	}).Infof("Walk-forward validation finished in %s", time.Since(start).Round(time.Millisecond))

	return report, nil
}

func (v *Validator) runWindow(ctx context.Context, factory ObjectiveFactory, opt optimizer.Optimizer,
	space optimizer.ParameterSpace, data Dataset, window *Window) error {

	trainObjective, err := factory(data.Between(window.Train.From, window.Train.To))
	if err != nil {
		return fmt.Errorf("build train objective: %w", err)
	}

	result, err := opt.Optimize(ctx, trainObjective, space, optimizer.WithMaximize(v.config.Maximize))
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	testObjective, err := factory(data.Between(window.Test.From, window.Test.To))
	if err != nil {
		return fmt.Errorf("build test objective: %w", err)
	}

	score, err := testObjective.Evaluate(ctx, result.BestParameters.Clone())
	if err != nil {
		return fmt.Errorf("test evaluation: %w", &optimizer.ObjectiveError{Parameters: result.BestParameters, Err: err})
	}
	if math.IsNaN(score) {
		return fmt.Errorf("test evaluation: %w", &optimizer.ObjectiveError{
			Parameters: result.BestParameters,
			Err:        errors.New("objective returned NaN"),
		})
	}

	window.OptimalParameters = result.BestParameters.Clone()
	window.TrainScore = result.BestScore
	window.TestScore = score
	window.OverfitGap = result.BestScore - score
	return nil
}

func checkDates(dates []time.Time) error {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("%w: %s at position %d does not follow %s", ErrInvalidDates,
				dates[i].Format(time.RFC3339), i, dates[i-1].Format(time.RFC3339))
		}
	}
	return nil
}
