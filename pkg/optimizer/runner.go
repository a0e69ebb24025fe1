package optimizer

import (
	"context"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

const progressEvery = 10

// trialRunner evaluates a fixed batch of parameter sets. It tries the worker
// pool first and, if the batch cannot be dispatched, re-runs the same batch
// serially exactly once.
type trialRunner struct {
	method    Method
	exec      *Executor
	log       logger.Logger
	debug     bool
	progress  bool
	telemetry *telemetry.Recorder
}

func newTrialRunner(method Method, exec *Executor, config *Config) *trialRunner {
	return &trialRunner{
		method:    method,
		exec:      exec,
		log:       logger.OrNop(config.Logger).WithField("method", string(method)),
		debug:     config.Debug,
		progress:  config.ShowProgress,
		telemetry: config.Telemetry,
	}
}

func (r *trialRunner) run(ctx context.Context, objective Objective, sets []ParameterSet) []Trial {
	if r.exec.Parallel() && len(sets) > 1 {
		trials, err := dispatchTrials(ctx, r.exec, objective, sets)
		if err == nil {
			r.observe(trials)
			return trials
		}

		r.log.WithError(err).Warnf("Parallel evaluation failed, re-running %d trials serially", len(sets))
		r.telemetry.ParallelFallback(string(r.method))
	}
	return r.runSerial(ctx, objective, sets)
}

func (r *trialRunner) runSerial(ctx context.Context, objective Objective, sets []ParameterSet) []Trial {
	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(sets)))
	}

	trials := make([]Trial, len(sets))
	for i, params := range sets {
		trials[i] = evaluateRecovered(ctx, objective, i, params)
		r.observe(trials[i : i+1])

		if bar != nil {
			if err := bar.Add(1); err != nil {
				r.log.Warnf("update progressbar fail: %v", err)
			}
		}
		if (i+1)%progressEvery == 0 {
			r.log.Infof("Progress: %d/%d trials evaluated", i+1, len(sets))
		}
	}
	return trials
}

func (r *trialRunner) observe(trials []Trial) {
	for _, trial := range trials {
		r.telemetry.ObserveTrial(string(r.method), !trial.Missing(), trial.Duration)

		if trial.Missing() {
			r.log.WithError(trial.Err).Debugf("Trial %d failed", trial.Index)
		} else if r.debug {
			r.log.Debugf("Trial %d %s score=%.6f", trial.Index, trial.Parameters, trial.Score)
		}
	}
}
