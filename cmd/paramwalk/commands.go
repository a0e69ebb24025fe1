package main

import (
	"os"

	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/report"
	"github.com/raykavin/paramwalk/pkg/strategy"
	"github.com/raykavin/paramwalk/pkg/walkforward"
	"github.com/spf13/cobra"
)

func runOptimize(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	objective, err := a.objective(strategy.Factory(a.cfg.Pair(), a.cfg.StrategyOptions()...))
	if err != nil {
		return err
	}
	optConfig, err := a.optimizerConfig()
	if err != nil {
		return err
	}
	searchMethod, err := optimizer.ParseMethod(a.cfg.Optimizer.Method)
	if err != nil {
		return err
	}

	var (
		result     *optimizer.OptimizationResult
		importance map[string]float64
	)
	if searchMethod == optimizer.MethodGrid && a.space.IsEnumerated() {
		grid, err := optimizer.NewGridSearch(optConfig).Search(cmd.Context(), objective, a.space)
		if err != nil {
			return err
		}
		result = &grid.OptimizationResult
		importance = grid.Importance()
	} else {
		opt, err := optimizer.NewParallelOptimizer(searchMethod, optConfig)
		if err != nil {
			return err
		}
		if result, err = opt.Optimize(cmd.Context(), objective, a.space); err != nil {
			return err
		}
	}

	report.Trials(os.Stdout, result, a.cfg.Output.Top)
	if importance != nil {
		report.Importance(os.Stdout, importance)
	}
	if a.cfg.Output.Histogram {
		if err := report.Scores(os.Stdout, result); err != nil {
			return err
		}
	}
	if a.cfg.Output.TrialsCSV != "" {
		if err := report.SaveTrialsCSV(result, a.cfg.Output.TrialsCSV); err != nil {
			return err
		}
		a.log.Infof("Trials saved to %s", a.cfg.Output.TrialsCSV)
	}
	return nil
}

func runCompare(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	selected := make([]optimizer.Method, 0, len(methods))
	for _, name := range methods {
		m, err := optimizer.ParseMethod(name)
		if err != nil {
			return err
		}
		selected = append(selected, m)
	}

	objective, err := a.objective(strategy.Factory(a.cfg.Pair(), a.cfg.StrategyOptions()...))
	if err != nil {
		return err
	}
	optConfig, err := a.optimizerConfig()
	if err != nil {
		return err
	}
	opt, err := optimizer.NewParallelOptimizer(optimizer.MethodRandom, optConfig)
	if err != nil {
		return err
	}

	records := opt.CompareMethods(cmd.Context(), objective, a.space, selected)
	report.Comparison(os.Stdout, records)
	return cmd.Context().Err()
}

// runWalkForward never memoizes: the same parameters score differently on
// each training window.
func runWalkForward(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	optConfig, err := a.optimizerConfig()
	if err != nil {
		return err
	}
	searchMethod, err := optimizer.ParseMethod(a.cfg.Optimizer.Method)
	if err != nil {
		return err
	}
	opt, err := optimizer.NewParallelOptimizer(searchMethod, optConfig)
	if err != nil {
		return err
	}

	validator, err := walkforward.NewValidator(a.cfg.WalkForwardConfig(a.log, a.recorder))
	if err != nil {
		return err
	}

	factory := strategy.Factory(a.cfg.Pair(), a.cfg.StrategyOptions()...)
	result, err := validator.Validate(cmd.Context(), factory, opt, a.space, a.data, a.dates)
	if result != nil {
		if renderErr := report.Windows(os.Stdout, result); renderErr != nil {
			return renderErr
		}
		if a.cfg.Output.Histogram && !result.Empty() {
			if renderErr := report.WindowScores(os.Stdout, result); renderErr != nil {
				return renderErr
			}
		}
		if a.cfg.Output.WindowsCSV != "" {
			if saveErr := report.SaveWindowsCSV(result, a.cfg.Output.WindowsCSV); saveErr != nil {
				return saveErr
			}
			a.log.Infof("Windows saved to %s", a.cfg.Output.WindowsCSV)
		}
	}
	return err
}
