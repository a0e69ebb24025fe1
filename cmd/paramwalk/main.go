package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Command line flags
var (
	configFile string
	logLevel   string
	workers    int
	method     string
	methods    []string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "paramwalk",
		Short:        "Parameter optimization and walk-forward validation for trading strategies",
		Version:      "1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (e.g. ./paramwalk.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Number of parallel workers")

	rootCmd.AddCommand(buildOptimizeCmd())
	rootCmd.AddCommand(buildCompareCmd())
	rootCmd.AddCommand(buildWalkForwardCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildOptimizeCmd() *cobra.Command {
	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search the parameter space on the whole dataset",
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().StringVarP(&method, "method", "m", "", "Search method (grid, random, bayesian)")
	return optimizeCmd
}

func buildCompareCmd() *cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several search methods on the same problem",
		RunE:  runCompare,
	}
	compareCmd.Flags().StringSliceVar(&methods, "methods", []string{"grid", "random", "bayesian"}, "Methods to compare")
	return compareCmd
}

func buildWalkForwardCmd() *cobra.Command {
	walkForwardCmd := &cobra.Command{
		Use:     "walkforward",
		Aliases: []string{"wf"},
		Short:   "Validate the optimized parameters on rolling out-of-sample windows",
		RunE:    runWalkForward,
	}
	walkForwardCmd.Flags().StringVarP(&method, "method", "m", "", "Search method used in each training window")
	return walkForwardCmd
}
