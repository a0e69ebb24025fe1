// Package config loads the paramwalk CLI configuration from a YAML file and
// PARAMWALK_* environment variables using Viper
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/dataset"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/strategy"
	"github.com/raykavin/paramwalk/pkg/surrogate"
	"github.com/raykavin/paramwalk/pkg/walkforward"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// EnvPrefix prefixes every environment override, e.g. PARAMWALK_OPTIMIZER_WORKERS
const EnvPrefix = "PARAMWALK"

// Config is the whole CLI configuration
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Data        DataConfig        `mapstructure:"data"`
	Strategy    StrategyConfig    `mapstructure:"strategy"`
	Optimizer   OptimizerConfig   `mapstructure:"optimizer"`
	Parameters  []ParameterConfig `mapstructure:"parameters"`
	WalkForward WalkForwardConfig `mapstructure:"walkforward"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Output      OutputConfig      `mapstructure:"output"`
}

// LogConfig selects the logging backend
type LogConfig struct {
	Backend string `mapstructure:"backend"` // zerolog or logrus
	Level   string `mapstructure:"level"`
	JSON    bool   `mapstructure:"json"`
	Colored bool   `mapstructure:"colored"`
}

// DataConfig lists the candle files
type DataConfig struct {
	Timeframe string       `mapstructure:"timeframe"`
	Limit     string       `mapstructure:"limit"` // trailing period kept, e.g. 180d
	Feeds     []FeedConfig `mapstructure:"feeds"`
}

// FeedConfig is one CSV file
type FeedConfig struct {
	Pair      string `mapstructure:"pair"`
	File      string `mapstructure:"file"`
	Timeframe string `mapstructure:"timeframe"`
}

// StrategyConfig configures the crossover objective
type StrategyConfig struct {
	Pair   string  `mapstructure:"pair"`
	Metric string  `mapstructure:"metric"`
	Fee    float64 `mapstructure:"fee"`
}

// OptimizerConfig mirrors optimizer.Config
type OptimizerConfig struct {
	Method        string `mapstructure:"method"`
	Workers       int    `mapstructure:"workers"`
	Iterations    int    `mapstructure:"iterations"`
	TotalCalls    int    `mapstructure:"total_calls"`
	InitialPoints int    `mapstructure:"initial_points"`
	Acquisition   string `mapstructure:"acquisition"`
	Seed          int64  `mapstructure:"seed"`
	Maximize      bool   `mapstructure:"maximize"`
	Progress      bool   `mapstructure:"progress"`
	Debug         bool   `mapstructure:"debug"`
	Cache         string `mapstructure:"cache"` // buntdb file, ":memory:" or empty to disable
}

// ParameterConfig declares one dimension. Either Values or Low/High is set.
type ParameterConfig struct {
	Name   string   `mapstructure:"name"`
	Values []any    `mapstructure:"values"`
	Low    *float64 `mapstructure:"low"`
	High   *float64 `mapstructure:"high"`
	Kind   string   `mapstructure:"kind"` // integer or real
}

// WalkForwardConfig mirrors walkforward.Config
type WalkForwardConfig struct {
	Train            int     `mapstructure:"train"`
	Test             int     `mapstructure:"test"`
	Step             int     `mapstructure:"step"`
	MinTrain         int     `mapstructure:"min_train"`
	Anchored         bool    `mapstructure:"anchored"`
	OverfitThreshold float64 `mapstructure:"overfit_threshold"`
	Bootstrap        int     `mapstructure:"bootstrap"`
	Confidence       float64 `mapstructure:"confidence"`
}

// MetricsConfig enables the Prometheus endpoint
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. :9090, empty disables
}

// OutputConfig sets where records are written
type OutputConfig struct {
	Top        int    `mapstructure:"top"`
	TrialsCSV  string `mapstructure:"trials_csv"`
	WindowsCSV string `mapstructure:"windows_csv"`
	Histogram  bool   `mapstructure:"histogram"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.backend", "zerolog")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.colored", true)

	v.SetDefault("data.timeframe", "")
	v.SetDefault("data.limit", "")

	v.SetDefault("strategy.pair", "")
	v.SetDefault("strategy.metric", string(strategy.MetricProfit))
	v.SetDefault("strategy.fee", 0.001)

	v.SetDefault("optimizer.method", string(optimizer.MethodGrid))
	v.SetDefault("optimizer.workers", 1)
	v.SetDefault("optimizer.iterations", 100)
	v.SetDefault("optimizer.total_calls", 50)
	v.SetDefault("optimizer.initial_points", 10)
	v.SetDefault("optimizer.acquisition", string(surrogate.ExpectedImprovement))
	v.SetDefault("optimizer.seed", 0)
	v.SetDefault("optimizer.maximize", true)
	v.SetDefault("optimizer.progress", false)
	v.SetDefault("optimizer.debug", false)
	v.SetDefault("optimizer.cache", "")

	v.SetDefault("walkforward.train", 0)
	v.SetDefault("walkforward.test", 0)
	v.SetDefault("walkforward.step", 0)
	v.SetDefault("walkforward.min_train", 0)
	v.SetDefault("walkforward.anchored", false)
	v.SetDefault("walkforward.overfit_threshold", walkforward.DefaultOverfitThreshold)
	v.SetDefault("walkforward.bootstrap", walkforward.DefaultBootstrapSamples)
	v.SetDefault("walkforward.confidence", walkforward.DefaultConfidence)

	v.SetDefault("metrics.listen", "")

	v.SetDefault("output.top", 10)
	v.SetDefault("output.trials_csv", "")
	v.SetDefault("output.windows_csv", "")
	v.SetDefault("output.histogram", true)
}

// New returns a Viper instance with defaults and environment overrides,
// reading path when it is not empty.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates a configured Viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that can be checked without loading data.
func (c *Config) Validate() error {
	var errs []error

	if c.Log.Backend != "zerolog" && c.Log.Backend != "logrus" {
		errs = append(errs, fmt.Errorf("log.backend must be zerolog or logrus, got %q", c.Log.Backend))
	}
	if logger.ParseLevel(c.Log.Level) == logger.NoLevel {
		errs = append(errs, fmt.Errorf("log.level %q is not a level", c.Log.Level))
	}
	for _, period := range []string{c.Data.Timeframe, c.Data.Limit} {
		if period == "" {
			continue
		}
		if _, err := str2duration.ParseDuration(period); err != nil {
			errs = append(errs, fmt.Errorf("invalid duration %q: %w", period, err))
		}
	}
	if _, err := optimizer.ParseMethod(c.Optimizer.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := surrogate.ParseAcquisition(c.Optimizer.Acquisition); err != nil {
		errs = append(errs, err)
	}
	if c.Optimizer.Workers < 1 {
		errs = append(errs, fmt.Errorf("optimizer.workers must be positive, got %d", c.Optimizer.Workers))
	}

	return errors.Join(errs...)
}

// Feeds returns the configured CSV feeds.
func (c *Config) Feeds() []dataset.Feed {
	feeds := make([]dataset.Feed, len(c.Data.Feeds))
	for i, feed := range c.Data.Feeds {
		feeds[i] = dataset.Feed{Pair: feed.Pair, File: feed.File, Timeframe: feed.Timeframe}
	}
	return feeds
}

// Pair returns the pair scored by the strategy, the first feed by default.
func (c *Config) Pair() string {
	if c.Strategy.Pair != "" || len(c.Data.Feeds) == 0 {
		return c.Strategy.Pair
	}
	return c.Data.Feeds[0].Pair
}

// CacheNamespace identifies the cached scores of the objective built from
// this configuration over the data between first and last. Every setting
// that changes the score of a parameter set is part of it.
func (c *Config) CacheNamespace(first, last time.Time) string {
	feeds := lo.Map(c.Data.Feeds, func(feed FeedConfig, _ int) string {
		return fmt.Sprintf("%s@%s/%s", feed.Pair, feed.File, feed.Timeframe)
	})
	return strings.Join([]string{
		c.Pair(),
		c.Strategy.Metric,
		fmt.Sprintf("fee=%g", c.Strategy.Fee),
		"ma=" + strategy.DefaultMA,
		"timeframe=" + c.Data.Timeframe,
		"limit=" + c.Data.Limit,
		"feeds=" + strings.Join(feeds, ";"),
		fmt.Sprintf("%d-%d", first.Unix(), last.Unix()),
	}, ":")
}

// StrategyOptions returns the crossover options.
func (c *Config) StrategyOptions() []strategy.Option {
	return []strategy.Option{
		strategy.WithMetric(strategy.Metric(c.Strategy.Metric)),
		strategy.WithFee(c.Strategy.Fee),
	}
}

// Space builds the parameter space in declaration order.
func (c *Config) Space() (optimizer.ParameterSpace, error) {
	dims := make([]optimizer.Dimension, 0, len(c.Parameters))
	for _, param := range c.Parameters {
		domain, err := param.domain()
		if err != nil {
			return optimizer.ParameterSpace{}, err
		}
		dims = append(dims, optimizer.Param(param.Name, domain))
	}
	return optimizer.NewParameterSpace(dims...)
}

func (p ParameterConfig) domain() (optimizer.Domain, error) {
	hasRange := p.Low != nil || p.High != nil
	switch {
	case len(p.Values) > 0 && hasRange:
		return nil, fmt.Errorf("%w: parameter %s sets both values and a range", optimizer.ErrInvalidParameterSpace, p.Name)
	case len(p.Values) > 0:
		return optimizer.Enumerated{Values: p.Values}, nil
	case p.Low == nil || p.High == nil:
		return nil, fmt.Errorf("%w: parameter %s needs values or low and high", optimizer.ErrInvalidParameterSpace, p.Name)
	}

	switch strings.ToLower(p.Kind) {
	case "integer", "int", "":
		return optimizer.Range{Low: *p.Low, High: *p.High, Kind: optimizer.KindInteger}, nil
	case "real", "float":
		return optimizer.Range{Low: *p.Low, High: *p.High, Kind: optimizer.KindReal}, nil
	default:
		return nil, fmt.Errorf("%w: parameter %s has unknown kind %q", optimizer.ErrInvalidParameterSpace, p.Name, p.Kind)
	}
}

// OptimizerConfig builds the optimizer configuration.
func (c *Config) OptimizerConfig(log logger.Logger, recorder *telemetry.Recorder) (*optimizer.Config, error) {
	acquisition, err := surrogate.ParseAcquisition(c.Optimizer.Acquisition)
	if err != nil {
		return nil, err
	}

	return optimizer.NewConfig().
		WithWorkers(c.Optimizer.Workers).
		WithIterations(c.Optimizer.Iterations).
		WithTotalCalls(c.Optimizer.TotalCalls, c.Optimizer.InitialPoints).
		WithAcquisition(acquisition).
		WithSeed(c.Optimizer.Seed).
		WithMaximize(c.Optimizer.Maximize).
		WithProgress(c.Optimizer.Progress).
		WithDebug(c.Optimizer.Debug).
		WithLogger(log).
		WithTelemetry(recorder), nil
}

// WalkForwardConfig builds the walk-forward configuration.
func (c *Config) WalkForwardConfig(log logger.Logger, recorder *telemetry.Recorder) *walkforward.Config {
	return walkforward.NewConfig(c.WalkForward.Train, c.WalkForward.Test, c.WalkForward.Step).
		WithMinTrainSize(c.WalkForward.MinTrain).
		WithAnchored(c.WalkForward.Anchored).
		WithOverfitThreshold(c.WalkForward.OverfitThreshold).
		WithMaximize(c.Optimizer.Maximize).
		WithBootstrap(c.WalkForward.Bootstrap, c.WalkForward.Confidence).
		WithLogger(log).
		WithTelemetry(recorder)
}
