// Package strategy provides a moving average crossover backtest that can be
// scored as an optimizer objective.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/raykavin/paramwalk/pkg/core"
	"github.com/raykavin/paramwalk/pkg/indicator"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/walkforward"
)

// Metric names a TradeSummary figure used as the score.
type Metric string

const (
	MetricProfit       Metric = "profit"
	MetricSQN          Metric = "sqn"
	MetricWinRate      Metric = "win_rate"
	MetricPayoff       Metric = "payoff"
	MetricProfitFactor Metric = "profit_factor"
	MetricTradeCount   Metric = "trade_count"
)

// Parameter names read by the crossover objective
const (
	ParamFast = "fast"
	ParamSlow = "slow"
	ParamMA   = "ma"
)

// DefaultMA is the moving average used when the parameters have no ParamMA.
const DefaultMA = "sma"

// ErrInsufficientData is returned when the dataframe is shorter than the slow period.
var ErrInsufficientData = errors.New("insufficient data")

// Option configures a Crossover
type Option func(*Crossover)

// WithMetric sets the score reported by Evaluate
func WithMetric(metric Metric) Option {
	return func(c *Crossover) { c.metric = metric }
}

// WithFee sets the fee charged on entry and on exit, as a fraction
func WithFee(fee float64) Option {
	return func(c *Crossover) { c.fee = fee }
}

// Crossover is a long only strategy: it buys when the fast average crosses
// above the slow one and sells on the opposite cross. A position still open
// on the last candle is closed at its price. It only reads its dataframe and
// is safe for concurrent use.
type Crossover struct {
	df     *core.Dataframe
	metric Metric
	fee    float64
}

// NewCrossover creates the objective over df, scored by profit by default.
func NewCrossover(df *core.Dataframe, opts ...Option) *Crossover {
	c := &Crossover{df: df, metric: MetricProfit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate backtests the parameters and returns the configured metric.
func (c *Crossover) Evaluate(ctx context.Context, params optimizer.ParameterSet) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	summary, err := c.Backtest(params)
	if err != nil {
		return 0, err
	}
	return summary.Score(c.metric)
}

// Backtest runs the strategy with params and returns its trades.
func (c *Crossover) Backtest(params optimizer.ParameterSet) (TradeSummary, error) {
	fast, err := params.Int(ParamFast)
	if err != nil {
		return TradeSummary{}, err
	}
	slow, err := params.Int(ParamSlow)
	if err != nil {
		return TradeSummary{}, err
	}
	name := DefaultMA
	if _, ok := params[ParamMA]; ok {
		if name, err = params.Text(ParamMA); err != nil {
			return TradeSummary{}, err
		}
	}
	maType, err := indicator.ParseMaType(name)
	if err != nil {
		return TradeSummary{}, err
	}

	switch {
	case fast < 1:
		return TradeSummary{}, fmt.Errorf("fast period must be positive, got %d", fast)
	case fast >= slow:
		return TradeSummary{}, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	case c.df.Len() <= slow:
		return TradeSummary{}, fmt.Errorf("%w: %d candles for slow period %d", ErrInsufficientData, c.df.Len(), slow)
	}

	closes := c.df.Close.Values()
	fastMA := core.Series[float64](indicator.MA(closes, fast, maType))
	slowMA := core.Series[float64](indicator.MA(closes, slow, maType))

	summary := TradeSummary{Pair: c.df.Pair, Equity: 1}
	entry, open := 0.0, false

	// both averages are defined from index slow-1 on
	for i := slow; i < len(closes); i++ {
		switch {
		case !open && fastMA.CrossoverAt(slowMA, i):
			entry, open = closes[i], true
		case open && fastMA.CrossunderAt(slowMA, i):
			summary.close(entry, closes[i], c.fee)
			open = false
		}
	}
	if open {
		summary.close(entry, closes[len(closes)-1], c.fee)
	}

	return summary, nil
}

func (s *TradeSummary) close(entry, exit, fee float64) {
	ret := exit*(1-fee)/(entry*(1+fee)) - 1
	s.Returns = append(s.Returns, ret)
	s.Equity *= 1 + ret
}

// Factory builds crossover objectives over the pair entry of a walk-forward
// dataset.
func Factory(pair string, opts ...Option) walkforward.ObjectiveFactory {
	return func(data walkforward.Dataset) (optimizer.Objective, error) {
		entry, ok := data[pair]
		if !ok {
			return nil, fmt.Errorf("no data for pair %s", pair)
		}
		df, ok := walkforward.Value[*core.Dataframe](entry)
		if !ok {
			return nil, fmt.Errorf("pair %s is not a dataframe", pair)
		}
		if df.Len() == 0 {
			return nil, fmt.Errorf("%w: no candles for %s", ErrInsufficientData, pair)
		}
		return NewCrossover(df, opts...), nil
	}
}
