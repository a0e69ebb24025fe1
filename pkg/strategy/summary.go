package strategy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// TradeSummary collects the closed trades of one backtest. Returns are
// fractions of the entry price, net of fees.
type TradeSummary struct {
	Pair    string
	Returns []float64
	Equity  float64 // compounded growth of one unit of capital
}

// Win returns the returns of winning trades
func (s TradeSummary) Win() []float64 {
	return lo.Filter(s.Returns, func(r float64, _ int) bool { return r > 0 })
}

// Lose returns the returns of losing trades
func (s TradeSummary) Lose() []float64 {
	return lo.Filter(s.Returns, func(r float64, _ int) bool { return r <= 0 })
}

// Trades returns the number of closed trades
func (s TradeSummary) Trades() int {
	return len(s.Returns)
}

// Profit is the compounded return in percent
func (s TradeSummary) Profit() float64 {
	return (s.Equity - 1) * 100
}

// SQN (System Quality Number) calculates the quality of the trading system
// SQN = sqrt(n) * (average return / standard deviation)
func (s TradeSummary) SQN() float64 {
	totalTrades := float64(len(s.Returns))
	if totalTrades == 0 {
		return 0
	}

	avg := lo.Sum(s.Returns) / totalTrades

	variance := 0.0
	for _, r := range s.Returns {
		variance += math.Pow(r-avg, 2)
	}

	stdDev := math.Sqrt(variance / totalTrades)
	if stdDev == 0 {
		return 0
	}

	return math.Sqrt(totalTrades) * (avg / stdDev)
}

// Payoff calculates the ratio of average win to average loss
func (s TradeSummary) Payoff() float64 {
	win, lose := s.Win(), s.Lose()
	if len(win) == 0 || len(lose) == 0 {
		return 0
	}

	avgLoss := lo.Sum(lose) / float64(len(lose))
	if avgLoss == 0 {
		return 0
	}

	return (lo.Sum(win) / float64(len(win))) / math.Abs(avgLoss)
}

// ProfitFactor calculates the ratio of gross profits to gross losses
func (s TradeSummary) ProfitFactor() float64 {
	grossLoss := lo.Sum(s.Lose())
	if grossLoss == 0 {
		return 0
	}
	return lo.Sum(s.Win()) / math.Abs(grossLoss)
}

// WinPercentage calculates the percentage of winning trades
func (s TradeSummary) WinPercentage() float64 {
	if len(s.Returns) == 0 {
		return 0
	}
	return float64(len(s.Win())) / float64(len(s.Returns)) * 100
}

// Score returns the value of metric.
func (s TradeSummary) Score(metric Metric) (float64, error) {
	switch metric {
	case MetricProfit:
		return s.Profit(), nil
	case MetricSQN:
		return s.SQN(), nil
	case MetricWinRate:
		return s.WinPercentage(), nil
	case MetricPayoff:
		return s.Payoff(), nil
	case MetricProfitFactor:
		return s.ProfitFactor(), nil
	case MetricTradeCount:
		return float64(s.Trades()), nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

// String formats the trade summary as a text table
func (s TradeSummary) String() string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	data := [][]string{
		{"Coin", s.Pair},
		{"Trades", strconv.Itoa(s.Trades())},
		{"Win", strconv.Itoa(len(s.Win()))},
		{"Loss", strconv.Itoa(len(s.Lose()))},
		{"% Win", fmt.Sprintf("%.1f", s.WinPercentage())},
		{"Payoff", fmt.Sprintf("%.1f", s.Payoff()*100)},
		{"Pr.Fact", fmt.Sprintf("%.1f", s.ProfitFactor()*100)},
		{"Profit", fmt.Sprintf("%.2f%%", s.Profit())},
		{"SQN", fmt.Sprintf("%.2f", s.SQN())},
	}

	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return tableString.String()
}
