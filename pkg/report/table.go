// Package report renders optimizer and walk-forward records as console
// tables, histograms and CSV files.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/walkforward"
)

// Trials writes the topN best trials of result as a table, one column per
// parameter. topN <= 0 writes every trial.
func Trials(w io.Writer, result *optimizer.OptimizationResult, topN int) {
	names := result.ParameterNames()

	table := tablewriter.NewWriter(w)
	table.SetHeader(append(append([]string{"Rank", "Trial"}, names...), "Score", "Duration"))
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	for _, record := range result.Top(topN) {
		row := []string{rank(record.Rank), strconv.Itoa(record.Index)}
		row = append(row, parameterCells(record.Parameters, names)...)
		row = append(row, score(record.Score), record.Duration.Round(time.Microsecond).String())
		table.Append(row)
	}

	footer := make([]string, len(names)+4)
	footer[0] = string(result.Method)
	footer[1] = strconv.Itoa(result.TrialCount)
	footer[len(footer)-2] = score(result.BestScore)
	footer[len(footer)-1] = result.Elapsed.Round(time.Millisecond).String()
	table.SetFooter(footer)

	table.Render()
}

// Comparison writes one row per compared method.
func Comparison(w io.Writer, records []optimizer.ComparisonRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Method", "Best Score", "Trials", "Elapsed", "Best Parameters"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, record := range records {
		table.Append([]string{
			string(record.Method),
			score(record.BestScore),
			strconv.Itoa(record.TrialCount),
			record.Elapsed.Round(time.Millisecond).String(),
			record.BestParameters.String(),
		})
	}

	table.Render()
}

// Importance writes parameter importances, most influential first.
func Importance(w io.Writer, importance map[string]float64) {
	names := make([]string, 0, len(importance))
	for name := range importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if importance[names[i]] != importance[names[j]] {
			return importance[names[i]] > importance[names[j]]
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Parameter", "Importance"})
	for _, name := range names {
		table.Append([]string{name, fmt.Sprintf("%.3f", importance[name])})
	}
	table.Render()
}

// Windows writes the window table followed by the aggregate summary.
func Windows(w io.Writer, report *walkforward.Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Window", "Train", "Test", "Parameters", "Train Score", "Test Score", "Gap", "Status"})

	for _, record := range report.Records() {
		status := record.Status
		if record.Overfitting {
			status = "overfitting"
		}
		table.Append([]string{
			strconv.Itoa(record.Index),
			dateRange(record.TrainFrom, record.TrainTo, record.TrainSize),
			dateRange(record.TestFrom, record.TestTo, record.TestSize),
			record.Parameters,
			score(record.TrainScore),
			score(record.TestScore),
			score(record.OverfitGap),
			status,
		})
	}
	table.Render()

	_, err := fmt.Fprintln(w, report.Summary())
	return err
}

func parameterCells(params optimizer.ParameterSet, names []string) []string {
	cells := make([]string, len(names))
	for i, name := range names {
		if value, ok := params[name]; ok {
			cells[i] = formatValue(value)
		}
	}
	return cells
}

func formatValue(value any) string {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', 4, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func score(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}
	return strconv.FormatFloat(value, 'f', 4, 64)
}

func rank(value int) string {
	if value == 0 {
		return "failed"
	}
	return strconv.Itoa(value)
}

func dateRange(from, to time.Time, size int) string {
	if from.IsZero() {
		return strconv.Itoa(size)
	}
	return fmt.Sprintf("%s..%s (%d)", from.Format(time.DateOnly), to.Format(time.DateOnly), size)
}
