package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/walkforward"
)

// SaveTrialsCSV writes every trial of result to filePath, best first.
func SaveTrialsCSV(result *optimizer.OptimizationResult, filePath string) error {
	return saveCSV(filePath, func(w io.Writer) error { return WriteTrialsCSV(w, result) })
}

// SaveWindowsCSV writes every window of report to filePath.
func SaveWindowsCSV(report *walkforward.Report, filePath string) error {
	return saveCSV(filePath, func(w io.Writer) error { return WriteWindowsCSV(w, report) })
}

func saveCSV(filePath string, write func(io.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteTrialsCSV writes one row per trial with a column per parameter.
func WriteTrialsCSV(w io.Writer, result *optimizer.OptimizationResult) error {
	writer := csv.NewWriter(w)
	names := result.ParameterNames()

	header := append(append([]string{"Rank", "Trial", "Duration"}, names...), "Score", "Error")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range result.Records() {
		row := []string{strconv.Itoa(record.Rank), strconv.Itoa(record.Index), record.Duration.String()}
		row = append(row, parameterCells(record.Parameters, names)...)
		row = append(row, csvFloat(record.Score), record.Error)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteWindowsCSV writes one row per walk-forward window.
func WriteWindowsCSV(w io.Writer, report *walkforward.Report) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Window", "TrainFrom", "TrainTo", "TrainSize", "TestFrom", "TestTo", "TestSize",
		"Parameters", "TrainScore", "TestScore", "OverfitGap", "Overfitting", "Status", "Error",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range report.Records() {
		row := []string{
			strconv.Itoa(record.Index),
			csvTime(record.TrainFrom),
			csvTime(record.TrainTo),
			strconv.Itoa(record.TrainSize),
			csvTime(record.TestFrom),
			csvTime(record.TestTo),
			strconv.Itoa(record.TestSize),
			record.Parameters,
			csvFloat(record.TrainScore),
			csvFloat(record.TestScore),
			csvFloat(record.OverfitGap),
			strconv.FormatBool(record.Overfitting),
			record.Status,
			record.Error,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

func csvTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
