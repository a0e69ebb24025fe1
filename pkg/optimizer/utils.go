package optimizer

import (
	"math"
	"sort"
	"time"
)

// TrialRecord is a flat, presentation friendly view of a Trial.
type TrialRecord struct {
	Rank       int // 1 is best, 0 for failed trials
	Index      int
	Parameters ParameterSet
	Score      float64
	Failed     bool
	Error      string
	Duration   time.Duration
}

// TrialSorter sorts trials best first, failed trials last, keeping the
// evaluation order between equal scores.
type TrialSorter struct {
	Trials   []Trial
	Maximize bool
}

// Len returns the number of trials
func (s TrialSorter) Len() int {
	return len(s.Trials)
}

// Swap swaps two trials
func (s TrialSorter) Swap(i, j int) {
	s.Trials[i], s.Trials[j] = s.Trials[j], s.Trials[i]
}

// Less compares two trials by score
func (s TrialSorter) Less(i, j int) bool {
	a, b := s.Trials[i], s.Trials[j]
	if a.Missing() != b.Missing() {
		return !a.Missing()
	}
	if a.Missing() {
		return false
	}
	return better(a.Score, b.Score, s.Maximize)
}

// Ranked returns the trials best first without modifying the result.
func (r *OptimizationResult) Ranked() []Trial {
	ranked := append([]Trial(nil), r.Trials...)
	sort.Stable(TrialSorter{Trials: ranked, Maximize: r.Maximize})
	return ranked
}

// Records returns one row per trial, best first.
func (r *OptimizationResult) Records() []TrialRecord {
	ranked := r.Ranked()
	records := make([]TrialRecord, len(ranked))
	for i, trial := range ranked {
		record := TrialRecord{
			Index:      trial.Index,
			Parameters: trial.Parameters,
			Score:      trial.Score,
			Failed:     trial.Missing(),
			Duration:   trial.Duration,
		}
		if record.Failed {
			record.Score = math.NaN()
			if trial.Err != nil {
				record.Error = trial.Err.Error()
			}
		} else {
			record.Rank = i + 1
		}
		records[i] = record
	}
	return records
}

// Top returns at most n records, best first.
func (r *OptimizationResult) Top(n int) []TrialRecord {
	records := r.Records()
	if n > 0 && n < len(records) {
		records = records[:n]
	}
	return records
}

// ParameterNames returns every parameter name found in the trials, sorted.
func (r *OptimizationResult) ParameterNames() []string {
	seen := make(ParameterSet)
	for _, trial := range r.Trials {
		for name := range trial.Parameters {
			seen[name] = struct{}{}
		}
	}
	return seen.Names()
}
