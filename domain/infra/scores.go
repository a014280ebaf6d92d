package infra

import (
	"math"
	"strconv"

	"github.com/montanaflynn/stats"
)

// Scores holds per-facility coverage percentages for one record
type Scores struct {
	// ByColumn maps metric column to rounded percentage of schools covered
	ByColumn map[string]int
	// Total is the mean of all facility scores
	Total float64
}

// ComputeScores derives coverage percentages from a record's counts.
// Percentages round half to even; a record with no schools scores 0 everywhere.
func ComputeScores(r Record) Scores {
	total := r.Total()
	scores := Scores{ByColumn: make(map[string]int, len(ScoredMetrics))}
	values := make([]float64, 0, len(ScoredMetrics))
	for _, m := range ScoredMetrics {
		pct := 0
		if total > 0 {
			pct = int(math.RoundToEven(r.Count(m.Column) / total * 100))
		}
		scores.ByColumn[m.Column] = pct
		values = append(values, float64(pct))
	}
	mean, err := stats.Mean(values)
	if err == nil {
		scores.Total = mean
	}
	return scores
}

// Apply writes the score columns into the record's raw values
func (s Scores) Apply(r *Record) {
	for _, m := range ScoredMetrics {
		r.Set(m.ScoreColumn(), strconv.Itoa(s.ByColumn[m.Column]))
	}
	r.Set(ColTotalScore, strconv.FormatFloat(s.Total, 'f', -1, 64))
}

// ScoreColumns lists the derived score columns in output order
func ScoreColumns() []string {
	cols := make([]string, 0, len(ScoredMetrics)+1)
	for _, m := range ScoredMetrics {
		cols = append(cols, m.ScoreColumn())
	}
	return append(cols, ColTotalScore)
}
