package infra

import (
	"strings"
)

// AnalysisResult is a record after scoring and model prediction
type AnalysisResult struct {
	Record            Record
	Scores            Scores
	MLRecommendations string
}

// NewAnalysisResult scores a record and attaches the predicted recommendations
func NewAnalysisResult(r Record, recommendations string) AnalysisResult {
	res := AnalysisResult{
		Record:            r,
		Scores:            ComputeScores(r),
		MLRecommendations: recommendations,
	}
	res.Record.Raw = cloneRaw(r.Raw)
	res.Record.Set(ColMLRecommendations, recommendations)
	res.Scores.Apply(&res.Record)
	return res
}

// ResultFromRecord rebuilds a result from a row of the analysis output table.
// Score cells that are missing read as 0, matching how the form endpoint reports them.
func ResultFromRecord(r Record) AnalysisResult {
	res := AnalysisResult{
		Record:            r,
		MLRecommendations: strings.TrimSpace(r.Value(ColMLRecommendations)),
		Scores:            Scores{ByColumn: make(map[string]int, len(ScoredMetrics))},
	}
	for _, m := range ScoredMetrics {
		v, _ := ParseNumber(r.Value(m.ScoreColumn()))
		res.Scores.ByColumn[m.Column] = int(v)
	}
	res.Scores.Total, _ = ParseNumber(r.Value(ColTotalScore))
	return res
}

// OutputHeaders returns the analysis output header: input columns, predictions, then scores
func OutputHeaders(input []string) []string {
	t := Table{Headers: append([]string(nil), input...)}
	t.AddColumn(ColMLRecommendations)
	for _, col := range ScoreColumns() {
		t.AddColumn(col)
	}
	return t.Headers
}

func cloneRaw(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw)+len(ScoredMetrics)+2)
	for k, v := range raw {
		out[k] = v
	}
	return out
}
