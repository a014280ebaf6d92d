package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
)

// ScoreProfile summarises the distribution of one facility score across rows
type ScoreProfile struct {
	Column   string  `json:"column"`
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Outliers int     `json:"outliers"`
}

// ProfileScores computes score distributions over every row with schools.
// The Total summary row is excluded.
func ProfileScores(records []infra.Record) ([]ScoreProfile, error) {
	columns := make([][]float64, len(infra.ScoredMetrics))
	totals := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.Location == infra.TotalLocation || rec.Total() <= 0 {
			continue
		}
		scores := infra.ComputeScores(rec)
		for i, m := range infra.ScoredMetrics {
			columns[i] = append(columns[i], float64(scores.ByColumn[m.Column]))
		}
		totals = append(totals, scores.Total)
	}
	if len(totals) == 0 {
		return nil, core.ErrInsufficientData
	}

	profiles := make([]ScoreProfile, 0, len(columns)+1)
	for i, m := range infra.ScoredMetrics {
		p, err := AnalyzeDistribution(columns[i])
		if err != nil {
			return nil, err
		}
		p.Column, p.Label = m.Column, m.Label
		profiles = append(profiles, p)
	}

	p, err := AnalyzeDistribution(totals)
	if err != nil {
		return nil, err
	}
	p.Column, p.Label = infra.ColTotalScore, "Total"
	return append(profiles, p), nil
}

// AnalyzeDistribution computes summary statistics for one sample
func AnalyzeDistribution(data []float64) (ScoreProfile, error) {
	p := ScoreProfile{Count: len(data)}

	var err error
	if p.Mean, err = stats.Mean(data); err != nil {
		return p, err
	}
	if p.StdDev, err = stats.StandardDeviationSample(data); err != nil {
		return p, err
	}
	if p.Min, err = stats.Min(data); err != nil {
		return p, err
	}
	if p.Max, err = stats.Max(data); err != nil {
		return p, err
	}
	if p.Median, err = stats.Median(data); err != nil {
		return p, err
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	p.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	p.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	if len(data) >= 3 && p.StdDev > 0 {
		p.Skewness = stat.Skew(data, nil)
	}
	if math.IsNaN(p.StdDev) {
		p.StdDev = 0
	}
	p.Outliers = detectOutliers(data, p.Q25, p.Q75)
	return p, nil
}

// detectOutliers counts values outside 1.5 IQR of the quartiles
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
