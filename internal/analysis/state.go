package analysis

import (
	"fmt"
	"math"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
)

// coverageFacilities are the facilities reported for a state, in display order
var coverageFacilities = []struct {
	Key    string
	Label  string
	Column string
}{
	{"library", "Libraries", infra.ColLibrary},
	{"internet", "Internet", infra.ColInternet},
	{"water", "Water", infra.ColDrinkingWater},
	{"toilet", "Toilets", infra.ColToilet},
	{"electricity", "Electricity", infra.ColElectricity},
}

// FacilityCoverage counts schools with and without one facility
type FacilityCoverage struct {
	Facility string  `json:"facility"`
	Label    string  `json:"label"`
	With     float64 `json:"with"`
	Without  float64 `json:"without"`
	Coverage float64 `json:"coverage"`
}

// StateReport aggregates every row of one location
type StateReport struct {
	State        string             `json:"state"`
	TotalSchools float64            `json:"total_schools"`
	Facilities   []FacilityCoverage `json:"facilities"`
}

// StateAnalysis sums facility counts across all rows for state.
// Coverage is a percentage rounded to one decimal, 0 when the state has no schools.
func StateAnalysis(records []infra.Record, state string) (*StateReport, error) {
	report := &StateReport{State: state}
	with := make([]float64, len(coverageFacilities))
	found := false
	for _, rec := range records {
		if rec.Location != state {
			continue
		}
		found = true
		report.TotalSchools += rec.Total()
		for i, f := range coverageFacilities {
			with[i] += rec.Count(f.Column)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w %q", core.ErrStateNotFound, state)
	}

	for i, f := range coverageFacilities {
		report.Facilities = append(report.Facilities, FacilityCoverage{
			Facility: f.Key,
			Label:    f.Label,
			With:     with[i],
			Without:  report.TotalSchools - with[i],
			Coverage: round1(percent(with[i], report.TotalSchools)),
		})
	}
	return report, nil
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
