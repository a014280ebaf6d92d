package analysis

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
)

// DefaultGapLimit caps how many locations a gap report lists
const DefaultGapLimit = 10

// Sort orders for gap reports
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// LocationGap counts schools lacking a facility in one location
type LocationGap struct {
	Location        string  `json:"location"`
	TotalSchools    float64 `json:"total_schools"`
	WithoutFacility float64 `json:"without_facility"`
}

// GapStats summarises the listed gaps
type GapStats struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// GapReport lists the locations with the largest (or smallest) facility gaps
type GapReport struct {
	Facility string        `json:"facility"`
	Label    string        `json:"label"`
	Order    string        `json:"order"`
	Gaps     []LocationGap `json:"gaps"`
	Stats    *GapStats     `json:"stats,omitempty"`
}

// FacilityGaps sums schools without the facility per location.
// state "" or "all" covers every location; the national Total row is always skipped.
func FacilityGaps(records []infra.Record, facilityKey, state, order string, limit int) (*GapReport, error) {
	facility, ok := infra.LookupFacility(facilityKey)
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrFacilityNotFound, facilityKey)
	}
	if order != OrderAsc {
		order = OrderDesc
	}
	if limit <= 0 {
		limit = DefaultGapLimit
	}

	index := make(map[string]int)
	var gaps []LocationGap
	for _, rec := range records {
		loc := rec.Location
		if loc == "" || loc == infra.TotalLocation || !matchesState(loc, state) {
			continue
		}
		i, seen := index[loc]
		if !seen {
			i = len(gaps)
			index[loc] = i
			gaps = append(gaps, LocationGap{Location: loc})
		}
		total := rec.Total()
		without := total - rec.Count(facility.Column)
		if without < 0 {
			without = 0
		}
		gaps[i].TotalSchools += total
		gaps[i].WithoutFacility += without
	}

	kept := gaps[:0]
	for _, g := range gaps {
		if g.WithoutFacility > 0 {
			kept = append(kept, g)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		if order == OrderAsc {
			return kept[a].WithoutFacility < kept[b].WithoutFacility
		}
		return kept[a].WithoutFacility > kept[b].WithoutFacility
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}

	report := &GapReport{Facility: facility.Key, Label: facility.Label, Order: order, Gaps: kept}
	if len(kept) > 0 {
		report.Stats = gapStats(kept)
	}
	return report, nil
}

func gapStats(gaps []LocationGap) *GapStats {
	values := make(stats.Float64Data, len(gaps))
	for i, g := range gaps {
		values[i] = g.WithoutFacility
	}
	// errors only occur on empty input, which callers exclude
	sum, _ := values.Sum()
	mean, _ := values.Mean()
	max, _ := values.Max()
	min, _ := values.Min()
	return &GapStats{Total: sum, Average: mean, Max: max, Min: min}
}

func matchesState(location, state string) bool {
	return state == "" || state == "all" || location == state
}
