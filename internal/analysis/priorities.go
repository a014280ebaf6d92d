package analysis

import (
	"fmt"
	"strings"

	"schoolinfra/domain/infra"
)

// Priority group names, in the order they are reported
const (
	PriorityUrgent    = "Urgent Actions Required"
	PriorityImportant = "Important Improvements Needed"
	PriorityLongTerm  = "Consider for Long-term Planning"
)

// Thresholds in percentage points
const (
	urgentCoverage     = 50.0
	importantCoverage  = 75.0
	digitalDivideGap   = 30.0
	basicInfraMinimum  = 60.0
	coEducationMinimum = 60.0
)

// PriorityGroup is one tier of recommendations
type PriorityGroup struct {
	Priority string   `json:"priority"`
	Items    []string `json:"items"`
}

type tally struct {
	with  float64
	total float64
}

func (t tally) rate() (float64, bool) {
	if t.total <= 0 {
		return 0, false
	}
	return t.with / t.total * 100, true
}

// schoolLevel buckets a school category; higher secondary is checked first
// because its names also contain the secondary markers
func schoolLevel(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "hss") || strings.Contains(c, "higher"):
		return "higher secondary"
	case strings.Contains(c, "ss") || strings.Contains(c, "secondary"):
		return "secondary"
	case strings.Contains(c, "ps") || strings.Contains(c, "primary"):
		return "primary"
	}
	return ""
}

var schoolLevels = []string{"primary", "secondary", "higher secondary"}

func hasBasicInfrastructure(rec infra.Record) bool {
	return rec.Count(infra.ColElectricity) > 0 &&
		rec.Count(infra.ColDrinkingWater) > 0 &&
		rec.Count(infra.ColToilet) > 0
}

// Priorities ranks infrastructure needs for a state, or for all rows when state is "all" or empty.
// Checks whose denominator is zero are skipped; empty groups are omitted.
func Priorities(records []infra.Record, state string) []PriorityGroup {
	coverage := make([]tally, len(coverageFacilities))
	var rural, urban, coEd tally
	levels := make(map[string]*tally, len(schoolLevels))
	for _, l := range schoolLevels {
		levels[l] = &tally{}
	}

	for _, rec := range records {
		if !matchesState(rec.Location, state) {
			continue
		}
		total := rec.Total()
		for i, f := range coverageFacilities {
			coverage[i].total += total
			coverage[i].with += rec.Count(f.Column)
		}

		switch strings.ToLower(strings.TrimSpace(rec.RuralUrban)) {
		case "rural":
			rural.total += total
			rural.with += rec.Count(infra.ColInternet)
		case "urban":
			urban.total += total
			urban.with += rec.Count(infra.ColInternet)
		}

		if lvl := levels[schoolLevel(rec.Category)]; lvl != nil {
			lvl.total += total
			if hasBasicInfrastructure(rec) {
				lvl.with += total
			}
		}

		coEd.total += total
		if strings.Contains(rec.Category, "Co-Ed") {
			coEd.with += total
		}
	}

	var urgent, important, longTerm []string
	for i, f := range coverageFacilities {
		rate, ok := coverage[i].rate()
		if !ok {
			continue
		}
		switch {
		case rate < urgentCoverage:
			urgent = append(urgent, fmt.Sprintf("Critical %s shortage: Only %.1f%% schools covered", f.Key, rate))
		case rate < importantCoverage:
			important = append(important, fmt.Sprintf("Improve %s coverage (current: %.1f%%)", f.Key, rate))
		}
	}

	ruralRate, ruralOK := rural.rate()
	urbanRate, urbanOK := urban.rate()
	if ruralOK && urbanOK && urbanRate-ruralRate > digitalDivideGap {
		urgent = append(urgent, fmt.Sprintf(
			"Significant rural-urban digital divide: %.1f%% rural vs %.1f%% urban schools with internet",
			ruralRate, urbanRate))
	}

	for _, l := range schoolLevels {
		if rate, ok := levels[l].rate(); ok && rate < basicInfraMinimum {
			important = append(important, fmt.Sprintf("Improve basic infrastructure in %s schools (current: %.1f%%)", l, rate))
		}
	}

	if rate, ok := coEd.rate(); ok && rate < coEducationMinimum {
		important = append(important, fmt.Sprintf("Increase co-educational schools (current: %.1f%%)", rate))
	}

	var groups []PriorityGroup
	for _, g := range []PriorityGroup{
		{Priority: PriorityUrgent, Items: urgent},
		{Priority: PriorityImportant, Items: important},
		{Priority: PriorityLongTerm, Items: longTerm},
	} {
		if len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
