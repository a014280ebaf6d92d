package infra

// Column names of the school infrastructure table
const (
	ColLocation      = "Location"
	ColRuralUrban    = "Rural/Urban"
	ColCategory      = "School Category"
	ColManagement    = "School Management"
	ColSchoolType    = "School Type"
	ColTotalSchools  = "Total No. of Schools"
	ColGirlsToilet   = "Functional Girl's Toilet"
	ColInternet      = "Internet"
	ColHandwash      = "Handwash"
	ColPlayground    = "Playground"
	ColLibrary       = "Library or Reading Corner or Book Bank"
	ColIncinerator   = "Incinerator"
	ColFunctionalDW  = "Functional Drinking Water"
	ColDrinkingWater = "Drinking Water"
	ColToilet        = "Toilet Facility"
	ColElectricity   = "Electricity"
	ColComputer      = "Computer"

	ColRecommendations   = "Recommendations"
	ColMLRecommendations = "ML_Recommendations"
	ColTotalScore        = "Total Infrastructure Score"

	// TotalLocation is the summary row some exports append; it is not a region.
	TotalLocation = "Total"
)

// Metric is a counted facility column
type Metric struct {
	Column string
	Label  string
}

// ScoreColumn is the name of the percentage column derived from the metric
func (m Metric) ScoreColumn() string {
	return m.Column + " Score"
}

// FeatureMetrics lists model inputs in feature order
var FeatureMetrics = []Metric{
	{Column: ColTotalSchools, Label: "Total Schools"},
	{Column: ColGirlsToilet, Label: "Girls' Toilets"},
	{Column: ColInternet, Label: "Internet"},
	{Column: ColHandwash, Label: "Handwash"},
	{Column: ColPlayground, Label: "Playground"},
	{Column: ColLibrary, Label: "Library"},
	{Column: ColIncinerator, Label: "Incinerator"},
	{Column: ColFunctionalDW, Label: "Drinking Water"},
}

// ScoredMetrics are the feature metrics expressed as a share of all schools
var ScoredMetrics = FeatureMetrics[1:]

// FeatureNames returns the feature column names in model order
func FeatureNames() []string {
	names := make([]string, len(FeatureMetrics))
	for i, m := range FeatureMetrics {
		names[i] = m.Column
	}
	return names
}

// LookupMetric finds a feature metric by column name
func LookupMetric(column string) (Metric, bool) {
	for _, m := range FeatureMetrics {
		if m.Column == column {
			return m, true
		}
	}
	return Metric{}, false
}

// Facility is a dashboard facility key and the column counting schools that have it
type Facility struct {
	Key    string
	Label  string
	Column string
}

// Facilities used by the gap ranking, in display order
var Facilities = []Facility{
	{Key: "library", Label: "Library", Column: ColLibrary},
	{Key: "internet", Label: "Internet", Column: ColInternet},
	{Key: "drinking_water", Label: "Drinking Water", Column: ColDrinkingWater},
	{Key: "toilet", Label: "Toilets", Column: ColToilet},
	{Key: "electricity", Label: "Electricity", Column: ColElectricity},
	{Key: "computer", Label: "Computer", Column: ColComputer},
}

// LookupFacility finds a facility by key
func LookupFacility(key string) (Facility, bool) {
	for _, f := range Facilities {
		if f.Key == key {
			return f, true
		}
	}
	return Facility{}, false
}
