package analysis

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
	"schoolinfra/domain/recommend"
	"schoolinfra/internal/mlknn"
)

func rec(location, ruralUrban, category string, counts map[string]float64) infra.Record {
	raw := map[string]string{
		infra.ColLocation:   location,
		infra.ColRuralUrban: ruralUrban,
		infra.ColCategory:   category,
	}
	for col, v := range counts {
		raw[col] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return infra.NewRecord(raw)
}

// adequate has every facility well above the rule thresholds
func adequate(location, category string, total float64) infra.Record {
	counts := map[string]float64{infra.ColTotalSchools: total}
	for _, m := range infra.ScoredMetrics {
		counts[m.Column] = total
	}
	return rec(location, "Rural", category, counts)
}

// lacking has no facilities at all, so every rule fires
func lacking(location, category string, total float64) infra.Record {
	counts := map[string]float64{infra.ColTotalSchools: total}
	for _, m := range infra.ScoredMetrics {
		counts[m.Column] = 0
	}
	return rec(location, "Rural", category, counts)
}

func tableOf(records ...infra.Record) *infra.Table {
	headers := []string{infra.ColLocation, infra.ColRuralUrban, infra.ColCategory}
	headers = append(headers, infra.FeatureNames()...)
	return &infra.Table{Headers: headers, Records: records}
}

func TestLabelDataset(t *testing.T) {
	in := tableOf(adequate("Goa", "Primary", 10), lacking("Goa", "Secondary", 10))

	out := LabelDataset(in, recommend.NewLabeler(nil))

	assert.True(t, out.HasColumn(infra.ColRecommendations))
	assert.False(t, in.HasColumn(infra.ColRecommendations), "input table is not modified")
	assert.Equal(t, recommend.NoActionText, out.Records[0].Value(infra.ColRecommendations))
	assert.Len(t, recommend.Split(out.Records[1].Value(infra.ColRecommendations)), len(recommend.DefaultRules))
	assert.Equal(t, "", in.Records[0].Value(infra.ColRecommendations))
}

func trainedModel(t *testing.T, table *infra.Table) (*mlknn.Model, *mlknn.Binarizer) {
	t.Helper()
	labeled := LabelDataset(table, recommend.NewLabeler(nil))
	x, labels, err := TrainingData(labeled)
	require.NoError(t, err)

	b := mlknn.NewBinarizer()
	y := b.FitTransform(labels)
	clf := mlknn.NewClassifier(3, 1)
	require.NoError(t, clf.Fit(x, y))
	m, err := mlknn.NewModel(clf, infra.FeatureNames(), b)
	require.NoError(t, err)
	return m, b
}

func TestAnalyze(t *testing.T) {
	table := tableOf(
		adequate("A", "Primary", 100),
		adequate("B", "Primary", 110),
		adequate("C", "Primary", 120),
		lacking("D", "Primary", 100),
		lacking("E", "Primary", 110),
		lacking("F", "Primary", 120),
	)
	model, binarizer := trainedModel(t, table)

	query := tableOf(adequate("X", "Primary", 105), lacking("Y", "Primary", 105))
	results, out, err := Analyze(context.Background(), query, model, binarizer)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, recommend.NoActionText, results[0].MLRecommendations)
	assert.Equal(t, 100, results[0].Scores.ByColumn[infra.ColInternet])
	assert.InDelta(t, 100.0, results[0].Scores.Total, 1e-9)

	assert.Len(t, recommend.Split(results[1].MLRecommendations), len(recommend.DefaultRules))
	assert.InDelta(t, 0.0, results[1].Scores.Total, 1e-9)

	assert.Equal(t, infra.OutputHeaders(query.Headers), out.Headers)
	assert.Equal(t, "100", out.Records[0].Value(infra.ColInternet+" Score"))
	assert.Equal(t, "100", out.Records[0].Value(infra.ColTotalScore))
}

func TestAnalyzeRejectsForeignFeatureOrder(t *testing.T) {
	table := tableOf(
		adequate("A", "Primary", 100), adequate("B", "Primary", 110),
		lacking("C", "Primary", 100), lacking("D", "Primary", 110),
	)
	model, binarizer := trainedModel(t, table)
	model.FeatureNames[0], model.FeatureNames[1] = model.FeatureNames[1], model.FeatureNames[0]

	_, _, err := Analyze(context.Background(), table, model, binarizer)
	assert.Error(t, err)
}

func TestFormatPrediction(t *testing.T) {
	assert.Equal(t, NoPredictionText, FormatPrediction(nil))
	assert.Equal(t, "a; b", FormatPrediction([]string{"a", "b"}))
}

func TestTrainingDataRequiresLabels(t *testing.T) {
	_, _, err := TrainingData(tableOf(adequate("A", "Primary", 1)))
	assert.ErrorIs(t, err, core.ErrColumnNotFound)

	_, _, err = TrainingData(&infra.Table{})
	assert.ErrorIs(t, err, core.ErrEmptyDataset)
}

func gapRecords() []infra.Record {
	return []infra.Record{
		rec("Kerala", "Rural", "Primary", map[string]float64{infra.ColTotalSchools: 100, infra.ColLibrary: 90}),
		rec("Kerala", "Urban", "Primary", map[string]float64{infra.ColTotalSchools: 50, infra.ColLibrary: 40}),
		rec("Bihar", "Rural", "Primary", map[string]float64{infra.ColTotalSchools: 200, infra.ColLibrary: 50}),
		rec("Goa", "Rural", "Primary", map[string]float64{infra.ColTotalSchools: 30, infra.ColLibrary: 30}),
		rec("Punjab", "Rural", "Primary", map[string]float64{infra.ColTotalSchools: 10, infra.ColLibrary: 40}),
		rec(infra.TotalLocation, "", "", map[string]float64{infra.ColTotalSchools: 390, infra.ColLibrary: 250}),
	}
}

func TestFacilityGaps(t *testing.T) {
	report, err := FacilityGaps(gapRecords(), "library", "all", "desc", 0)
	require.NoError(t, err)

	// Goa has no gap and Punjab's negative gap clamps to 0; Total is never listed
	require.Len(t, report.Gaps, 2)
	assert.Equal(t, "Bihar", report.Gaps[0].Location)
	assert.Equal(t, 150.0, report.Gaps[0].WithoutFacility)
	assert.Equal(t, "Kerala", report.Gaps[1].Location)
	assert.Equal(t, 150.0, report.Gaps[1].TotalSchools)
	assert.Equal(t, 20.0, report.Gaps[1].WithoutFacility)

	require.NotNil(t, report.Stats)
	assert.Equal(t, 170.0, report.Stats.Total)
	assert.Equal(t, 85.0, report.Stats.Average)
	assert.Equal(t, 150.0, report.Stats.Max)
	assert.Equal(t, 20.0, report.Stats.Min)
}

func TestFacilityGapsOrderLimitAndState(t *testing.T) {
	report, err := FacilityGaps(gapRecords(), "library", "", "asc", 1)
	require.NoError(t, err)
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "Kerala", report.Gaps[0].Location)

	report, err = FacilityGaps(gapRecords(), "library", "Goa", "desc", 10)
	require.NoError(t, err)
	assert.Empty(t, report.Gaps)
	assert.Nil(t, report.Stats)

	_, err = FacilityGaps(gapRecords(), "swimming_pool", "all", "desc", 10)
	assert.ErrorIs(t, err, core.ErrFacilityNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestStateAnalysis(t *testing.T) {
	records := []infra.Record{
		rec("Kerala", "Rural", "Primary", map[string]float64{
			infra.ColTotalSchools: 100, infra.ColLibrary: 90, infra.ColInternet: 10, infra.ColElectricity: 100,
		}),
		rec("Kerala", "Urban", "Primary", map[string]float64{
			infra.ColTotalSchools: 200, infra.ColLibrary: 10, infra.ColInternet: 91,
		}),
		rec("Goa", "Rural", "Primary", map[string]float64{infra.ColTotalSchools: 5}),
	}

	report, err := StateAnalysis(records, "Kerala")
	require.NoError(t, err)
	assert.Equal(t, 300.0, report.TotalSchools)
	require.Len(t, report.Facilities, 5)

	library := report.Facilities[0]
	assert.Equal(t, "library", library.Facility)
	assert.Equal(t, 100.0, library.With)
	assert.Equal(t, 200.0, library.Without)
	assert.Equal(t, 33.3, library.Coverage)

	assert.Equal(t, 33.7, report.Facilities[1].Coverage)
	assert.Equal(t, 0.0, report.Facilities[2].Coverage)

	_, err = StateAnalysis(records, "Atlantis")
	assert.ErrorIs(t, err, core.ErrStateNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestStateAnalysisZeroSchools(t *testing.T) {
	report, err := StateAnalysis([]infra.Record{rec("Goa", "Rural", "Primary", nil)}, "Goa")
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Facilities[0].Coverage)
}

func TestSchoolLevel(t *testing.T) {
	assert.Equal(t, "higher secondary", schoolLevel("Higher Secondary with Secondary"))
	assert.Equal(t, "higher secondary", schoolLevel("HSS"))
	assert.Equal(t, "secondary", schoolLevel("Secondary Only"))
	assert.Equal(t, "primary", schoolLevel("Primary with Upper Primary"))
	assert.Equal(t, "", schoolLevel("Pre-school"))
}

func fullCoverage(total float64) map[string]float64 {
	return map[string]float64{
		infra.ColTotalSchools:  total,
		infra.ColLibrary:       total,
		infra.ColInternet:      total,
		infra.ColDrinkingWater: total,
		infra.ColToilet:        total,
		infra.ColElectricity:   total,
	}
}

func TestPrioritiesAllAdequate(t *testing.T) {
	records := []infra.Record{
		rec("Goa", "Rural", "Co-Ed Primary", fullCoverage(100)),
		rec("Goa", "Urban", "Co-Ed Secondary", fullCoverage(100)),
	}
	assert.Empty(t, Priorities(records, "Goa"))
}

func TestPriorities(t *testing.T) {
	urbanCounts := fullCoverage(100)
	urbanCounts[infra.ColInternet] = 90
	ruralCounts := fullCoverage(100)
	ruralCounts[infra.ColInternet] = 0
	ruralCounts[infra.ColLibrary] = 40
	ruralCounts[infra.ColElectricity] = 0

	records := []infra.Record{
		rec("Bihar", "Rural", "Primary", ruralCounts),
		rec("Bihar", "Urban", "Co-Ed Secondary", urbanCounts),
		rec("Goa", "Rural", "Co-Ed Primary", fullCoverage(1000)),
	}

	groups := Priorities(records, "Bihar")
	require.Len(t, groups, 2)

	assert.Equal(t, PriorityUrgent, groups[0].Priority)
	assert.Equal(t, []string{
		"Critical internet shortage: Only 45.0% schools covered",
		"Significant rural-urban digital divide: 0.0% rural vs 90.0% urban schools with internet",
	}, groups[0].Items)

	assert.Equal(t, PriorityImportant, groups[1].Priority)
	assert.Equal(t, []string{
		"Improve library coverage (current: 70.0%)",
		"Improve electricity coverage (current: 50.0%)",
		"Improve basic infrastructure in primary schools (current: 0.0%)",
		"Increase co-educational schools (current: 50.0%)",
	}, groups[1].Items)
}

func TestPrioritiesAcrossAllStates(t *testing.T) {
	records := []infra.Record{
		rec("Bihar", "Rural", "Co-Ed Primary", map[string]float64{infra.ColTotalSchools: 300}),
		rec("Goa", "Rural", "Co-Ed Primary", fullCoverage(100)),
	}
	groups := Priorities(records, "all")
	require.NotEmpty(t, groups)
	assert.Contains(t, groups[0].Items, "Critical library shortage: Only 25.0% schools covered")
}
