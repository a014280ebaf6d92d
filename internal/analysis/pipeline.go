package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
	"schoolinfra/domain/recommend"
	"schoolinfra/internal/errors"
	"schoolinfra/internal/mlknn"
)

// NoPredictionText fills ML_Recommendations when the model predicts no label
const NoPredictionText = "No immediate actions needed as all infrastructure indicators are adequate"

// LabelDataset copies the table and adds a Recommendations column produced by the rule labeler
func LabelDataset(table *infra.Table, labeler *recommend.Labeler) *infra.Table {
	out := &infra.Table{Headers: append([]string(nil), table.Headers...)}
	out.AddColumn(infra.ColRecommendations)

	for _, rec := range table.Records {
		labeled := infra.NewRecord(cloneRaw(rec.Raw))
		labeled.Set(infra.ColRecommendations, recommend.Join(labeler.Label(rec)))
		out.Records = append(out.Records, labeled)
	}
	return out
}

// TrainingData extracts the feature matrix and label sets from a labeled table
func TrainingData(table *infra.Table) (*mat.Dense, [][]string, error) {
	if len(table.Records) == 0 {
		return nil, nil, core.ErrEmptyDataset
	}
	if !table.HasColumn(infra.ColRecommendations) {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, infra.ColRecommendations)
	}
	rows := make([][]float64, len(table.Records))
	labels := make([][]string, len(table.Records))
	for i, rec := range table.Records {
		rows[i] = rec.Features()
		labels[i] = recommend.Split(rec.Value(infra.ColRecommendations))
	}
	x, err := mlknn.FromRows(rows)
	if err != nil {
		return nil, nil, err
	}
	return x, labels, nil
}

// Analyze scores every record and attaches the model's predicted recommendations.
// The returned table carries the input columns followed by predictions and scores.
func Analyze(ctx context.Context, table *infra.Table, model *mlknn.Model, binarizer *mlknn.Binarizer) ([]infra.AnalysisResult, *infra.Table, error) {
	if err := model.Validate(binarizer); err != nil {
		return nil, nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "model and binarizer disagree"))
	}
	if err := checkFeatureOrder(model.FeatureNames); err != nil {
		return nil, nil, err
	}
	if len(table.Records) == 0 {
		return nil, nil, core.ErrEmptyDataset
	}

	rows := make([][]float64, len(table.Records))
	for i, rec := range table.Records {
		rows[i] = rec.Features()
	}
	x, err := mlknn.FromRows(rows)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	pred, err := model.Classifier.Predict(x)
	if err != nil {
		return nil, nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "prediction failed"))
	}
	decoded := binarizer.InverseTransform(pred)

	out := &infra.Table{Headers: infra.OutputHeaders(table.Headers)}
	results := make([]infra.AnalysisResult, len(table.Records))
	for i, rec := range table.Records {
		results[i] = infra.NewAnalysisResult(rec, FormatPrediction(decoded[i]))
		out.Records = append(out.Records, results[i].Record)
	}

	zap.L().Info("analysis complete",
		zap.Int("rows", len(results)),
		zap.String("model_id", model.ID.String()))
	return results, out, nil
}

// FormatPrediction joins predicted labels, or returns NoPredictionText when there are none
func FormatPrediction(labels []string) string {
	if len(labels) == 0 {
		return NoPredictionText
	}
	return recommend.Join(labels)
}

func checkFeatureOrder(names []string) error {
	want := infra.FeatureNames()
	if len(names) != len(want) {
		return errors.ModelError(fmt.Sprintf("model expects %d features, table provides %d", len(names), len(want)))
	}
	for i := range want {
		if !strings.EqualFold(names[i], want[i]) {
			return errors.ModelError(fmt.Sprintf("feature %d is %q in model, %q in table", i, names[i], want[i]))
		}
	}
	return nil
}

func cloneRaw(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	return out
}
