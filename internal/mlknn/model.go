package mlknn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"schoolinfra/domain/core"
)

// Model is a fitted classifier together with the metadata needed to use it
// safely: the feature order it expects and the label vocabulary it predicts.
type Model struct {
	ID           core.ModelID            `json:"id"`
	K            int                     `json:"k"`
	Smoothing    float64                 `json:"smoothing"`
	FeatureNames []string                `json:"feature_names"`
	Classes      []string                `json:"classes"`
	TrainedAt    core.Timestamp          `json:"trained_at"`
	Fingerprint  core.DatasetFingerprint `json:"fingerprint"`
	TestAccuracy float64                 `json:"test_accuracy"`
	Classifier   *Classifier             `json:"classifier"`
}

// NewModel wraps a fitted classifier with fresh metadata
func NewModel(clf *Classifier, features []string, binarizer *Binarizer) (*Model, error) {
	if !clf.Fitted() {
		return nil, core.ErrModelNotFitted
	}
	if len(features) != clf.NumFeatures() {
		return nil, core.NewShapeError("feature names", clf.NumFeatures(), len(features))
	}
	if binarizer.NumClasses() != clf.NumLabels() {
		return nil, core.NewShapeError("class names", clf.NumLabels(), binarizer.NumClasses())
	}
	return &Model{
		ID:           core.NewModelID(),
		K:            clf.K,
		Smoothing:    clf.S,
		FeatureNames: append([]string(nil), features...),
		Classes:      append([]string(nil), binarizer.Classes...),
		TrainedAt:    core.Now(),
		Classifier:   clf,
	}, nil
}

// Validate checks the model against the binarizer it will be decoded with
func (m *Model) Validate(binarizer *Binarizer) error {
	if m.Classifier == nil || !m.Classifier.Fitted() {
		return core.ErrModelNotFitted
	}
	if binarizer.NumClasses() != m.Classifier.NumLabels() {
		return core.NewShapeError("binarizer classes", m.Classifier.NumLabels(), binarizer.NumClasses())
	}
	for i, c := range m.Classes {
		if i < len(binarizer.Classes) && binarizer.Classes[i] != c {
			return fmt.Errorf("%w: class %d is %q in model, %q in binarizer", core.ErrShapeMismatch, i, c, binarizer.Classes[i])
		}
	}
	return nil
}

// PredictRow predicts the label vector for one feature row
func (m *Model) PredictRow(features []float64) ([]int, error) {
	if m.Classifier == nil {
		return nil, core.ErrModelNotFitted
	}
	if len(features) == 0 {
		return nil, core.NewShapeError("feature count", m.Classifier.NumFeatures(), 0)
	}
	pred, err := m.Classifier.Predict(mat.NewDense(1, len(features), append([]float64(nil), features...)))
	if err != nil {
		return nil, err
	}
	return pred[0], nil
}

// ProbaRow returns per-label probabilities for one feature row
func (m *Model) ProbaRow(features []float64) ([]float64, error) {
	if m.Classifier == nil {
		return nil, core.ErrModelNotFitted
	}
	if len(features) == 0 {
		return nil, core.NewShapeError("feature count", m.Classifier.NumFeatures(), 0)
	}
	proba, err := m.Classifier.PredictProba(mat.NewDense(1, len(features), append([]float64(nil), features...)))
	if err != nil {
		return nil, err
	}
	return proba[0], nil
}
