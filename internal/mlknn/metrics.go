package mlknn

import (
	"fmt"

	"schoolinfra/domain/core"
)

// Confusion is a per-label binary confusion matrix
type Confusion struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Precision is TP/(TP+FP), 0 when nothing was predicted
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

// Recall is TP/(TP+FN), 0 when the label never occurs
func (c Confusion) Recall() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall
func (c Confusion) F1() float64 {
	return f1(c.Precision(), c.Recall())
}

// Accuracy is the share of rows where the label was predicted correctly
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.TP+c.TN+c.FP+c.FN)
}

// Support is the number of rows that truly carry the label
func (c Confusion) Support() int {
	return c.TP + c.FN
}

func (c Confusion) add(o Confusion) Confusion {
	return Confusion{TN: c.TN + o.TN, FP: c.FP + o.FP, FN: c.FN + o.FN, TP: c.TP + o.TP}
}

// LabelReport holds metrics for a single label
type LabelReport struct {
	Label     string    `json:"label"`
	Confusion Confusion `json:"confusion"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Accuracy  float64   `json:"accuracy"`
	Support   int       `json:"support"`
}

// Report is a multi-label classification report
type Report struct {
	Labels         []LabelReport `json:"labels"`
	SubsetAccuracy float64       `json:"subset_accuracy"`
	MicroPrecision float64       `json:"micro_precision"`
	MicroRecall    float64       `json:"micro_recall"`
	MicroF1        float64       `json:"micro_f1"`
	MacroPrecision float64       `json:"macro_precision"`
	MacroRecall    float64       `json:"macro_recall"`
	MacroF1        float64       `json:"macro_f1"`
}

// SubsetAccuracy is the fraction of rows whose predicted label set matches exactly
func SubsetAccuracy(yTrue, yPred [][]int) (float64, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return 0, err
	}
	if len(yTrue) == 0 {
		return 0, core.ErrEmptyDataset
	}
	exact := 0
	for i := range yTrue {
		if equalRows(yTrue[i], yPred[i]) {
			exact++
		}
	}
	return float64(exact) / float64(len(yTrue)), nil
}

// MultilabelConfusion returns one confusion matrix per label column
func MultilabelConfusion(yTrue, yPred [][]int) ([]Confusion, error) {
	if err := checkShapes(yTrue, yPred); err != nil {
		return nil, err
	}
	if len(yTrue) == 0 {
		return nil, core.ErrEmptyDataset
	}
	out := make([]Confusion, len(yTrue[0]))
	for i := range yTrue {
		for l := range yTrue[i] {
			t, p := yTrue[i][l] != 0, yPred[i][l] != 0
			switch {
			case t && p:
				out[l].TP++
			case t && !p:
				out[l].FN++
			case !t && p:
				out[l].FP++
			default:
				out[l].TN++
			}
		}
	}
	return out, nil
}

// ClassificationReport computes per-label and averaged metrics; classes names the label columns
func ClassificationReport(yTrue, yPred [][]int, classes []string) (*Report, error) {
	confusions, err := MultilabelConfusion(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if len(classes) != len(confusions) {
		return nil, core.NewShapeError("class names", len(confusions), len(classes))
	}
	subset, err := SubsetAccuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	report := &Report{SubsetAccuracy: subset}
	var total Confusion
	for l, c := range confusions {
		report.Labels = append(report.Labels, LabelReport{
			Label:     classes[l],
			Confusion: c,
			Precision: c.Precision(),
			Recall:    c.Recall(),
			F1:        c.F1(),
			Accuracy:  c.Accuracy(),
			Support:   c.Support(),
		})
		total = total.add(c)
		report.MacroPrecision += c.Precision()
		report.MacroRecall += c.Recall()
		report.MacroF1 += c.F1()
	}
	if n := float64(len(confusions)); n > 0 {
		report.MacroPrecision /= n
		report.MacroRecall /= n
		report.MacroF1 /= n
	}
	report.MicroPrecision = total.Precision()
	report.MicroRecall = total.Recall()
	report.MicroF1 = total.F1()
	return report, nil
}

func checkShapes(yTrue, yPred [][]int) error {
	if len(yTrue) != len(yPred) {
		return core.NewShapeError("prediction rows", len(yTrue), len(yPred))
	}
	for i := range yTrue {
		if len(yTrue[i]) != len(yPred[i]) {
			return core.NewShapeError(fmt.Sprintf("prediction width of row %d", i), len(yTrue[i]), len(yPred[i]))
		}
	}
	return nil
}

func equalRows(a, b []int) bool {
	for i := range a {
		if (a[i] != 0) != (b[i] != 0) {
			return false
		}
	}
	return true
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
