package mlknn

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"schoolinfra/domain/core"
)

// DefaultSmoothing is the Laplace smoothing used for priors and posteriors
const DefaultSmoothing = 1.0

// Classifier is a multi-label k-nearest-neighbour model (ML-kNN).
//
// For every label it learns a prior from label frequencies and, for each
// possible count δ of neighbours carrying the label, the likelihood of
// seeing δ given that the label is present or absent. Prediction picks the
// maximum a posteriori assignment per label.
type Classifier struct {
	K int
	S float64

	x         *mat.Dense
	y         [][]int
	priorTrue []float64
	condTrue  [][]float64
	condFalse [][]float64
}

// NewClassifier creates an unfitted classifier
func NewClassifier(k int, smoothing float64) *Classifier {
	return &Classifier{K: k, S: smoothing}
}

// Fitted reports whether Fit has completed
func (c *Classifier) Fitted() bool {
	return c.x != nil
}

// NumLabels returns the label dimension seen during Fit
func (c *Classifier) NumLabels() int {
	return len(c.priorTrue)
}

// NumSamples returns the number of training rows kept for neighbour search
func (c *Classifier) NumSamples() int {
	if c.x == nil {
		return 0
	}
	rows, _ := c.x.Dims()
	return rows
}

// NumFeatures returns the feature dimension seen during Fit
func (c *Classifier) NumFeatures() int {
	if c.x == nil {
		return 0
	}
	_, cols := c.x.Dims()
	return cols
}

// Fit learns priors and neighbour-count posteriors from X (n×d) and Y (n×L)
func (c *Classifier) Fit(x *mat.Dense, y [][]int) error {
	n, _ := x.Dims()
	if n != len(y) {
		return core.NewShapeError("label rows", n, len(y))
	}
	if c.K < 1 || c.K > n {
		return fmt.Errorf("%w: k=%d with %d training rows", core.ErrInvalidNeighbor, c.K, n)
	}
	if c.S <= 0 {
		c.S = DefaultSmoothing
	}
	labels := len(y[0])
	for i, row := range y {
		if len(row) != labels {
			return core.NewShapeError(fmt.Sprintf("label width of row %d", i), labels, len(row))
		}
	}

	c.x = mat.DenseCopyOf(x)
	c.y = copyLabels(y)
	c.computePrior(n, labels)
	c.computeCond(n, labels)
	return nil
}

func (c *Classifier) computePrior(n, labels int) {
	c.priorTrue = make([]float64, labels)
	for l := 0; l < labels; l++ {
		count := 0
		for i := 0; i < n; i++ {
			count += c.y[i][l]
		}
		c.priorTrue[l] = (c.S + float64(count)) / (2*c.S + float64(n))
	}
}

func (c *Classifier) computeCond(n, labels int) {
	k := c.K
	withLabel := make([][]float64, labels)
	withoutLabel := make([][]float64, labels)
	for l := range withLabel {
		withLabel[l] = make([]float64, k+1)
		withoutLabel[l] = make([]float64, k+1)
	}

	for i := 0; i < n; i++ {
		deltas := c.neighborLabelCounts(c.x.RawRowView(i), labels)
		for l := 0; l < labels; l++ {
			if c.y[i][l] == 1 {
				withLabel[l][deltas[l]]++
			} else {
				withoutLabel[l][deltas[l]]++
			}
		}
	}

	c.condTrue = make([][]float64, labels)
	c.condFalse = make([][]float64, labels)
	for l := 0; l < labels; l++ {
		c.condTrue[l] = smooth(withLabel[l], c.S, k)
		c.condFalse[l] = smooth(withoutLabel[l], c.S, k)
	}
}

func smooth(counts []float64, s float64, k int) []float64 {
	sum := 0.0
	for _, v := range counts {
		sum += v
	}
	out := make([]float64, len(counts))
	for j, v := range counts {
		out[j] = (s + v) / (s*float64(k+1) + sum)
	}
	return out
}

func (c *Classifier) neighborLabelCounts(q []float64, labels int) []int {
	deltas := make([]int, labels)
	for _, idx := range nearest(c.x, q, c.K) {
		for l := 0; l < labels; l++ {
			deltas[l] += c.y[idx][l]
		}
	}
	return deltas
}

// Predict assigns a label when its posterior with the observed neighbour
// count is at least as likely as its absence
func (c *Classifier) Predict(x *mat.Dense) ([][]int, error) {
	probs, err := c.posteriors(x)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(probs))
	for i, row := range probs {
		out[i] = make([]int, len(row))
		for l, p := range row {
			if p.present >= p.absent {
				out[i][l] = 1
			}
		}
	}
	return out, nil
}

// PredictProba returns the normalised posterior probability of each label
func (c *Classifier) PredictProba(x *mat.Dense) ([][]float64, error) {
	probs, err := c.posteriors(x)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(probs))
	for i, row := range probs {
		out[i] = make([]float64, len(row))
		for l, p := range row {
			if denom := p.present + p.absent; denom > 0 {
				out[i][l] = p.present / denom
			}
		}
	}
	return out, nil
}

type posterior struct {
	present float64
	absent  float64
}

func (c *Classifier) posteriors(x *mat.Dense) ([][]posterior, error) {
	if !c.Fitted() {
		return nil, core.ErrModelNotFitted
	}
	n, d := x.Dims()
	if d != c.NumFeatures() {
		return nil, core.NewShapeError("feature count", c.NumFeatures(), d)
	}
	labels := c.NumLabels()
	out := make([][]posterior, n)
	for i := 0; i < n; i++ {
		deltas := c.neighborLabelCounts(x.RawRowView(i), labels)
		out[i] = make([]posterior, labels)
		for l := 0; l < labels; l++ {
			out[i][l] = posterior{
				present: c.priorTrue[l] * c.condTrue[l][deltas[l]],
				absent:  (1 - c.priorTrue[l]) * c.condFalse[l][deltas[l]],
			}
		}
	}
	return out, nil
}

// classifierState is the serialized form of a fitted classifier
type classifierState struct {
	K         int         `json:"k"`
	S         float64     `json:"s"`
	Features  [][]float64 `json:"features"`
	Labels    [][]int     `json:"labels"`
	PriorTrue []float64   `json:"prior_true"`
	CondTrue  [][]float64 `json:"cond_true"`
	CondFalse [][]float64 `json:"cond_false"`
}

// MarshalJSON serializes the fitted state, including the training rows used for neighbour search
func (c *Classifier) MarshalJSON() ([]byte, error) {
	if !c.Fitted() {
		return nil, core.ErrModelNotFitted
	}
	rows, _ := c.x.Dims()
	features := make([][]float64, rows)
	for i := range features {
		features[i] = append([]float64(nil), c.x.RawRowView(i)...)
	}
	return json.Marshal(classifierState{
		K:         c.K,
		S:         c.S,
		Features:  features,
		Labels:    c.y,
		PriorTrue: c.priorTrue,
		CondTrue:  c.condTrue,
		CondFalse: c.condFalse,
	})
}

// UnmarshalJSON restores a fitted classifier and checks its dimensions agree
func (c *Classifier) UnmarshalJSON(data []byte) error {
	var st classifierState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	x, err := FromRows(st.Features)
	if err != nil {
		return err
	}
	if len(st.Labels) != len(st.Features) {
		return core.NewShapeError("label rows", len(st.Features), len(st.Labels))
	}
	labels := len(st.PriorTrue)
	if len(st.CondTrue) != labels || len(st.CondFalse) != labels {
		return core.NewShapeError("posterior tables", labels, len(st.CondTrue))
	}
	for l := 0; l < labels; l++ {
		if len(st.CondTrue[l]) != st.K+1 || len(st.CondFalse[l]) != st.K+1 {
			return core.NewShapeError("posterior width", st.K+1, len(st.CondTrue[l]))
		}
	}
	for i, row := range st.Labels {
		if len(row) != labels {
			return core.NewShapeError(fmt.Sprintf("label width of row %d", i), labels, len(row))
		}
	}
	*c = Classifier{
		K:         st.K,
		S:         st.S,
		x:         x,
		y:         st.Labels,
		priorTrue: st.PriorTrue,
		condTrue:  st.CondTrue,
		condFalse: st.CondFalse,
	}
	return nil
}

// FromRows builds a dense matrix from equal-length rows
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, core.NewShapeError("feature count", 1, 0)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, core.NewShapeError(fmt.Sprintf("width of row %d", i), cols, len(row))
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func copyLabels(y [][]int) [][]int {
	out := make([][]int, len(y))
	for i, row := range y {
		out[i] = append([]int(nil), row...)
	}
	return out
}
