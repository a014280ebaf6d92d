package mlknn

import (
	"sort"

	"go.uber.org/zap"
)

// Binarizer maps label sets to fixed-width 0/1 indicator rows.
// Classes are kept in sorted order so encodings are stable across runs.
type Binarizer struct {
	Classes []string `json:"classes"`

	index map[string]int
}

// NewBinarizer creates an empty binarizer
func NewBinarizer() *Binarizer {
	return &Binarizer{}
}

// Fit learns the class vocabulary from the given label sets
func (b *Binarizer) Fit(labelSets [][]string) *Binarizer {
	seen := make(map[string]bool)
	for _, set := range labelSets {
		for _, label := range set {
			seen[label] = true
		}
	}
	b.Classes = make([]string, 0, len(seen))
	for label := range seen {
		b.Classes = append(b.Classes, label)
	}
	sort.Strings(b.Classes)
	b.index = nil
	return b
}

// FitTransform fits the vocabulary then encodes the same label sets
func (b *Binarizer) FitTransform(labelSets [][]string) [][]int {
	return b.Fit(labelSets).Transform(labelSets)
}

// Transform encodes label sets; labels outside the vocabulary are dropped
func (b *Binarizer) Transform(labelSets [][]string) [][]int {
	index := b.lookup()
	out := make([][]int, len(labelSets))
	for i, set := range labelSets {
		row := make([]int, len(b.Classes))
		for _, label := range set {
			j, ok := index[label]
			if !ok {
				zap.L().Warn("ignoring label outside binarizer vocabulary", zap.String("label", label))
				continue
			}
			row[j] = 1
		}
		out[i] = row
	}
	return out
}

// InverseTransform decodes indicator rows back into label lists in class order
func (b *Binarizer) InverseTransform(rows [][]int) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		var labels []string
		for j, v := range row {
			if v != 0 && j < len(b.Classes) {
				labels = append(labels, b.Classes[j])
			}
		}
		out[i] = labels
	}
	return out
}

// NumClasses returns the vocabulary size
func (b *Binarizer) NumClasses() int {
	return len(b.Classes)
}

func (b *Binarizer) lookup() map[string]int {
	if b.index == nil || len(b.index) != len(b.Classes) {
		b.index = make(map[string]int, len(b.Classes))
		for i, c := range b.Classes {
			b.index[c] = i
		}
	}
	return b.index
}
