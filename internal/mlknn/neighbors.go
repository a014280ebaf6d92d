package mlknn

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type neighbor struct {
	index    int
	distance float64
}

// nearest returns the indices of the k rows of train closest to q by Euclidean
// distance. Equal distances keep the lower row index first.
func nearest(train *mat.Dense, q []float64, k int) []int {
	rows, _ := train.Dims()
	candidates := make([]neighbor, rows)
	for i := 0; i < rows; i++ {
		candidates[i] = neighbor{index: i, distance: floats.Distance(q, train.RawRowView(i), 2)}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})
	if k > rows {
		k = rows
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].index
	}
	return out
}
