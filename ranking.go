package mpexplain

import "sort"

// Ranked is implemented by per-point explanations that report a dimension
// (an attribute index or a dimensionality) with a confidence.
type Ranked interface {
	RankedDimension() int
	RankedConfidence() float64
}

// DimensionRankings counts how often each dimension is reported and returns
// the dimensions ordered by descending count, ties broken by the lower
// dimension. Dimensions that never occur are omitted. Colour-map
// collaborators assign colours in this order.
func DimensionRankings[E Ranked](explanations []E) []int {
	counts := make(map[int]int)
	for _, e := range explanations {
		counts[e.RankedDimension()]++
	}
	dims := make([]int, 0, len(counts))
	for d := range counts {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool {
		ci, cj := counts[dims[i]], counts[dims[j]]
		if ci != cj {
			return ci > cj
		}
		return dims[i] < dims[j]
	})
	return dims
}

// ConfidenceBounds returns the minimum and maximum confidence across
// explanations, or (0, 0) when there are none.
func ConfidenceBounds[E Ranked](explanations []E) (lo, hi float64) {
	if len(explanations) == 0 {
		return 0, 0
	}
	lo = explanations[0].RankedConfidence()
	hi = lo
	for _, e := range explanations[1:] {
		c := e.RankedConfidence()
		lo = min(lo, c)
		hi = max(hi, c)
	}
	return lo, hi
}
