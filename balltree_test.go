package mpexplain

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Construction tests ---

func TestBallTree_Construction_BasicProperties(t *testing.T) {
	data := []float64{
		0, 0,
		1, 0,
		2, 0,
		0, 3,
		1, 3,
		2, 3,
	}
	n, dims := 6, 2
	tree := NewBallTree(data, n, dims, 2)

	assert.Equal(t, n, tree.NumPoints())
	assert.Equal(t, dims, tree.NumFeatures())
	assertPermutation(t, tree.IdxArray(), n)

	// The root ball is centred on the mean with the corners on its surface.
	assert.InDelta(t, math.Sqrt(1+2.25), tree.Radius(0), floatTol)
}

func TestBallTree_Construction_LeafSize1(t *testing.T) {
	tree := NewBallTree([]float64{0, 0, 1, 1, 2, 2, 3, 3}, 4, 2, 1)
	for _, nd := range tree.NodeDataArray() {
		if nd.IsLeaf {
			assert.Equal(t, 1, nd.IdxEnd-nd.IdxStart)
		}
	}
}

func TestBallTree_Construction_LeafSizeLargerThanN(t *testing.T) {
	tree := NewBallTree([]float64{1, 2, 3, 4}, 2, 2, 100)
	nodes := tree.NodeDataArray()
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].IsLeaf)
}

func TestBallTree_Construction_SinglePoint(t *testing.T) {
	tree := NewBallTree([]float64{5, 5}, 1, 2, 10)
	assert.Equal(t, 1, tree.NumPoints())
	assert.Len(t, tree.NodeDataArray(), 1)
	assert.Zero(t, tree.Radius(0))
}

func TestBallTree_Construction_BallsContainPoints(t *testing.T) {
	n, dims := 300, 3
	data := randomFlat(23, n, dims, 50)
	tree := NewBallTree(data, n, dims, 4)

	for id, nd := range tree.NodeDataArray() {
		c := tree.centroid(id)
		for i := nd.IdxStart; i < nd.IdxEnd; i++ {
			p := tree.point(tree.IdxArray()[i])
			assert.LessOrEqual(t, math.Sqrt(squaredEuclidean(c, p)), tree.Radius(id)+floatTol)
		}
	}
}

func TestBallTree_Construction_Empty(t *testing.T) {
	tree := NewBallTree(nil, 0, 2, 4)
	idx, dist := tree.QueryKNN([]float64{0, 0}, 3, -1)
	assert.Empty(t, idx)
	assert.Empty(t, dist)
	assert.Empty(t, tree.QueryRadius([]float64{0, 0}, 10, -1))
}

// --- Query tests ---

func TestBallTree_KNN_BruteForceMatch(t *testing.T) {
	for _, dims := range []int{2, 3} {
		n := 400
		data := randomFlat(uint64(30+dims), n, dims, 10)
		tree := NewBallTree(data, n, dims, 8)
		checkIndexAgainstBruteForce(t, tree, data, n, dims)
	}
}

func TestBallTree_KNN_GridTies(t *testing.T) {
	// A regular grid has many equidistant neighbours; order must match the
	// brute-force tie-break exactly.
	var data []float64
	for x := 0; x < 12; x++ {
		for y := 0; y < 12; y++ {
			data = append(data, float64(x), float64(y))
		}
	}
	n := len(data) / 2
	tree := NewBallTree(data, n, 2, 3)
	checkIndexAgainstBruteForce(t, tree, data, n, 2)
}

func TestBallTree_KNN_AllSamePoints(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	tree := NewBallTree(data, 5, 2, 2)

	idx, dist := tree.QueryKNN([]float64{5, 5}, 3, 1)
	assert.Equal(t, []int{0, 2, 3}, idx)
	assert.Equal(t, []float64{0, 0, 0}, dist)
}

func TestBallTree_Radius_StrictBoundary(t *testing.T) {
	tree := NewBallTree([]float64{0, 0, 1, 0, 2, 0, 3, 0}, 4, 2, 1)
	got := tree.QueryRadius([]float64{0, 0}, 2, 0)
	sort.Ints(got)
	assert.Equal(t, []int{1}, got)
}

func TestBallTree_MinRdistPoint_LowerBound(t *testing.T) {
	n, dims := 80, 2
	data := randomFlat(29, n, dims, 1)
	tree := NewBallTree(data, n, dims, 4)

	for _, query := range [][]float64{{0.5, 1.5}, {0.1, 0.1}, {-2, 3}} {
		for nodeID, nd := range tree.NodeDataArray() {
			bound := tree.minRdistPoint(nodeID, query)
			for i := nd.IdxStart; i < nd.IdxEnd; i++ {
				p := tree.IdxArray()[i]
				assert.LessOrEqual(t, bound, squaredEuclidean(query, tree.point(p)))
			}
		}
	}
}

func TestBallTree_MinRdistPoint_PointInsideBall(t *testing.T) {
	tree := NewBallTree([]float64{0, 0, 4, 0, 0, 4, 4, 4}, 4, 2, 10)
	assert.Zero(t, tree.minRdistPoint(0, []float64{2, 2}))
	assert.True(t, math.IsInf(tree.minRdistPoint(len(tree.nodes), []float64{2, 2}), 1))
}

func TestSpatialIndexImplementations(t *testing.T) {
	var _ SpatialIndex = (*BallTree)(nil)
	var _ SpatialIndex = (*KDTree)(nil)
	var _ SpatialIndex = (*RTree)(nil)
}
