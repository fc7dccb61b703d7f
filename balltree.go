package mpexplain

import (
	"math"
)

// ballSlack widens ball bounds so that rounding in the centroid distance and
// radius never prunes a point at exactly the current k-th distance.
const ballSlack = 1e-12

// BallTree is a ball tree over reduced coordinates. Each node stores a
// centroid and the radius of the smallest centroid-centred ball containing
// its points.
//
// Nodes are laid out like the KD-tree's: children of an internal node are
// adjacent at left[node] and left[node]+1, and
// centroids[node*dims .. (node+1)*dims) is the centroid of node.
type BallTree struct {
	data      []float64 // flat row-major point data (n * dims)
	n         int
	dims      int
	leafSize  int
	idxArray  []int      // permutation: tree-order position → original index
	nodes     []NodeData // one entry per tree node
	left      []int      // first child of each internal node, -1 for leaves
	centroids []float64
	radii     []float64
}

// NewBallTree builds a ball tree from flat row-major data with n points
// of dimensionality dims. leafSize controls the max points per leaf node.
func NewBallTree(data []float64, n, dims, leafSize int) *BallTree {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	capNodes := binaryTreeCapacity(n, leafSize)
	t := &BallTree{
		data:      dataCopy,
		n:         n,
		dims:      dims,
		leafSize:  leafSize,
		idxArray:  idxArray,
		nodes:     make([]NodeData, 0, capNodes),
		left:      make([]int, 0, capNodes),
		centroids: make([]float64, 0, capNodes*dims),
		radii:     make([]float64, 0, capNodes),
	}

	if n > 0 {
		t.buildNode(t.newNode(), 0, n)
	}

	return t
}

func (t *BallTree) newNode() int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, NodeData{})
	t.left = append(t.left, -1)
	t.centroids = append(t.centroids, make([]float64, t.dims)...)
	t.radii = append(t.radii, 0)
	return id
}

// buildNode recursively builds the ball tree for points in idxArray[start:end].
func (t *BallTree) buildNode(nodeID, start, end int) {
	t.computeCentroid(nodeID, start, end)

	// Radius: max distance from centroid to any point in this node.
	centroid := t.centroid(nodeID)
	var r2 float64
	for i := start; i < end; i++ {
		r2 = max(r2, squaredEuclidean(centroid, t.point(t.idxArray[i])))
	}
	t.radii[nodeID] = math.Sqrt(r2)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	// Split at the median of the dimension with the greatest spread.
	splitDim := t.findSpreadDim(start, end)
	sortIndicesByDimension(t.idxArray[start:end], t.data, t.dims, splitDim)
	mid := start + count/2

	left := t.newNode()
	t.newNode()
	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, Children: 2}
	t.left[nodeID] = left

	t.buildNode(left, start, mid)
	t.buildNode(left+1, mid, end)
}

// computeCentroid stores the mean of points idxArray[start:end] as the
// centroid of nodeID.
func (t *BallTree) computeCentroid(nodeID, start, end int) {
	c := t.centroid(nodeID)
	clear(c)
	for i := start; i < end; i++ {
		p := t.point(t.idxArray[i])
		for d := range c {
			c[d] += p[d]
		}
	}
	count := float64(end - start)
	for d := range c {
		c[d] /= count
	}
}

// findSpreadDim returns the dimension with the greatest spread among
// points in idxArray[start:end].
func (t *BallTree) findSpreadDim(start, end int) int {
	bestDim := 0
	bestSpread := -1.0
	for d := 0; d < t.dims; d++ {
		minVal := math.Inf(1)
		maxVal := math.Inf(-1)
		for i := start; i < end; i++ {
			v := t.data[t.idxArray[i]*t.dims+d]
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
		if spread := maxVal - minVal; spread > bestSpread {
			bestSpread = spread
			bestDim = d
		}
	}
	return bestDim
}

func (t *BallTree) centroid(node int) []float64 {
	return t.centroids[node*t.dims : (node+1)*t.dims]
}

func (t *BallTree) point(idx int) []float64 {
	return t.data[idx*t.dims : (idx+1)*t.dims]
}

// --- SpatialIndex interface ---

func (t *BallTree) NumPoints() int            { return t.n }
func (t *BallTree) NumFeatures() int          { return t.dims }
func (t *BallTree) IdxArray() []int           { return t.idxArray }
func (t *BallTree) NodeDataArray() []NodeData { return t.nodes }

// Radius returns the radius of the ball bounding the given node.
func (t *BallTree) Radius(node int) float64 { return t.radii[node] }

// QueryKNN finds the k nearest neighbors of query.
func (t *BallTree) QueryKNN(query []float64, k, exclude int) ([]int, []float64) {
	if k <= 0 || t.n == 0 {
		return []int{}, []float64{}
	}
	h := &knnHeap{}
	t.knnSearch(0, query, k, exclude, h)
	return h.drain()
}

// knnSearch performs a single-tree KNN traversal for the ball tree.
func (t *BallTree) knnSearch(nodeID int, query []float64, k, exclude int, h *knnHeap) {
	node := t.nodes[nodeID]

	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			ptIdx := t.idxArray[i]
			if ptIdx == exclude {
				continue
			}
			h.offer(knnItem{index: ptIdx, dist: squaredEuclidean(query, t.point(ptIdx))}, k)
		}
		return
	}

	left := t.left[nodeID]
	right := left + 1

	leftRdist := t.minRdistPoint(left, query)
	rightRdist := t.minRdistPoint(right, query)

	nearChild, farChild := left, right
	farRdist := rightRdist
	if rightRdist < leftRdist {
		nearChild, farChild = right, left
		farRdist = leftRdist
	}

	t.knnSearch(nearChild, query, k, exclude, h)

	if h.Len() < k || farRdist <= (*h)[0].dist {
		t.knnSearch(farChild, query, k, exclude, h)
	}
}

// QueryRadius returns all points strictly closer than radius to query.
func (t *BallTree) QueryRadius(query []float64, radius float64, exclude int) []int {
	result := []int{}
	if t.n == 0 || !(radius > 0) {
		return result
	}
	return t.radiusSearch(0, query, radius*radius, exclude, result)
}

func (t *BallTree) radiusSearch(nodeID int, query []float64, r2 float64, exclude int, result []int) []int {
	node := t.nodes[nodeID]
	if t.minRdistPoint(nodeID, query) >= r2 {
		return result
	}
	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			ptIdx := t.idxArray[i]
			if ptIdx != exclude && squaredEuclidean(query, t.point(ptIdx)) < r2 {
				result = append(result, ptIdx)
			}
		}
		return result
	}
	result = t.radiusSearch(t.left[nodeID], query, r2, exclude, result)
	return t.radiusSearch(t.left[nodeID]+1, query, r2, exclude, result)
}

// minRdistPoint returns a lower bound on the squared distance between a
// point and any point in the given node: the distance to the centroid less
// the radius, clamped at zero.
func (t *BallTree) minRdistPoint(node int, point []float64) float64 {
	if node >= len(t.nodes) {
		return math.Inf(1)
	}
	d := math.Sqrt(squaredEuclidean(point, t.centroid(node)))
	r := t.radii[node]
	lb := d - r - ballSlack*(d+r)
	if lb <= 0 {
		return 0
	}
	return lb * lb
}
