package mpexplain

import (
	"container/heap"
	"math"
	"sort"
)

// KDTree is a KD-tree over reduced coordinates. Points are stored in a flat
// row-major array and reordered internally via an index permutation array.
//
// Nodes are appended in build order. The two children of an internal node
// are adjacent, at left[node] and left[node]+1, and node bounds are stored
// as min/max per dimension per node.
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int
	dims     int
	leafSize int
	idxArray []int      // permutation: tree-order position → original index
	nodes    []NodeData // one entry per tree node
	left     []int      // first child of each internal node, -1 for leaves
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
}

// NewKDTree builds a KD-tree from flat row-major data with n points of
// dimensionality dims. leafSize controls the max points per leaf node.
func NewKDTree(data []float64, n, dims, leafSize int) *KDTree {
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
	t := &KDTree{
		data:          dataCopy,
		n:             n,
		dims:          dims,
		leafSize:      leafSize,
		idxArray:      idxArray,
		nodes:         make([]NodeData, 0, capNodes),
		left:          make([]int, 0, capNodes),
		nodeBoundsMin: make([]float64, 0, capNodes*dims),
		nodeBoundsMax: make([]float64, 0, capNodes*dims),
	}

	if n > 0 {
		t.buildNode(t.newNode(), 0, n)
	}

	return t
}

// binaryTreeCapacity estimates the node count of a median-split binary tree
// over n points with at most leafSize points per leaf. It only sizes the
// node arrays up front; the build appends past it when needed.
func binaryTreeCapacity(n, leafSize int) int {
	if n == 0 {
		return 0
	}
	leaves := (n + leafSize - 1) / leafSize
	return 2*leaves - 1
}

func (t *KDTree) newNode() int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, NodeData{})
	t.left = append(t.left, -1)
	t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
	t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	return id
}

// buildNode recursively builds the tree for points in idxArray[start:end].
func (t *KDTree) buildNode(nodeID, start, end int) {
	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	// Split along the dimension with the greatest spread.
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		spread := t.nodeBoundsMax[nodeID*t.dims+d] - t.nodeBoundsMin[nodeID*t.dims+d]
		if spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}

	t.sortByDimension(start, end, splitDim)
	mid := start + count/2

	left := t.newNode()
	t.newNode()
	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, Children: 2}
	t.left[nodeID] = left

	t.buildNode(left, start, mid)
	t.buildNode(left+1, mid, end)
}

func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin[base+d] = math.Inf(1)
		t.nodeBoundsMax[base+d] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		ptIdx := t.idxArray[i]
		for d := 0; d < t.dims; d++ {
			v := t.data[ptIdx*t.dims+d]
			if v < t.nodeBoundsMin[base+d] {
				t.nodeBoundsMin[base+d] = v
			}
			if v > t.nodeBoundsMax[base+d] {
				t.nodeBoundsMax[base+d] = v
			}
		}
	}
}

func (t *KDTree) sortByDimension(start, end, dim int) {
	sortIndicesByDimension(t.idxArray[start:end], t.data, t.dims, dim)
}

// sortIndicesByDimension orders point indices by one coordinate, breaking
// ties by index so builds are deterministic.
func sortIndicesByDimension(sub []int, data []float64, dims, dim int) {
	sort.Slice(sub, func(i, j int) bool {
		a, b := data[sub[i]*dims+dim], data[sub[j]*dims+dim]
		if a != b {
			return a < b
		}
		return sub[i] < sub[j]
	})
}

// --- SpatialIndex interface ---

func (t *KDTree) NumPoints() int            { return t.n }
func (t *KDTree) NumFeatures() int          { return t.dims }
func (t *KDTree) IdxArray() []int           { return t.idxArray }
func (t *KDTree) NodeDataArray() []NodeData { return t.nodes }

// QueryKNN finds the k nearest neighbors of query.
func (t *KDTree) QueryKNN(query []float64, k, exclude int) ([]int, []float64) {
	if k <= 0 || t.n == 0 {
		return []int{}, []float64{}
	}
	h := &knnHeap{}
	t.knnSearch(0, query, k, exclude, h)
	return h.drain()
}

// knnSearch performs a single-tree KNN traversal using a max-heap of size k.
func (t *KDTree) knnSearch(nodeID int, query []float64, k, exclude int, h *knnHeap) {
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

	// Equal bounds are still visited so ties resolve to the lower index.
	if h.Len() < k || farRdist <= (*h)[0].dist {
		t.knnSearch(farChild, query, k, exclude, h)
	}
}

// QueryRadius returns all points strictly closer than radius to query.
func (t *KDTree) QueryRadius(query []float64, radius float64, exclude int) []int {
	result := []int{}
	if t.n == 0 || !(radius > 0) {
		return result
	}
	return t.radiusSearch(0, query, radius*radius, exclude, result)
}

func (t *KDTree) radiusSearch(nodeID int, query []float64, r2 float64, exclude int, result []int) []int {
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

func (t *KDTree) point(idx int) []float64 {
	return t.data[idx*t.dims : (idx+1)*t.dims]
}

// minRdistPoint returns a lower bound on the squared distance between a point
// and any point in the given node.
func (t *KDTree) minRdistPoint(node int, point []float64) float64 {
	if node >= len(t.nodes) {
		return math.Inf(1)
	}
	base := node * t.dims
	return minRdistBox(t.nodeBoundsMin[base:base+t.dims], t.nodeBoundsMax[base:base+t.dims], point)
}

// --- max-heap for KNN queries ---

type knnItem struct {
	index int
	dist  float64 // squared distance
}

// farther orders items by distance, then by index.
func (a knnItem) farther(b knnItem) bool {
	if a.dist != b.dist {
		return a.dist > b.dist
	}
	return a.index > b.index
}

// knnHeap is a max-heap of knnItem (farthest on top) used as a bounded
// priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[i].farther(h[j]) }
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// offer adds item if the heap holds fewer than k items or item is closer
// than the current farthest.
func (h *knnHeap) offer(item knnItem, k int) {
	if h.Len() < k {
		heap.Push(h, item)
	} else if (*h)[0].farther(item) {
		(*h)[0] = item
		heap.Fix(h, 0)
	}
}

// drain empties the heap into ascending order, converting squared distances
// back to Euclidean distances.
func (h *knnHeap) drain() ([]int, []float64) {
	n := h.Len()
	idx := make([]int, n)
	dist := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		idx[i] = item.index
		dist[i] = math.Sqrt(item.dist)
	}
	return idx, dist
}
