package mpexplain

import (
	"fmt"
	"math"
	"sort"
)

// RTreeParams are the node fan-out limits of an R-tree.
type RTreeParams struct {
	// MinChildren is the fan-out a node is given whenever its range holds
	// enough points for every child to receive at least MinChildren points.
	MinChildren int
	// MaxChildren bounds both the points per leaf and the children per node.
	MaxChildren int
	// ReinsertionCount is the R*-tree forced-reinsertion count used on node
	// overflow. Bulk-loaded trees never overflow, so it is carried for
	// parity with incrementally built trees and validated only.
	ReinsertionCount int
}

// RTreeParamsFor returns the tuned parameter profile for the given reduced
// dimensionality: 5..9 children in 2-D and 10..20 in 3-D, reinsertion 3.
func RTreeParamsFor(dims int) RTreeParams {
	if dims >= 3 {
		return RTreeParams{MinChildren: 10, MaxChildren: 20, ReinsertionCount: 3}
	}
	return RTreeParams{MinChildren: 5, MaxChildren: 9, ReinsertionCount: 3}
}

func validateRTreeParams(p RTreeParams) error {
	if p.MaxChildren < 2 {
		return fmt.Errorf("mpexplain: RTreeParams.MaxChildren must be >= 2, got %d", p.MaxChildren)
	}
	if p.MinChildren < 1 || 2*p.MinChildren > p.MaxChildren+1 {
		return fmt.Errorf("mpexplain: RTreeParams.MinChildren must be in [1, (MaxChildren+1)/2], got %d", p.MinChildren)
	}
	if p.ReinsertionCount < 0 || p.ReinsertionCount >= p.MaxChildren {
		return fmt.Errorf("mpexplain: RTreeParams.ReinsertionCount must be in [0, MaxChildren), got %d", p.ReinsertionCount)
	}
	return nil
}

// RTree is a bulk-loaded R-tree over reduced coordinates.
//
// The tree is built top-down by recursive sort-tile partitioning: a node's
// points are sorted along one axis, cut into slabs, and each slab is cut
// along the next axis until the node has its target number of children.
// Every node therefore covers a contiguous range of idxArray, and the
// children of a node are stored contiguously in nodes.
type RTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int
	dims     int
	params   RTreeParams
	idxArray []int // permutation: tree-order position → original index
	nodes    []rtreeNode
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
}

type rtreeNode struct {
	start, end  int // range in idxArray
	firstChild  int
	numChildren int // 0 for leaves
}

// NewRTree bulk-loads an R-tree from flat row-major data with n points of
// dimensionality dims. params must satisfy validateRTreeParams.
func NewRTree(data []float64, n, dims int, params RTreeParams) *RTree {
	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	t := &RTree{
		data:     dataCopy,
		n:        n,
		dims:     dims,
		params:   params,
		idxArray: idxArray,
	}

	root := t.allocNodes(1)
	if n > 0 {
		t.buildNode(root, 0, n)
	} else {
		t.computeNodeBounds(root)
	}
	return t
}

func (t *RTree) allocNodes(count int) int {
	first := len(t.nodes)
	for i := 0; i < count; i++ {
		t.nodes = append(t.nodes, rtreeNode{})
		t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
		t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	}
	return first
}

// buildNode builds the subtree for points in idxArray[start:end].
func (t *RTree) buildNode(nodeID, start, end int) {
	t.nodes[nodeID].start = start
	t.nodes[nodeID].end = end

	count := end - start
	if count <= t.params.MaxChildren {
		t.computeNodeBounds(nodeID)
		return
	}

	groups := t.childCount(count)
	bounds := make([]int, 0, groups+1)
	bounds = append(bounds, start)
	bounds = t.tile(start, end, 0, groups, bounds)

	first := t.allocNodes(groups)
	t.nodes[nodeID].firstChild = first
	t.nodes[nodeID].numChildren = groups
	for c := 0; c < groups; c++ {
		t.buildNode(first+c, bounds[c], bounds[c+1])
	}
	t.computeNodeBounds(nodeID)
}

// childCount picks the fan-out for a node holding count points: enough
// children that every subtree fits into a tree one level shallower, raised
// towards MinChildren when the points allow it.
func (t *RTree) childCount(count int) int {
	maxC := t.params.MaxChildren
	subtree := 1
	for subtree*maxC < count {
		subtree *= maxC
	}
	groups := (count + subtree - 1) / subtree

	minC := t.params.MinChildren
	if groups < minC {
		groups = max(groups, min(minC, count/minC))
	}
	return min(groups, maxC)
}

// tile partitions idxArray[start:end] into groups contiguous, balanced
// ranges, appending each range's end to bounds.
func (t *RTree) tile(start, end, axis, groups int, bounds []int) []int {
	if groups <= 1 {
		return append(bounds, end)
	}
	sortIndicesByDimension(t.idxArray[start:end], t.data, t.dims, axis)

	remainingAxes := t.dims - axis
	if remainingAxes <= 1 {
		count := end - start
		for g := 1; g <= groups; g++ {
			bounds = append(bounds, start+count*g/groups)
		}
		return bounds
	}

	slabs := int(math.Ceil(math.Pow(float64(groups), 1/float64(remainingAxes))))
	slabs = min(slabs, groups)
	count := end - start
	assigned := 0
	for s := 0; s < slabs; s++ {
		slabGroups := groups / slabs
		if s < groups%slabs {
			slabGroups++
		}
		slabStart := start + count*assigned/groups
		assigned += slabGroups
		slabEnd := start + count*assigned/groups
		bounds = t.tile(slabStart, slabEnd, axis+1, slabGroups, bounds)
	}
	return bounds
}

func (t *RTree) computeNodeBounds(nodeID int) {
	node := t.nodes[nodeID]
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin[base+d] = math.Inf(1)
		t.nodeBoundsMax[base+d] = math.Inf(-1)
	}
	if node.numChildren > 0 {
		for c := node.firstChild; c < node.firstChild+node.numChildren; c++ {
			cbase := c * t.dims
			for d := 0; d < t.dims; d++ {
				t.nodeBoundsMin[base+d] = math.Min(t.nodeBoundsMin[base+d], t.nodeBoundsMin[cbase+d])
				t.nodeBoundsMax[base+d] = math.Max(t.nodeBoundsMax[base+d], t.nodeBoundsMax[cbase+d])
			}
		}
		return
	}
	for i := node.start; i < node.end; i++ {
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

// Params returns the fan-out parameters the tree was built with.
func (t *RTree) Params() RTreeParams { return t.params }

// --- SpatialIndex interface ---

func (t *RTree) NumPoints() int   { return t.n }
func (t *RTree) NumFeatures() int { return t.dims }
func (t *RTree) IdxArray() []int  { return t.idxArray }

func (t *RTree) NodeDataArray() []NodeData {
	out := make([]NodeData, len(t.nodes))
	for i, nd := range t.nodes {
		out[i] = NodeData{
			IdxStart: nd.start,
			IdxEnd:   nd.end,
			IsLeaf:   nd.numChildren == 0,
			Children: nd.numChildren,
		}
	}
	return out
}

// Height returns the number of levels in the tree, counting the root.
func (t *RTree) Height() int {
	h := 1
	for node := 0; t.nodes[node].numChildren > 0; node = t.nodes[node].firstChild {
		h++
	}
	return h
}

// QueryKNN finds the k nearest neighbors of query.
func (t *RTree) QueryKNN(query []float64, k, exclude int) ([]int, []float64) {
	if k <= 0 || t.n == 0 {
		return []int{}, []float64{}
	}
	h := &knnHeap{}
	t.knnSearch(0, query, k, exclude, h)
	return h.drain()
}

// knnSearch visits children in ascending order of their lower bound and
// stops as soon as the remaining bounds exceed the current k-th distance.
func (t *RTree) knnSearch(nodeID int, query []float64, k, exclude int, h *knnHeap) {
	node := t.nodes[nodeID]
	if node.numChildren == 0 {
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			if ptIdx == exclude {
				continue
			}
			h.offer(knnItem{index: ptIdx, dist: squaredEuclidean(query, t.point(ptIdx))}, k)
		}
		return
	}

	order := make([]knnItem, node.numChildren)
	for c := 0; c < node.numChildren; c++ {
		child := node.firstChild + c
		order[c] = knnItem{index: child, dist: t.minRdistPoint(child, query)}
	}
	sort.Slice(order, func(i, j int) bool { return order[j].farther(order[i]) })

	for _, child := range order {
		if h.Len() == k && child.dist > (*h)[0].dist {
			return
		}
		t.knnSearch(child.index, query, k, exclude, h)
	}
}

// QueryRadius returns all points strictly closer than radius to query. The
// comparison runs on squared distances.
func (t *RTree) QueryRadius(query []float64, radius float64, exclude int) []int {
	result := []int{}
	if t.n == 0 || !(radius > 0) {
		return result
	}
	return t.radiusSearch(0, query, radius*radius, exclude, result)
}

func (t *RTree) radiusSearch(nodeID int, query []float64, r2 float64, exclude int, result []int) []int {
	if t.minRdistPoint(nodeID, query) >= r2 {
		return result
	}
	node := t.nodes[nodeID]
	if node.numChildren == 0 {
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			if ptIdx != exclude && squaredEuclidean(query, t.point(ptIdx)) < r2 {
				result = append(result, ptIdx)
			}
		}
		return result
	}
	for c := node.firstChild; c < node.firstChild+node.numChildren; c++ {
		result = t.radiusSearch(c, query, r2, exclude, result)
	}
	return result
}

func (t *RTree) point(idx int) []float64 {
	return t.data[idx*t.dims : (idx+1)*t.dims]
}

func (t *RTree) minRdistPoint(node int, point []float64) float64 {
	base := node * t.dims
	return minRdistBox(t.nodeBoundsMin[base:base+t.dims], t.nodeBoundsMax[base:base+t.dims], point)
}
