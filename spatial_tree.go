package mpexplain

// NodeData describes a single node in a spatial index.
// IdxStart and IdxEnd delimit the node's points in the index's IdxArray.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
	Children         int // number of child nodes; 0 for leaves
}

// SpatialIndex is the read interface shared by the R-tree and the KD-tree
// built over the reduced coordinates of a PointContainer.
type SpatialIndex interface {
	// QueryKNN returns up to k points nearest to query, sorted by ascending
	// distance with ties broken by lower index. The point with index exclude
	// is never returned; pass -1 to exclude nothing.
	QueryKNN(query []float64, k, exclude int) (indices []int, distances []float64)

	// QueryRadius returns every point whose distance to query is strictly
	// less than radius, excluding the point with index exclude. Order is
	// unspecified.
	QueryRadius(query []float64, radius float64, exclude int) []int

	// NumPoints returns the number of indexed points.
	NumPoints() int

	// NumFeatures returns the dimensionality of the indexed points.
	NumFeatures() int

	// IdxArray returns the permutation mapping tree-order positions back to
	// original point indices.
	IdxArray() []int

	// NodeDataArray returns the metadata for every node in the index.
	NodeDataArray() []NodeData
}
