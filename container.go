package mpexplain

import (
	"context"
	"fmt"
	"math"
	"runtime"
)

// IndexKind selects the spatial index built over the reduced coordinates.
type IndexKind string

const (
	IndexRTree    IndexKind = "rtree"
	IndexKDTree   IndexKind = "kdtree"
	IndexBallTree IndexKind = "balltree"
)

// IndexConfig controls how a PointContainer indexes its points.
// Start with [DefaultIndexConfig] and override the fields you need.
type IndexConfig struct {
	// Index selects the spatial index. Default: IndexRTree.
	Index IndexKind

	// RTree overrides the R-tree fan-out. The zero value selects the
	// profile for the reduced dimensionality (see RTreeParamsFor).
	RTree RTreeParams

	// LeafSize is the maximum number of points in a KD-tree or ball tree
	// leaf. Not used with IndexRTree. Default: 16.
	LeafSize int

	// ReducedDims is the reduced dimensionality to assume when there are no
	// points to infer it from. Default: 2.
	ReducedDims int

	// DimensionNames optionally labels the original attributes. When set it
	// must have one entry per original dimension.
	DimensionNames []string
}

// DefaultIndexConfig returns an IndexConfig with reasonable defaults.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Index:       IndexRTree,
		LeafSize:    16,
		ReducedDims: 2,
	}
}

func applyIndexDefaults(cfg *IndexConfig, reducedDims int) {
	if cfg.Index == "" {
		cfg.Index = IndexRTree
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 16
	}
	if cfg.RTree == (RTreeParams{}) {
		cfg.RTree = RTreeParamsFor(reducedDims)
	}
}

func validateIndexConfig(cfg *IndexConfig) error {
	switch cfg.Index {
	case IndexRTree:
		if err := validateRTreeParams(cfg.RTree); err != nil {
			return err
		}
	case IndexKDTree, IndexBallTree:
		if cfg.LeafSize < 1 {
			return fmt.Errorf("mpexplain: LeafSize must be >= 1, got %d", cfg.LeafSize)
		}
	default:
		return fmt.Errorf("mpexplain: invalid Index %q", cfg.Index)
	}
	return nil
}

// PointContainer owns every point of a data set: its reduced coordinates,
// its original coordinates, and a spatial index over the reduced ones.
// Points are addressed by their position in the input. A PointContainer is
// immutable after construction and safe for concurrent use.
type PointContainer struct {
	reduced     []float64 // n * reducedDims, row-major
	original    []float64 // n * originalDims, row-major
	n           int
	reducedDims int
	origDims    int
	names       []string
	index       SpatialIndex
	width       float64
}

// NewPointContainer validates the two index-aligned point sets and builds
// the spatial index. Row counts must match, reduced rows must all be 2-D or
// all be 3-D, original rows must all share one dimensionality >= 1, and every
// coordinate must be finite.
func NewPointContainer(original, reduced [][]float64, cfg IndexConfig) (*PointContainer, error) {
	if len(original) != len(reduced) {
		return nil, fmt.Errorf("%w: %d original, %d reduced", ErrPointCountMismatch, len(original), len(reduced))
	}
	n := len(reduced)

	reducedDims := cfg.ReducedDims
	if reducedDims == 0 {
		reducedDims = 2
	}
	origDims := 0
	if n > 0 {
		reducedDims = len(reduced[0])
		origDims = len(original[0])
	}
	if reducedDims != 2 && reducedDims != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedDimensionality, reducedDims)
	}
	if n > 0 && origDims < 1 {
		return nil, ErrEmptyOriginal
	}
	if cfg.DimensionNames != nil && n > 0 && len(cfg.DimensionNames) != origDims {
		return nil, fmt.Errorf("mpexplain: %d dimension names for %d original dimensions", len(cfg.DimensionNames), origDims)
	}

	applyIndexDefaults(&cfg, reducedDims)
	if err := validateIndexConfig(&cfg); err != nil {
		return nil, err
	}

	flatReduced, err := flatten("reduced", reduced, reducedDims)
	if err != nil {
		return nil, err
	}
	flatOriginal, err := flatten("original", original, origDims)
	if err != nil {
		return nil, err
	}

	pc := &PointContainer{
		reduced:     flatReduced,
		original:    flatOriginal,
		n:           n,
		reducedDims: reducedDims,
		origDims:    origDims,
		names:       cfg.DimensionNames,
	}

	switch cfg.Index {
	case IndexKDTree:
		pc.index = NewKDTree(flatReduced, n, reducedDims, cfg.LeafSize)
	case IndexBallTree:
		pc.index = NewBallTree(flatReduced, n, reducedDims, cfg.LeafSize)
	default:
		pc.index = NewRTree(flatReduced, n, reducedDims, cfg.RTree)
	}
	pc.width = pc.computeProjectionWidth()
	return pc, nil
}

// flatten copies rows into a row-major buffer, checking row length and
// finiteness.
func flatten(set string, rows [][]float64, dims int) ([]float64, error) {
	flat := make([]float64, len(rows)*dims)
	for i, row := range rows {
		if len(row) != dims {
			return nil, &DimensionMismatchError{Set: set, Row: i, Expected: dims, Actual: len(row)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s point %d, dimension %d", ErrNonFiniteCoordinate, set, i, j)
			}
		}
		copy(flat[i*dims:], row)
	}
	return flat, nil
}

// Len returns the number of points.
func (pc *PointContainer) Len() int { return pc.n }

// ReducedDims returns the dimensionality of the reduced space (2 or 3).
func (pc *PointContainer) ReducedDims() int { return pc.reducedDims }

// OriginalDims returns the dimensionality of the original space.
func (pc *PointContainer) OriginalDims() int { return pc.origDims }

// DimensionNames returns the original attribute names, or nil when none
// were supplied.
func (pc *PointContainer) DimensionNames() []string { return pc.names }

// Index returns the spatial index over the reduced coordinates.
func (pc *PointContainer) Index() SpatialIndex { return pc.index }

// Reduced returns the reduced coordinates of point i. The slice aliases the
// container's storage and must not be modified.
func (pc *PointContainer) Reduced(i int) []float64 {
	return pc.reduced[i*pc.reducedDims : (i+1)*pc.reducedDims]
}

// Original returns the original coordinates of point i. The slice aliases
// the container's storage and must not be modified.
func (pc *PointContainer) Original(i int) []float64 {
	return pc.original[i*pc.origDims : (i+1)*pc.origDims]
}

// KNearest returns the k points nearest to point i in reduced space, by
// ascending distance, excluding i. Fewer are returned when fewer exist.
func (pc *PointContainer) KNearest(i, k int) []int {
	idx, _ := pc.index.QueryKNN(pc.Reduced(i), k, i)
	return idx
}

// WithinRadius returns every point strictly closer than r to point i in
// reduced space, excluding i. Order is unspecified.
func (pc *PointContainer) WithinRadius(i int, r float64) []int {
	return pc.index.QueryRadius(pc.Reduced(i), r, i)
}

// Neighbors returns the neighbourhood of point i.
func (pc *PointContainer) Neighbors(i int, nb Neighborhood) []int {
	if nb.Kind == NeighborhoodR {
		return pc.WithinRadius(i, nb.Radius)
	}
	return pc.KNearest(i, nb.K)
}

// NeighborsForAll returns the neighbourhood of every point, ordered by point
// index. Points are visited in the index's tree order, which keeps queries
// cache-friendly, and each result is stored at its originating index.
// workers <= 0 uses runtime.NumCPU().
func (pc *PointContainer) NeighborsForAll(ctx context.Context, nb Neighborhood, workers int) ([][]int, error) {
	if err := nb.validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([][]int, pc.n)
	order := pc.index.IdxArray()
	err := parallelFor(ctx, pc.n, workers, func(pos int) error {
		i := order[pos]
		out[i] = pc.Neighbors(i, nb)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Nearest returns the point closest to the given reduced-space coordinates.
// It returns false when the container is empty or query has the wrong
// dimensionality.
func (pc *PointContainer) Nearest(query []float64) (int, bool) {
	if pc.n == 0 || len(query) != pc.reducedDims {
		return 0, false
	}
	idx, _ := pc.index.QueryKNN(query, 1, -1)
	if len(idx) == 0 {
		return 0, false
	}
	return idx[0], true
}

// BoundingBox returns the axis-aligned bounding box of the reduced points.
// An empty container yields +Inf minima and -Inf maxima.
func (pc *PointContainer) BoundingBox() (lo, hi []float64) {
	return boundingBox(pc.reduced, pc.n, pc.reducedDims)
}

// ProjectionWidth returns the largest per-axis extent of the reduced points'
// bounding box, or 0 for an empty container. It approximates the projection
// diameter; the convex-hull diameter would be tighter.
func (pc *PointContainer) ProjectionWidth() float64 { return pc.width }

func (pc *PointContainer) computeProjectionWidth() float64 {
	if pc.n == 0 {
		return 0
	}
	lo, hi := pc.BoundingBox()
	width := math.Inf(-1)
	for d := range lo {
		width = math.Max(width, hi[d]-lo[d])
	}
	return width
}

// RelativeRadius converts a fraction of the projection width into an
// absolute radius neighbourhood.
func (pc *PointContainer) RelativeRadius(fraction float64) Neighborhood {
	return RNeighborhood(fraction * pc.width)
}

// AverageNearestNeighborDistance returns the mean reduced-space distance
// from each point to its nearest other point, or 0 with fewer than two
// points.
func (pc *PointContainer) AverageNearestNeighborDistance() float64 {
	if pc.n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < pc.n; i++ {
		_, dist := pc.index.QueryKNN(pc.Reduced(i), 1, i)
		sum += dist[0]
	}
	return sum / float64(pc.n)
}
