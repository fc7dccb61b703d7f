package mpexplain

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DaSilvaMethod selects the per-dimension measure the Da Silva explainer
// compares between a point's neighbourhood and the whole data set.
type DaSilvaMethod string

const (
	// DaSilvaEuclidean measures each dimension's share of the squared
	// Euclidean distance between a point and its neighbours.
	DaSilvaEuclidean DaSilvaMethod = "euclidean"
	// DaSilvaVariance measures each dimension's variance over the point and
	// its neighbours.
	DaSilvaVariance DaSilvaMethod = "variance"
)

// DaSilvaExplanation names the original attribute that best explains a
// point's neighbourhood and the fraction of neighbours that agree on it.
type DaSilvaExplanation struct {
	Attribute  int
	Confidence float64
}

func (e DaSilvaExplanation) RankedDimension() int      { return e.Attribute }
func (e DaSilvaExplanation) RankedConfidence() float64 { return e.Confidence }

// DaSilvaConfig controls the Da Silva explainer.
// Start with [DefaultDaSilvaConfig] and override the fields you need.
type DaSilvaConfig struct {
	// Neighborhood bounds each point's reduced-space neighbourhood. The
	// zero value selects the 10 nearest points; KNeighborhood(0) is an
	// explicitly empty neighbourhood.
	Neighborhood Neighborhood

	// Method selects the per-dimension measure. Default: DaSilvaEuclidean.
	Method DaSilvaMethod

	// Workers is the number of goroutines. 0 means runtime.NumCPU().
	Workers int

	// Progress, if set, is called after each point of each of the two
	// passes, so total is twice the point count.
	Progress ProgressFunc

	// Logger receives run-level events. nil disables logging.
	Logger *zerolog.Logger
}

// DefaultDaSilvaConfig returns a DaSilvaConfig with reasonable defaults.
func DefaultDaSilvaConfig() DaSilvaConfig {
	return DaSilvaConfig{
		Neighborhood: KNeighborhood(defaultK),
		Method:       DaSilvaEuclidean,
	}
}

func applyDaSilvaDefaults(cfg *DaSilvaConfig) {
	if cfg.Neighborhood == (Neighborhood{}) {
		cfg.Neighborhood = KNeighborhood(defaultK)
	}
	if cfg.Method == "" {
		cfg.Method = DaSilvaEuclidean
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func validateDaSilvaConfig(cfg *DaSilvaConfig) error {
	if err := cfg.Neighborhood.validate(); err != nil {
		return err
	}
	if cfg.Method != DaSilvaEuclidean && cfg.Method != DaSilvaVariance {
		return fmt.Errorf("mpexplain: Da Silva Method must be %q or %q, got %q", DaSilvaEuclidean, DaSilvaVariance, cfg.Method)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("mpexplain: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// ExplainDaSilva selects, for every point, the original attribute along which
// the point differs least from its reduced-space neighbours relative to how
// much that attribute varies over the whole data set. The confidence is the
// fraction of neighbours that selected the same attribute; points without
// neighbours get confidence 0.
//
// The result is index-aligned with the container's points.
func ExplainDaSilva(ctx context.Context, pc *PointContainer, cfg DaSilvaConfig) ([]DaSilvaExplanation, error) {
	res, err := explainDaSilva(ctx, pc, cfg)
	if err != nil {
		return nil, err
	}
	return res.DaSilva, nil
}

func explainDaSilva(ctx context.Context, pc *PointContainer, cfg DaSilvaConfig) (*Result, error) {
	applyDaSilvaDefaults(&cfg)
	if err := validateDaSilvaConfig(&cfg); err != nil {
		return nil, err
	}

	n := pc.Len()
	out := make([]DaSilvaExplanation, n)
	if n == 0 {
		return summarize(&Result{Method: MethodDaSilva, DaSilva: out}, out), nil
	}

	run := startRun(cfg.Logger, "dasilva-"+string(cfg.Method), pc, cfg.Neighborhood)

	neighborhoods, err := pc.NeighborsForAll(ctx, cfg.Neighborhood, cfg.Workers)
	if err != nil {
		return nil, run.fail(err)
	}

	var global []float64
	if cfg.Method == DaSilvaVariance {
		global = GlobalVariance(pc)
	} else {
		global = GlobalContribution(pc)
	}

	progress := newProgressTracker(cfg.Progress, 2*n)
	selected := make([]int, n)

	err = parallelFor(ctx, n, cfg.Workers, func(i int) error {
		var local []float64
		if cfg.Method == DaSilvaVariance {
			local = LocalVariance(pc, i, neighborhoods[i])
		} else {
			local = LocalContribution(pc, i, neighborhoods[i])
		}
		selected[i], _ = TopRanking(NormalizeContributions(local, global), global)
		progress.tick()
		return nil
	})
	if err != nil {
		return nil, run.fail(err)
	}

	err = parallelFor(ctx, n, cfg.Workers, func(i int) error {
		out[i] = DaSilvaExplanation{
			Attribute:  selected[i],
			Confidence: agreement(selected, i, neighborhoods[i]),
		}
		progress.tick()
		return nil
	})
	if err != nil {
		return nil, run.fail(err)
	}

	res := summarize(&Result{Method: MethodDaSilva, DaSilva: out}, out)
	run.finish(res)
	return res, nil
}

// Centroid returns the per-dimension mean of the original points, or nil for
// an empty container.
func (pc *PointContainer) Centroid() []float64 {
	if pc.n == 0 {
		return nil
	}
	x := mat.NewDense(pc.n, pc.origDims, pc.original)
	centroid := make([]float64, pc.origDims)
	col := make([]float64, pc.n)
	for j := range centroid {
		mat.Col(col, j, x)
		centroid[j], _ = Mean(col)
	}
	return centroid
}

// addContribution adds each dimension's share of the squared distance
// between p and q to dst. Coincident points carry no direction and add
// nothing.
func addContribution(dst, p, q []float64) {
	d2 := squaredEuclidean(p, q)
	if d2 == 0 {
		return
	}
	for j := range dst {
		diff := p[j] - q[j]
		dst[j] += diff * diff / d2
	}
}

// GlobalContribution returns, per original dimension, the average share of
// the squared distance between each point and the centroid.
func GlobalContribution(pc *PointContainer) []float64 {
	global := make([]float64, pc.origDims)
	if pc.n == 0 {
		return global
	}
	centroid := pc.Centroid()
	for i := 0; i < pc.n; i++ {
		addContribution(global, pc.Original(i), centroid)
	}
	floats.Scale(1/float64(pc.n), global)
	return global
}

// LocalContribution returns, per original dimension, the average share of
// the squared distance between point i and each of its neighbours. An empty
// neighbourhood yields zeros.
func LocalContribution(pc *PointContainer, i int, neighbors []int) []float64 {
	local := make([]float64, pc.origDims)
	if len(neighbors) == 0 {
		return local
	}
	p := pc.Original(i)
	for _, r := range neighbors {
		addContribution(local, p, pc.Original(r))
	}
	floats.Scale(1/float64(len(neighbors)), local)
	return local
}

// GlobalVariance returns the population variance of every original
// dimension over all points.
func GlobalVariance(pc *PointContainer) []float64 {
	global := make([]float64, pc.origDims)
	if pc.n == 0 {
		return global
	}
	x := mat.NewDense(pc.n, pc.origDims, pc.original)
	col := make([]float64, pc.n)
	for j := range global {
		mat.Col(col, j, x)
		global[j], _ = Variance(col)
	}
	return global
}

// LocalVariance returns the population variance of every original dimension
// over point i and its neighbours.
func LocalVariance(pc *PointContainer, i int, neighbors []int) []float64 {
	local := make([]float64, pc.origDims)
	col := make([]float64, len(neighbors)+1)
	for j := range local {
		col[0] = pc.Original(i)[j]
		for k, r := range neighbors {
			col[k+1] = pc.Original(r)[j]
		}
		local[j], _ = Variance(col)
	}
	return local
}

// NormalizeContributions divides each local value by the matching global
// value and rescales the ratios to sum to 1. Dimensions with no global
// contribution get ratio 0. If every ratio is 0 the result is all zeros.
func NormalizeContributions(local, global []float64) []float64 {
	out := make([]float64, len(local))
	for j := range local {
		if global[j] > 0 {
			out[j] = local[j] / global[j]
		}
	}
	if sum := floats.Sum(out); sum > 0 {
		floats.Scale(1/sum, out)
	}
	return out
}

// TopRanking returns the dimension with the lowest normalized contribution,
// i.e. the attribute the neighbourhood agrees on most, and its value.
// Dimensions that are constant over the data set (zero global contribution)
// carry no information and are skipped unless every dimension is constant.
// Ties go to the lower dimension.
func TopRanking(normalized, global []float64) (int, float64) {
	best, bestValue := -1, math.Inf(1)
	for j, v := range normalized {
		if global[j] > 0 && v < bestValue {
			best, bestValue = j, v
		}
	}
	if best >= 0 {
		return best, bestValue
	}
	if len(normalized) == 0 {
		return 0, 0
	}
	return floats.MinIdx(normalized), floats.Min(normalized)
}

// agreement returns the fraction of neighbours whose selected attribute
// equals point i's.
func agreement(selected []int, i int, neighbors []int) float64 {
	if len(neighbors) == 0 {
		return 0
	}
	same := 0
	for _, r := range neighbors {
		if selected[r] == selected[i] {
			same++
		}
	}
	return float64(same) / float64(len(neighbors))
}
