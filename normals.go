package mpexplain

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// NormalExplanation describes the local surface a 3-D projection forms
// around a point: the unit normal of the best-fitting plane through the
// point's neighbours and how flat that neighbourhood is.
type NormalExplanation struct {
	// Normal is the eigenvector of the smallest eigenvalue of the
	// neighbours' reduced-space covariance, oriented so that its largest
	// component is positive.
	Normal [3]float64
	// Eccentricity is the smallest eigenvalue over the largest, in [0, 1].
	// 0 is a perfectly flat neighbourhood, 1 an isotropic one.
	Eccentricity float64
}

// degenerateNormal is reported when a neighbourhood has no covariance
// structure to fit a plane to.
var degenerateNormal = NormalExplanation{Normal: [3]float64{1, 0, 0}, Eccentricity: 1}

// NormalsConfig controls ExplainNormals.
type NormalsConfig struct {
	// Neighborhood bounds each point's reduced-space neighbourhood. The
	// zero value selects the 10 nearest points.
	Neighborhood Neighborhood

	// Workers is the number of goroutines. 0 means runtime.NumCPU().
	Workers int

	// Progress, if set, is called after each point.
	Progress ProgressFunc

	// Logger receives run-level events. nil disables logging.
	Logger *zerolog.Logger
}

// DefaultNormalsConfig returns a NormalsConfig with reasonable defaults.
func DefaultNormalsConfig() NormalsConfig {
	return NormalsConfig{Neighborhood: KNeighborhood(defaultK)}
}

func applyNormalsDefaults(cfg *NormalsConfig) {
	if cfg.Neighborhood == (Neighborhood{}) {
		cfg.Neighborhood = KNeighborhood(defaultK)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func validateNormalsConfig(cfg *NormalsConfig) error {
	if err := cfg.Neighborhood.validate(); err != nil {
		return err
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("mpexplain: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// ExplainNormals fits a plane to the reduced-space neighbours of every point
// of a 3-D projection. Neighbourhoods with fewer than two members, or whose
// covariance has no positive eigenvalue, report the normal (1, 0, 0) with
// eccentricity 1.
//
// The result is index-aligned with the container's points. Containers whose
// reduced points are not 3-D yield ErrUnsupportedDimensionality.
func ExplainNormals(ctx context.Context, pc *PointContainer, cfg NormalsConfig) ([]NormalExplanation, error) {
	applyNormalsDefaults(&cfg)
	if err := validateNormalsConfig(&cfg); err != nil {
		return nil, err
	}
	if d := pc.ReducedDims(); d != 3 {
		return nil, fmt.Errorf("%w: normals need 3-D reduced points, got %d", ErrUnsupportedDimensionality, d)
	}

	n := pc.Len()
	out := make([]NormalExplanation, n)
	if n == 0 {
		return out, nil
	}

	run := startRun(cfg.Logger, "normals", pc, cfg.Neighborhood)

	neighborhoods, err := pc.NeighborsForAll(ctx, cfg.Neighborhood, cfg.Workers)
	if err != nil {
		return nil, run.fail(err)
	}

	progress := newProgressTracker(cfg.Progress, n)
	err = parallelFor(ctx, n, cfg.Workers, func(i int) error {
		out[i] = fitNormal(pc, neighborhoods[i])
		progress.tick()
		return nil
	})
	if err != nil {
		return nil, run.fail(err)
	}

	lo, hi := EccentricityBounds(out)
	run.finishNormals(lo, hi)
	return out, nil
}

func fitNormal(pc *PointContainer, neighbors []int) NormalExplanation {
	if len(neighbors) < 2 {
		return degenerateNormal
	}
	points := make([][]float64, len(neighbors))
	for k, r := range neighbors {
		points[k] = pc.Reduced(r)
	}
	cov, ok := CovarianceMatrix(points)
	if !ok {
		return degenerateNormal
	}
	values, vectors, ok := EigenDecomposition(cov)
	if !ok {
		return degenerateNormal
	}
	hi := floats.Max(values)
	if !(hi > 0) {
		return degenerateNormal
	}
	smallest := floats.MinIdx(values)

	var e NormalExplanation
	for d := range e.Normal {
		e.Normal[d] = vectors.At(d, smallest)
	}
	orientNormal(&e.Normal)
	e.Eccentricity = clamp01(max(values[smallest], 0) / hi)
	return e
}

// orientNormal flips v so that its largest-magnitude component is positive.
// Eigenvectors are only defined up to sign.
func orientNormal(v *[3]float64) {
	big := 0
	for d := 1; d < len(v); d++ {
		if math.Abs(v[d]) > math.Abs(v[big]) {
			big = d
		}
	}
	if v[big] < 0 {
		for d := range v {
			v[d] = -v[d]
		}
	}
}

// EccentricityBounds returns the smallest and largest eccentricity, or
// (0, 0) for an empty slice.
func EccentricityBounds(normals []NormalExplanation) (lo, hi float64) {
	if len(normals) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, e := range normals {
		lo = min(lo, e.Eccentricity)
		hi = max(hi, e.Eccentricity)
	}
	return lo, hi
}
