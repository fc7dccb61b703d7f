package mpexplain

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// VarianceMethod selects how the Van Driel explainer turns the sorted
// eigenvalues of a neighbourhood into a dimensionality and a confidence.
type VarianceMethod string

const (
	// TotalVariance picks the smallest number of leading eigenvalues whose
	// combined share of the variance reaches theta.
	TotalVariance VarianceMethod = "total"
	// MinimalVariance counts the eigenvalues whose individual share of the
	// variance reaches theta.
	MinimalVariance VarianceMethod = "minimal"
)

// VanDrielExplanation is the estimated intrinsic dimensionality of a point's
// neighbourhood in the original space.
type VanDrielExplanation struct {
	Dimension  int
	Confidence float64
}

func (e VanDrielExplanation) RankedDimension() int      { return e.Dimension }
func (e VanDrielExplanation) RankedConfidence() float64 { return e.Confidence }

// degenerateVanDriel is reported when a neighbourhood has no usable
// covariance structure.
var degenerateVanDriel = VanDrielExplanation{Dimension: 1, Confidence: 0}

// VanDrielConfig controls the Van Driel explainer.
type VanDrielConfig struct {
	// Neighborhood bounds each point's reduced-space neighbourhood. The
	// zero value selects the 10 nearest points.
	Neighborhood Neighborhood

	// Theta is the target fraction of variance, in [0, 1]. 0 selects the
	// default of 0.95.
	Theta float64

	// Method selects the variance policy. Default: TotalVariance.
	Method VarianceMethod

	// Workers is the number of goroutines. 0 means runtime.NumCPU().
	Workers int

	// Progress, if set, is called after each point.
	Progress ProgressFunc

	// Logger receives run-level events. nil disables logging.
	Logger *zerolog.Logger
}

// DefaultVanDrielConfig returns a VanDrielConfig with reasonable defaults.
func DefaultVanDrielConfig() VanDrielConfig {
	return VanDrielConfig{
		Neighborhood: KNeighborhood(defaultK),
		Theta:        defaultTheta,
		Method:       TotalVariance,
	}
}

func applyVanDrielDefaults(cfg *VanDrielConfig) {
	if cfg.Neighborhood == (Neighborhood{}) {
		cfg.Neighborhood = KNeighborhood(defaultK)
	}
	if cfg.Theta == 0 {
		cfg.Theta = defaultTheta
	}
	if cfg.Method == "" {
		cfg.Method = TotalVariance
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func validateVanDrielConfig(cfg *VanDrielConfig) error {
	if err := cfg.Neighborhood.validate(); err != nil {
		return err
	}
	if math.IsNaN(cfg.Theta) || cfg.Theta < 0 || cfg.Theta > 1 {
		return fmt.Errorf("mpexplain: Theta must be in [0, 1] (0 means default to %v), got %v", defaultTheta, cfg.Theta)
	}
	if cfg.Method != TotalVariance && cfg.Method != MinimalVariance {
		return fmt.Errorf("mpexplain: variance Method must be %q or %q, got %q", TotalVariance, MinimalVariance, cfg.Method)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("mpexplain: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// ExplainVanDriel estimates, for every point, how many principal components
// of its neighbours' original coordinates are needed to account for Theta of
// their variance. Neighbourhoods with fewer than two members, or whose
// covariance cannot be decomposed, report dimension 1 with confidence 0.
//
// The result is index-aligned with the container's points.
func ExplainVanDriel(ctx context.Context, pc *PointContainer, cfg VanDrielConfig) ([]VanDrielExplanation, error) {
	res, err := explainVanDriel(ctx, pc, cfg)
	if err != nil {
		return nil, err
	}
	return res.VanDriel, nil
}

func explainVanDriel(ctx context.Context, pc *PointContainer, cfg VanDrielConfig) (*Result, error) {
	applyVanDrielDefaults(&cfg)
	if err := validateVanDrielConfig(&cfg); err != nil {
		return nil, err
	}

	n := pc.Len()
	out := make([]VanDrielExplanation, n)
	if n == 0 {
		return summarize(&Result{Method: MethodVanDriel, VanDriel: out}, out), nil
	}

	run := startRun(cfg.Logger, "vandriel-"+string(cfg.Method), pc, cfg.Neighborhood)
	progress := newProgressTracker(cfg.Progress, n)

	policy := TotalVarianceExplanation
	if cfg.Method == MinimalVariance {
		policy = MinimalVarianceExplanation
	}

	err := parallelFor(ctx, n, cfg.Workers, func(i int) error {
		out[i] = explainNeighborhood(pc, pc.Neighbors(i, cfg.Neighborhood), cfg.Theta, policy)
		progress.tick()
		return nil
	})
	if err != nil {
		return nil, run.fail(err)
	}

	res := summarize(&Result{Method: MethodVanDriel, VanDriel: out}, out)
	run.finish(res)
	return res, nil
}

func explainNeighborhood(pc *PointContainer, neighbors []int, theta float64, policy func([]float64, float64) VanDrielExplanation) VanDrielExplanation {
	if len(neighbors) < 2 {
		return degenerateVanDriel
	}
	points := make([][]float64, len(neighbors))
	for k, r := range neighbors {
		points[k] = pc.Original(r)
	}
	eigenvalues, ok := EigenvaluesFromPoints(points)
	if !ok {
		return degenerateVanDriel
	}
	return policy(SortEigenvalues(eigenvalues), theta)
}

// TotalVarianceExplanation returns the smallest k such that the k leading
// eigenvalues hold at least theta of the total, with confidence
// 1 - (share - theta) clamped to [0, 1]. Eigenvalues must be non-negative
// and sorted in descending order.
func TotalVarianceExplanation(eigenvalues []float64, theta float64) VanDrielExplanation {
	total := floats.Sum(eigenvalues)
	if len(eigenvalues) == 0 || !(total > 0) || math.IsInf(total, 0) {
		return degenerateVanDriel
	}
	var cum float64
	for k, v := range eigenvalues {
		cum += v
		if share := cum / total; share >= theta {
			return VanDrielExplanation{Dimension: k + 1, Confidence: clamp01(1 - (share - theta))}
		}
	}
	// Rounding can leave the full sum a hair under theta = 1.
	return VanDrielExplanation{Dimension: len(eigenvalues), Confidence: clamp01(1 - (1 - theta))}
}

// MinimalVarianceExplanation counts the eigenvalues that individually hold
// at least theta of the total, with their combined share as confidence. The
// count may be 0.
func MinimalVarianceExplanation(eigenvalues []float64, theta float64) VanDrielExplanation {
	total := floats.Sum(eigenvalues)
	if len(eigenvalues) == 0 || !(total > 0) || math.IsInf(total, 0) {
		return degenerateVanDriel
	}
	var e VanDrielExplanation
	for _, v := range eigenvalues {
		if share := v / total; share >= theta {
			e.Dimension++
			e.Confidence += share
		}
	}
	e.Confidence = clamp01(e.Confidence)
	return e
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
