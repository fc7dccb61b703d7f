package mpexplain

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Method selects the explanation mechanism.
type Method string

const (
	MethodDaSilva  Method = "dasilva"
	MethodVanDriel Method = "vandriel"
)

// Config controls Explain. It gathers the settings of both explainers so
// that callers such as the command line tool can switch methods without
// building a different config.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Method selects the explainer. Default: MethodDaSilva.
	Method Method

	// Neighborhood bounds each point's reduced-space neighbourhood. The
	// zero value selects the 10 nearest points.
	Neighborhood Neighborhood

	// RelativeRadius, when > 0, replaces Neighborhood with a radius
	// neighbourhood of this fraction of the projection width.
	RelativeRadius float64

	// DaSilvaMethod is the per-dimension measure of the Da Silva explainer.
	// Default: DaSilvaEuclidean.
	DaSilvaMethod DaSilvaMethod

	// VarianceMethod is the Van Driel variance policy. Default: TotalVariance.
	VarianceMethod VarianceMethod

	// Theta is the Van Driel target variance fraction, in [0, 1].
	// 0 selects the default of 0.95.
	Theta float64

	// Workers is the number of goroutines. 0 means runtime.NumCPU().
	Workers int

	// Progress, if set, receives per-point progress.
	Progress ProgressFunc

	// Logger receives run-level events. nil disables logging.
	Logger *zerolog.Logger
}

// Result holds the explanations of one Explain call. Exactly one of
// DaSilva and VanDriel is set, matching Method.
type Result struct {
	Method   Method
	DaSilva  []DaSilvaExplanation
	VanDriel []VanDrielExplanation

	// Rankings lists the reported dimensions by descending frequency.
	Rankings []int

	// ConfidenceMin and ConfidenceMax bound the per-point confidences.
	ConfidenceMin float64
	ConfidenceMax float64
}

const (
	defaultK     = 10
	defaultTheta = 0.95
)

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Method:         MethodDaSilva,
		Neighborhood:   KNeighborhood(defaultK),
		DaSilvaMethod:  DaSilvaEuclidean,
		VarianceMethod: TotalVariance,
		Theta:          defaultTheta,
	}
}

// applyDefaults fills Method only; the remaining zero values are resolved by
// the selected explainer.
func applyDefaults(cfg *Config) {
	if cfg.Method == "" {
		cfg.Method = MethodDaSilva
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Method != MethodDaSilva && cfg.Method != MethodVanDriel {
		return fmt.Errorf("mpexplain: Method must be %q or %q, got %q", MethodDaSilva, MethodVanDriel, cfg.Method)
	}
	if cfg.RelativeRadius < 0 {
		return fmt.Errorf("mpexplain: RelativeRadius must be >= 0, got %v", cfg.RelativeRadius)
	}
	return nil
}

// Len returns the number of explained points.
func (r *Result) Len() int {
	if r.Method == MethodVanDriel {
		return len(r.VanDriel)
	}
	return len(r.DaSilva)
}

// summarize fills the rankings and confidence bounds of res from
// explanations and returns res.
func summarize[E Ranked](res *Result, explanations []E) *Result {
	res.Rankings = DimensionRankings(explanations)
	res.ConfidenceMin, res.ConfidenceMax = ConfidenceBounds(explanations)
	return res
}

// Row returns the reported dimension and confidence of point i: the
// attribute index for Da Silva, the dimensionality for Van Driel.
func (r *Result) Row(i int) (dimension int, confidence float64) {
	if r.Method == MethodVanDriel {
		return r.VanDriel[i].Dimension, r.VanDriel[i].Confidence
	}
	return r.DaSilva[i].Attribute, r.DaSilva[i].Confidence
}

// Explain runs the configured explainer over every point of pc.
func Explain(ctx context.Context, pc *PointContainer, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	nb := cfg.Neighborhood
	if cfg.RelativeRadius > 0 {
		nb = pc.RelativeRadius(cfg.RelativeRadius)
	}

	if cfg.Method == MethodVanDriel {
		return explainVanDriel(ctx, pc, VanDrielConfig{
			Neighborhood: nb,
			Theta:        cfg.Theta,
			Method:       cfg.VarianceMethod,
			Workers:      cfg.Workers,
			Progress:     cfg.Progress,
			Logger:       cfg.Logger,
		})
	}
	return explainDaSilva(ctx, pc, DaSilvaConfig{
		Neighborhood: nb,
		Method:       cfg.DaSilvaMethod,
		Workers:      cfg.Workers,
		Progress:     cfg.Progress,
		Logger:       cfg.Logger,
	})
}
