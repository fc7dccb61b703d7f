package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
)

// explainOptions are the settings of the explain command. They can come
// from a YAML file (--config); flags given on the command line win.
type explainOptions struct {
	Original      string  `yaml:"original"`
	Reduced       string  `yaml:"reduced"`
	Output        string  `yaml:"output"`
	MetricsFile   string  `yaml:"metrics_file"`
	Method        string  `yaml:"method"`
	DaSilvaMethod string  `yaml:"dasilva_method"`
	Variance      string  `yaml:"variance"`
	Theta         float64 `yaml:"theta"`
	K             int     `yaml:"k"`
	Radius        float64 `yaml:"radius"`
	Jobs          int     `yaml:"jobs"`
	Index         string  `yaml:"index"`
	Progress      bool    `yaml:"progress"`

	configPath string
}

func defaultExplainOptions() explainOptions {
	def := mpexplain.DefaultConfig()
	return explainOptions{
		Method:        string(def.Method),
		DaSilvaMethod: string(def.DaSilvaMethod),
		Variance:      string(def.VarianceMethod),
		Theta:         def.Theta,
		K:             def.Neighborhood.K,
		Index:         string(mpexplain.IndexRTree),
		Progress:      true,
	}
}

func (o *explainOptions) bindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Original, "original", "i", o.Original, "Original data set (';'-separated, header row)")
	fs.StringVarP(&o.Reduced, "reduced", "d", o.Reduced, "Reduced data set, 2-D or 3-D")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output file; stdout when empty")
	fs.StringVar(&o.MetricsFile, "metrics-file", o.MetricsFile, "Write Prometheus metrics of the run to this file")
	fs.StringVarP(&o.Method, "method", "m", o.Method, "Explanation mechanism (dasilva|vandriel)")
	fs.StringVar(&o.DaSilvaMethod, "dasilva-method", o.DaSilvaMethod, "Da Silva measure (euclidean|variance)")
	fs.StringVar(&o.Variance, "variance", o.Variance, "Van Driel variance policy (total|minimal)")
	fs.Float64VarP(&o.Theta, "theta", "t", o.Theta, "Van Driel target variance fraction in [0, 1]; 0 selects 0.95")
	fs.IntVarP(&o.K, "neighbors", "k", o.K, "Neighbourhood of the k nearest points")
	fs.Float64VarP(&o.Radius, "radius", "r", o.Radius, "Neighbourhood radius as a fraction of the projection width")
	fs.IntVarP(&o.Jobs, "jobs", "j", o.Jobs, "Worker goroutines; 0 uses every CPU")
	fs.StringVar(&o.Index, "index", o.Index, "Spatial index (rtree|kdtree|balltree)")
	fs.BoolVar(&o.Progress, "progress", o.Progress, "Draw a progress bar when stderr is a terminal")
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML file with default values for these flags")
}

// load merges the YAML file, if any, under the flags that were set
// explicitly.
func (o *explainOptions) load(cmd *cobra.Command) error {
	if o.configPath == "" {
		return nil
	}
	fs := cmd.Flags()
	explicit := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	data, err := os.ReadFile(o.configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", dataset.ErrRead, err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return usageError{fmt.Errorf("config %s: %w", o.configPath, err)}
	}
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return usageError{err}
		}
	}
	// A -k on the command line beats a radius from the file.
	if _, ok := explicit["neighbors"]; ok {
		if _, ok := explicit["radius"]; !ok {
			o.Radius = 0
		}
	}
	return nil
}

// libConfig validates the options and converts them to library settings.
func (o *explainOptions) libConfig() (mpexplain.Config, mpexplain.IndexConfig, error) {
	cfg := mpexplain.DefaultConfig()
	idx := mpexplain.DefaultIndexConfig()

	if o.Original == "" || o.Reduced == "" {
		return cfg, idx, usageError{fmt.Errorf("both --original and --reduced are required")}
	}
	switch m := mpexplain.Method(o.Method); m {
	case mpexplain.MethodDaSilva, mpexplain.MethodVanDriel:
		cfg.Method = m
	default:
		return cfg, idx, usageError{fmt.Errorf("unknown method %q", o.Method)}
	}
	switch m := mpexplain.DaSilvaMethod(o.DaSilvaMethod); m {
	case mpexplain.DaSilvaEuclidean, mpexplain.DaSilvaVariance:
		cfg.DaSilvaMethod = m
	default:
		return cfg, idx, usageError{fmt.Errorf("unknown Da Silva method %q", o.DaSilvaMethod)}
	}
	switch m := mpexplain.VarianceMethod(o.Variance); m {
	case mpexplain.TotalVariance, mpexplain.MinimalVariance:
		cfg.VarianceMethod = m
	default:
		return cfg, idx, usageError{fmt.Errorf("unknown variance policy %q", o.Variance)}
	}
	if o.Theta < 0 || o.Theta > 1 {
		return cfg, idx, usageError{fmt.Errorf("theta must be in [0, 1], got %v", o.Theta)}
	}
	cfg.Theta = o.Theta

	switch {
	case o.Radius > 0:
		if o.Radius > 1 {
			return cfg, idx, usageError{fmt.Errorf("radius must be in (0, 1], got %v", o.Radius)}
		}
		cfg.RelativeRadius = o.Radius
	case o.Radius < 0:
		return cfg, idx, usageError{fmt.Errorf("radius must be in (0, 1], got %v", o.Radius)}
	case o.K < 1:
		return cfg, idx, usageError{fmt.Errorf("k must be >= 1, got %d", o.K)}
	default:
		cfg.Neighborhood = mpexplain.KNeighborhood(o.K)
	}

	if o.Jobs < 0 {
		return cfg, idx, usageError{fmt.Errorf("jobs must be >= 0, got %d", o.Jobs)}
	}
	cfg.Workers = o.Jobs

	switch k := mpexplain.IndexKind(o.Index); k {
	case mpexplain.IndexRTree, mpexplain.IndexKDTree, mpexplain.IndexBallTree:
		idx.Index = k
	default:
		return cfg, idx, usageError{fmt.Errorf("unknown index %q", o.Index)}
	}
	return cfg, idx, nil
}
