package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
	"github.com/TrevorS/mpexplain/internal/metrics"
	"github.com/TrevorS/mpexplain/internal/progress"
)

func (a *app) newExplainCmd() *cobra.Command {
	opts := defaultExplainOptions()
	cmd := &cobra.Command{
		Use:     "explain",
		Aliases: []string{"exp"},
		Short:   "Explain every point of a projection",
		Long: "Explain reads the original and the reduced data set and writes one row per point: " +
			"the attribute (Da Silva) or dimensionality (Van Driel) followed by its confidence, separated by ';'.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("neighbors") && cmd.Flags().Changed("radius") {
				return usageError{fmt.Errorf("--neighbors and --radius are mutually exclusive")}
			}
			if err := opts.load(cmd); err != nil {
				return err
			}
			return a.runExplain(cmd, &opts)
		},
	}
	opts.bindFlags(cmd.Flags())
	return cmd
}

func (a *app) runExplain(cmd *cobra.Command, opts *explainOptions) error {
	cfg, idxCfg, err := opts.libConfig()
	if err != nil {
		return err
	}

	original, err := dataset.ReadFile(opts.Original)
	if err != nil {
		return err
	}
	reduced, err := dataset.ReadFile(opts.Reduced)
	if err != nil {
		return err
	}
	if len(original.Header) == original.Dims() {
		idxCfg.DimensionNames = original.Header
	}

	pc, err := mpexplain.NewPointContainer(original.Rows, reduced.Rows, idxCfg)
	if err != nil {
		return err
	}
	a.log.Info().
		Int("points", pc.Len()).
		Int("original_dims", pc.OriginalDims()).
		Int("reduced_dims", pc.ReducedDims()).
		Float64("projection_width", pc.ProjectionWidth()).
		Msg("data loaded")

	if opts.Progress {
		cfg.Progress = progress.New(a.stderr, string(cfg.Method)).Update
	}
	cfg.Logger = &a.log

	rec := metrics.New()
	start := time.Now()
	res, err := mpexplain.Explain(cmd.Context(), pc, cfg)
	rec.ObserveRun(string(cfg.Method), time.Since(start), err)
	if err != nil {
		return err
	}

	header := []string{"attribute", "confidence"}
	if res.Method == mpexplain.MethodVanDriel {
		header[0] = "dimension"
	}
	rows := make([][]float64, res.Len())
	for i := range rows {
		dim, conf := res.Row(i)
		rows[i] = []float64{float64(dim), conf}
		rec.ObservePoint(string(cfg.Method), dim, conf)
	}

	if opts.Output == "" {
		err = dataset.Write(a.stdout, header, rows)
	} else {
		err = dataset.WriteFile(opts.Output, header, rows)
	}
	if err != nil {
		return fmt.Errorf("write explanations: %w", err)
	}

	a.log.Info().
		Strs("rankings", a.rankingLabels(res, pc)).
		Float64("confidence_min", res.ConfidenceMin).
		Float64("confidence_max", res.ConfidenceMax).
		Msg("explanations written")

	if opts.MetricsFile != "" {
		if err := rec.WriteFile(opts.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// rankingLabels names ranked attributes after their column header where
// one is known.
func (a *app) rankingLabels(res *mpexplain.Result, pc *mpexplain.PointContainer) []string {
	names := pc.DimensionNames()
	labels := make([]string, len(res.Rankings))
	for i, d := range res.Rankings {
		if res.Method == mpexplain.MethodDaSilva && d < len(names) {
			labels[i] = names[d]
		} else {
			labels[i] = fmt.Sprint(d)
		}
	}
	return labels
}
