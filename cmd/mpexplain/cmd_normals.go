package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
	"github.com/TrevorS/mpexplain/internal/progress"
)

type normalsOptions struct {
	reduced  string
	output   string
	k        int
	radius   float64
	jobs     int
	progress bool
}

func (a *app) newNormalsCmd() *cobra.Command {
	opts := normalsOptions{k: mpexplain.DefaultNormalsConfig().Neighborhood.K, progress: true}
	cmd := &cobra.Command{
		Use:   "normals",
		Short: "Estimate surface normals of a 3-D projection",
		Long: "Normals fits a plane to the neighbourhood of every point of a 3-D reduced data set " +
			"and writes its unit normal and eccentricity, separated by ';'.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("neighbors") && cmd.Flags().Changed("radius") {
				return usageError{errors.New("--neighbors and --radius are mutually exclusive")}
			}
			return a.runNormals(cmd, &opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.reduced, "reduced", "d", "", "Reduced data set, 3-D")
	fs.StringVarP(&opts.output, "output", "o", "", "Output file; stdout when empty")
	fs.IntVarP(&opts.k, "neighbors", "k", opts.k, "Neighbourhood of the k nearest points")
	fs.Float64VarP(&opts.radius, "radius", "r", 0, "Neighbourhood radius as a fraction of the projection width")
	fs.IntVarP(&opts.jobs, "jobs", "j", 0, "Worker goroutines; 0 uses every CPU")
	fs.BoolVar(&opts.progress, "progress", opts.progress, "Draw a progress bar when stderr is a terminal")
	return cmd
}

func (a *app) runNormals(cmd *cobra.Command, opts *normalsOptions) error {
	if opts.reduced == "" {
		return usageError{errors.New("--reduced is required")}
	}
	if opts.radius < 0 || opts.radius > 1 {
		return usageError{fmt.Errorf("radius must be in (0, 1], got %v", opts.radius)}
	}
	if opts.radius == 0 && opts.k < 1 {
		return usageError{fmt.Errorf("k must be >= 1, got %d", opts.k)}
	}
	if opts.jobs < 0 {
		return usageError{fmt.Errorf("jobs must be >= 0, got %d", opts.jobs)}
	}

	reduced, err := dataset.ReadFile(opts.reduced)
	if err != nil {
		return err
	}
	// Normals only look at the projection; see the stats command.
	original := make([][]float64, len(reduced.Rows))
	for i := range original {
		original[i] = []float64{0}
	}
	pc, err := mpexplain.NewPointContainer(original, reduced.Rows, mpexplain.DefaultIndexConfig())
	if err != nil {
		return err
	}

	cfg := mpexplain.NormalsConfig{
		Neighborhood: mpexplain.KNeighborhood(opts.k),
		Workers:      opts.jobs,
		Logger:       &a.log,
	}
	if opts.radius > 0 {
		cfg.Neighborhood = pc.RelativeRadius(opts.radius)
	}
	if opts.progress {
		cfg.Progress = progress.New(a.stderr, "normals").Update
	}

	normals, err := mpexplain.ExplainNormals(cmd.Context(), pc, cfg)
	if err != nil {
		return err
	}

	header := []string{"nx", "ny", "nz", "eccentricity"}
	rows := make([][]float64, len(normals))
	for i, e := range normals {
		rows[i] = []float64{e.Normal[0], e.Normal[1], e.Normal[2], e.Eccentricity}
	}
	if opts.output == "" {
		err = dataset.Write(a.stdout, header, rows)
	} else {
		err = dataset.WriteFile(opts.output, header, rows)
	}
	if err != nil {
		return fmt.Errorf("write normals: %w", err)
	}

	lo, hi := mpexplain.EccentricityBounds(normals)
	a.log.Info().
		Int("points", pc.Len()).
		Float64("eccentricity_min", lo).
		Float64("eccentricity_max", hi).
		Msg("normals written")
	return nil
}
