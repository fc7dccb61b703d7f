package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
)

func (a *app) newStatsCmd() *cobra.Command {
	var reducedPath string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Describe the geometry of a projection",
		Long: "Stats prints the bounding box, the projection width, and the average " +
			"nearest-neighbour distance of a reduced data set. Useful for choosing a radius.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reducedPath == "" {
				return usageError{errors.New("--reduced is required")}
			}
			reduced, err := dataset.ReadFile(reducedPath)
			if err != nil {
				return err
			}
			// The geometry only needs the projection; give every point a
			// single placeholder attribute.
			original := make([][]float64, len(reduced.Rows))
			for i := range original {
				original[i] = []float64{0}
			}
			pc, err := mpexplain.NewPointContainer(original, reduced.Rows, mpexplain.DefaultIndexConfig())
			if err != nil {
				return err
			}

			lo, hi := pc.BoundingBox()
			width, avg := pc.ProjectionWidth(), pc.AverageNearestNeighborDistance()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "points: %d\n", pc.Len())
			fmt.Fprintf(w, "min: %s\n", joinFloats(lo))
			fmt.Fprintf(w, "max: %s\n", joinFloats(hi))
			fmt.Fprintf(w, "projection_width: %s\n", formatFloat(width))
			fmt.Fprintf(w, "avg_nn_distance: %s\n", formatFloat(avg))
			a.log.Debug().
				Int("points", pc.Len()).
				Float64("projection_width", width).
				Float64("avg_nn_distance", avg).
				Msg("stats computed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&reducedPath, "reduced", "d", "", "Reduced data set, 2-D or 3-D")
	return cmd
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, string(dataset.Separator))
}
