package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
)

type generator func(n int, noise float64, src rand.Source) ([][]float64, error)

var shapes = map[string]generator{
	"cube":      mpexplain.GenerateCube,
	"hypercube": mpexplain.GenerateHyperCube,
}

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		noise float64
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:     "generate SHAPE POINTS OUTPUT",
		Aliases: []string{"gen"},
		Short:   "Generate a synthetic point cloud",
		Long: "Generate writes POINTS points near a randomly oriented flat shape. " +
			"SHAPE is cube (a unit square in 3-D) or hypercube (a unit cube in 4-D).",
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := shapes[args[0]]
			if !ok {
				return usageError{fmt.Errorf("unknown shape %q (want cube or hypercube)", args[0])}
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return usageError{fmt.Errorf("POINTS must be a positive integer, got %q", args[1])}
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			points, err := gen(n, noise, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			if err != nil {
				return usageError{err}
			}
			if err := dataset.WriteFile(args[2], dataset.AxisHeader(len(points[0])), points); err != nil {
				return fmt.Errorf("write %s: %w", args[2], err)
			}
			a.log.Info().
				Str("shape", args[0]).
				Int("points", n).
				Float64("noise", noise).
				Uint64("seed", seed).
				Str("output", args[2]).
				Msg("point cloud generated")
			return nil
		},
	}
	cmd.Flags().Float64VarP(&noise, "noise", "n", 0, "Standard deviation of the gaussian noise; 0 to 0.05 is advisable")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed; a time-based seed is used when unset")
	return cmd
}
