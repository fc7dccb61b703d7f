package mpexplain

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateCube returns n points in 3-D that lie near a unit square. Each
// point has two uniform coordinates in [0, 1) and one zero coordinate, all
// perturbed by gaussian noise with standard deviation noise, and its axes
// rotated by a random amount so the flat axis differs between points.
// Values of noise between 0 and 0.05 keep the square recognisable.
func GenerateCube(n int, noise float64, src rand.Source) ([][]float64, error) {
	return generateFlat(n, 2, noise, src)
}

// GenerateHyperCube is GenerateCube one dimension up: three uniform
// coordinates and one flat coordinate per point, in 4-D.
func GenerateHyperCube(n int, noise float64, src rand.Source) ([][]float64, error) {
	return generateFlat(n, 3, noise, src)
}

func generateFlat(n, spread int, noise float64, src rand.Source) ([][]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("mpexplain: point count must be >= 0, got %d", n)
	}
	if math.IsNaN(noise) || math.IsInf(noise, 0) || noise < 0 {
		return nil, fmt.Errorf("mpexplain: noise must be finite and >= 0, got %v", noise)
	}

	rng := rand.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: noise, Src: src}
	dims := spread + 1

	// One backing array for all rows.
	flat := make([]float64, n*dims)
	points := make([][]float64, n)
	coords := make([]float64, dims)
	for i := range points {
		for j := 0; j < spread; j++ {
			coords[j] = rng.Float64()
		}
		coords[spread] = 0
		for j := range coords {
			coords[j] += normal.Rand()
		}

		row := flat[i*dims : (i+1)*dims]
		shift := rng.IntN(dims)
		for j := range row {
			row[j] = coords[(j+shift)%dims]
		}
		points[i] = row
	}
	return points, nil
}
