package mpexplain

import "math"

// The spatial indexes compare and prune in reduced-distance space, which for
// Euclidean distance is the squared distance. Only reported distances take
// the square root.

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// minRdistBox returns a lower bound on the squared distance between point and
// any point inside the axis-aligned box lo..hi.
func minRdistBox(lo, hi, point []float64) float64 {
	var rdist float64
	for j := range point {
		var d float64
		if point[j] < lo[j] {
			d = lo[j] - point[j]
		} else if point[j] > hi[j] {
			d = point[j] - hi[j]
		}
		rdist += d * d
	}
	return rdist
}

// boundingBox scans flat row-major data with n rows of dims columns.
// An empty set yields +Inf minima and -Inf maxima on every axis.
func boundingBox(data []float64, n, dims int) (lo, hi []float64) {
	lo = make([]float64, dims)
	hi = make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	for i := 0; i < n; i++ {
		row := data[i*dims : (i+1)*dims]
		for d, v := range row {
			if v < lo[d] {
				lo[d] = v
			}
			if v > hi[d] {
				hi[d] = v
			}
		}
	}
	return lo, hi
}
