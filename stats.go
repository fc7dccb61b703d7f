package mpexplain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// The helpers below wrap gonum so that degenerate input reports "no value"
// through the boolean instead of producing NaN.

// Mean returns the arithmetic mean of data.
func Mean(data []float64) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return stat.Mean(data, nil), true
}

// Variance returns the population variance of data.
func Variance(data []float64) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return stat.PopVariance(data, nil), true
}

// SampleVariance returns the unbiased sample variance of data. It needs at
// least two values.
func SampleVariance(data []float64) (float64, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return stat.Variance(data, nil), true
}

// Covariance returns the unbiased sample covariance of x and y. It needs
// two slices of equal length with at least two values.
func Covariance(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	return stat.Covariance(x, y, nil), true
}

// CovarianceMatrix returns the sample covariance matrix of the given points,
// one row per point. It reports false for an empty input, for points of
// differing or zero dimensionality, and for fewer than two points.
func CovarianceMatrix(points [][]float64) (*mat.SymDense, bool) {
	if len(points) < 2 {
		return nil, false
	}
	dims := len(points[0])
	if dims == 0 {
		return nil, false
	}
	flat := make([]float64, 0, len(points)*dims)
	for _, p := range points {
		if len(p) != dims {
			return nil, false
		}
		flat = append(flat, p...)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(len(points), dims, flat), nil)
	return &cov, true
}

// EigenDecomposition factorizes a symmetric matrix. Eigenvalues are returned
// in the solver's order (ascending for gonum) with the matching eigenvectors
// as columns. It reports false for an empty matrix or a failed
// factorization.
func EigenDecomposition(m mat.Symmetric) ([]float64, *mat.Dense, bool) {
	if m == nil {
		return nil, nil, false
	}
	if r, _ := m.Dims(); r == 0 {
		return nil, nil, false
	}
	var es mat.EigenSym
	if !es.Factorize(m, true) {
		return nil, nil, false
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)
	return es.Values(nil), &vectors, true
}

// EigenvaluesFromPoints returns the eigenvalues of the covariance matrix of
// points.
func EigenvaluesFromPoints(points [][]float64) ([]float64, bool) {
	cov, ok := CovarianceMatrix(points)
	if !ok {
		return nil, false
	}
	var es mat.EigenSym
	if !es.Factorize(cov, false) {
		return nil, false
	}
	return es.Values(nil), true
}

// SortEigenvalues returns the absolute values of eigenvalues in descending
// order. Covariance matrices are positive semi-definite, so negative values
// only arise from rounding.
func SortEigenvalues(eigenvalues []float64) []float64 {
	out := make([]float64, len(eigenvalues))
	for i, v := range eigenvalues {
		out[i] = math.Abs(v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}
