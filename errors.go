package mpexplain

import (
	"errors"
	"fmt"
)

var (
	// ErrPointCountMismatch is returned when the original and reduced point
	// sets do not contain the same number of rows.
	ErrPointCountMismatch = errors.New("mpexplain: original and reduced point counts differ")

	// ErrUnsupportedDimensionality is returned when the reduced points are
	// not 2-D or 3-D.
	ErrUnsupportedDimensionality = errors.New("mpexplain: reduced points must be 2-D or 3-D")

	// ErrEmptyOriginal is returned when the original points have zero
	// attributes.
	ErrEmptyOriginal = errors.New("mpexplain: original points need at least one attribute")

	// ErrNonFiniteCoordinate is returned when a coordinate is NaN or infinite.
	ErrNonFiniteCoordinate = errors.New("mpexplain: coordinate is not finite")
)

// DimensionMismatchError reports a row whose length differs from the first
// row of the same point set.
type DimensionMismatchError struct {
	Set      string // "original" or "reduced"
	Row      int
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("mpexplain: %s point %d has %d dimensions, expected %d",
		e.Set, e.Row, e.Actual, e.Expected)
}
