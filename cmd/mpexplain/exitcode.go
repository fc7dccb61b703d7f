package main

import (
	"context"
	"errors"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
)

// Exit codes. Scripts driving the tool rely on these values.
const (
	exitOK               = 0
	exitFailure          = 1
	exitParse            = 11
	exitRead             = 12
	exitNoPoints         = 13
	exitInconsistentDims = 14
	exitUnsupportedDims  = 15
	exitUsage            = 17
	exitCountMismatch    = 18
	exitInterrupted      = 130
)

// usageError marks invalid arguments, flags, or configuration values.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		parseErr *dataset.ParseError
		shapeErr *dataset.ShapeError
		dimErr   *mpexplain.DimensionMismatchError
		usage    usageError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &parseErr), errors.Is(err, mpexplain.ErrNonFiniteCoordinate):
		return exitParse
	case errors.Is(err, dataset.ErrRead), errors.Is(err, dataset.ErrEmptyFile):
		return exitRead
	case errors.Is(err, dataset.ErrNoPoints), errors.Is(err, mpexplain.ErrEmptyOriginal):
		return exitNoPoints
	case errors.As(err, &shapeErr), errors.As(err, &dimErr):
		return exitInconsistentDims
	case errors.Is(err, mpexplain.ErrUnsupportedDimensionality):
		return exitUnsupportedDims
	case errors.Is(err, mpexplain.ErrPointCountMismatch):
		return exitCountMismatch
	case errors.As(err, &usage):
		return exitUsage
	default:
		return exitFailure
	}
}
