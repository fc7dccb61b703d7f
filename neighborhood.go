package mpexplain

import (
	"fmt"
	"math"
	"strconv"
)

// NeighborhoodKind selects how a Neighborhood is bounded.
type NeighborhoodKind int

const (
	// NeighborhoodK takes the K nearest points.
	NeighborhoodK NeighborhoodKind = iota + 1
	// NeighborhoodR takes every point strictly closer than Radius.
	NeighborhoodR
)

// Neighborhood describes the reduced-space neighbourhood of a point. The
// point itself is never part of its own neighbourhood. The zero value has no
// kind; explainer configs replace it with their default.
type Neighborhood struct {
	Kind   NeighborhoodKind
	K      int
	Radius float64 // absolute, in reduced-space units
}

// KNeighborhood returns a neighbourhood of the k nearest points.
func KNeighborhood(k int) Neighborhood {
	return Neighborhood{Kind: NeighborhoodK, K: k}
}

// RNeighborhood returns a neighbourhood of all points closer than radius.
// Use PointContainer.RelativeRadius to express radius as a fraction of the
// projection width.
func RNeighborhood(radius float64) Neighborhood {
	return Neighborhood{Kind: NeighborhoodR, Radius: radius}
}

func (nb Neighborhood) String() string {
	switch nb.Kind {
	case NeighborhoodK:
		return "k=" + strconv.Itoa(nb.K)
	case NeighborhoodR:
		return "r=" + strconv.FormatFloat(nb.Radius, 'g', -1, 64)
	default:
		return fmt.Sprintf("Neighborhood(%d)", int(nb.Kind))
	}
}

func (nb Neighborhood) validate() error {
	switch nb.Kind {
	case NeighborhoodK:
		if nb.K < 0 {
			return fmt.Errorf("mpexplain: neighborhood K must be >= 0, got %d", nb.K)
		}
	case NeighborhoodR:
		if nb.Radius < 0 || math.IsNaN(nb.Radius) || math.IsInf(nb.Radius, 0) {
			return fmt.Errorf("mpexplain: neighborhood radius must be finite and >= 0, got %v", nb.Radius)
		}
	default:
		return fmt.Errorf("mpexplain: invalid neighborhood kind %d", int(nb.Kind))
	}
	return nil
}
