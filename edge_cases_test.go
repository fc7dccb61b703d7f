package mpexplain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeCase_SinglePoint(t *testing.T) {
	pc, err := NewPointContainer([][]float64{{1, 2, 3}}, [][]float64{{0, 0}}, DefaultIndexConfig())
	require.NoError(t, err)

	ds, err := ExplainDaSilva(context.Background(), pc, DefaultDaSilvaConfig())
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Zero(t, ds[0].Confidence, "no neighbours to agree with")

	vd, err := ExplainVanDriel(context.Background(), pc, DefaultVanDrielConfig())
	require.NoError(t, err)
	assert.Equal(t, []VanDrielExplanation{degenerateVanDriel}, vd)
}

func TestEdgeCase_TwoPoints(t *testing.T) {
	pc, err := NewPointContainer([][]float64{{0, 0}, {3, 4}}, [][]float64{{0, 0}, {1, 0}}, DefaultIndexConfig())
	require.NoError(t, err)

	ds, err := ExplainDaSilva(context.Background(), pc, DefaultDaSilvaConfig())
	require.NoError(t, err)
	// Local and global shares are identical, so the tie goes to attribute 0
	// and the two points agree.
	for _, e := range ds {
		assert.Equal(t, 0, e.Attribute)
		assert.Equal(t, 1.0, e.Confidence)
	}

	vd, err := ExplainVanDriel(context.Background(), pc, DefaultVanDrielConfig())
	require.NoError(t, err)
	for _, e := range vd {
		assert.Equal(t, degenerateVanDriel, e, "a single neighbour has no covariance")
	}
}

func TestEdgeCase_AllIdenticalReducedPoints(t *testing.T) {
	n := 12
	original := rows(randomFlat(4, n, 3, 1), 3)
	reduced := make([][]float64, n)
	for i := range reduced {
		reduced[i] = []float64{2, 2}
	}
	for name, cfg := range indexConfigs() {
		t.Run(name, func(t *testing.T) {
			pc, err := NewPointContainer(original, reduced, cfg)
			require.NoError(t, err)
			assert.Zero(t, pc.ProjectionWidth())
			assert.Equal(t, []int{0, 1, 2}, pc.KNearest(5, 3), "ties resolve to the lowest indices")

			// A relative radius of a zero-width projection is empty.
			res, err := Explain(context.Background(), pc, Config{RelativeRadius: 0.5})
			require.NoError(t, err)
			for i := 0; i < res.Len(); i++ {
				_, conf := res.Row(i)
				assert.Zero(t, conf)
			}
		})
	}
}

func TestEdgeCase_KLargerThanN(t *testing.T) {
	pc := planeContainer(t, 6)
	cfg := DefaultVanDrielConfig()
	cfg.Neighborhood = KNeighborhood(100)
	out, err := ExplainVanDriel(context.Background(), pc, cfg)
	require.NoError(t, err)
	require.Len(t, out, 6)
	for _, e := range out {
		assert.GreaterOrEqual(t, e.Dimension, 1)
		assert.LessOrEqual(t, e.Dimension, 2, "the other five points lie on a plane")
	}

	ds, err := ExplainDaSilva(context.Background(), pc, DaSilvaConfig{Neighborhood: KNeighborhood(100)})
	require.NoError(t, err)
	assert.Len(t, ds, 6)
}

func TestEdgeCase_ConstantAttribute(t *testing.T) {
	// Attribute 2 never varies and must not be selected even though its
	// local contribution is always the smallest.
	pc := planeContainer(t, 80)
	out, err := ExplainDaSilva(context.Background(), pc, DefaultDaSilvaConfig())
	require.NoError(t, err)
	for i, e := range out {
		assert.NotEqual(t, 2, e.Attribute, "point %d", i)
	}
}

func TestEdgeCase_ThreeDimensionalProjection(t *testing.T) {
	n := 120
	original := rows(randomFlat(61, n, 5, 1), 5)
	reduced := rows(randomFlat(62, n, 3, 1), 3)
	for name, cfg := range indexConfigs() {
		t.Run(name, func(t *testing.T) {
			pc, err := NewPointContainer(original, reduced, cfg)
			require.NoError(t, err)
			for _, m := range []Method{MethodDaSilva, MethodVanDriel} {
				res, err := Explain(context.Background(), pc, Config{Method: m, Neighborhood: KNeighborhood(8), Theta: 0.9})
				require.NoError(t, err)
				assert.Equal(t, n, res.Len())
				assert.GreaterOrEqual(t, res.ConfidenceMin, 0.0)
				assert.LessOrEqual(t, res.ConfidenceMax, 1.0)
			}
		})
	}
}

func TestEdgeCase_IndexChoiceDoesNotChangeResults(t *testing.T) {
	n := 250
	original := rows(randomFlat(71, n, 4, 1), 4)
	reduced := rows(randomFlat(72, n, 2, 1), 2)

	var results []*Result
	for _, name := range []string{"rtree", "kdtree", "balltree"} {
		pc, err := NewPointContainer(original, reduced, indexConfigs()[name])
		require.NoError(t, err)
		res, err := Explain(context.Background(), pc, DefaultConfig())
		require.NoError(t, err)
		results = append(results, res)
	}
	assert.Equal(t, results[0].DaSilva, results[1].DaSilva)
	assert.Equal(t, results[0].DaSilva, results[2].DaSilva)
}
