package mpexplain

import (
	"context"
	"testing"
)

func benchContainer(b *testing.B, n int, index IndexKind) *PointContainer {
	b.Helper()
	cfg := DefaultIndexConfig()
	cfg.Index = index
	pc, err := NewPointContainer(
		rows(randomFlat(42, n, 8, 100), 8),
		rows(randomFlat(43, n, 2, 100), 2),
		cfg,
	)
	if err != nil {
		b.Fatal(err)
	}
	return pc
}

// --- Index construction ---

func benchBuildIndex(b *testing.B, n int, index IndexKind) {
	b.Helper()
	cfg := DefaultIndexConfig()
	cfg.Index = index
	original := rows(randomFlat(42, n, 8, 100), 8)
	reduced := rows(randomFlat(43, n, 2, 100), 2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewPointContainer(original, reduced, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildRTree_1000(b *testing.B)    { benchBuildIndex(b, 1000, IndexRTree) }
func BenchmarkBuildRTree_10000(b *testing.B)   { benchBuildIndex(b, 10000, IndexRTree) }
func BenchmarkBuildKDTree_1000(b *testing.B)   { benchBuildIndex(b, 1000, IndexKDTree) }
func BenchmarkBuildKDTree_10000(b *testing.B)  { benchBuildIndex(b, 10000, IndexKDTree) }
func BenchmarkBuildBallTree_1000(b *testing.B) { benchBuildIndex(b, 1000, IndexBallTree) }

// --- Neighbourhood queries ---

func benchNeighborsForAll(b *testing.B, n int, index IndexKind) {
	b.Helper()
	pc := benchContainer(b, n, index)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pc.NeighborsForAll(context.Background(), KNeighborhood(10), 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNeighborsForAll_RTree_5000(b *testing.B)  { benchNeighborsForAll(b, 5000, IndexRTree) }
func BenchmarkNeighborsForAll_KDTree_5000(b *testing.B) { benchNeighborsForAll(b, 5000, IndexKDTree) }
func BenchmarkNeighborsForAll_BallTree_5000(b *testing.B) {
	benchNeighborsForAll(b, 5000, IndexBallTree)
}

// --- Explainers ---

func benchExplain(b *testing.B, n int, method Method) {
	b.Helper()
	pc := benchContainer(b, n, IndexRTree)
	cfg := DefaultConfig()
	cfg.Method = method
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Explain(context.Background(), pc, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExplainDaSilva_1000(b *testing.B)  { benchExplain(b, 1000, MethodDaSilva) }
func BenchmarkExplainDaSilva_5000(b *testing.B)  { benchExplain(b, 5000, MethodDaSilva) }
func BenchmarkExplainVanDriel_1000(b *testing.B) { benchExplain(b, 1000, MethodVanDriel) }
func BenchmarkExplainVanDriel_5000(b *testing.B) { benchExplain(b, 5000, MethodVanDriel) }
