package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrevorS/mpexplain"
	"github.com/TrevorS/mpexplain/internal/dataset"
)

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeGrid writes a small 3-D data set whose first two attributes are also
// its projection.
func writeGrid(t *testing.T, dir string) (original, reduced string) {
	t.Helper()
	var orig, red strings.Builder
	orig.WriteString("a;b;c\n")
	red.WriteString("x;y\n")
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			fmt.Fprintf(&orig, "%d;%d;%g\n", i, j, 0.01*float64((i*7+j*3)%5))
			fmt.Fprintf(&red, "%d;%d\n", i, j)
		}
	}
	return writeFile(t, dir, "original.csv", orig.String()), writeFile(t, dir, "reduced.csv", red.String())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"parse", &dataset.ParseError{Path: "f", Line: 2, Field: "x", Err: errors.New("bad")}, exitParse},
		{"non-finite", fmt.Errorf("wrap: %w", mpexplain.ErrNonFiniteCoordinate), exitParse},
		{"read", fmt.Errorf("%w: gone", dataset.ErrRead), exitRead},
		{"empty file", dataset.ErrEmptyFile, exitRead},
		{"no points", dataset.ErrNoPoints, exitNoPoints},
		{"ragged file", &dataset.ShapeError{Path: "f", Line: 3, Expected: 2, Actual: 3}, exitInconsistentDims},
		{"ragged rows", &mpexplain.DimensionMismatchError{Set: "original", Row: 1, Expected: 2, Actual: 1}, exitInconsistentDims},
		{"dims", mpexplain.ErrUnsupportedDimensionality, exitUnsupportedDims},
		{"usage", usageError{errors.New("bad flag")}, exitUsage},
		{"count", fmt.Errorf("%w: 3 vs 4", mpexplain.ErrPointCountMismatch), exitCountMismatch},
		{"canceled", context.Canceled, exitInterrupted},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExplainWritesOneRowPerPoint(t *testing.T) {
	dir := t.TempDir()
	original, reduced := writeGrid(t, dir)

	for _, method := range []string{"dasilva", "vandriel"} {
		t.Run(method, func(t *testing.T) {
			out := filepath.Join(dir, method+".csv")
			metricsFile := filepath.Join(dir, method+".prom")
			code, _, stderr := execute(t, "explain",
				"--original", original, "--reduced", reduced,
				"--method", method, "-k", "4", "--jobs", "2",
				"--output", out, "--metrics-file", metricsFile, "--progress=false")
			require.Equal(t, exitOK, code, stderr)

			tab, err := dataset.ReadFile(out)
			require.NoError(t, err)
			assert.Len(t, tab.Rows, 36)
			for _, row := range tab.Rows {
				assert.GreaterOrEqual(t, row[1], 0.0)
				assert.LessOrEqual(t, row[1], 1.0)
			}

			prom, err := os.ReadFile(metricsFile)
			require.NoError(t, err)
			assert.Contains(t, string(prom), "mpexplain_points_explained_total")
		})
	}
}

func TestExplainToStdout(t *testing.T) {
	dir := t.TempDir()
	original, reduced := writeGrid(t, dir)
	code, stdout, stderr := execute(t, "explain", "-i", original, "-d", reduced,
		"-m", "vandriel", "-r", "0.3", "--progress=false")
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "dimension;confidence\n"))
	assert.Equal(t, 37, strings.Count(stdout, "\n"))
}

func TestExplainIndexChoice(t *testing.T) {
	dir := t.TempDir()
	original, reduced := writeGrid(t, dir)

	var outputs []string
	for _, index := range []string{"rtree", "kdtree", "balltree"} {
		code, stdout, stderr := execute(t, "explain", "-i", original, "-d", reduced,
			"-k", "5", "--index", index, "--progress=false")
		require.Equal(t, exitOK, code, stderr)
		outputs = append(outputs, stdout)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestExplainConfigFile(t *testing.T) {
	dir := t.TempDir()
	original, reduced := writeGrid(t, dir)
	cfg := writeFile(t, dir, "run.yaml", fmt.Sprintf(
		"original: %s\nreduced: %s\nmethod: vandriel\nk: 5\ntheta: 0.8\nprogress: false\n", original, reduced))

	code, stdout, stderr := execute(t, "explain", "--config", cfg)
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "dimension;confidence\n"))

	// Flags override the file.
	code, stdout, stderr = execute(t, "explain", "--config", cfg, "--method", "dasilva")
	require.Equal(t, exitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "attribute;confidence\n"))
}

func TestExplainExitCodes(t *testing.T) {
	dir := t.TempDir()
	original, reduced := writeGrid(t, dir)
	short := writeFile(t, dir, "short.csv", "x;y\n0;0\n1;1\n")
	oneD := writeFile(t, dir, "one.csv", "x\n0\n1\n")
	bad := writeFile(t, dir, "bad.csv", "x;y\n0;zero\n")
	empty := writeFile(t, dir, "empty.csv", "")
	headerOnly := writeFile(t, dir, "header.csv", "x;y\n")
	ragged := writeFile(t, dir, "ragged.csv", "x;y\n0;0\n1\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"count mismatch", []string{"-i", original, "-d", short}, exitCountMismatch},
		{"unsupported dims", []string{"-i", oneD, "-d", oneD}, exitUnsupportedDims},
		{"parse", []string{"-i", original, "-d", bad}, exitParse},
		{"missing", []string{"-i", filepath.Join(dir, "nope.csv"), "-d", reduced}, exitRead},
		{"empty", []string{"-i", empty, "-d", reduced}, exitRead},
		{"header only", []string{"-i", headerOnly, "-d", reduced}, exitNoPoints},
		{"ragged", []string{"-i", original, "-d", ragged}, exitInconsistentDims},
		{"bad theta", []string{"-i", original, "-d", reduced, "--theta", "1.5"}, exitUsage},
		{"bad method", []string{"-i", original, "-d", reduced, "--method", "pca"}, exitUsage},
		{"bad index", []string{"-i", original, "-d", reduced, "--index", "quadtree"}, exitUsage},
		{"k and r", []string{"-i", original, "-d", reduced, "-k", "3", "-r", "0.1"}, exitUsage},
		{"unknown flag", []string{"--frobnicate"}, exitUsage},
		{"missing inputs", []string{}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"explain", "--progress=false"}, tt.args...)
			code, _, stderr := execute(t, args...)
			assert.Equal(t, tt.want, code, stderr)
		})
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	for shape, dims := range map[string]int{"cube": 3, "hypercube": 4} {
		t.Run(shape, func(t *testing.T) {
			out := filepath.Join(dir, shape+".csv.zst")
			code, _, stderr := execute(t, "generate", shape, "50", out, "--noise", "0.01", "--seed", "7")
			require.Equal(t, exitOK, code, stderr)

			tab, err := dataset.ReadFile(out)
			require.NoError(t, err)
			assert.Len(t, tab.Rows, 50)
			assert.Equal(t, dims, tab.Dims())
		})
	}

	code, _, _ := execute(t, "generate", "sphere", "10", filepath.Join(dir, "s.csv"))
	assert.Equal(t, exitUsage, code)
	code, _, _ = execute(t, "generate", "cube", "ten", filepath.Join(dir, "s.csv"))
	assert.Equal(t, exitUsage, code)
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	reduced := writeFile(t, dir, "line.csv", "x;y\n0;0\n4;0\n7;0\n9;0\n10;0\n")
	code, stdout, stderr := execute(t, "stats", "--reduced", reduced)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "points: 5\n")
	assert.Contains(t, stdout, "min: 0;0\n")
	assert.Contains(t, stdout, "max: 10;0\n")
	assert.Contains(t, stdout, "projection_width: 10\n")
	assert.Contains(t, stdout, "avg_nn_distance: 2.2\n")
}

func TestNormals(t *testing.T) {
	dir := t.TempDir()
	var red strings.Builder
	red.WriteString("x;y;z\n")
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			fmt.Fprintf(&red, "%d;%d;%d\n", i, j, 2*i)
		}
	}
	reduced := writeFile(t, dir, "plane.csv", red.String())
	out := filepath.Join(dir, "normals.csv.gz")

	code, _, stderr := execute(t, "normals", "--reduced", reduced, "-k", "6", "--output", out, "--progress=false")
	require.Equal(t, exitOK, code, stderr)

	tab, err := dataset.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"nx", "ny", "nz", "eccentricity"}, tab.Header)
	require.Len(t, tab.Rows, 25)
	for _, row := range tab.Rows {
		// The plane z = 2x has normal (2, 0, -1)/sqrt(5) once the largest
		// component is made positive.
		assert.InDelta(t, 2/math.Sqrt(5), row[0], 1e-6)
		assert.InDelta(t, 0, row[1], 1e-6)
		assert.InDelta(t, -1/math.Sqrt(5), row[2], 1e-6)
		assert.InDelta(t, 0, row[3], 1e-9)
	}
}

func TestNormalsExitCodes(t *testing.T) {
	dir := t.TempDir()
	_, reduced2D := writeGrid(t, dir)

	code, _, _ := execute(t, "normals", "--reduced", reduced2D, "--progress=false")
	assert.Equal(t, exitUnsupportedDims, code)
	code, _, _ = execute(t, "normals", "--progress=false")
	assert.Equal(t, exitUsage, code)
	code, _, _ = execute(t, "normals", "--reduced", reduced2D, "-k", "3", "-r", "0.2")
	assert.Equal(t, exitUsage, code)
}
