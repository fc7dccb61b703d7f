// Package dataset reads and writes point sets as ';'-separated text files
// with a header row. Files ending in .gz or .zst are transparently
// compressed.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Separator is the field separator of every file this package reads or
// writes.
const Separator = ';'

var (
	// ErrRead reports a file that could not be opened or read.
	ErrRead = errors.New("dataset: read failed")
	// ErrEmptyFile reports a file without even a header row.
	ErrEmptyFile = errors.New("dataset: file is empty")
	// ErrNoPoints reports a file with a header but no data rows.
	ErrNoPoints = errors.New("dataset: file contains no points")
)

// ParseError reports a field that is not a number.
type ParseError struct {
	Path  string
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: %s:%d: cannot parse %q as a number: %v", e.Path, e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports a row whose field count differs from the first row's.
type ShapeError struct {
	Path     string
	Line     int
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("dataset: %s:%d: expected %d values, got %d", e.Path, e.Line, e.Expected, e.Actual)
}

// Table is a parsed point set.
type Table struct {
	Header []string
	Rows   [][]float64
}

// Dims returns the number of values per row.
func (t *Table) Dims() int {
	if len(t.Rows) == 0 {
		return len(t.Header)
	}
	return len(t.Rows[0])
}

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionZstd
)

func compressionFor(path string) compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return compressionGzip
	case ".zst", ".zstd":
		return compressionZstd
	default:
		return compressionNone
	}
}

// ReadFile reads the point set at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	switch compressionFor(path) {
	case compressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
		}
		defer zr.Close()
		r = zr
	case compressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
		}
		defer zr.Close()
		r = zr
	}
	return Read(r, path)
}

// Read parses a point set from r. name is used in error messages.
func Read(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, name, err)
	}
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}

	dims := -1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, name, err)
		}
		line, _ := cr.FieldPos(0)
		if dims < 0 {
			dims = len(record)
		} else if len(record) != dims {
			return nil, &ShapeError{Path: name, Line: line, Expected: dims, Actual: len(record)}
		}
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &ParseError{Path: name, Line: line, Field: field, Err: err}
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPoints, name)
	}
	return t, nil
}

// WriteFile writes header and rows to path, creating or truncating it.
func WriteFile(path string, header []string, rows [][]float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	switch compressionFor(path) {
	case compressionGzip:
		err = writeAndClose(gzip.NewWriter(bw), header, rows)
	case compressionZstd:
		zw, zerr := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zerr != nil {
			return zerr
		}
		err = writeAndClose(zw, header, rows)
	default:
		err = Write(bw, header, rows)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// writeAndClose writes header and rows to wc and closes wc even when the
// write fails. A write error takes precedence over the close error.
func writeAndClose(wc io.WriteCloser, header []string, rows [][]float64) (err error) {
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(wc, header, rows)
}

// Write writes header and rows to w. Values use the shortest representation
// that parses back to the same float64.
func Write(w io.Writer, header []string, rows [][]float64) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AxisHeader returns x, y, z, w followed by d4, d5, ... for dims columns.
func AxisHeader(dims int) []string {
	axes := []string{"x", "y", "z", "w"}
	header := make([]string, dims)
	for i := range header {
		if i < len(axes) {
			header[i] = axes[i]
		} else {
			header[i] = "d" + strconv.Itoa(i)
		}
	}
	return header
}
