// Package table loads extracted tabular files to confirm they parse and to measure their shape.
// The loaded data is discarded; nothing here transforms the files.
package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrUnsupportedFormat is returned for files whose extension has no loader.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Shape is the row/column count of a loaded table; rows exclude any header.
type Shape struct {
	Rows    int64
	Columns int
}

// String formats the shape the way data frames print it: (rows, columns).
func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Columns)
}

// inspector loads one format from an open file of the given size.
type inspector func(file afero.File, size int64) (Shape, error)

var inspectors = map[string]inspector{
	".csv":     inspectCSV,
	".parquet": inspectParquet,
	".json":    inspectJSON,
}

// Supported reports whether the file name has an extension Inspect can load.
func Supported(name string) bool {
	_, ok := inspectors[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Inspect loads the table at path and returns its shape.
func Inspect(fs afero.Fs, path string) (Shape, error) {
	inspect, ok := inspectors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Shape{}, fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, filepath.Base(path))
	}

	file, err := fs.Open(path)
	if err != nil {
		return Shape{}, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	stat, err := file.Stat()
	if err != nil {
		return Shape{}, fmt.Errorf("failed to get file info for %s: %w", path, err)
	}

	shape, err := inspect(file, stat.Size())
	if err != nil {
		return Shape{}, fmt.Errorf("failed to load the table %s: %w", path, err)
	}
	return shape, nil
}
