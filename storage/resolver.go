package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"dataingest/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DateLayout is the calendar-day partition format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ErrInvalidSegment is returned for dataset or data-type labels that cannot be used as a single path segment.
var ErrInvalidSegment = errors.New("invalid path segment")

// Resolver derives the date-partitioned Storage Location {base}/{dataset}/{dataType}/{YYYY-MM-DD}
// and makes sure it exists.
type Resolver struct {
	// fs the filesystem the directories are created on
	fs afero.Fs
	// baseDir the root of all datasets
	baseDir string
	// datasetName the dataset identifier, used as a path segment
	datasetName string
	// dataType the data-type label (for example "raw_data"), used as a path segment
	dataType string
	// now the clock; the partition is the calendar day of the call
	now func() time.Time
	log *utils.CustomLogger
}

// NewResolver validates the path segments and creates a Resolver using the wall clock.
func NewResolver(fs afero.Fs, baseDir, datasetName, dataType string, log *utils.CustomLogger) (*Resolver, error) {
	for _, segment := range []string{datasetName, dataType} {
		if segment == "" || segment == "." || utils.FindFilePathCharacters(segment) {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidSegment, segment)
		}
	}
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrInvalidSegment)
	}
	return &Resolver{
		fs:          fs,
		baseDir:     baseDir,
		datasetName: datasetName,
		dataType:    dataType,
		now:         time.Now,
		log:         log,
	}, nil
}

// WithClock replaces the clock, mostly for tests pinning the partition date.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// DatasetName returns the dataset identifier of the resolved locations.
func (r *Resolver) DatasetName() string {
	return r.datasetName
}

// DataType returns the data-type label of the resolved locations.
func (r *Resolver) DataType() string {
	return r.dataType
}

// Resolve returns today's partition directory, creating all missing intermediate directories.
// Calling it again on the same day returns the same path without an error.
func (r *Resolver) Resolve() (string, error) {
	day := r.now()
	dir := PartitionPath(r.baseDir, r.datasetName, r.dataType, day)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create the storage directory '%s': %w", dir, err)
	}
	r.log.Debug("Storage location resolved", zap.String("dir", dir), zap.String("date", day.Format(DateLayout)))
	return dir, nil
}

// PartitionPath composes {base}/{dataset}/{dataType}/{YYYY-MM-DD} with the host path separator.
func PartitionPath(baseDir, datasetName, dataType string, day time.Time) string {
	return filepath.Join(baseDir, datasetName, dataType, day.Format(DateLayout))
}

// PartitionDate extracts the partition date of a Storage Location produced by PartitionPath.
func PartitionDate(dir string) (time.Time, error) {
	return time.Parse(DateLayout, filepath.Base(dir))
}
