// Package ingest implements one fetch-extract cycle: download the dataset archive into the Storage Location,
// extract it, load the canonical table to confirm it parses, and rename it to its canonical name.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"dataingest/publish"
	"dataingest/storage"
	"dataingest/table"
	"dataingest/utils"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultTimeout bounds the HTTP retrieval of the archive, body included.
const DefaultTimeout = 10 * time.Second

// Locator resolves the Storage Location of a cycle; storage.Resolver is the production one.
type Locator interface {
	Resolve() (string, error)
}

// Settings describe what a cycle fetches and how its files are named.
type Settings struct {
	// ArchiveURL the fixed HTTP(S) GET endpoint of the dataset archive
	ArchiveURL string
	// DatasetName and DataType are carried to publishers; DatasetName names the default files
	DatasetName string
	DataType    string
	// ArchiveName the file name of the persisted archive, "{dataset}.zip" when empty
	ArchiveName string
	// TableFile selects the canonical table entry: an exact name or a single "*" mask matched against
	// the entry path and its base name. When empty, the first entry with a supported table extension wins.
	TableFile string
	// OutputName the canonical table file name, "{dataset}{ext of the selected entry}" when empty
	OutputName string
	// FatalOnParseError makes a table that does not load a fatal outcome instead of a failed cycle
	FatalOnParseError bool
}

func (s Settings) archiveName() string {
	if s.ArchiveName != "" {
		return s.ArchiveName
	}
	return s.DatasetName + ".zip"
}

func (s Settings) outputName(entry string) string {
	if s.OutputName != "" {
		return s.OutputName
	}
	return s.DatasetName + filepath.Ext(entry)
}

// Outcome reports one cycle. It is logged, never persisted.
type Outcome struct {
	RunID   string
	Success bool
	// Err wraps one of the taxonomy errors when Success is false
	Err error
	// Fatal asks the scheduler to stop; only table parse errors with FatalOnParseError set are fatal
	Fatal       bool
	Location    string
	ArchivePath string
	TablePath   string
	Shape       table.Shape
	Duration    time.Duration
}

// Cycle performs fetch-extract attempts. It is not safe for concurrent use: cycles never overlap.
type Cycle struct {
	fs         afero.Fs
	client     *http.Client
	locator    Locator
	settings   Settings
	publishers []publish.Publisher
	log        *utils.CustomLogger
}

// NewCycle creates a cycle; a nil client gets one with DefaultTimeout.
func NewCycle(fs afero.Fs, client *http.Client, locator Locator, settings Settings, log *utils.CustomLogger,
	publishers ...publish.Publisher) *Cycle {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Cycle{
		fs:         fs,
		client:     client,
		locator:    locator,
		settings:   settings,
		publishers: publishers,
		log:        log,
	}
}

// Run resolves today's Storage Location and performs one attempt in it.
// Every failure is logged and reported through the Outcome.
func (c *Cycle) Run(ctx context.Context) Outcome {
	dir, err := c.locator.Resolve()
	if err != nil {
		outcome := Outcome{RunID: uuid.NewString(), Err: fmt.Errorf("%w: %w", ErrFilesystem, err)}
		c.log.Error("Failed to resolve the storage location", zap.String("run_id", outcome.RunID),
			zap.String("kind", Kind(outcome.Err)), zap.Error(err))
		return outcome
	}
	return c.Fetch(ctx, dir)
}

// Fetch performs one download-extract-validate-rename attempt into dir, which must exist.
func (c *Cycle) Fetch(ctx context.Context, dir string) Outcome {
	start := time.Now()
	outcome := Outcome{RunID: uuid.NewString(), Location: dir}
	log := c.log.With(zap.String("run_id", outcome.RunID))

	err := c.fetch(ctx, log, dir, &outcome)
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Err = err
		outcome.Fatal = c.settings.FatalOnParseError && errors.Is(err, ErrTableParse)
		log.Error("Data download failed", zap.String("kind", Kind(err)), zap.Bool("fatal", outcome.Fatal),
			zap.Duration("time", outcome.Duration), zap.Error(err))
		return outcome
	}

	outcome.Success = true
	log.Info("Data download and extraction finished", zap.String("table", outcome.TablePath),
		zap.Stringer("shape", outcome.Shape), zap.Duration("time", outcome.Duration))
	c.publish(ctx, log, outcome)
	return outcome
}

func (c *Cycle) fetch(ctx context.Context, log *utils.CustomLogger, dir string, outcome *Outcome) error {
	log.Info("Starting data download...", zap.String("url", c.settings.ArchiveURL))
	archivePath, err := c.download(ctx, dir)
	if err != nil {
		return err
	}
	outcome.ArchivePath = archivePath
	log.Info("Data zip file successfully downloaded", zap.String("path", archivePath))

	entries, err := c.extract(log, dir, archivePath)
	if err != nil {
		return err
	}
	log.Info("Extracted files", zap.Strings("entries", entries))

	entry, err := c.selectTable(entries)
	if err != nil {
		return err
	}
	entryPath := filepath.Join(dir, filepath.FromSlash(entry))
	log.Debug("Canonical table selected", zap.String("entry", entry))

	shape, err := table.Inspect(c.fs, entryPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableParse, err)
	}
	outcome.Shape = shape
	log.Info("Dataset loaded successfully", zap.Stringer("shape", shape))
	if shape.Rows == 0 {
		log.Warn("Dataset has no rows", zap.String("entry", entry))
	}

	tablePath := filepath.Join(dir, c.settings.outputName(entry))
	if tablePath != entryPath {
		if err = c.fs.Rename(entryPath, tablePath); err != nil {
			return fmt.Errorf("%w: failed to rename '%s' to '%s': %w", ErrFilesystem, entryPath, tablePath, err)
		}
	}
	outcome.TablePath = tablePath
	log.Info("Dataset renamed", zap.String("name", filepath.Base(tablePath)))
	return nil
}

// publish hands the artifacts to every publisher; failures are only logged.
func (c *Cycle) publish(ctx context.Context, log *utils.CustomLogger, outcome Outcome) {
	if len(c.publishers) == 0 {
		return
	}
	date, err := storage.PartitionDate(outcome.Location)
	if err != nil {
		date = time.Now()
	}
	artifacts := publish.Artifacts{
		Location:    outcome.Location,
		ArchivePath: outcome.ArchivePath,
		TablePath:   outcome.TablePath,
		DatasetName: c.settings.DatasetName,
		DataType:    c.settings.DataType,
		Date:        date,
	}
	for _, p := range c.publishers {
		start := time.Now()
		if err := p.Publish(ctx, artifacts); err != nil {
			log.Warn("Publishing failed", zap.String("publisher", p.Name()), zap.Error(err))
			continue
		}
		log.Info("Published", zap.String("publisher", p.Name()), zap.Duration("time", time.Since(start)))
	}
}
