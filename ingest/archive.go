package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"dataingest/table"
	"dataingest/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// partSuffix marks an archive whose write has not completed yet.
const partSuffix = ".part"

// download fetches the archive and persists it under dir. The payload goes to a ".part" file first
// and is renamed into place only after the whole write completed.
func (c *Cycle) download(ctx context.Context, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.ArchiveURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build the request: %w", ErrNetwork, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{Code: resp.StatusCode, URL: c.settings.ArchiveURL}
	}

	// the client timeout also covers reading the body
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read the response body: %w", ErrNetwork, err)
	}

	archivePath := filepath.Join(dir, c.settings.archiveName())
	partPath := archivePath + partSuffix
	if err = afero.WriteFile(c.fs, partPath, payload, 0o644); err != nil {
		_ = c.fs.Remove(partPath)
		return "", fmt.Errorf("%w: failed to write '%s': %w", ErrFilesystem, partPath, err)
	}
	if err = c.fs.Rename(partPath, archivePath); err != nil {
		return "", fmt.Errorf("%w: failed to rename '%s': %w", ErrFilesystem, partPath, err)
	}
	return archivePath, nil
}

// extract unpacks every archive entry into dir and returns the names of the extracted files
// in archive order. Directory entries are created but not listed.
func (c *Cycle) extract(log *utils.CustomLogger, dir, archivePath string) ([]string, error) {
	file, err := c.fs.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file %s: %w", ErrFilesystem, archivePath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get file info for %s: %w", ErrFilesystem, archivePath, err)
	}

	reader, err := zip.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, archivePath, err)
	}

	var names []string
	for _, entry := range reader.File {
		target, err := entryPath(dir, entry.Name)
		if err != nil {
			return nil, err
		}
		if entry.FileInfo().IsDir() {
			if err = c.fs.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("%w: failed to create '%s': %w", ErrFilesystem, target, err)
			}
			continue
		}
		if target == filepath.Clean(archivePath) {
			// the archive is still being read
			log.Warn("Skipping the entry that would overwrite the archive", zap.String("name", entry.Name))
			continue
		}
		if err = c.extractEntry(entry, target); err != nil {
			return nil, err
		}
		log.Trace("Extracted entry", zap.String("name", entry.Name),
			zap.Uint64("size", entry.UncompressedSize64))
		names = append(names, entry.Name)
	}
	return names, nil
}

// extractEntry copies one entry to target, overwriting a previous file.
func (c *Cycle) extractEntry(entry *zip.File, target string) error {
	if err := c.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create '%s': %w", ErrFilesystem, filepath.Dir(target), err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: failed to open entry '%s': %w", ErrBadArchive, entry.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := c.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to create '%s': %w", ErrFilesystem, target, err)
	}

	writer := &trackingWriter{w: dst}
	_, err = io.Copy(writer, src)
	closeErr := dst.Close()
	switch {
	case err != nil && writer.err != nil:
		return fmt.Errorf("%w: failed to write '%s': %w", ErrFilesystem, target, err)
	case err != nil:
		// decompression or checksum failure
		return fmt.Errorf("%w: failed to read entry '%s': %w", ErrBadArchive, entry.Name, err)
	case closeErr != nil:
		return fmt.Errorf("%w: failed to close '%s': %w", ErrFilesystem, target, closeErr)
	}
	return nil
}

// entryPath maps an entry name into dir, rejecting names that would escape it.
func entryPath(dir, name string) (string, error) {
	local := filepath.FromSlash(name)
	if filepath.IsAbs(local) || strings.HasPrefix(name, "/") || filepath.VolumeName(local) != "" {
		return "", fmt.Errorf("%w: absolute entry path '%s'", ErrBadArchive, name)
	}
	target := filepath.Join(dir, local)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry '%s' escapes the storage location", ErrBadArchive, name)
	}
	return target, nil
}

// selectTable picks the canonical table among the extracted entries.
func (c *Cycle) selectTable(entries []string) (string, error) {
	mask := c.settings.TableFile
	for _, entry := range entries {
		if mask != "" {
			if utils.MatchMask(entry, mask) || utils.MatchMask(path.Base(entry), mask) {
				return entry, nil
			}
			continue
		}
		if table.Supported(entry) {
			return entry, nil
		}
	}
	if mask != "" {
		return "", fmt.Errorf("%w: no entry matches '%s' among %v", ErrNoTable, mask, entries)
	}
	return "", fmt.Errorf("%w: no supported table among %v", ErrNoTable, entries)
}

// trackingWriter remembers write errors so that a failed copy can be blamed on the right side.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
