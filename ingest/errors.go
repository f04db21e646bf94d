package ingest

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure taxonomy of a cycle. Every failure of Cycle.Run wraps exactly one of these.
var (
	// ErrNetwork covers transport failures: connection errors, DNS failures, timeouts.
	ErrNetwork = errors.New("network error")
	// ErrHTTPStatus is matched by *StatusError for any response other than 200.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrBadArchive covers corrupt or invalid archives and entries escaping the Storage Location.
	ErrBadArchive = errors.New("bad archive")
	// ErrNoTable is a bad archive without any entry usable as the canonical table.
	ErrNoTable = fmt.Errorf("%w: no table entry found", ErrBadArchive)
	// ErrFilesystem covers directory creation and file I/O.
	ErrFilesystem = errors.New("filesystem error")
	// ErrTableParse is returned when the canonical table does not load.
	ErrTableParse = errors.New("table parse error")
)

// StatusError is a non-200 response of the archive URL.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download dataset from %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Is makes errors.Is(err, ErrHTTPStatus) true for every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// Kind names the failure class of err for log records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrHTTPStatus):
		return "HTTPStatusError"
	case errors.Is(err, ErrBadArchive):
		return "BadArchiveError"
	case errors.Is(err, ErrFilesystem):
		return "FilesystemError"
	case errors.Is(err, ErrTableParse):
		return "TableParseError"
	default:
		return "UnknownError"
	}
}
