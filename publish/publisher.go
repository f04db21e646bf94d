// Package publish holds optional sinks that receive the artifacts of a successful cycle.
package publish

import (
	"context"
	"time"
)

// Artifacts are the files a successful cycle left in its Storage Location.
type Artifacts struct {
	// Location the date-partitioned directory of the cycle
	Location string
	// ArchivePath the downloaded archive
	ArchivePath string
	// TablePath the canonical table file after the rename
	TablePath string
	// DatasetName and DataType are the path segments of the Storage Location
	DatasetName string
	DataType    string
	// Date the calendar day of the partition
	Date time.Time
}

// Publisher delivers the artifacts of a successful cycle somewhere else.
// A failing publisher never turns a successful cycle into a failed one.
type Publisher interface {
	// Name identifies the publisher in log records.
	Name() string
	// Publish delivers the artifacts; it must honour ctx cancellation.
	Publish(ctx context.Context, artifacts Artifacts) error
}
