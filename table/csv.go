package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// inspectCSV reads the header and every record. Short records count as rows with missing values,
// records wider than the header are an error.
func inspectCSV(file afero.File, _ int64) (Shape, error) {
	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Shape{}, fmt.Errorf("no columns to parse from the file")
		}
		return Shape{}, fmt.Errorf("failed to read the header: %w", err)
	}
	shape := Shape{Columns: len(header)}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Shape{}, fmt.Errorf("failed to read record %d: %w", shape.Rows+1, err)
		}
		if len(record) > shape.Columns {
			line, _ := reader.FieldPos(0)
			return Shape{}, fmt.Errorf("record on line %d has %d fields, expected at most %d",
				line, len(record), shape.Columns)
		}
		shape.Rows++
	}
	return shape, nil
}
