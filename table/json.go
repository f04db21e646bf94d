package table

import (
	"bufio"
	"fmt"
	"unicode"

	"github.com/bcicen/jstream"
	"github.com/spf13/afero"
)

// inspectJSON streams a top-level array of records without loading the whole document.
// Columns is the key count of the widest record.
func inspectJSON(file afero.File, _ int64) (Shape, error) {
	reader := bufio.NewReader(file)
	if err := expectArray(reader); err != nil {
		return Shape{}, err
	}

	var shape Shape
	var recordErr error
	decoder := jstream.NewDecoder(reader, 1)
	// the stream is always drained so the decoder goroutine can finish
	for mv := range decoder.Stream() {
		if recordErr != nil {
			continue
		}
		record, ok := mv.Value.(map[string]interface{})
		if mv.ValueType != jstream.Object || !ok {
			recordErr = fmt.Errorf("record %d is not an object", shape.Rows+1)
			continue
		}
		shape.Rows++
		shape.Columns = max(shape.Columns, len(record))
	}
	if err := decoder.Err(); err != nil {
		return Shape{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if recordErr != nil {
		return Shape{}, recordErr
	}
	return shape, nil
}

// expectArray peeks at the first non-space byte, which must open an array.
func expectArray(reader *bufio.Reader) error {
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			return fmt.Errorf("no records to parse from the file: %w", err)
		}
		if unicode.IsSpace(r) || r == '\uFEFF' {
			continue
		}
		if r != '[' {
			return fmt.Errorf("expected a JSON array of records, got '%c'", r)
		}
		return reader.UnreadRune()
	}
}
