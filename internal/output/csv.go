// Package output provides writers that render extracted rows into bulk
// loading formats: CSV for spreadsheets and COPY-style imports, and SQL
// statement scripts for direct database loading.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/timefmt-go"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/rowset"
)

// DefaultTimeFormat is the timestamp layout used for time values when the
// options don't specify one.
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

// CSVOptions configures the CSV writer behavior.
type CSVOptions struct {
	// Header writes the field names as the first record.
	Header bool

	// Delimiter overrides the field delimiter. Zero means comma; use
	// '\t' for tab-separated output.
	Delimiter rune

	// CRLF terminates records with \r\n instead of \n. Most spreadsheet
	// products accept either.
	CRLF bool

	// TimeFormat is the strftime layout applied to time values. Empty
	// means DefaultTimeFormat.
	TimeFormat string
}

// CSVWriter serializes rows as delimiter separated values. All rows written
// to one writer must have the same number of fields; the first row fixes
// the width.
type CSVWriter struct {
	writer     *csv.Writer
	options    CSVOptions
	fieldCount int
	count      int
}

// NewCSV creates a CSV writer over output.
func NewCSV(output io.Writer, opts CSVOptions) *CSVWriter {
	writer := csv.NewWriter(output)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}
	writer.UseCRLF = opts.CRLF
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	return &CSVWriter{writer: writer, options: opts, fieldCount: -1}
}

// Count reports the number of data rows written (the header record is not
// counted).
func (w *CSVWriter) Count() int { return w.count }

// Write renders one row as a CSV record. Values are coerced to their
// canonical text forms; nil becomes the empty string.
func (w *CSVWriter) Write(row *rowset.Row) error {
	if w.fieldCount < 0 {
		w.fieldCount = len(row.Values)
		if w.options.Header {
			if err := w.writer.Write(row.Names()); err != nil {
				return err
			}
		}
	} else if len(row.Values) != w.fieldCount {
		return fmt.Errorf("row has %d fields, expected %d",
			len(row.Values), w.fieldCount)
	}
	record := make([]string, len(row.Values))
	for i, v := range row.Values {
		record[i] = w.coerce(v)
	}
	if err := w.writer.Write(record); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *CSVWriter) coerce(v any) string {
	if t, ok := v.(time.Time); ok {
		return timefmt.Format(t, w.options.TimeFormat)
	}
	return datatypes.Coerce(v)
}

// Close flushes buffered records. Write must not be called afterwards.
func (w *CSVWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
