package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/rowset"
)

// DefaultBatchSize is the number of rows per transaction when the options
// don't specify one.
const DefaultBatchSize = 1000

// SQLOptions configures the SQL script writer behavior.
type SQLOptions struct {
	// Table is the target table name. Required.
	Table string

	// CreateTable emits a CREATE TABLE statement before the first
	// insert, with column types inferred from the first row.
	CreateTable bool

	// DropTable emits DROP TABLE IF EXISTS before the create. It has no
	// effect unless CreateTable is also set.
	DropTable bool

	// BatchSize is the number of inserts wrapped in each transaction.
	// Zero means DefaultBatchSize.
	BatchSize int

	// TimeFormat is the strftime layout applied to time values. Empty
	// means DefaultTimeFormat.
	TimeFormat string
}

// SQLWriter renders rows as an SQL script: an optional schema statement
// followed by INSERT statements grouped into transactions. The script
// targets the common subset of SQL understood by SQLite and PostgreSQL.
type SQLWriter struct {
	writer  *bufio.Writer
	options SQLOptions
	names   []string
	inBatch int
	count   int
}

// NewSQL creates an SQL script writer over output.
func NewSQL(output io.Writer, opts SQLOptions) (*SQLWriter, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("sql output requires a table name")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}
	return &SQLWriter{writer: bufio.NewWriter(output), options: opts}, nil
}

// Count reports the number of rows written so far.
func (w *SQLWriter) Count() int { return w.count }

// Write renders one row as an INSERT statement, emitting the schema
// statements and opening a transaction as necessary.
func (w *SQLWriter) Write(row *rowset.Row) error {
	if w.names == nil {
		w.names = row.Names()
		if w.options.CreateTable {
			if err := w.writeSchema(row); err != nil {
				return err
			}
		}
	} else if len(row.Values) != len(w.names) {
		return fmt.Errorf("row has %d fields, expected %d",
			len(row.Values), len(w.names))
	}
	if w.inBatch == 0 {
		if _, err := w.writer.WriteString("BEGIN;\n"); err != nil {
			return err
		}
	}
	literals := make([]string, len(row.Values))
	for i, v := range row.Values {
		literals[i] = w.literal(v)
	}
	_, err := fmt.Fprintf(w.writer, "INSERT INTO %s (%s) VALUES (%s);\n",
		w.options.Table, strings.Join(w.names, ", "), strings.Join(literals, ", "))
	if err != nil {
		return err
	}
	w.count++
	w.inBatch++
	if w.inBatch >= w.options.BatchSize {
		return w.commit()
	}
	return nil
}

// Close commits any open transaction and flushes the script. Write must not
// be called afterwards.
func (w *SQLWriter) Close() error {
	if w.inBatch > 0 {
		if err := w.commit(); err != nil {
			return err
		}
	}
	return w.writer.Flush()
}

func (w *SQLWriter) commit() error {
	w.inBatch = 0
	_, err := w.writer.WriteString("COMMIT;\n")
	return err
}

func (w *SQLWriter) writeSchema(row *rowset.Row) error {
	if w.options.DropTable {
		_, err := fmt.Fprintf(w.writer, "DROP TABLE IF EXISTS %s;\n", w.options.Table)
		if err != nil {
			return err
		}
	}
	columns := make([]string, len(w.names))
	for i, name := range w.names {
		columns[i] = fmt.Sprintf("    %s %s", name, columnType(row.Values[i]))
	}
	_, err := fmt.Fprintf(w.writer, "CREATE TABLE %s (\n%s\n);\n",
		w.options.Table, strings.Join(columns, ",\n"))
	return err
}

// columnType infers a column affinity from a value of the first row. A nil
// value gives no type information, so such columns fall back to text.
func columnType(v any) string {
	switch v.(type) {
	case int64:
		return "BIGINT"
	case float64:
		return "DOUBLE PRECISION"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "VARCHAR(2000)"
	}
}

// literal renders a value as an SQL literal, quoting text with doubled
// single quotes.
func (w *SQLWriter) literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int64, float64:
		return datatypes.Coerce(val)
	case time.Time:
		return "'" + timefmt.Format(val, w.options.TimeFormat) + "'"
	default:
		return "'" + strings.ReplaceAll(datatypes.Coerce(val), "'", "''") + "'"
	}
}
