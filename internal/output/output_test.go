package output

import (
	"strings"
	"testing"
	"time"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/rowset"
)

var testNames = []string{"remote_host", "time", "status", "size"}

func testRow(t *testing.T) *rowset.Row {
	t.Helper()
	addr, err := datatypes.ParseAddress("64.242.88.10")
	if err != nil {
		t.Fatal(err)
	}
	return rowset.NewRow(testNames, []any{
		addr,
		time.Date(2004, 3, 8, 0, 56, 39, 0, time.UTC),
		int64(200),
		nil,
	})
}

func TestCSVWriter(t *testing.T) {
	var buf strings.Builder
	w := NewCSV(&buf, CSVOptions{Header: true})
	if err := w.Write(testRow(t)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := "remote_host,time,status,size\n" +
		"64.242.88.10,2004-03-08 00:56:39,200,\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if w.Count() != 1 {
		t.Errorf("Count = %d", w.Count())
	}
}

func TestCSVWriterDialect(t *testing.T) {
	var buf strings.Builder
	w := NewCSV(&buf, CSVOptions{Delimiter: '\t', CRLF: true, TimeFormat: "%d/%b/%Y"})
	if err := w.Write(testRow(t)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := "64.242.88.10\t08/Mar/2004\t200\t\r\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCSVWriterQuoting(t *testing.T) {
	var buf strings.Builder
	w := NewCSV(&buf, CSVOptions{})
	row := rowset.NewRow([]string{"agent"}, []any{`Mozilla/4.0 (compatible, "sort of")`})
	if err := w.Write(row); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := "\"Mozilla/4.0 (compatible, \"\"sort of\"\")\"\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCSVWriterRowWidth(t *testing.T) {
	var buf strings.Builder
	w := NewCSV(&buf, CSVOptions{})
	if err := w.Write(testRow(t)); err != nil {
		t.Fatal(err)
	}
	short := rowset.NewRow([]string{"status"}, []any{int64(404)})
	if err := w.Write(short); err == nil {
		t.Error("expected an error for a row of different width")
	}
}

func TestSQLWriter(t *testing.T) {
	var buf strings.Builder
	w, err := NewSQL(&buf, SQLOptions{Table: "access_log", CreateTable: true, DropTable: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(testRow(t)); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(testRow(t)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	insert := "INSERT INTO access_log (remote_host, time, status, size) " +
		"VALUES ('64.242.88.10', '2004-03-08 00:56:39', 200, NULL);\n"
	want := "DROP TABLE IF EXISTS access_log;\n" +
		"CREATE TABLE access_log (\n" +
		"    remote_host VARCHAR(2000),\n" +
		"    time TIMESTAMP,\n" +
		"    status BIGINT,\n" +
		"    size VARCHAR(2000)\n" +
		");\n" +
		"BEGIN;\n" + insert + insert + "COMMIT;\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if w.Count() != 2 {
		t.Errorf("Count = %d", w.Count())
	}
}

func TestSQLWriterBatches(t *testing.T) {
	var buf strings.Builder
	w, err := NewSQL(&buf, SQLOptions{Table: "t", BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(testRow(t)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if n := strings.Count(got, "BEGIN;"); n != 2 {
		t.Errorf("BEGIN count = %d in %q", n, got)
	}
	if n := strings.Count(got, "COMMIT;"); n != 2 {
		t.Errorf("COMMIT count = %d in %q", n, got)
	}
}

func TestSQLWriterQuoting(t *testing.T) {
	var buf strings.Builder
	w, err := NewSQL(&buf, SQLOptions{Table: "t"})
	if err != nil {
		t.Fatal(err)
	}
	row := rowset.NewRow([]string{"remark"}, []any{"it's quoted"})
	if err := w.Write(row); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "('it''s quoted')") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSQLWriterRequiresTable(t *testing.T) {
	if _, err := NewSQL(&strings.Builder{}, SQLOptions{}); err == nil {
		t.Error("expected an error without a table name")
	}
}
