package rowset

import (
	"strings"
	"testing"

	"weblog2csv/internal/parsers"
)

func intField(name string) FieldSpec {
	return FieldSpec{
		Name:    name,
		Pattern: parsers.Name(parsers.Integer, name),
		Parse:   parsers.ParseInt,
	}
}

func TestBuilderDuplicateField(t *testing.T) {
	b := NewBuilder()
	if err := b.Field(intField("size")); err != nil {
		t.Fatalf("first Field() error = %v", err)
	}
	b.Literal(" ")
	err := b.Field(intField("size"))
	if err == nil {
		t.Fatal("second Field() with same name did not fail")
	}
	var cfgErr *ConfigError
	if !isConfigError(err, &cfgErr) {
		t.Errorf("error %v is not a ConfigError", err)
	}
	if !strings.Contains(err.Error(), "size") {
		t.Errorf("error %q does not name the duplicate field", err)
	}
}

func isConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if ok {
		*target = ce
	}
	return ok
}

func TestFormatMatchAndFieldOrder(t *testing.T) {
	b := NewBuilder()
	mustField(t, b, intField("status"))
	b.Literal(" ")
	mustField(t, b, intField("size"))
	format, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if got := format.FieldNames(); len(got) != 2 || got[0] != "status" || got[1] != "size" {
		t.Errorf("FieldNames() = %v, want [status size]", got)
	}

	values, ok := format.Match("200 8545")
	if !ok {
		t.Fatal("Match() failed on valid line")
	}
	if values[0] != "200" || values[1] != "8545" {
		t.Errorf("Match() = %v, want [200 8545]", values)
	}

	if _, ok := format.Match("200 8545 extra"); ok {
		t.Error("Match() accepted a line with trailing data; pattern is not anchored")
	}
}

// Compiling the same specs twice must yield identical names and matching
// behavior.
func TestCompileDeterminism(t *testing.T) {
	build := func() *Format {
		b := NewBuilder()
		mustField(t, b, intField("status"))
		b.Literal(" ")
		mustField(t, b, intField("size"))
		f, err := b.Compile()
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		return f
	}
	f1, f2 := build(), build()
	n1, n2 := f1.FieldNames(), f2.FieldNames()
	if strings.Join(n1, ",") != strings.Join(n2, ",") {
		t.Errorf("field names differ: %v vs %v", n1, n2)
	}
	for _, line := range []string{"200 8545", "- -", "bogus"} {
		v1, ok1 := f1.Match(line)
		v2, ok2 := f2.Match(line)
		if ok1 != ok2 {
			t.Errorf("Match(%q) disagreement: %v vs %v", line, ok1, ok2)
			continue
		}
		for i := range v1 {
			if v1[i] != v2[i] {
				t.Errorf("Match(%q)[%d] = %q vs %q", line, i, v1[i], v2[i])
			}
		}
	}
}

func TestExtractorWarningsAndCount(t *testing.T) {
	b := NewBuilder()
	mustField(t, b, intField("status"))
	format, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var warnings []Warning
	e := NewExtractor(format, func(w Warning) { warnings = append(warnings, w) })

	// Line 1: valid.
	row := e.ExtractLine("200", 1)
	if row == nil {
		t.Fatal("ExtractLine rejected a valid line")
	}
	if got := row.Get("status"); got != int64(200) {
		t.Errorf("status = %v (%T), want 200", got, got)
	}

	// Line 2: no match.
	if row := e.ExtractLine("not a number", 2); row != nil {
		t.Errorf("ExtractLine accepted an invalid line: %v", row)
	}

	// Line 3: valid again; iteration is unaffected by the warning.
	if row := e.ExtractLine("404", 3); row == nil {
		t.Error("ExtractLine rejected a valid line after a warning")
	}

	if e.Count() != 2 {
		t.Errorf("Count() = %d, want 2", e.Count())
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].LineNumber != 2 {
		t.Errorf("warning line = %d, want 2", warnings[0].LineNumber)
	}
	if warnings[0].Message != "line contains invalid data" {
		t.Errorf("warning message = %q", warnings[0].Message)
	}
}

func TestExtractorParserFailureDegrades(t *testing.T) {
	// An address fragment matches "300.0.0.1" structurally, but the parser
	// rejects the out-of-range octet; the line must degrade to a warning.
	b := NewBuilder()
	mustField(t, b, FieldSpec{
		Name:    "remote_ip",
		Pattern: parsers.Name(parsers.Address, "remote_ip"),
		Parse:   parsers.ParseAddress,
	})
	format, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var warnings []Warning
	e := NewExtractor(format, func(w Warning) { warnings = append(warnings, w) })

	if row := e.ExtractLine("300.0.0.1", 1); row != nil {
		t.Errorf("row = %v, want warning for out-of-range octet", row)
	}
	if len(warnings) != 1 || warnings[0].LineNumber != 1 {
		t.Fatalf("warnings = %v, want one at line 1", warnings)
	}
	if e.Count() != 0 {
		t.Errorf("Count() = %d, want 0", e.Count())
	}
}

func TestRowGet(t *testing.T) {
	row := &Row{names: []string{"a", "b"}, Values: []any{int64(1), "x"}}
	if got := row.Get("b"); got != "x" {
		t.Errorf("Get(b) = %v, want x", got)
	}
	if got := row.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func mustField(t *testing.T, b *Builder, f FieldSpec) {
	t.Helper()
	if err := b.Field(f); err != nil {
		t.Fatalf("Field(%s) error = %v", f.Name, err)
	}
}
