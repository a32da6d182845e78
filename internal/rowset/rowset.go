// Package rowset assembles compiled log formats and extracts typed rows from
// matching lines. Both format dialects compile down to the same shape: an
// ordered list of field specs concatenated into one anchored regex, applied
// line by line with recoverable problems surfaced as warnings and structural
// problems as errors.
package rowset

import (
	"fmt"
	"regexp"
	"strings"

	"weblog2csv/internal/parsers"
)

// FieldSpec is one compiled unit of a log format: the output field name, the
// regex fragment that matches it (a single named capturing group), and the
// parser that converts the matched text into a typed value.
type FieldSpec struct {
	Name    string
	Pattern string
	Parse   parsers.ParseFunc
}

// ConfigError reports an invalid format specification: an unknown field
// suffix, a duplicate field name, a bad time format, and so on. It is always
// raised at construction time, before any row is produced.
type ConfigError struct {
	msg string
}

// Configf builds a ConfigError in the fmt.Errorf style.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return e.msg }

// Warning describes a recoverable problem with a single line: the line did
// not match the compiled pattern, or a field parser rejected its substring.
// The line is skipped and iteration continues.
type Warning struct {
	LineNumber int
	Message    string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.LineNumber, w.Message)
}

// WarningHandler receives warnings as they are produced. The zero handler
// discards them.
type WarningHandler func(Warning)

// Builder accumulates literal separators and field specs, then compiles them
// into a Format. It rejects a field whose name collides with one already
// added.
type Builder struct {
	pattern strings.Builder
	fields  []FieldSpec
	seen    map[string]struct{}
}

// NewBuilder returns an empty format builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// Literal appends fixed separator text, quoted so regex metacharacters in
// the format string match themselves.
func (b *Builder) Literal(text string) {
	b.pattern.WriteString(regexp.QuoteMeta(text))
}

// Separator appends a raw regex expression between fields (for dialects
// whose separators are defined as expressions rather than literal text).
func (b *Builder) Separator(expr string) {
	b.pattern.WriteString(expr)
}

// Field appends one field spec. A duplicate field name is a ConfigError:
// formats such as one containing both %b and %B would otherwise produce an
// ambiguous row.
func (b *Builder) Field(f FieldSpec) error {
	if _, dup := b.seen[f.Name]; dup {
		return Configf("duplicate row field name %s", f.Name)
	}
	b.seen[f.Name] = struct{}{}
	b.fields = append(b.fields, f)
	b.pattern.WriteString(f.Pattern)
	return nil
}

// Compile assembles the accumulated fragments into an anchored,
// case-insensitive regex and returns the immutable Format. Case-insensitive
// matching is required for the month and weekday names in time fields.
func (b *Builder) Compile() (*Format, error) {
	re, err := regexp.Compile(`(?i)^` + b.pattern.String() + `$`)
	if err != nil {
		return nil, Configf("format does not compile to a valid pattern: %s", err)
	}
	f := &Format{re: re, fields: b.fields}
	f.names = make([]string, len(b.fields))
	f.groups = make([]int, len(b.fields))
	groupIndex := make(map[string]int)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groupIndex[name] = i
		}
	}
	for i, spec := range b.fields {
		idx, ok := groupIndex[spec.Name]
		if !ok {
			return nil, Configf("field %s has no capturing group", spec.Name)
		}
		f.names[i] = spec.Name
		f.groups[i] = idx
	}
	return f, nil
}

// Format is a fully compiled log format: one anchored regex plus the ordered
// field list. It is built once per source and never mutated afterwards, so a
// single Format may serve any number of lines.
type Format struct {
	re     *regexp.Regexp
	fields []FieldSpec
	names  []string
	groups []int
}

// FieldNames returns the output field names in row order. The returned slice
// is shared; callers must not modify it.
func (f *Format) FieldNames() []string { return f.names }

// Match applies the compiled pattern to one line and returns the raw field
// substrings in row order.
func (f *Format) Match(line string) ([]string, bool) {
	m := f.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	values := make([]string, len(f.fields))
	for i, g := range f.groups {
		values[i] = m[g]
	}
	return values, true
}

// Row is one fully parsed log entry: an ordered tuple of typed values, 1:1
// with the format's field order. Rows are pure data; they are never mutated
// after creation.
type Row struct {
	names  []string
	Values []any
}

// NewRow builds a row directly from parallel name and value slices. Sources
// produce rows through an Extractor; NewRow exists for consumers that
// assemble rows themselves, such as pipelines adding derived columns.
func NewRow(names []string, values []any) *Row {
	return &Row{names: names, Values: values}
}

// Names returns the field names in value order.
func (r *Row) Names() []string { return r.names }

// Get returns the value for the named field, or nil when the row has no such
// field.
func (r *Row) Get(name string) any {
	for i, n := range r.names {
		if n == name {
			return r.Values[i]
		}
	}
	return nil
}

// Extractor drives per-line extraction against one compiled format. It
// counts successful rows and reports recoverable problems through the
// warning handler.
type Extractor struct {
	format *Format
	warn   WarningHandler
	count  int
}

// NewExtractor builds an extractor over a compiled format. A nil handler
// discards warnings.
func NewExtractor(format *Format, warn WarningHandler) *Extractor {
	if warn == nil {
		warn = func(Warning) {}
	}
	return &Extractor{format: format, warn: warn}
}

// Count reports the number of rows successfully extracted so far. Lines that
// degraded to warnings are not counted.
func (e *Extractor) Count() int { return e.count }

// ExtractLine matches and parses one line (already stripped of its
// terminator).
// It returns the extracted row, or nil after emitting a warning when the
// line does not match or a field value fails its parser.
func (e *Extractor) ExtractLine(line string, lineNumber int) *Row {
	raw, ok := e.format.Match(line)
	if !ok {
		e.warn(Warning{LineNumber: lineNumber, Message: "line contains invalid data"})
		return nil
	}
	values := make([]any, len(raw))
	for i, s := range raw {
		v, err := e.format.fields[i].Parse(s)
		if err != nil {
			e.warn(Warning{LineNumber: lineNumber, Message: err.Error()})
			return nil
		}
		values[i] = v
	}
	e.count++
	return &Row{names: e.format.names, Values: values}
}
