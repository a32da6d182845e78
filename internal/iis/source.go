package iis

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"weblog2csv/internal/reader"
	"weblog2csv/internal/rowset"
)

// Directive regexes. Contrary to popular opinion directives can occur
// anywhere within the log file; the draft's only placement rules are that
// #Version and #Fields must precede the first data line. A second #Fields
// directive is treated as an error here although the draft technically
// permits it (it has never been observed in practice).
var (
	versionRe   = regexp.MustCompile(`(?i)^#\s*Version\s*:\s*(\d+\.\d+)\s*$`)
	softwareRe  = regexp.MustCompile(`(?i)^#\s*Software\s*:\s*(.*)$`)
	remarkRe    = regexp.MustCompile(`(?i)^#\s*Remark\s*:\s*(.*)$`)
	fieldsRe    = regexp.MustCompile(`(?i)^#\s*Fields\s*:\s*(.*)$`)
	startDateRe = regexp.MustCompile(`(?i)^#\s*Start-Date\s*:\s*(\d{4}-\d{2}-\d{2})\s*(\d{2}:\d{2}:\d{2})\s*$`)
	endDateRe   = regexp.MustCompile(`(?i)^#\s*End-Date\s*:\s*(\d{4}-\d{2}-\d{2})\s*(\d{2}:\d{2}:\d{2})\s*$`)
	dateRe      = regexp.MustCompile(`(?i)^#\s*Date\s*:\s*(\d{4}-\d{2}-\d{2})\s*(\d{2}:\d{2}:\d{2})\s*$`)
)

// datetimeFormat is the timestamp layout used by date directives. The
// draft's own example uses a different shape (D-MMM-YYYY), but every
// real-life log observed to date uses this ISO(ish) form.
const datetimeFormat = "%Y-%m-%d %H:%M:%S"

// Source wraps a stream containing a W3C extended format log file and
// yields one typed row per successfully parsed data line. The row layout is
// established by the in-stream #Fields directive; directive metadata is
// exposed through the Source's fields.
type Source struct {
	// Version is the log format version from the #Version directive.
	Version string

	// Software names the producing software, from #Software.
	Software string

	// Remark holds the free text of the last #Remark directive.
	Remark string

	// Start, Finish, and Date hold the timestamps of the #Start-Date,
	// #End-Date, and #Date directives respectively.
	Start  time.Time
	Finish time.Time
	Date   time.Time

	// Fields lists the original field names from the #Fields directive,
	// for example "cs(User-Agent)".
	Fields []string

	lines      *reader.LineReader
	warn       rowset.WarningHandler
	format     *rowset.Format
	extractor  *rowset.Extractor
	sawVersion bool
}

// Option configures a Source.
type Option func(*Source)

// WithWarningHandler directs recoverable per-line problems to the given
// handler. Without one, warnings are discarded.
func WithWarningHandler(warn rowset.WarningHandler) Option {
	return func(s *Source) {
		s.warn = warn
	}
}

// NewSource prepares to read rows from input. All configuration is derived
// from the stream's own directives, so construction cannot fail; directive
// errors surface from Next before the first row.
func NewSource(input io.Reader, opts ...Option) *Source {
	s := &Source{lines: reader.New(input)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FieldNames returns the sanitized output field names in row order, or nil
// before the #Fields directive has been read.
func (s *Source) FieldNames() []string {
	if s.format == nil {
		return nil
	}
	return s.format.FieldNames()
}

// Count reports the number of rows successfully read so far.
func (s *Source) Count() int {
	if s.extractor == nil {
		return 0
	}
	return s.extractor.Count()
}

// Next returns the next successfully parsed row, processing any directive
// lines it encounters along the way. A data line appearing before the
// #Version or #Fields directives is a fatal error, as is any malformed
// directive; such errors carry the 1-based line number. Next returns io.EOF
// once the input is exhausted and reader.ErrClosed after Close.
func (s *Source) Next() (*rowset.Row, error) {
	for {
		line, err := s.lines.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasPrefix(line.Text, "#"):
			if err := s.processDirective(line.Text); err != nil {
				return nil, withLine(err, line.Number, line.Text)
			}
		case !s.sawVersion:
			return nil, withLine(versionf("missing #Version directive before data"),
				line.Number, line.Text)
		case s.format == nil:
			return nil, withLine(fieldsf("missing #Fields directive before data"),
				line.Number, line.Text)
		default:
			if row := s.extractor.ExtractLine(line.Text, line.Number); row != nil {
				return row, nil
			}
		}
	}
}

// Close marks the source as closed; further calls to Next fail with
// reader.ErrClosed. The underlying stream is owned by the caller and is not
// closed here.
func (s *Source) Close() error {
	return s.lines.Close()
}

// processDirective interprets one #-prefixed line. Directives are tried in
// a fixed priority order and the first match wins; a #-line matching none
// of them is a fatal DirectiveError.
func (s *Source) processDirective(text string) error {
	if m := versionRe.FindStringSubmatch(text); m != nil {
		if s.sawVersion {
			return versionf("found a second #Version directive")
		}
		if m[1] != "1.0" {
			return versionf("unknown log version %s", m[1])
		}
		s.Version = m[1]
		s.sawVersion = true
		return nil
	}
	if m := softwareRe.FindStringSubmatch(text); m != nil {
		s.Software = m[1]
		return nil
	}
	if m := remarkRe.FindStringSubmatch(text); m != nil {
		s.Remark = m[1]
		return nil
	}
	if m := fieldsRe.FindStringSubmatch(text); m != nil {
		return s.processFields(m[1])
	}
	if m := startDateRe.FindStringSubmatch(text); m != nil {
		return s.setDirectiveTime(&s.Start, m[1], m[2])
	}
	if m := endDateRe.FindStringSubmatch(text); m != nil {
		return s.setDirectiveTime(&s.Finish, m[1], m[2])
	}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		return s.setDirectiveTime(&s.Date, m[1], m[2])
	}
	return directivef("unrecognized directive %s", strings.TrimRight(text, " \t"))
}

func (s *Source) setDirectiveTime(dst *time.Time, date, clock string) error {
	t, err := timefmt.Parse(date+" "+clock, datetimeFormat)
	if err != nil {
		return directivef("invalid directive timestamp %s %s: %s", date, clock, err)
	}
	*dst = t
	return nil
}

// processFields compiles the #Fields directive into the row format. It may
// run at most once per stream.
func (s *Source) processFields(text string) error {
	if s.format != nil {
		return fieldsf("second #Fields directive found")
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return fieldsf("#Fields directive names no fields")
	}
	builder := rowset.NewBuilder()
	var originals []string
	for i, token := range tokens {
		original, spec, err := compileField(token)
		if err != nil {
			return err
		}
		for _, seen := range originals {
			if seen == original {
				return fieldsf("duplicate field name %s", original)
			}
		}
		originals = append(originals, original)
		if i > 0 {
			builder.Separator(`\s+`)
		}
		if err := builder.Field(spec); err != nil {
			return fieldsf("%s", err)
		}
	}
	format, err := builder.Compile()
	if err != nil {
		return fieldsf("%s", err)
	}
	s.Fields = originals
	s.format = format
	s.extractor = rowset.NewExtractor(format, s.warn)
	return nil
}
