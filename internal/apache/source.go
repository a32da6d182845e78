package apache

import (
	"io"

	"weblog2csv/internal/reader"
	"weblog2csv/internal/rowset"
)

// Source wraps a stream containing an Apache formatted log file and yields
// one typed row per successfully parsed line. The log format is compiled
// once at construction; an invalid format fails immediately with a
// ConfigError, before any line is read.
type Source struct {
	logFormat string
	format    *rowset.Format
	lines     *reader.LineReader
	extractor *rowset.Extractor
	warn      rowset.WarningHandler
}

// Option configures a Source.
type Option func(*Source)

// WithFormat sets the Apache LogFormat string to compile. The default is
// the common log format.
func WithFormat(logFormat string) Option {
	return func(s *Source) {
		s.logFormat = logFormat
	}
}

// WithWarningHandler directs recoverable per-line problems to the given
// handler. Without one, warnings are discarded.
func WithWarningHandler(warn rowset.WarningHandler) Option {
	return func(s *Source) {
		s.warn = warn
	}
}

// NewSource compiles the log format and prepares to read rows from input.
// The caller retains ownership of input and is responsible for closing it.
func NewSource(input io.Reader, opts ...Option) (*Source, error) {
	s := &Source{logFormat: Common}
	for _, opt := range opts {
		opt(s)
	}
	format, err := compileFormat(s.logFormat)
	if err != nil {
		return nil, err
	}
	s.format = format
	s.lines = reader.New(input)
	s.extractor = rowset.NewExtractor(format, s.warn)
	return s, nil
}

// LogFormat returns the format string this source was compiled from.
func (s *Source) LogFormat() string { return s.logFormat }

// FieldNames returns the output field names in row order.
func (s *Source) FieldNames() []string { return s.format.FieldNames() }

// Count reports the number of rows successfully read so far.
func (s *Source) Count() int { return s.extractor.Count() }

// Next returns the next successfully parsed row. Lines that fail to match
// or fail a field parser are reported to the warning handler and skipped.
// Next returns io.EOF once the input is exhausted and reader.ErrClosed after
// Close has been called.
func (s *Source) Next() (*rowset.Row, error) {
	for {
		line, err := s.lines.Next()
		if err != nil {
			return nil, err
		}
		if row := s.extractor.ExtractLine(line.Text, line.Number); row != nil {
			return row, nil
		}
	}
}

// Close marks the source as closed; further calls to Next fail with
// reader.ErrClosed. The underlying stream is owned by the caller and is not
// closed here.
func (s *Source) Close() error {
	return s.lines.Close()
}
