// Package reader provides streaming line-based reading from io.Reader
// sources with 1-based line numbering.
package reader

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Default configuration values.
const (
	DefaultMaxLineSize = 1024 * 1024 // 1MB max line size
	DefaultBufferSize  = 64 * 1024   // 64KB initial buffer
)

// ErrClosed is returned by Next once the reader has been closed. Reading
// from a closed source is a programming error, not a recoverable condition.
var ErrClosed = errors.New("reader: next called after close")

// Line represents a single line read from the input stream.
type Line struct {
	// Text contains the line content without its terminator.
	Text string

	// Number is the 1-based line number in the input.
	Number int
}

// LineReader reads lines from an io.Reader one call at a time. It is the
// pull-based line source that the log sources iterate; each Next call
// advances exactly one line.
type LineReader struct {
	scanner    *bufio.Scanner
	lineNumber int
	maxSize    int
	closed     bool
}

// Option configures the LineReader.
type Option func(*LineReader)

// WithMaxLineSize sets the maximum allowed line size. Lines exceeding this
// cause Next to fail with bufio.ErrTooLong.
func WithMaxLineSize(size int) Option {
	return func(r *LineReader) {
		r.maxSize = size
	}
}

// New creates a LineReader from an io.Reader.
func New(input io.Reader, opts ...Option) *LineReader {
	reader := &LineReader{
		maxSize: DefaultMaxLineSize,
	}

	for _, opt := range opts {
		opt(reader)
	}

	scanner := bufio.NewScanner(input)
	buf := make([]byte, min(DefaultBufferSize, reader.maxSize))
	scanner.Buffer(buf, reader.maxSize)

	reader.scanner = scanner
	return reader
}

// Next returns the next line from the input. It returns io.EOF when the
// input is exhausted and ErrClosed once Close has been called; a closed or
// exhausted reader never silently restarts.
func (r *LineReader) Next() (Line, error) {
	if r.closed {
		return Line{}, ErrClosed
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Line{Number: r.lineNumber + 1}, err
		}
		return Line{}, io.EOF
	}
	r.lineNumber++
	return Line{
		Text:   strings.TrimSuffix(r.scanner.Text(), "\r"),
		Number: r.lineNumber,
	}, nil
}

// Close marks the reader as closed. It does not close the underlying
// io.Reader, which is owned by the caller.
func (r *LineReader) Close() error {
	r.closed = true
	return nil
}
