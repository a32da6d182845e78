// Package progress renders simple progress meters on a terminal, driven
// either by a file position or an arbitrary counter. Updates are rate
// limited, so callers may report every row without worrying about the cost
// of redrawing.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultMaxWait is the minimum interval between redraws when the options
// don't specify one.
const DefaultMaxWait = 100 * time.Millisecond

// Style renders one frame of a meter from the current value and the total.
// Styles that only animate (spinner, ellipsis, hash) ignore both arguments.
type Style interface {
	Render(value, total int64) string
}

// SpinnerStyle renders a simple spinning line.
type SpinnerStyle struct {
	index int
}

func (s *SpinnerStyle) Render(value, total int64) string {
	frames := [...]string{"/", "-", `\`, "|"}
	s.index++
	return frames[s.index%len(frames)]
}

// EllipsisStyle renders a looping series of dots.
type EllipsisStyle struct {
	count int
}

func (s *EllipsisStyle) Render(value, total int64) string {
	s.count = (s.count + 1) % 8
	return strings.Repeat(".", s.count)
}

// PercentageStyle renders a bare percentage counter.
type PercentageStyle struct{}

func (PercentageStyle) Render(value, total int64) string {
	return fmt.Sprintf("%3d%%", percent(value, total))
}

// HashStyle prints an ever-growing row of hash marks, for those who
// remember FTP's hash command.
type HashStyle struct {
	count int
}

func (s *HashStyle) Render(value, total int64) string {
	s.count++
	return strings.Repeat("#", s.count)
}

var barFill = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

// BarStyle renders a full progress bar with a percentage.
type BarStyle struct {
	// Width is the total bar width in cells. Zero means 60.
	Width int
}

func (s BarStyle) Render(value, total int64) string {
	width := s.Width
	if width == 0 {
		width = 60
	}
	inner := width - 5
	filled := 0
	if total > 0 {
		filled = int(int64(inner) * value / total)
	}
	if filled > inner {
		filled = inner
	}
	return fmt.Sprintf("[%s>%s] %3d%%",
		barFill.Render(strings.Repeat("=", filled)),
		strings.Repeat(" ", inner-filled),
		percent(value, total))
}

func percent(value, total int64) int64 {
	if total <= 0 {
		return 0
	}
	p := 100 * value / total
	if p > 100 {
		p = 100
	}
	return p
}

// Options configures a Meter.
type Options struct {
	// Output is the stream the meter is drawn on. Nil means os.Stderr.
	Output io.Writer

	// Style renders the meter. Nil means a BarStyle.
	Style Style

	// Total is the value at which the meter reads 100%. Ignored when
	// File is set.
	Total int64

	// File, when set, derives both the total (the file size) and each
	// update's value (the current offset) from the file itself.
	File *os.File

	// MaxWait is the minimum interval between redraws. Zero means
	// DefaultMaxWait.
	MaxWait time.Duration

	// KeepOnFinish leaves the final meter on screen instead of erasing
	// it when Finish is called.
	KeepOnFinish bool
}

// Meter draws and maintains one progress meter. Methods must be called from
// a single goroutine.
type Meter struct {
	options    Options
	value      int64
	lastValue  int64
	lastOutput string
	lastDraw   time.Time
	now        func() time.Time
}

// NewMeter builds a meter and draws its initial frame.
func NewMeter(opts Options) (*Meter, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Style == nil {
		opts.Style = BarStyle{}
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.File != nil {
		info, err := opts.File.Stat()
		if err != nil {
			return nil, err
		}
		opts.Total = info.Size()
	} else if opts.Total <= 0 {
		return nil, fmt.Errorf("progress meter requires a file or a total")
	}
	m := &Meter{options: opts, now: time.Now}
	m.Show()
	return m, nil
}

// Show redraws the meter, typically after a Hide.
func (m *Meter) Show() {
	m.lastOutput = m.options.Style.Render(m.lastValue, m.options.Total)
	io.WriteString(m.options.Output, m.lastOutput)
}

// Hide erases the meter from the terminal so other text can be printed.
func (m *Meter) Hide() {
	if m.lastOutput == "" {
		return
	}
	// Cell count, not byte count: styled output carries ANSI escapes.
	n := lipgloss.Width(m.lastOutput)
	io.WriteString(m.options.Output, strings.Repeat("\b", n)+
		strings.Repeat(" ", n)+strings.Repeat("\b", n))
	m.lastOutput = ""
	m.lastDraw = time.Time{}
}

// Update advances the meter to value and redraws it if enough time has
// passed since the last draw. When the meter was built over a file, the
// argument is ignored and the file's current offset is used instead.
func (m *Meter) Update(value int64) {
	if m.options.File != nil {
		pos, err := m.options.File.Seek(0, io.SeekCurrent)
		if err != nil {
			return
		}
		value = pos
	}
	m.value = value
	if value == m.lastValue {
		return
	}
	now := m.now()
	if !m.lastDraw.IsZero() && now.Before(m.lastDraw.Add(m.options.MaxWait)) {
		return
	}
	m.Hide()
	m.lastValue = value
	m.Show()
	m.lastDraw = now
}

// Finish erases the meter, or draws its final state followed by a newline
// when KeepOnFinish is set.
func (m *Meter) Finish() {
	m.Hide()
	if m.options.KeepOnFinish {
		m.lastValue = m.value
		m.Show()
		io.WriteString(m.options.Output, "\n")
	}
}
