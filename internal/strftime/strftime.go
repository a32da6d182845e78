// Package strftime compiles strftime-style time formats into matching
// regexes and parse functions. The tables are hard-coded to "standard
// English" because the Apache %t format is defined to be locale-independent;
// the host's installed locales must never influence matching.
package strftime

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// English month and weekday names, abbreviated and full, lower-cased for
// case-insensitive lookups. Month slices are 1-based with a placeholder at
// index zero.
var (
	abbrMonths = []string{
		"",
		"jan", "feb", "mar", "apr", "may", "jun",
		"jul", "aug", "sep", "oct", "nov", "dec",
	}
	fullMonths = []string{
		"",
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}
	abbrWeekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	fullWeekdays = []string{
		"monday", "tuesday", "wednesday",
		"thursday", "friday", "saturday", "sunday",
	}
	amPM = []string{"am", "pm"}

	// Timezone names the %Z directive recognizes, with their UTC offsets in
	// seconds.
	tzNames = map[string]int{
		"utc": 0,
		"gmt": 0,
		"bst": 3600,
	}
)

// expressions matched by the numeric directives.
var directiveExprs = map[byte]string{
	'd': `(?:3[0-1]|[1-2]\d|0[1-9]|[1-9]| [1-9])`,
	'f': `(?:[0-9]{1,6})`,
	'H': `(?:2[0-3]|[0-1]\d|\d)`,
	'I': `(?:1[0-2]|0[1-9]|[1-9])`,
	'j': `(?:36[0-6]|3[0-5]\d|[1-2]\d\d|0[1-9]\d|00[1-9]|[1-9]\d|0[1-9]|[1-9])`,
	'm': `(?:1[0-2]|0[1-9]|[1-9])`,
	'M': `(?:[0-5]\d|\d)`,
	'S': `(?:6[0-1]|[0-5]\d|\d)`,
	'U': `(?:5[0-3]|[0-4]\d|\d)`,
	'w': `(?:[0-6])`,
	'W': `(?:5[0-3]|[0-4]\d|\d)`,
	'y': `(?:\d\d)`,
	'Y': `(?:\d\d\d\d)`,
	'z': `(?:[+-]\d\d[0-5]\d)`,
}

func alternation(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			parts = append(parts, regexp.QuoteMeta(w))
		}
	}
	// Longer names first so e.g. "june" is not clipped to "jun".
	for i := 0; i < len(parts); i++ {
		for j := i + 1; j < len(parts); j++ {
			if len(parts[j]) > len(parts[i]) {
				parts[i], parts[j] = parts[j], parts[i]
			}
		}
	}
	return `(?:` + strings.Join(parts, "|") + `)`
}

func tzAlternation() string {
	names := make([]string, 0, len(tzNames))
	for name := range tzNames {
		names = append(names, name)
	}
	// Map order is not deterministic; sort so identical formats always
	// compile to identical pattern text.
	sort.Strings(names)
	return alternation(names)
}

// Pattern converts a strftime format into an uncaptured regex expression.
// Matching must be performed case-insensitively as the name tables are
// lower-case. Runs of whitespace in the format match any whitespace in the
// input; all other literal text is quoted. An unsupported directive is a
// configuration error naming the offending directive.
func Pattern(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			if c == ' ' || c == '\t' {
				b.WriteString(`\s+`)
				for i+1 < len(format) && (format[i+1] == ' ' || format[i+1] == '\t') {
					i++
				}
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
			}
			continue
		}
		i++
		if i >= len(format) {
			return "", fmt.Errorf("invalid time format spec: trailing %% in %q", format)
		}
		switch d := format[i]; d {
		case '%':
			b.WriteString("%")
		case 'a':
			b.WriteString(alternation(abbrWeekdays))
		case 'A':
			b.WriteString(alternation(fullWeekdays))
		case 'b', 'h':
			b.WriteString(alternation(abbrMonths))
		case 'B':
			b.WriteString(alternation(fullMonths))
		case 'p':
			b.WriteString(alternation(amPM))
		case 'Z':
			b.WriteString(tzAlternation())
		default:
			expr, ok := directiveExprs[d]
			if !ok {
				return "", fmt.Errorf("invalid time format spec %%%c in %q", d, format)
			}
			b.WriteString(expr)
		}
	}
	return b.String(), nil
}

// fields accumulated while walking a format over its input.
type fields struct {
	year, month, day     int
	hour, minute, second int
	micro                int
	yearday              int
	hour12               int
	haveHour12           bool
	pm                   bool
	havePM               bool
	offset               int
	haveOffset           bool
}

// Parse interprets s under the given strftime format and returns the result
// as a timezone-naive UTC timestamp: any %z/%Z offset present is applied and
// then discarded. Name lookups are case-insensitive. The shape of s is
// normally guaranteed by a regex produced by Pattern, so errors here report
// invalid values rather than positions.
func Parse(s, format string) (time.Time, error) {
	f := fields{year: 1900, month: 1, day: 1}
	pos := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			if c == ' ' || c == '\t' {
				for i+1 < len(format) && (format[i+1] == ' ' || format[i+1] == '\t') {
					i++
				}
				start := pos
				for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
					pos++
				}
				if pos == start {
					return time.Time{}, fmt.Errorf("expected whitespace at %d in %q", pos, s)
				}
			} else {
				if pos >= len(s) || s[pos] != c {
					return time.Time{}, fmt.Errorf("expected %q at %d in %q", string(c), pos, s)
				}
				pos++
			}
			continue
		}
		i++
		if i >= len(format) {
			return time.Time{}, fmt.Errorf("trailing %% in time format %q", format)
		}
		var err error
		pos, err = consume(&f, s, pos, format[i])
		if err != nil {
			return time.Time{}, err
		}
	}
	if pos != len(s) {
		return time.Time{}, fmt.Errorf("unconverted data remains: %q", s[pos:])
	}
	return f.timestamp(), nil
}

// consume applies one directive at s[pos:], records the decoded value, and
// returns the new position.
func consume(f *fields, s string, pos int, directive byte) (int, error) {
	switch directive {
	case '%':
		if pos >= len(s) || s[pos] != '%' {
			return pos, fmt.Errorf("expected %% at %d in %q", pos, s)
		}
		return pos + 1, nil
	case 'a':
		_, n, err := lookupName(s[pos:], abbrWeekdays)
		return pos + n, err
	case 'A':
		_, n, err := lookupName(s[pos:], fullWeekdays)
		return pos + n, err
	case 'b', 'h':
		v, n, err := lookupName(s[pos:], abbrMonths)
		f.month = v
		return pos + n, err
	case 'B':
		v, n, err := lookupName(s[pos:], fullMonths)
		f.month = v
		return pos + n, err
	case 'p':
		v, n, err := lookupName(s[pos:], amPM)
		f.pm = v == 1
		f.havePM = true
		return pos + n, err
	case 'Z':
		for name, off := range tzNames {
			if len(s)-pos >= len(name) && strings.EqualFold(s[pos:pos+len(name)], name) {
				f.offset = off
				f.haveOffset = true
				return pos + len(name), nil
			}
		}
		return pos, fmt.Errorf("unrecognized timezone name at %d in %q", pos, s)
	case 'z':
		if len(s)-pos < 5 || (s[pos] != '+' && s[pos] != '-') {
			return pos, fmt.Errorf("invalid UTC offset at %d in %q", pos, s)
		}
		hh, err1 := strconv.Atoi(s[pos+1 : pos+3])
		mm, err2 := strconv.Atoi(s[pos+3 : pos+5])
		if err1 != nil || err2 != nil {
			return pos, fmt.Errorf("invalid UTC offset at %d in %q", pos, s)
		}
		f.offset = (hh*60 + mm) * 60
		if s[pos] == '-' {
			f.offset = -f.offset
		}
		f.haveOffset = true
		return pos + 5, nil
	case 'd':
		v, n, err := number(s[pos:], 2, 1, 31)
		f.day = v
		return pos + n, err
	case 'f':
		v, n, err := number(s[pos:], 6, 0, 999999)
		if err != nil {
			return pos, err
		}
		for d := n; d < 6; d++ {
			v *= 10
		}
		f.micro = v
		return pos + n, nil
	case 'H':
		v, n, err := number(s[pos:], 2, 0, 23)
		f.hour = v
		return pos + n, err
	case 'I':
		v, n, err := number(s[pos:], 2, 1, 12)
		f.hour12 = v
		f.haveHour12 = true
		return pos + n, err
	case 'j':
		v, n, err := number(s[pos:], 3, 1, 366)
		f.yearday = v
		return pos + n, err
	case 'm':
		v, n, err := number(s[pos:], 2, 1, 12)
		f.month = v
		return pos + n, err
	case 'M':
		v, n, err := number(s[pos:], 2, 0, 59)
		f.minute = v
		return pos + n, err
	case 'S':
		v, n, err := number(s[pos:], 2, 0, 61)
		f.second = v
		return pos + n, err
	case 'U', 'W':
		_, n, err := number(s[pos:], 2, 0, 53)
		return pos + n, err
	case 'w':
		_, n, err := number(s[pos:], 1, 0, 6)
		return pos + n, err
	case 'y':
		v, n, err := number(s[pos:], 2, 0, 99)
		if v < 69 {
			f.year = 2000 + v
		} else {
			f.year = 1900 + v
		}
		return pos + n, err
	case 'Y':
		v, n, err := number(s[pos:], 4, 0, 9999)
		f.year = v
		return pos + n, err
	}
	return pos, fmt.Errorf("invalid time format spec %%%c", directive)
}

// lookupName finds the longest name from the table that prefixes s, ignoring
// case, returning its index and length.
func lookupName(s string, table []string) (int, int, error) {
	best, bestLen := -1, 0
	for i, name := range table {
		if name == "" || len(name) <= bestLen || len(s) < len(name) {
			continue
		}
		if strings.EqualFold(s[:len(name)], name) {
			best, bestLen = i, len(name)
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("unrecognized name %q", s)
	}
	return best, bestLen, nil
}

// number reads up to width leading digits (allowing one leading space, as %d
// permits space padding) and range-checks the value.
func number(s string, width, lo, hi int) (int, int, error) {
	i := 0
	if i < len(s) && s[i] == ' ' && width > 1 {
		i++
	}
	start := i
	for i < len(s) && i-start < width && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, 0, fmt.Errorf("expected a number, found %q", s)
	}
	v, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, 0, err
	}
	if v < lo || v > hi {
		return 0, 0, fmt.Errorf("value %d out of range [%d, %d]", v, lo, hi)
	}
	return v, i, nil
}

// timestamp assembles the final UTC instant from the accumulated fields.
func (f *fields) timestamp() time.Time {
	hour := f.hour
	if f.haveHour12 {
		// Without an am/pm marker the 12-hour value is taken as-is, as
		// strptime does.
		hour = f.hour12
		if f.havePM {
			hour %= 12
			if f.pm {
				hour += 12
			}
		}
	}
	var t time.Time
	if f.yearday > 0 && f.month == 1 && f.day == 1 {
		t = time.Date(f.year, 1, 1, hour, f.minute, f.second, f.micro*1000, time.UTC).
			AddDate(0, 0, f.yearday-1)
	} else {
		t = time.Date(f.year, time.Month(f.month), f.day, hour, f.minute, f.second,
			f.micro*1000, time.UTC)
	}
	if f.haveOffset {
		t = t.Add(-time.Duration(f.offset) * time.Second)
	}
	return t
}
