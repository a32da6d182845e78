package strftime

import (
	"fmt"
	"strconv"
	"time"
)

// CommonPattern matches the default Apache time format
// "[day/month/year:hour:minute:second zone]" without capturing groups. It
// exists alongside the generic Pattern machinery because the bare %t format
// is locale-independent by definition, and because it is by far the hottest
// case.
const CommonPattern = `\[` +
	`(?:3[0-1]|[1-2]\d|0[1-9]|[1-9]| [1-9])` +
	`/` +
	`(?:jan|feb|ma[ry]|apr|ju[nl]|aug|sep|oct|nov|dec)` +
	`/` +
	`(?:\d\d\d\d)` +
	`:` +
	`(?:2[0-3]|[0-1]\d|\d)` +
	`:` +
	`(?:[0-5]\d|\d)` +
	`:` +
	`(?:6[0-1]|[0-5]\d|\d)` +
	`\s+` +
	`(?:[+-]\d\d[0-5]\d)` +
	`\]`

// ParseCommon parses a timestamp in the default Apache format, for example
// "[07/Mar/2004:16:56:39 -0800]", into a timezone-naive UTC instant. Day,
// hour, minute, and second may each be one or two digits. Every structural
// deviation is reported with the position at which it was detected.
func ParseCommon(s string) (time.Time, error) {
	if len(s) < 24 || len(s) > 28 {
		return time.Time{}, fmt.Errorf("invalid length")
	}
	if s[0] != '[' {
		return time.Time{}, fmt.Errorf(`expected "[" at 0`)
	}
	if s[len(s)-1] != ']' {
		return time.Time{}, fmt.Errorf(`expected "]" at %d`, len(s)-1)
	}
	i := 1
	day, i, err := atom(s, i, '/')
	if err != nil {
		return time.Time{}, err
	}
	month := monthIndex(s[i : i+3])
	if month == 0 {
		return time.Time{}, fmt.Errorf("invalid month %q", s[i:i+3])
	}
	i += 3
	if s[i] != '/' {
		return time.Time{}, fmt.Errorf(`expected "/" at %d`, i)
	}
	i++
	year, err := strconv.Atoi(s[i : i+4])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year at %d", i)
	}
	i += 4
	if s[i] != ':' {
		return time.Time{}, fmt.Errorf(`expected ":" at %d`, i)
	}
	i++
	hour, i, err := atom(s, i, ':')
	if err != nil {
		return time.Time{}, err
	}
	minute, i, err := atom(s, i, ':')
	if err != nil {
		return time.Time{}, err
	}
	second, i, err := atom(s, i, ' ')
	if err != nil {
		return time.Time{}, err
	}
	sign := s[i]
	if sign != '+' && sign != '-' {
		return time.Time{}, fmt.Errorf("expected + or - at %d", i)
	}
	i++
	if i+4 != len(s)-1 {
		return time.Time{}, fmt.Errorf("invalid UTC offset at %d", i)
	}
	hh, err1 := strconv.Atoi(s[i : i+2])
	mm, err2 := strconv.Atoi(s[i+2 : i+4])
	if err1 != nil || err2 != nil {
		return time.Time{}, fmt.Errorf("invalid UTC offset at %d", i)
	}
	offset := (hh*60 + mm) * 60
	if sign == '-' {
		offset = -offset
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return t.Add(-time.Duration(offset) * time.Second), nil
}

// atom reads a one- or two-digit number terminated by the given delimiter,
// consuming the delimiter too.
func atom(s string, i int, delim byte) (int, int, error) {
	var text string
	if i+1 < len(s) && s[i+1] == delim {
		text = s[i : i+1]
		i++
	} else if i+2 < len(s) && s[i+2] == delim {
		text = s[i : i+2]
		i += 2
	} else {
		return 0, i, fmt.Errorf("expected %q at %d", string(delim), i)
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, i, fmt.Errorf("invalid number at %d", i-len(text))
	}
	return v, i + 1, nil
}

// monthIndex maps a three-letter English month abbreviation (any case) to
// 1..12, or 0 when unknown.
func monthIndex(abbr string) int {
	if len(abbr) != 3 {
		return 0
	}
	lower := [3]byte{abbr[0] | 0x20, abbr[1] | 0x20, abbr[2] | 0x20}
	for i, name := range abbrMonths {
		if name != "" && name[0] == lower[0] && name[1] == lower[1] && name[2] == lower[2] {
			return i
		}
	}
	return 0
}
