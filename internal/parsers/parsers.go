// Package parsers provides the regex fragments and typed parse functions
// shared by the log-format compilers. Each fragment is a template with a
// %(name) placeholder which is substituted with the field name to build a
// named capturing group; each parse function converts the matched substring
// into a typed value, treating a single dash as a missing value (nil).
package parsers

import (
	"fmt"
	"strconv"
	"strings"

	"weblog2csv/internal/datatypes"
)

// ParseFunc converts one matched field substring into its typed value. A
// returned error marks the whole line as invalid data (a recoverable
// warning), never a fatal condition.
type ParseFunc func(s string) (any, error)

// Building blocks for the fragments below. The URL expression is derived
// from RFC 3986 appendix B and performs extraction only; validation is the
// parse function's job. The path expression is deliberately lax as no log
// format escapes filename fields.
const (
	urlExpr      = `([^:/?#\s]+:)?(//[^/?#\s]*)?[^?#\s]*(\?[^#\s]*)?(#\S*)?`
	pathExpr     = `([^\x00-\x1f\x7f]*)`
	methodExpr   = `[^\x00-\x1f\x7f(){}<>[\]@,;:\\"/?= \t]+`
	protocolExpr = `HTTP/\d+\.\d+`
)

// Fragment templates. Every template consists of exactly one named group
// covering the whole match; most also accept the "-" placeholder used almost
// universally by web servers for a missing value. The empty "-" alternative
// sits on the right because regexp alternation is eager.
const (
	Integer     = `(?P<%(name)>-|\d+)`
	Fixed       = `(?P<%(name)>-|\d+(\.\d*)?)`
	DateISO     = `(?P<%(name)>-|\d{4}-\d{2}-\d{2})`
	TimeISO     = `(?P<%(name)>-|\d{2}:\d{2}:\d{2})`
	URL         = `(?P<%(name)>` + urlExpr + `|-)`
	Path        = `(?P<%(name)>` + pathExpr + `|-)`
	Method      = `(?P<%(name)>` + methodExpr + `|-)`
	Protocol    = `(?P<%(name)>` + protocolExpr + `|-)`
	Request     = `(?P<%(name)>` + methodExpr + ` ` + urlExpr + ` ` + protocolExpr + `|-)`
	Hostname    = `(?P<%(name)>-|[a-zA-Z0-9:.-]+)`
	Address     = `(?P<%(name)>-|[0-9]+(\.[0-9]+){3}|[0-9a-fA-F:]+)`
	AddressPort = `(?P<%(name)>-|([0-9]+(\.[0-9]+){3}|\[[0-9a-fA-F:]+\])(:[0-9]{1,5})?)`
	Keepalive   = `(?P<%(name)>[X+-])`
)

// Name substitutes the field name into a fragment template's %(name)
// placeholder, producing the final regex text.
func Name(template, field string) string {
	return strings.ReplaceAll(template, "%(name)", field)
}

// ParseInt parses an integer field, mapping "-" to nil.
func ParseInt(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ParseFixed parses a fixed-point field, mapping "-" to nil.
func ParseFixed(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ParseURL parses a URL field. Both "-" and the empty string indicate a
// missing value.
func ParseURL(s string) (any, error) {
	if s == "-" || s == "" {
		return nil, nil
	}
	u, err := datatypes.ParseUrl(s)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ParsePath parses a POSIX path field, mapping "-" to nil.
func ParsePath(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	return datatypes.ParsePath(s), nil
}

// ParseRequest parses an HTTP request line field, mapping "-" to nil.
func ParseRequest(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	r, err := datatypes.ParseRequest(s)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ParseHostname parses a hostname field, yielding an address value when the
// text is actually an IP address (servers log either depending on their
// resolution settings). "-" maps to nil.
func ParseHostname(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	return datatypes.ParseHost(s)
}

// ParseAddress parses a bare IP address field, mapping "-" to nil.
func ParseAddress(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	a, err := datatypes.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ParseAddressPort parses an IP address field with an optional port,
// mapping "-" to nil.
func ParseAddressPort(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	a, err := datatypes.ParseAddressPort(s)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ParseString returns the text unchanged, mapping "-" to nil. Formats with
// their own escaping conventions (Apache backslashes, W3C quoting) supply
// their own string parser instead.
func ParseString(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	return s, nil
}

// ParseKeepalive parses the single character connection-state flag.
func ParseKeepalive(s string) (any, error) {
	switch s {
	case "X":
		return datatypes.KeepaliveAborted, nil
	case "+":
		return datatypes.KeepaliveKept, nil
	case "-":
		return datatypes.KeepaliveClosed, nil
	}
	return nil, fmt.Errorf("invalid connection status %q", s)
}
