// Package iis compiles the header directives of W3C extended log files
// (produced most notably by Microsoft IIS) and extracts typed rows from the
// data lines that follow. Unlike the Apache dialect, all configuration
// arrives in-stream: #Version and #Fields directives must precede the first
// data line and together determine the row layout.
//
// The W3C draft standard (http://www.w3.org/TR/WD-logfile.html) is loosely
// worded and actual practice deviates from it in several places; where the
// two disagree this package follows observed IIS output, per Postel's law.
package iis

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/itchyny/timefmt-go"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/parsers"
	"weblog2csv/internal/rowset"
)

// fieldType is the closed set of W3C draft data types a field identifier
// can map to.
type fieldType int

const (
	typeInteger fieldType = iota
	typeFixed
	typeDateISO
	typeTimeISO
	typeURL
	typeString
	typeHostname
	typeAddressPort
)

// fieldTypes maps a field identifier (sans prefix) to its draft data type.
// Unmapped identifiers are treated as strings, as are all header fields.
// The extended IIS entries come from the IIS log definition and KB909264.
var fieldTypes = map[string]fieldType{
	// Specified in the W3C draft standard.
	"bytes":      typeInteger,
	"cached":     typeInteger,
	"comment":    typeString,
	"count":      typeInteger,
	"date":       typeDateISO,
	"dns":        typeHostname,
	"interval":   typeInteger,
	"ip":         typeAddressPort,
	"method":     typeHostname, // no really, that's what the draft says
	"status":     typeInteger,
	"time-from":  typeTimeISO,
	"time-taken": typeFixed,
	"time":       typeTimeISO,
	"time-to":    typeTimeISO,
	"uri-query":  typeURL,
	"uri-stem":   typeURL,
	"uri":        typeURL,
	// Extended IIS definitions.
	"computername": typeString,
	"host":         typeHostname,
	"port":         typeInteger,
	"sitename":     typeString,
	"substatus":    typeInteger,
	"username":     typeString,
	"version":      typeString,
	"win32-status": typeInteger,
}

// The draft demands quoted strings for header fields, but in practice IIS
// percent-encodes them instead; this fragment accepts both, plus the dash
// the draft forbids for strings but which IIS emits anyway.
const stringFragment = `(?P<%(name)>"([^"]|"")*"|[^"\s]\S*|-)`

// parseString decodes a string field: quoted strings lose their outer
// quotes and have doubled inner quotes halved; unquoted strings are assumed
// URI-encoded and are decoded as such (a decode failure leaves the text
// verbatim rather than degrading the line). A bare dash is the missing
// value.
func parseString(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		inner := s[1:]
		if strings.HasSuffix(inner, `"`) {
			inner = inner[:len(inner)-1]
		}
		return strings.ReplaceAll(inner, `""`, `"`), nil
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s, nil
	}
	return decoded, nil
}

// parseDateISO parses a YYYY-MM-DD row field, mapping "-" to nil.
func parseDateISO(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	t, err := timefmt.Parse(s, "%Y-%m-%d")
	if err != nil {
		return nil, err
	}
	return t, nil
}

// parseTimeISO parses an HH:MM:SS row field, mapping "-" to nil.
func parseTimeISO(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	t, err := timefmt.Parse(s, "%H:%M:%S")
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Field name grammar within a #Fields directive. Tokens come in three
// varieties: a bare identifier, a prefixed "prefix-identifier", and an HTTP
// header "prefix(Header-Name)". The draft limits the prefixes but places no
// limit on identifier characters besides the delimiting space.
var (
	headerTokenRe = regexp.MustCompile(`^(r|c|rs|cs|sc|sr|s|x)\(([^ )]+)\)$`)
	prefixTokenRe = regexp.MustCompile(`^(r|c|rs|cs|sc|sr|s|x)-([^ ]+)$`)
)

// compileField resolves one #Fields token into its original field name and
// compiled spec.
func compileField(token string) (original string, spec rowset.FieldSpec, err error) {
	var identifier string
	ft := typeString
	if m := headerTokenRe.FindStringSubmatch(token); m != nil {
		prefix, header := m[1], m[2]
		original = prefix + "(" + header + ")"
		identifier = prefix + "_" + header
		// The draft types all header fields as strings, but Referer
		// holds a URL; special-case it for friendlier values.
		if lower := strings.ToLower(header); lower == "referer" || lower == "referrer" {
			ft = typeURL
		}
	} else if m := prefixTokenRe.FindStringSubmatch(token); m != nil {
		prefix, ident := m[1], m[2]
		original = prefix + "-" + ident
		identifier = prefix + "_" + ident
		if t, ok := fieldTypes[ident]; ok {
			ft = t
		}
	} else {
		original = token
		identifier = token
		if t, ok := fieldTypes[token]; ok {
			ft = t
		}
	}

	name, err := datatypes.SanitizeName(identifier)
	if err != nil {
		return "", rowset.FieldSpec{}, fieldsf("invalid field name %q: %s", token, err)
	}

	spec = rowset.FieldSpec{Name: name}
	switch ft {
	case typeInteger:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Integer, name), parsers.ParseInt
	case typeFixed:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Fixed, name), parsers.ParseFixed
	case typeDateISO:
		spec.Pattern, spec.Parse = parsers.Name(parsers.DateISO, name), parseDateISO
	case typeTimeISO:
		spec.Pattern, spec.Parse = parsers.Name(parsers.TimeISO, name), parseTimeISO
	case typeURL:
		spec.Pattern, spec.Parse = parsers.Name(parsers.URL, name), parsers.ParseURL
	case typeHostname:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Hostname, name), parsers.ParseHostname
	case typeAddressPort:
		spec.Pattern, spec.Parse = parsers.Name(parsers.AddressPort, name), parsers.ParseAddressPort
	default:
		spec.Pattern, spec.Parse = parsers.Name(stringFragment, name), parseString
	}
	return original, spec, nil
}
