// Package apache compiles Apache LogFormat strings and extracts typed rows
// from common, combined, or otherwise Apache formatted access logs. Any
// format that can be unambiguously matched with a regex is supported; fields
// that may contain whitespace must be delimited by characters they cannot
// legitimately contain (Apache escapes double-quotes within %r, %i, and %o
// from version 2.0.46 onward).
package apache

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/parsers"
	"weblog2csv/internal/rowset"
	"weblog2csv/internal/strftime"
)

// Common Apache LogFormat strings.
const (
	// Common is the common log format (CLF), the default for Source.
	Common = `%h %l %u %t "%r" %>s %b`

	// CommonVhost is the common log format with a leading virtual-host
	// field, the default configuration in several distributions.
	CommonVhost = `%v %h %l %u %t "%r" %>s %b`

	// Combined is the NCSA combined/extended log format.
	Combined = `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`

	// Referer is the rudimentary referer log format.
	Referer = `%{Referer} -> %U`

	// UserAgent is the rudimentary user-agent log format.
	UserAgent = `%{User-agent}i`
)

// fieldType is the closed set of value types a format suffix can map to.
// The suffix catalog is fixed by the Apache specification, so this is an
// enum rather than an open registry.
type fieldType int

const (
	typeAddress fieldType = iota
	typePath
	typeHostname
	typeInteger
	typeMethod
	typeProtocol
	typeRequest
	typeURL
	typeURLStem
	typeURLQuery
	typeString
	typeKeepalive
	typeTime
)

// fieldDef relates a format suffix to its output field name (or name
// template for payload-bearing suffixes) and value type.
type fieldDef struct {
	template  string
	fieldType fieldType
}

// fieldDefs maps every recognized format suffix. Note that %b and %B both
// produce "size": a format containing both is rejected as a duplicate.
var fieldDefs = map[byte]fieldDef{
	'a': {"remote_ip", typeAddress},
	'A': {"local_ip", typeAddress},
	'B': {"size", typeInteger},
	'b': {"size", typeInteger},
	'C': {"cookie_%s", typeString},
	'D': {"time_taken_ms", typeInteger},
	'e': {"env_%s", typeString},
	'f': {"filename", typePath},
	'h': {"remote_host", typeHostname},
	'H': {"protocol", typeProtocol},
	'i': {"req_%s", typeString},
	'k': {"keepalive", typeInteger},
	'l': {"ident", typeString},
	'm': {"method", typeMethod},
	'n': {"note_%s", typeString},
	'o': {"resp_%s", typeString},
	'p': {"port", typeInteger},
	'P': {"pid", typeInteger},
	'q': {"url_query", typeURLQuery},
	'r': {"request", typeRequest},
	'R': {"handler", typeString},
	's': {"status", typeInteger},
	't': {"time", typeTime},
	'T': {"time_taken", typeInteger},
	'u': {"remote_user", typeString},
	'U': {"url_stem", typeURLStem},
	'v': {"server_name", typeHostname},
	'V': {"canonical_name", typeHostname},
	'X': {"connection_status", typeKeepalive},
	'I': {"bytes_received", typeInteger},
	'O': {"bytes_sent", typeInteger},
}

// Fragments for the URL subset types and for Apache's escaped strings.
// Apache escapes non-printable and special characters with \xhh sequences,
// except newline, tab, and double-quote which are simply backslash escaped.
const (
	urlStemFragment  = `(?P<%(name)>([^:/?#\s]+:)?(//[^/?#\s]*)?[^?#\s]*)`
	urlQueryFragment = `(?P<%(name)>(\?[^#\s]*)?(#\S*)?)`
	stringFragment   = `(?P<%(name)>(?:[^\x00-\x1f\x7f\\"]|\\x[0-9a-fA-F]{2}|\\[^x])*|-)`
)

// fieldTokenRe extracts format specifications from a LogFormat string. The
// expression deliberately avoids a precise match to any one Apache version;
// 2.0, 2.2, and 2.4 each added options without changing the fundamental
// token structure, so a generic match is taken here and the details are
// dealt with in compileField below.
var fieldTokenRe = regexp.MustCompile(
	`%` +
		// Optional status code filter with optional negation.
		`(?:!?\d{3}(?:,\d{3})*)?` +
		// Optional original/final request modifier.
		`[<>]?` +
		// Optional {payload} block.
		`(?:\{[^}]*\})?` +
		// Mandatory suffix letter.
		`[a-zA-Z]`,
)

// fieldSpecRe re-parses one extracted token, capturing the payload and the
// suffix letter. The status filter and request modifier are recognized but
// deliberately never interpreted; Apache defines them for output filtering,
// which has no meaning when reading a log back.
var fieldSpecRe = regexp.MustCompile(
	`^%` +
		`(?:!?\d{3}(?:,\d{3})*)?` +
		`[<>]?` +
		`(?:\{(?P<payload>[^}]*)\})?` +
		`(?P<suffix>[a-zA-Z])` +
		`$`,
)

var stringEscapeRe = regexp.MustCompile(`\\(x[0-9a-fA-F]{2}|[^x])`)

// parseString reverses Apache's string escaping: \xhh hex sequences and the
// C whitespace escapes \n, \t, and \f are decoded; any other backslashed
// character has the backslash removed; invalid sequences are left verbatim.
// A bare dash is the missing value.
func parseString(s string) (any, error) {
	if s == "-" {
		return nil, nil
	}
	return stringEscapeRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, `\x`) {
			v, err := strconv.ParseUint(m[2:4], 16, 8)
			if err != nil {
				return m
			}
			return string(rune(v))
		}
		switch m {
		case `\n`:
			return "\n"
		case `\t`:
			return "\t"
		case `\f`:
			return "\f"
		}
		return m[1:]
	}), nil
}

// generateName constructs the output field name from the definition
// template, the token payload (if any), and the suffix. Payload-bearing
// suffixes require a payload; the port and PID suffixes accept only a fixed
// payload vocabulary.
func generateName(def fieldDef, payload string, suffix byte) (string, error) {
	switch {
	case strings.IndexByte("Ceino", suffix) >= 0:
		if payload == "" {
			return "", rowset.Configf(`missing payload for format suffix "%%%c"`, suffix)
		}
		sanitized, err := datatypes.SanitizeName(payload)
		if err != nil {
			return "", rowset.Configf("invalid payload %q: %s", payload, err)
		}
		return fmt.Sprintf(def.template, sanitized), nil
	case suffix == 'p' && payload != "":
		name, ok := map[string]string{
			"canonical": "port",
			"local":     "local_port",
			"remote":    "remote_port",
		}[payload]
		if !ok {
			return "", rowset.Configf(`invalid format in "%%{%s}p"`, payload)
		}
		return name, nil
	case suffix == 'P' && payload != "":
		name, ok := map[string]string{
			"pid":    "pid",
			"tid":    "tid",
			"hextid": "hextid",
		}[payload]
		if !ok {
			return "", rowset.Configf(`invalid format in "%%{%s}P"`, payload)
		}
		return name, nil
	}
	return def.template, nil
}

// compileField turns one extracted %-token into a field spec, resolving the
// name, regex fragment, and parser.
func compileField(token string) (rowset.FieldSpec, error) {
	match := fieldSpecRe.FindStringSubmatch(token)
	if match == nil {
		// fieldTokenRe guarantees the token shape, so this cannot happen.
		return rowset.FieldSpec{}, rowset.Configf("malformed format token %q", token)
	}
	payload, suffix := match[1], match[2][0]
	def, ok := fieldDefs[suffix]
	if !ok {
		return rowset.FieldSpec{}, rowset.Configf("invalid format suffix %q in %q", string(suffix), token)
	}
	name, err := generateName(def, payload, suffix)
	if err != nil {
		return rowset.FieldSpec{}, err
	}

	if def.fieldType == typeTime {
		return compileTimeField(name, payload)
	}
	if def.fieldType == typeString && isRefererName(name) {
		// Referer headers hold URLs; give them the URL type for
		// friendlier downstream values.
		return rowset.FieldSpec{
			Name:    name,
			Pattern: parsers.Name(parsers.URL, name),
			Parse:   parsers.ParseURL,
		}, nil
	}

	spec := rowset.FieldSpec{Name: name}
	switch def.fieldType {
	case typeAddress:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Address, name), parsers.ParseAddress
	case typePath:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Path, name), parsers.ParsePath
	case typeHostname:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Hostname, name), parsers.ParseHostname
	case typeInteger:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Integer, name), parsers.ParseInt
	case typeMethod:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Method, name), parsers.ParseString
	case typeProtocol:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Protocol, name), parsers.ParseString
	case typeRequest:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Request, name), parsers.ParseRequest
	case typeURL:
		spec.Pattern, spec.Parse = parsers.Name(parsers.URL, name), parsers.ParseURL
	case typeURLStem:
		spec.Pattern, spec.Parse = parsers.Name(urlStemFragment, name), parsers.ParseURL
	case typeURLQuery:
		spec.Pattern, spec.Parse = parsers.Name(urlQueryFragment, name), parsers.ParseURL
	case typeString:
		spec.Pattern, spec.Parse = parsers.Name(stringFragment, name), parseString
	case typeKeepalive:
		spec.Pattern, spec.Parse = parsers.Name(parsers.Keepalive, name), parsers.ParseKeepalive
	default:
		return rowset.FieldSpec{}, rowset.Configf("unhandled field type for suffix %q", string(suffix))
	}
	return spec, nil
}

// compileTimeField builds the spec for %t and %{format}t fields. A custom
// format has its regex synthesized from the strftime directives; the bare %t
// uses a hard-coded pattern and parser since its format is defined to be
// locale-independent English (and it is the hottest case by far).
func compileTimeField(name, payload string) (rowset.FieldSpec, error) {
	if payload == "" {
		return rowset.FieldSpec{
			Name:    name,
			Pattern: `(?P<` + name + `>` + strftime.CommonPattern + `)`,
			Parse: func(s string) (any, error) {
				t, err := strftime.ParseCommon(s)
				if err != nil {
					return nil, err
				}
				return t, nil
			},
		}, nil
	}
	expr, err := strftime.Pattern(payload)
	if err != nil {
		return rowset.FieldSpec{}, rowset.Configf("%s", err)
	}
	format := payload
	return rowset.FieldSpec{
		Name:    name,
		Pattern: `(?P<` + name + `>` + expr + `)`,
		Parse: func(s string) (any, error) {
			t, err := strftime.Parse(s, format)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}, nil
}

func isRefererName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "req_referer" || lower == "req_referrer"
}

// compileFormat splits a whole LogFormat string into literal separators and
// field tokens, compiling each token and assembling the result.
func compileFormat(logFormat string) (*rowset.Format, error) {
	builder := rowset.NewBuilder()
	last := 0
	for _, loc := range fieldTokenRe.FindAllStringIndex(logFormat, -1) {
		if loc[0] > last {
			builder.Literal(logFormat[last:loc[0]])
		}
		spec, err := compileField(logFormat[loc[0]:loc[1]])
		if err != nil {
			return nil, err
		}
		if err := builder.Field(spec); err != nil {
			return nil, err
		}
		last = loc[1]
	}
	if last < len(logFormat) {
		builder.Literal(logFormat[last:])
	}
	return builder.Compile()
}
