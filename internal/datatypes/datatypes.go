// Package datatypes provides the typed values that parsed log fields are
// converted into: URLs, request lines, filesystem paths, hostnames, and IP
// addresses with optional ports. Each type validates on construction and
// provides a string coercion for downstream writers.
package datatypes

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// sanitizeFirst and sanitizeRest clean characters that cannot appear in a
// field identifier. The first character may not be a digit.
var (
	sanitizeFirst = regexp.MustCompile(`[^A-Za-z_]`)
	sanitizeRest  = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// SanitizeName converts an arbitrary string (a cookie name, HTTP header name,
// etc.) into a valid field identifier by replacing invalid runs with a single
// underscore. An empty input is an error as it cannot yield an identifier.
func SanitizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("cannot sanitize a blank string")
	}
	return sanitizeFirst.ReplaceAllString(name[:1], "_") +
		sanitizeRest.ReplaceAllString(name[1:], "_"), nil
}

// Url represents the parsed components of a URL reference. Only a pragmatic
// split is performed (scheme, network location, path, query, fragment); no
// attempt is made at full RFC 3986 validation.
type Url struct {
	Scheme   string
	Netloc   string
	Path     string
	Query    string
	Fragment string
}

// ParseUrl splits a URL reference into its components.
func ParseUrl(s string) (*Url, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", s, err)
	}
	result := &Url{
		Scheme:   u.Scheme,
		Netloc:   u.Host,
		Path:     u.EscapedPath(),
		Query:    u.RawQuery,
		Fragment: u.Fragment,
	}
	if u.User != nil {
		result.Netloc = u.User.String() + "@" + u.Host
	}
	return result, nil
}

// Hostname returns the host portion of the network location without any
// port number or userinfo.
func (u *Url) Hostname() string {
	host := u.Netloc
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if strings.HasPrefix(host, "[") {
		if i := strings.Index(host, "]"); i >= 0 {
			return host[1:i]
		}
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}

// String reconstructs the URL reference from its components.
func (u *Url) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString(":")
	}
	if u.Netloc != "" || u.Scheme != "" && strings.HasPrefix(u.Path, "//") {
		b.WriteString("//")
		b.WriteString(u.Netloc)
	}
	b.WriteString(u.Path)
	if u.Query != "" {
		b.WriteString("?")
		b.WriteString(u.Query)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// Request represents the three components of an HTTP request line. URL is nil
// when the request names no resource (e.g. "OPTIONS * HTTP/1.1").
type Request struct {
	Method   string
	URL      *Url
	Protocol string
}

// ParseRequest splits an HTTP request line into method, URL, and protocol.
// The method is everything up to the first space and the protocol everything
// after the last, so URLs containing (escaped) spaces still parse.
func ParseRequest(s string) (*Request, error) {
	method, rest, ok := strings.Cut(s, " ")
	if !ok {
		return nil, fmt.Errorf("request line is missing a space separated method")
	}
	i := strings.LastIndex(rest, " ")
	if i < 0 {
		return nil, fmt.Errorf("request line is missing a space separated protocol")
	}
	target, protocol := strings.TrimSpace(rest[:i]), rest[i+1:]
	if target == "" {
		return nil, fmt.Errorf("request line URL cannot be blank")
	}
	req := &Request{Method: method, Protocol: protocol}
	if target != "*" {
		u, err := ParseUrl(target)
		if err != nil {
			return nil, err
		}
		req.URL = u
	}
	return req, nil
}

// String reconstructs the request line.
func (r *Request) String() string {
	target := "*"
	if r.URL != nil {
		target = r.URL.String()
	}
	return r.Method + " " + target + " " + r.Protocol
}

// Path represents a POSIX-style path split into directory, base name, and
// extension components.
type Path struct {
	Dirname  string
	Basename string
	Ext      string
}

// ParsePath splits a slash separated path. The extension includes its leading
// dot; dotfiles have no extension.
func ParsePath(s string) *Path {
	i := strings.LastIndex(s, "/") + 1
	dirname, basename := s[:i], s[i:]
	if dirname != "" && strings.Trim(dirname, "/") != "" {
		dirname = strings.TrimRight(dirname, "/")
	}
	ext := ""
	if j := strings.LastIndex(basename, "."); j > 0 {
		ext = basename[j:]
	}
	return &Path{Dirname: dirname, Basename: basename, Ext: ext}
}

// String reassembles the path.
func (p *Path) String() string {
	if p.Dirname == "" || strings.Trim(p.Dirname, "/") == "" {
		return p.Dirname + p.Basename
	}
	return p.Dirname + "/" + p.Basename
}

// maximum lengths from RFC 1035.
const (
	maxHostnameLen = 255
	maxLabelLen    = 63
)

var labelRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

// Hostname represents a validated DNS name.
type Hostname string

// ParseHostname validates a DNS name: total length, and per-label length and
// alphabet. Note that a purely numeric name passes (the log formats using
// this type record IP addresses in hostname fields when resolution is off);
// use ParseHost to prefer an address interpretation.
func ParseHostname(s string) (Hostname, error) {
	if len(s) > maxHostnameLen {
		return "", fmt.Errorf("DNS name %s is longer than %d chars", s, maxHostnameLen)
	}
	for _, part := range strings.Split(s, ".") {
		if len(part) > maxLabelLen || !labelRe.MatchString(part) {
			return "", fmt.Errorf("DNS label %s is invalid", part)
		}
	}
	return Hostname(s), nil
}

// String returns the hostname text.
func (h Hostname) String() string { return string(h) }

// Address represents an IPv4 or IPv6 address with an optional port.
type Address struct {
	Addr    netip.Addr
	Port    uint16
	HasPort bool
}

// ParseAddress parses a bare IPv4 or IPv6 address. Each IPv4 octet must be in
// range, so "1.2.3.300" is rejected.
func ParseAddress(s string) (*Address, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("%s does not appear to be a valid IPv4 or IPv6 address", s)
	}
	return &Address{Addr: addr}, nil
}

// ParseAddressPort parses an address with an optional port. IPv6 addresses
// carrying a port must be bracketed ("[::1]:80"); a bare IPv6 address may
// omit the brackets.
func ParseAddressPort(s string) (*Address, error) {
	if addr, err := netip.ParseAddr(s); err == nil {
		return &Address{Addr: addr}, nil
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return nil, fmt.Errorf("%s does not appear to be a valid IPv4 or IPv6 address", s)
	}
	return &Address{Addr: ap.Addr(), Port: ap.Port(), HasPort: true}, nil
}

// String renders the address, bracketing IPv6 when a port is present.
func (a *Address) String() string {
	if !a.HasPort {
		return a.Addr.String()
	}
	return netip.AddrPortFrom(a.Addr, a.Port).String()
}

// ParseHost interprets a string as an IP address when possible and falls back
// to a validated hostname. Log fields of hostname type may legitimately hold
// either, depending on server resolution settings.
func ParseHost(s string) (any, error) {
	if addr, err := netip.ParseAddr(s); err == nil {
		return &Address{Addr: addr}, nil
	}
	return ParseHostname(s)
}

// KeepaliveState describes the connection state when a response completed:
// aborted before completion, kept alive, or closed.
type KeepaliveState rune

// Connection states recorded by the %X format.
const (
	KeepaliveAborted KeepaliveState = 'X'
	KeepaliveKept    KeepaliveState = '+'
	KeepaliveClosed  KeepaliveState = '-'
)

// String returns the single-character state flag.
func (k KeepaliveState) String() string { return string(rune(k)) }

// Coerce converts any field value to its output string form. Nil values
// (missing fields recorded as "-") become the empty string.
func Coerce(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
