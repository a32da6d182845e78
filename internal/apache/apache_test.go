package apache

import (
	"strings"
	"testing"
	"time"

	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/rowset"
)

func TestCompileFormatFieldNames(t *testing.T) {
	tests := []struct {
		name      string
		logFormat string
		want      []string
	}{
		{
			name:      "common",
			logFormat: Common,
			want:      []string{"remote_host", "ident", "remote_user", "time", "request", "status", "size"},
		},
		{
			name:      "combined",
			logFormat: Combined,
			want: []string{
				"remote_host", "ident", "remote_user", "time", "request",
				"status", "size", "req_Referer", "req_User_agent",
			},
		},
		{
			name:      "vhost common",
			logFormat: CommonVhost,
			want:      []string{"server_name", "remote_host", "ident", "remote_user", "time", "request", "status", "size"},
		},
		{
			name:      "payload suffixes",
			logFormat: `%{UID}C %{HOME}e %{local}p %{tid}P`,
			want:      []string{"cookie_UID", "env_HOME", "local_port", "tid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := compileFormat(tt.logFormat)
			if err != nil {
				t.Fatalf("compileFormat(%q) error = %v", tt.logFormat, err)
			}
			got := format.FieldNames()
			if len(got) != len(tt.want) {
				t.Fatalf("field names = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCompileFormatErrors(t *testing.T) {
	tests := []struct {
		name      string
		logFormat string
		wantIn    string
	}{
		{name: "unknown suffix", logFormat: `%h %Z`, wantIn: "invalid format suffix"},
		{name: "duplicate size fields", logFormat: `%b %B`, wantIn: "duplicate row field name size"},
		{name: "cookie without payload", logFormat: `%C`, wantIn: "missing payload"},
		{name: "bad port payload", logFormat: `%{foo}p`, wantIn: `invalid format in "%{foo}p"`},
		{name: "bad pid payload", logFormat: `%{foo}P`, wantIn: `invalid format in "%{foo}P"`},
		{name: "bad time directive", logFormat: `%{%Y-%m-%d %Q}t`, wantIn: "%Q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileFormat(tt.logFormat)
			if err == nil {
				t.Fatalf("compileFormat(%q) succeeded, want error", tt.logFormat)
			}
			if _, ok := err.(*rowset.ConfigError); !ok {
				t.Errorf("error %T is not a ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not contain %q", err, tt.wantIn)
			}
		})
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{name: "dash is nil", input: "-", want: nil},
		{name: "empty stays empty", input: "", want: ""},
		{name: "plain text", input: "abc", want: "abc"},
		{name: "newline escape", input: `ab\nc`, want: "ab\nc"},
		{name: "hex newline", input: `ab\x0Ac`, want: "ab\nc"},
		{name: "tab escape", input: `foo\tbar`, want: "foo\tbar"},
		{name: "hex tab", input: `foo\x09bar`, want: "foo\tbar"},
		{name: "escaped quotes", input: `\"foo\"`, want: `"foo"`},
		{name: "invalid escape left verbatim", input: `foo\x`, want: `foo\x`},
		{name: "other escape drops backslash", input: `a\\b`, want: `a\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseString(tt.input)
			if err != nil {
				t.Fatalf("parseString(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseString(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSourceCommonGroundTruth(t *testing.T) {
	input := `64.242.88.10 - - [07/Mar/2004:16:56:39 -0800] "GET /x HTTP/1.1" 200 8545` + "\n"
	src, err := NewSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	host, ok := row.Get("remote_host").(*datatypes.Address)
	if !ok || host.String() != "64.242.88.10" {
		t.Errorf("remote_host = %v, want address 64.242.88.10", row.Get("remote_host"))
	}
	if row.Get("ident") != nil {
		t.Errorf("ident = %v, want nil", row.Get("ident"))
	}
	if row.Get("remote_user") != nil {
		t.Errorf("remote_user = %v, want nil", row.Get("remote_user"))
	}
	ts, ok := row.Get("time").(time.Time)
	want := time.Date(2004, 3, 8, 0, 56, 39, 0, time.UTC)
	if !ok || !ts.Equal(want) {
		t.Errorf("time = %v, want %v", row.Get("time"), want)
	}
	req, ok := row.Get("request").(*datatypes.Request)
	if !ok || req.Method != "GET" || req.Protocol != "HTTP/1.1" || req.URL == nil || req.URL.Path != "/x" {
		t.Errorf("request = %+v, want GET /x HTTP/1.1", row.Get("request"))
	}
	if got := row.Get("status"); got != int64(200) {
		t.Errorf("status = %v, want 200", got)
	}
	if got := row.Get("size"); got != int64(8545) {
		t.Errorf("size = %v, want 8545", got)
	}
	if src.Count() != 1 {
		t.Errorf("Count() = %d, want 1", src.Count())
	}
}

func TestSourceCombined(t *testing.T) {
	input := `192.168.1.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://www.example.com/start.html" "Mozilla/4.08 [en] (Win98; I ;Nav)"` + "\n"
	src, err := NewSource(strings.NewReader(input), WithFormat(Combined))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := row.Get("remote_user"); got != "frank" {
		t.Errorf("remote_user = %v, want frank", got)
	}
	ref, ok := row.Get("req_Referer").(*datatypes.Url)
	if !ok || ref.Netloc != "www.example.com" {
		t.Errorf("req_Referer = %v, want URL with host www.example.com", row.Get("req_Referer"))
	}
	ua, ok := row.Get("req_User_agent").(string)
	if !ok || !strings.HasPrefix(ua, "Mozilla/4.08") {
		t.Errorf("req_User_agent = %v", row.Get("req_User_agent"))
	}
}

func TestSourceCustomTimeFormat(t *testing.T) {
	input := `2004-03-08T00:56:39+0000 200` + "\n"
	src, err := NewSource(strings.NewReader(input),
		WithFormat(`%{%Y-%m-%dT%H:%M:%S%z}t %s`))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	ts, ok := row.Get("time").(time.Time)
	want := time.Date(2004, 3, 8, 0, 56, 39, 0, time.UTC)
	if !ok || !ts.Equal(want) {
		t.Errorf("time = %v, want %v", row.Get("time"), want)
	}
}

func TestSourceWarnings(t *testing.T) {
	input := strings.Join([]string{
		`64.242.88.10 - - [07/Mar/2004:16:56:39 -0800] "GET /x HTTP/1.1" 200 8545`,
		`complete garbage`,
		`300.0.0.1 - - [07/Mar/2004:16:56:39 -0800] "GET /x HTTP/1.1" 200 8545`,
		`64.242.88.10 - - [07/Mar/2004:16:57:00 -0800] "GET /y HTTP/1.1" 404 -`,
	}, "\n") + "\n"

	var warnings []rowset.Warning
	src, err := NewSource(strings.NewReader(input),
		WithFormat(`%a %l %u %t "%r" %>s %b`),
		WithWarningHandler(func(w rowset.Warning) { warnings = append(warnings, w) }))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	var rows []*rowset.Row
	for {
		row, err := src.Next()
		if err != nil {
			break
		}
		rows = append(rows, row)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Line 4 has a dash size; it parses as nil rather than warning.
	if rows[1].Get("size") != nil {
		t.Errorf("size = %v, want nil", rows[1].Get("size"))
	}
	if src.Count() != 2 {
		t.Errorf("Count() = %d, want 2", src.Count())
	}

	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	if warnings[0].LineNumber != 2 || warnings[0].Message != "line contains invalid data" {
		t.Errorf("first warning = %+v", warnings[0])
	}
	// Line 3 matches structurally but the 300 octet fails the parser.
	if warnings[1].LineNumber != 3 {
		t.Errorf("second warning line = %d, want 3", warnings[1].LineNumber)
	}
}

func TestSourceClosed(t *testing.T) {
	src, err := NewSource(strings.NewReader(""))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := src.Next(); err == nil {
		t.Error("Next() after Close succeeded, want error")
	}
}

// Recognized-but-ignored modifiers: status filters and the original/final
// request markers must not change the compiled field set.
func TestModifiersIgnored(t *testing.T) {
	plain, err := compileFormat(`%h %s %b`)
	if err != nil {
		t.Fatal(err)
	}
	decorated, err := compileFormat(`%h %<s %!400,501b`)
	if err != nil {
		t.Fatal(err)
	}
	p, d := plain.FieldNames(), decorated.FieldNames()
	if strings.Join(p, ",") != strings.Join(d, ",") {
		t.Errorf("field names differ: %v vs %v", p, d)
	}
}
