package main

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weblog2csv/internal/config"
	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/geoip"
	"weblog2csv/internal/rowset"
)

func TestResolveSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	content := "output: sql\ntable: from_file\nquiet: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path
	defer func() { cfgFile = "" }()

	cmd := convertCmd
	if err := cmd.Flags().Set("table", "from_flag"); err != nil {
		t.Fatal(err)
	}
	defer cmd.Flags().Set("table", config.Defaults().Table)

	settings, err := resolveSettings(cmd)
	if err != nil {
		t.Fatal(err)
	}
	// The file sets output and quiet; the explicit flag beats the file.
	if settings.Output != "sql" || !settings.Quiet {
		t.Errorf("settings = %+v", settings)
	}
	if settings.Table != "from_flag" {
		t.Errorf("Table = %q, want the flag to win", settings.Table)
	}
}

func TestOpenSourcePresets(t *testing.T) {
	settings := config.Defaults()
	settings.LogFormat = "combined"
	source, err := openSource(settings, strings.NewReader(""), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()
	names := source.(interface{ FieldNames() []string }).FieldNames()
	joined := strings.Join(names, " ")
	if !strings.Contains(joined, "req_Referer") || !strings.Contains(joined, "req_User_agent") {
		t.Errorf("combined preset fields = %v", names)
	}
}

func TestOpenSourceBadFormat(t *testing.T) {
	settings := config.Defaults()
	settings.LogFormat = "%Z"
	if _, err := openSource(settings, strings.NewReader(""), nil); err == nil {
		t.Fatal("expected a config error for an unknown directive")
	}
}

func TestEnricherExtend(t *testing.T) {
	addr, err := datatypes.ParseAddress("192.0.2.1")
	if err != nil {
		t.Fatal(err)
	}
	e := &enricher{
		lookup: func(a netip.Addr) (geoip.Info, bool) {
			return geoip.Info{CountryCode: "GB", City: "Manchester"}, true
		},
		extra: []string{"country_code", "region", "city"},
	}
	row := rowset.NewRow([]string{"remote_host", "status"}, []any{addr, int64(200)})
	got := e.extend(row)
	if len(got.Values) != 5 {
		t.Fatalf("values = %v", got.Values)
	}
	if got.Get("country_code") != "GB" || got.Get("region") != nil || got.Get("city") != "Manchester" {
		t.Errorf("extended row = %v", got.Values)
	}
	// The original row is untouched.
	if len(row.Values) != 2 {
		t.Errorf("source row mutated: %v", row.Values)
	}
}

func TestEnricherNoAddress(t *testing.T) {
	e := &enricher{
		lookup: func(netip.Addr) (geoip.Info, bool) { return geoip.Info{}, false },
		extra:  []string{"country_code", "region", "city"},
	}
	row := rowset.NewRow([]string{"status"}, []any{int64(404)})
	got := e.extend(row)
	for _, name := range e.extra {
		if got.Get(name) != nil {
			t.Errorf("%s = %#v, want nil", name, got.Get(name))
		}
	}
}
