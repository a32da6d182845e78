package geoip

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingDatabase(t *testing.T) {
	if _, _, err := Open(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected an error for a missing database file")
	}
}

func TestOpenInvalidDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.mmdb")
	if err := os.WriteFile(path, []byte("not a maxmind database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Open(path); err == nil {
		t.Fatal("expected an error for a corrupt database file")
	}
}
