// Package config loads optional YAML configuration for the command line
// tool. File values fill in only the settings the user did not set on the
// command line, so every field is pointer-typed or defaults to empty.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the fully resolved runtime configuration, after defaults,
// file values, and flags have been merged.
type Settings struct {
	InputFormat string
	LogFormat   string
	Output      string
	Header      bool
	Table       string
	CreateTable bool
	DropTable   bool
	BatchSize   int
	TimeFormat  string
	TSV         bool
	CRLF        bool
	GeoIPDB     string
	Resolve     bool
	Progress    bool
	Quiet       bool
	Verbose     bool
}

// Defaults returns the baseline settings: Apache common log format to CSV
// on stdout.
func Defaults() Settings {
	return Settings{
		InputFormat: "apache",
		LogFormat:   "common",
		Output:      "csv",
		Table:       "access_log",
	}
}

// File represents configuration options supplied via YAML.
type File struct {
	InputFormat string `yaml:"input_format"`
	LogFormat   string `yaml:"log_format"`
	Output      string `yaml:"output"`
	Header      *bool  `yaml:"header"`
	Table       string `yaml:"table"`
	CreateTable *bool  `yaml:"create_table"`
	DropTable   *bool  `yaml:"drop_table"`
	BatchSize   *int   `yaml:"batch_size"`
	TimeFormat  string `yaml:"time_format"`
	TSV         *bool  `yaml:"tsv"`
	CRLF        *bool  `yaml:"crlf"`
	GeoIPDB     string `yaml:"geoip_db"`
	Resolve     *bool  `yaml:"resolve"`
	Progress    *bool  `yaml:"progress"`
	Quiet       *bool  `yaml:"quiet"`
	Verbose     *bool  `yaml:"verbose"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Apply copies the file's set values onto target, leaving the rest alone.
func (f File) Apply(target *Settings) error {
	if f.InputFormat != "" {
		if f.InputFormat != "apache" && f.InputFormat != "iis" {
			return fmt.Errorf("input_format must be apache or iis, not %q", f.InputFormat)
		}
		target.InputFormat = f.InputFormat
	}
	if f.LogFormat != "" {
		target.LogFormat = f.LogFormat
	}
	if f.Output != "" {
		if f.Output != "csv" && f.Output != "sql" {
			return fmt.Errorf("output must be csv or sql, not %q", f.Output)
		}
		target.Output = f.Output
	}
	if f.Header != nil {
		target.Header = *f.Header
	}
	if f.Table != "" {
		target.Table = f.Table
	}
	if f.CreateTable != nil {
		target.CreateTable = *f.CreateTable
	}
	if f.DropTable != nil {
		target.DropTable = *f.DropTable
	}
	if f.BatchSize != nil {
		if *f.BatchSize <= 0 {
			return fmt.Errorf("batch_size must be positive, not %d", *f.BatchSize)
		}
		target.BatchSize = *f.BatchSize
	}
	if f.TimeFormat != "" {
		target.TimeFormat = f.TimeFormat
	}
	if f.TSV != nil {
		target.TSV = *f.TSV
	}
	if f.CRLF != nil {
		target.CRLF = *f.CRLF
	}
	if f.GeoIPDB != "" {
		target.GeoIPDB = f.GeoIPDB
	}
	if f.Resolve != nil {
		target.Resolve = *f.Resolve
	}
	if f.Progress != nil {
		target.Progress = *f.Progress
	}
	if f.Quiet != nil {
		target.Quiet = *f.Quiet
	}
	if f.Verbose != nil {
		target.Verbose = *f.Verbose
	}
	return nil
}
