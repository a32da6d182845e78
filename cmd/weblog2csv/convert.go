package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"weblog2csv/internal/apache"
	"weblog2csv/internal/config"
	"weblog2csv/internal/datatypes"
	"weblog2csv/internal/dns"
	"weblog2csv/internal/geoip"
	"weblog2csv/internal/iis"
	"weblog2csv/internal/output"
	"weblog2csv/internal/progress"
	"weblog2csv/internal/rowset"
)

// presets maps the well-known Apache format names accepted by --log-format.
// Anything else is treated as a raw LogFormat string.
var presets = map[string]string{
	"common":       apache.Common,
	"common_vhost": apache.CommonVhost,
	"combined":     apache.Combined,
	"referer":      apache.Referer,
	"user_agent":   apache.UserAgent,
}

var flagValues = config.Defaults()

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert one access log to CSV or SQL on stdout",
	Long: `Convert reads an access log from the given file (or stdin) and writes
the converted rows to stdout. Warnings about unparseable lines go to stderr
and do not stop the conversion.

Examples:
  weblog2csv convert access.log > access.csv
  weblog2csv convert --log-format combined --header access.log
  weblog2csv convert --input-format iis --output sql --create-table iis.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVarP(&flagValues.InputFormat, "input-format", "i", flagValues.InputFormat,
		"input dialect: apache or iis")
	f.StringVarP(&flagValues.LogFormat, "log-format", "f", flagValues.LogFormat,
		"Apache LogFormat string or preset name (common, common_vhost, combined, referer, user_agent)")
	f.StringVarP(&flagValues.Output, "output", "o", flagValues.Output,
		"output format: csv or sql")
	f.BoolVar(&flagValues.Header, "header", flagValues.Header,
		"write a CSV header record")
	f.StringVar(&flagValues.Table, "table", flagValues.Table,
		"target table name for SQL output")
	f.BoolVar(&flagValues.CreateTable, "create-table", flagValues.CreateTable,
		"emit CREATE TABLE before the inserts")
	f.BoolVar(&flagValues.DropTable, "drop-table", flagValues.DropTable,
		"emit DROP TABLE IF EXISTS before the create")
	f.IntVar(&flagValues.BatchSize, "batch-size", flagValues.BatchSize,
		"rows per SQL transaction (0 for the default)")
	f.StringVar(&flagValues.TimeFormat, "time-format", flagValues.TimeFormat,
		"strftime layout for timestamp values")
	f.BoolVar(&flagValues.TSV, "tsv", flagValues.TSV,
		"tab-separated output instead of comma")
	f.BoolVar(&flagValues.CRLF, "crlf", flagValues.CRLF,
		"DOS line endings in CSV output")
	f.StringVar(&flagValues.GeoIPDB, "geoip-db", flagValues.GeoIPDB,
		"MaxMind database; adds country/region/city columns for the client address")
	f.BoolVar(&flagValues.Resolve, "resolve", flagValues.Resolve,
		"reverse-resolve the client address into an extra hostname column")
	f.BoolVar(&flagValues.Progress, "progress", flagValues.Progress,
		"show a progress bar on stderr (file input only)")
	f.BoolVarP(&flagValues.Quiet, "quiet", "q", flagValues.Quiet,
		"suppress warnings")
	f.BoolVarP(&flagValues.Verbose, "verbose", "v", flagValues.Verbose,
		"print a summary line to stderr when done")
}

// resolveSettings merges defaults, the optional YAML file, and explicitly
// set flags, in that order of precedence.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	settings := config.Defaults()
	if cfgFile != "" {
		file, err := config.Load(cfgFile)
		if err != nil {
			return settings, err
		}
		if err := file.Apply(&settings); err != nil {
			return settings, err
		}
	}
	overrides := map[string]func(){
		"input-format": func() { settings.InputFormat = flagValues.InputFormat },
		"log-format":   func() { settings.LogFormat = flagValues.LogFormat },
		"output":       func() { settings.Output = flagValues.Output },
		"header":       func() { settings.Header = flagValues.Header },
		"table":        func() { settings.Table = flagValues.Table },
		"create-table": func() { settings.CreateTable = flagValues.CreateTable },
		"drop-table":   func() { settings.DropTable = flagValues.DropTable },
		"batch-size":   func() { settings.BatchSize = flagValues.BatchSize },
		"time-format":  func() { settings.TimeFormat = flagValues.TimeFormat },
		"tsv":          func() { settings.TSV = flagValues.TSV },
		"crlf":         func() { settings.CRLF = flagValues.CRLF },
		"geoip-db":     func() { settings.GeoIPDB = flagValues.GeoIPDB },
		"resolve":      func() { settings.Resolve = flagValues.Resolve },
		"progress":     func() { settings.Progress = flagValues.Progress },
		"quiet":        func() { settings.Quiet = flagValues.Quiet },
		"verbose":      func() { settings.Verbose = flagValues.Verbose },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	switch settings.InputFormat {
	case "apache", "iis":
	default:
		return settings, fmt.Errorf("input format must be apache or iis, not %q",
			settings.InputFormat)
	}
	switch settings.Output {
	case "csv", "sql":
	default:
		return settings, fmt.Errorf("output must be csv or sql, not %q", settings.Output)
	}
	return settings, nil
}

// rowSource is the common surface of both log dialects.
type rowSource interface {
	Next() (*rowset.Row, error)
	Close() error
	Count() int
}

// rowWriter is the common surface of both output formats.
type rowWriter interface {
	Write(*rowset.Row) error
	Close() error
}

func runConvert(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	input := io.Reader(os.Stdin)
	var inputFile *os.File
	if len(args) == 1 {
		inputFile, err = os.Open(args[0])
		if err != nil {
			return err
		}
		defer inputFile.Close()
		input = inputFile
	}

	var meter *progress.Meter
	if settings.Progress && inputFile != nil {
		meter, err = progress.NewMeter(progress.Options{File: inputFile})
		if err != nil {
			return err
		}
		defer func() {
			if meter != nil {
				meter.Finish()
			}
		}()
	}

	warnings := 0
	warn := func(w rowset.Warning) {
		warnings++
		if settings.Quiet {
			return
		}
		if meter != nil {
			meter.Hide()
		}
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		if meter != nil {
			meter.Show()
		}
	}

	source, err := openSource(settings, input, warn)
	if err != nil {
		return err
	}
	defer source.Close()

	enrich, err := newEnricher(settings)
	if err != nil {
		return err
	}
	defer enrich.close()

	writer, err := openWriter(settings, os.Stdout)
	if err != nil {
		return err
	}

	for {
		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := writer.Write(enrich.extend(row)); err != nil {
			return err
		}
		if meter != nil {
			meter.Update(0)
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if meter != nil {
		meter.Finish()
		meter = nil
	}
	if settings.Verbose && !settings.Quiet {
		fmt.Fprintf(os.Stderr, "converted %d rows (%d warnings)\n",
			source.Count(), warnings)
	}
	return nil
}

func openSource(settings config.Settings, input io.Reader, warn rowset.WarningHandler) (rowSource, error) {
	if settings.InputFormat == "iis" {
		return iis.NewSource(input, iis.WithWarningHandler(warn)), nil
	}
	logFormat := settings.LogFormat
	if preset, ok := presets[strings.ToLower(logFormat)]; ok {
		logFormat = preset
	}
	return apache.NewSource(input,
		apache.WithFormat(logFormat),
		apache.WithWarningHandler(warn))
}

func openWriter(settings config.Settings, out io.Writer) (rowWriter, error) {
	if settings.Output == "sql" {
		return output.NewSQL(out, output.SQLOptions{
			Table:       settings.Table,
			CreateTable: settings.CreateTable,
			DropTable:   settings.DropTable,
			BatchSize:   settings.BatchSize,
			TimeFormat:  settings.TimeFormat,
		})
	}
	opts := output.CSVOptions{
		Header:     settings.Header,
		CRLF:       settings.CRLF,
		TimeFormat: settings.TimeFormat,
	}
	if settings.TSV {
		opts.Delimiter = '\t'
	}
	return output.NewCSV(out, opts), nil
}

// enricher appends derived columns for the client address: a reverse-resolved
// hostname and geographic fields. The client address is the first
// address-typed value in the row.
type enricher struct {
	resolver *dns.Resolver
	lookup   geoip.Lookup
	closer   func() error
	extra    []string
}

func newEnricher(settings config.Settings) (*enricher, error) {
	e := &enricher{}
	if settings.Resolve {
		e.resolver = dns.NewResolver()
		e.extra = append(e.extra, "remote_dns")
	}
	if settings.GeoIPDB != "" {
		lookup, closer, err := geoip.Open(settings.GeoIPDB)
		if err != nil {
			return nil, err
		}
		e.lookup = lookup
		e.closer = closer
		e.extra = append(e.extra, "country_code", "region", "city")
	}
	return e, nil
}

func (e *enricher) close() error {
	if e.closer != nil {
		return e.closer()
	}
	return nil
}

func (e *enricher) extend(row *rowset.Row) *rowset.Row {
	if len(e.extra) == 0 {
		return row
	}
	var client *datatypes.Address
	for _, v := range row.Values {
		if a, ok := v.(*datatypes.Address); ok {
			client = a
			break
		}
	}
	names := append(append([]string{}, row.Names()...), e.extra...)
	values := append([]any{}, row.Values...)
	if e.resolver != nil {
		if client != nil {
			values = append(values, e.resolver.FromAddress(context.Background(), client.Addr))
		} else {
			values = append(values, nil)
		}
	}
	if e.lookup != nil {
		var info geoip.Info
		if client != nil {
			info, _ = e.lookup(client.Addr)
		}
		values = append(values, emptyNil(info.CountryCode),
			emptyNil(info.Region), emptyNil(info.City))
	}
	return rowset.NewRow(names, values)
}

func emptyNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
