package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "weblog2csv",
	Short: "Convert web server access logs to CSV or SQL",
	Long: `weblog2csv parses Apache and IIS/W3C extended access logs into typed
rows and renders them as CSV for spreadsheets or SQL scripts for bulk
database loading. Apache input is configured with the server's LogFormat
string; W3C input configures itself from the in-stream directives.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"YAML config file with defaults for the flags")
}
