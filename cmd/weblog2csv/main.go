// weblog2csv converts web server access logs into typed CSV or SQL output.
// It understands Apache LogFormat strings (including the common presets) and
// the self-describing W3C extended format produced by IIS.
//
// Usage:
//
//	weblog2csv convert access.log > access.csv
//	cat access.log | weblog2csv convert --log-format combined
//	weblog2csv convert --input-format iis --output sql --create-table iis.log
package main

func main() {
	Execute()
}
