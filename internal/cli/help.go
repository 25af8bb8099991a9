package cli

import "fmt"

func PrintExtendedHelp() {
	fmt.Fprintf(stdout, `rfqextract %s - line items from procurement requests

Usage:
  rfqextract <command> [flags] [args]

Commands:
  extract   Extract line items from one or more attachments
  email     Extract line items from an email body
  request   Extract a whole request: body, subject and attachments
  classify  Classify attachments (rfq, technical sheet, image, unknown)
  batch     Extract every file of a directory
  watch     Extract files dropped into a directory
  config    Show, validate or locate the configuration
  token     Issue a bearer token for the watch status API
  doctor    Check configuration and external tools
  version   Print the version

Every command accepts -config <file>. Environment variables use the RFQ_
prefix (RFQ_OCR_DPI, RFQ_BATCH_CONCURRENCY, ...).
`, Version)
}

func PrintExtractHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract extract [-json] [-stats] [-config file] <file>...

Extracts each file on its own. Unreadable files still produce one
placeholder item flagged for manual review.`)
}

func PrintEmailHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract email [-subject s] [-json] [-config file] <body-file|->

The body may be plain text or HTML. Quoted replies and signatures are
trimmed before extraction.`)
}

func PrintRequestHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract request [-body file|-] [-subject s] [-json] [-config file] [attachment]...

Classifies the attachments, extracts the RFQ documents concurrently and
merges their items. Email body items are used when no attachment yields any.`)
}

func PrintClassifyHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract classify [-json] [-config file] <file>...`)
}

func PrintBatchHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract batch -i <dir> [-o <file>] [flags]

Flags:
  -i, -input    Input directory
  -o, -output   Output file: .json (full result), .jsonl (one document per line) or text
  -c            Concurrent documents
  -t            Per-document timeout (e.g. 90s)
  -rpm          Documents started per minute, 0 for unlimited
  -r            Descend into subdirectories
  -config       Path to config file`)
}

func PrintWatchHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract watch [-o <dir>] [-status :9090] [-sweep "@every 15m"] [-no-ledger] <dir>

Extracts files dropped into <dir> once they stop changing and writes
<name>.json to the output directory. Content already extracted is skipped.`)
}

func PrintConfigHelp() {
	fmt.Fprintln(stdout, `Usage: rfqextract config <command> [-config file]

Commands:
  path       Print the config file location
  show       Print the effective configuration
  defaults   Print the built-in defaults
  validate   Load and validate the configuration`)
}
