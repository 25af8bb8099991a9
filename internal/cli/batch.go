package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/gmsas95/rfqextract/internal/batch"
)

func HandleBatchCommand(args []string) error {
	if len(args) == 0 {
		PrintBatchHelp()
		return nil
	}

	var inputDir, outputFile string
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.StringVar(&inputDir, "i", "", "Input directory")
	fs.StringVar(&inputDir, "input", "", "Input directory")
	fs.StringVar(&outputFile, "o", "", "Output file (.json, .jsonl or text)")
	fs.StringVar(&outputFile, "output", "", "Output file (.json, .jsonl or text)")
	configPath := fs.String("config", "", "Path to config file")
	concurrency := fs.Int("c", 0, "Concurrent documents (default from config)")
	timeout := fs.Duration("t", 0, "Per-document timeout (default from config)")
	rpm := fs.Int("rpm", -1, "Documents started per minute, 0 for unlimited (default from config)")
	recursive := fs.Bool("r", false, "Descend into subdirectories")
	fs.Usage = PrintBatchHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if inputDir == "" && fs.NArg() == 1 {
		inputDir = fs.Arg(0)
	}
	if inputDir == "" {
		return fmt.Errorf("input directory is required (rfqextract batch -i <dir> [-o <file>])")
	}
	if info, err := os.Stat(inputDir); err != nil || !info.IsDir() {
		return fmt.Errorf("input directory not found: %s", inputDir)
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	batchConfig := batch.DefaultConfig()
	batchConfig.MaxConcurrency = e.cfg.Batch.Concurrency
	batchConfig.Timeout = e.cfg.Batch.Timeout
	batchConfig.RPM = e.cfg.Batch.RPM
	batchConfig.Burst = e.cfg.Batch.Burst
	batchConfig.Recursive = *recursive
	if *concurrency > 0 {
		batchConfig.MaxConcurrency = *concurrency
	}
	if *timeout > 0 {
		batchConfig.Timeout = *timeout
	}
	if *rpm >= 0 {
		batchConfig.RPM = *rpm
	}

	processor := batch.NewProcessor(e.pipeline, batchConfig, e.logger)

	r := newRenderer(stdout)
	r.title("Processing " + inputDir)
	fmt.Fprintf(stdout, "   Concurrency: %d | Timeout: %v | RPM: %d\n\n",
		batchConfig.MaxConcurrency, batchConfig.Timeout, batchConfig.RPM)

	result, err := processor.ProcessDir(e.ctx, inputDir, outputFile)
	if err != nil {
		return fmt.Errorf("error processing batch: %w", err)
	}

	fmt.Fprintln(stdout, result.Summary())
	if outputFile != "" {
		fmt.Fprintf(stdout, "✓ Results saved to: %s\n", outputFile)
	}

	if result.Review > 0 {
		fmt.Fprintln(stdout, "\nNeeds manual review:")
		for _, item := range result.Items {
			if item.Success && item.NeedsReview {
				fmt.Fprintf(stdout, "  - %s (%s)\n", item.ID, item.Document.ExtractionMethod)
			}
		}
	}
	if result.Failed > 0 {
		fmt.Fprintln(stdout, "\nFailed items:")
		for _, item := range result.Items {
			if !item.Success && item.Error != "skipped" {
				fmt.Fprintf(stdout, "  - %s: %s\n", item.ID, item.Error)
			}
		}
	}
	return nil
}
