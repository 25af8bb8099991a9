package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/api"
	"github.com/gmsas95/rfqextract/internal/store"
	"github.com/gmsas95/rfqextract/internal/watch"
)

func HandleWatchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	outputDir := fs.String("o", "", "Output directory (default <dir>/extracted)")
	statusAddr := fs.String("status", "", "Serve health, metrics and the ledger on this address (e.g. :9090)")
	sweep := fs.String("sweep", "", "Cron schedule for full-folder sweeps (default from config)")
	noLedger := fs.Bool("no-ledger", false, "Extract every file again, even if already seen")
	fs.Usage = PrintWatchHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		PrintWatchHelp()
		return nil
	}
	dir := fs.Arg(0)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("watch directory not found: %s", dir)
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.cfg.Watch
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *statusAddr != "" {
		cfg.StatusAddr = *statusAddr
	}
	if *sweep != "" {
		cfg.Sweep = *sweep
	}

	var ledger *store.Store
	if !*noLedger {
		if cfg.LedgerDir != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.LedgerDir), 0o755); err != nil {
				return err
			}
		}
		ledger, err = store.New(store.Options{Path: cfg.LedgerDir, TTL: cfg.LedgerTTL})
		if err != nil {
			return err
		}
		defer ledger.Close()
	}

	r := newRenderer(stdout)
	w, err := watch.New(watch.Config{
		Dir:           dir,
		OutputDir:     cfg.OutputDir,
		Settle:        cfg.Settle,
		Sweep:         cfg.Sweep,
		MaxConcurrent: cfg.Concurrency,
		OnResult: func(o watch.Outcome) {
			switch {
			case o.Err != nil:
				fmt.Fprintf(stdout, "✗ %s: %v\n", filepath.Base(o.Path), o.Err)
			case o.Duplicate:
				fmt.Fprintf(stdout, "= %s already extracted (%s)\n", filepath.Base(o.Path), o.OutputPath)
			default:
				fmt.Fprintf(stdout, "✓ %s: %d item(s), %s → %s\n",
					filepath.Base(o.Path), len(o.Document.Items),
					r.reviewFlag(o.Document.NeedsManualReview()), o.OutputPath)
			}
		},
	}, e.pipeline, ledger, e.logger)
	if err != nil {
		return err
	}

	if err := w.Start(e.ctx); err != nil {
		return err
	}
	defer w.Stop()

	if cfg.StatusAddr != "" {
		srv := api.New(api.Config{
			Addr:      cfg.StatusAddr,
			Version:   Version,
			JWTSecret: cfg.JWTSecret,
		}, ledger, e.logger)
		go func() {
			if err := srv.Start(); err != nil {
				e.logger.Error("Status server stopped", zap.Error(err))
			}
		}()
		defer srv.Shutdown()
	}

	r.title("Watching " + dir)
	fmt.Fprintln(stdout, "Press Ctrl+C to stop")
	<-e.ctx.Done()
	fmt.Fprintln(stdout)
	return nil
}
