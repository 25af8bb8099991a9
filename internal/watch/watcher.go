// Package watch extracts documents dropped into a folder. Files are picked
// up from filesystem events once they stop changing, and optionally by a
// scheduled sweep of the whole folder.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/store"
)

type Extractor interface {
	ExtractDocument(ctx context.Context, a rfq.Attachment) *rfq.ExtractedDocument
}

// Config holds watcher configuration
type Config struct {
	Dir       string
	OutputDir string
	// Settle is how long a file must stay unchanged before extraction.
	Settle time.Duration
	// Sweep is a cron spec ("@every 10m", "0 * * * *"); empty disables it.
	Sweep         string
	MaxConcurrent int
	// OnResult is called after every processed file.
	OnResult func(Outcome)
}

// Outcome describes one processed file
type Outcome struct {
	Path       string
	OutputPath string
	Document   *rfq.ExtractedDocument
	Duplicate  bool
	Err        error
}

// Watcher manages folder watching and extraction
type Watcher struct {
	config    Config
	extractor Extractor
	ledger    *store.Store
	logger    *zap.Logger

	fsw     *fsnotify.Watcher
	sched   *cron.Cron
	pending map[string]time.Time
	sem     chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// New creates a watcher. ledger may be nil, in which case every event is
// extracted again.
func New(cfg Config, x Extractor, ledger *store.Store, logger *zap.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.Dir, "extracted")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var sched *cron.Cron
	if cfg.Sweep != "" {
		sched = cron.New()
	}

	return &Watcher{
		config:    cfg,
		extractor: x,
		ledger:    ledger,
		logger:    logger,
		sched:     sched,
		pending:   make(map[string]time.Time),
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Start begins watching and runs an initial sweep
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.start(ctx); err != nil {
		return err
	}
	w.Sweep()
	return nil
}

func (w *Watcher) start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := os.MkdirAll(w.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(w.config.Dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.config.Dir, err)
	}

	if w.sched != nil {
		if _, err := w.sched.AddFunc(w.config.Sweep, w.Sweep); err != nil {
			fsw.Close()
			return fmt.Errorf("invalid sweep schedule %q: %w", w.config.Sweep, err)
		}
		w.sched.Start()
	}

	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(1)
	go w.run()

	w.logger.Info("Watching for documents",
		zap.String("dir", w.config.Dir),
		zap.String("output", w.config.OutputDir),
		zap.String("sweep", w.config.Sweep),
	)
	return nil
}

// Stop stops watching and waits for in-flight extractions
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	if w.sched != nil {
		<-w.sched.Stop().Done()
	}
	w.cancel()
	w.fsw.Close()
	w.wg.Wait()
	w.logger.Info("Watcher stopped")
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Sweep queues every file of the folder. Files already in the ledger are
// skipped when processed.
func (w *Watcher) Sweep() {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		w.logger.Error("Failed to sweep watch directory", zap.Error(err))
		return
	}
	now := time.Now()
	w.mu.Lock()
	for _, e := range entries {
		path := filepath.Join(w.config.Dir, e.Name())
		if w.candidate(path, e.Type()) {
			// already settled, due on the next tick
			w.pending[path] = now.Add(-w.config.Settle)
		}
	}
	w.mu.Unlock()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	tick := w.config.Settle / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Lstat(event.Name)
			if err != nil || !w.candidate(event.Name, info.Mode().Type()) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		case <-ticker.C:
			w.dispatchSettled()
		}
	}
}

func (w *Watcher) candidate(path string, mode os.FileMode) bool {
	name := filepath.Base(path)
	if !mode.IsRegular() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	return filepath.Dir(path) != filepath.Clean(w.config.OutputDir)
}

func (w *Watcher) dispatchSettled() {
	cutoff := time.Now().Add(-w.config.Settle)

	w.mu.Lock()
	var due []string
	for path, last := range w.pending {
		if !last.After(cutoff) {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range due {
		select {
		case w.sem <- struct{}{}:
		case <-w.ctx.Done():
			return
		}
		w.wg.Add(1)
		go func(p string) {
			defer w.wg.Done()
			defer func() { <-w.sem }()

			outcome := w.ProcessFile(w.ctx, p)
			if w.config.OnResult != nil {
				w.config.OnResult(outcome)
			}
		}(path)
	}
}

// ProcessFile extracts one file and writes <name>.json to the output
// folder, unless the ledger already holds the same content.
func (w *Watcher) ProcessFile(ctx context.Context, path string) Outcome {
	outcome := Outcome{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		outcome.Err = err
		w.logger.Warn("Failed to read dropped file", zap.String("file", path), zap.Error(err))
		return outcome
	}

	hash := store.HashContent(data)
	if w.ledger != nil {
		entry, ok, err := w.ledger.Get(hash)
		if err != nil {
			w.logger.Warn("Ledger lookup failed", zap.Error(err))
		} else if ok {
			outcome.Duplicate = true
			outcome.OutputPath = entry.OutputPath
			w.logger.Debug("Skipping already extracted file",
				zap.String("file", path),
				zap.String("output", entry.OutputPath),
			)
			return outcome
		}
	}

	name := filepath.Base(path)
	doc := w.extractor.ExtractDocument(ctx, rfq.Attachment{
		Filename: name,
		Data:     data,
		Size:     int64(len(data)),
	})
	outcome.Document = doc

	outPath := filepath.Join(w.config.OutputDir, name+".json")
	if err := writeJSON(outPath, doc); err != nil {
		outcome.Err = err
		w.logger.Error("Failed to write extraction result", zap.String("file", outPath), zap.Error(err))
		return outcome
	}
	outcome.OutputPath = outPath

	if w.ledger != nil {
		if err := w.ledger.Put(store.Entry{
			Hash:        hash,
			Filename:    name,
			OutputPath:  outPath,
			Format:      string(doc.FormatKind),
			Method:      doc.ExtractionMethod,
			RFQNumber:   doc.RFQNumber,
			Items:       len(doc.Items),
			NeedsReview: doc.NeedsManualReview(),
		}); err != nil {
			w.logger.Warn("Failed to record ledger entry", zap.Error(err))
		}
	}

	w.logger.Info("Extracted dropped file",
		zap.String("file", name),
		zap.String("method", doc.ExtractionMethod),
		zap.Int("items", len(doc.Items)),
		zap.Bool("needs_review", doc.NeedsManualReview()),
	)
	return outcome
}

// writeJSON writes through a temp file so readers never see a partial
// result.
func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
