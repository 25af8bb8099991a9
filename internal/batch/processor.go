// Package batch extracts every document of a folder, or a list of files,
// with bounded concurrency and an optional start-rate limit.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

// Extractor is the part of the pipeline the processor drives.
type Extractor interface {
	ExtractDocument(ctx context.Context, a rfq.Attachment) *rfq.ExtractedDocument
}

type Processor struct {
	extractor Extractor
	config    Config
	limiter   *Limiter
	logger    *zap.Logger
}

type Config struct {
	MaxConcurrency int
	// Timeout bounds one document, external tools included.
	Timeout time.Duration
	// RPM caps how many documents start per minute; 0 means unlimited.
	RPM   int
	Burst int
	// MaxFileSize skips larger files; 0 means no limit.
	MaxFileSize int64
	Recursive   bool
}

type InputItem struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type OutputItem struct {
	ID           string                 `json:"id"`
	Path         string                 `json:"path"`
	Document     *rfq.ExtractedDocument `json:"document,omitempty"`
	ItemCount    int                    `json:"item_count"`
	ResponseTime time.Duration          `json:"response_time"`
	Success      bool                   `json:"success"`
	NeedsReview  bool                   `json:"needs_review"`
	Error        string                 `json:"error,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

type Result struct {
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Review    int           `json:"needs_review"`
	Duration  time.Duration `json:"duration"`
	Items     []OutputItem  `json:"items"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

const skipped = "skipped"

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        120 * time.Second,
		Burst:          1,
		MaxFileSize:    50 << 20,
	}
}

func NewProcessor(x Extractor, cfg Config, logger *zap.Logger) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		extractor: x,
		config:    cfg,
		limiter:   NewLimiter(cfg.RPM, cfg.Burst),
		logger:    logger,
	}
}

// ProcessDir extracts the files under dir. Hidden files are ignored.
func (p *Processor) ProcessDir(ctx context.Context, dir, outputPath string) (*Result, error) {
	items, err := p.listDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory: %w", err)
	}
	return p.Process(ctx, items, outputPath)
}

// ProcessFiles extracts the given files in order.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, outputPath string) (*Result, error) {
	items := make([]InputItem, len(paths))
	for i, path := range paths {
		items[i] = InputItem{ID: fmt.Sprintf("file-%d", i+1), Path: path}
	}
	return p.Process(ctx, items, outputPath)
}

// Process runs the items through a worker pool. Items keep their input
// order in the result.
func (p *Processor) Process(ctx context.Context, items []InputItem, outputPath string) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		Total:     len(items),
		StartTime: startTime,
		Items:     make([]OutputItem, len(items)),
	}

	concurrency := min(p.config.MaxConcurrency, max(len(items), 1))
	progress := &ProgressTracker{Total: len(items), StartTime: startTime}

	p.logger.Info("Starting batch extraction",
		zap.Int("total_items", len(items)),
		zap.Int("concurrency", concurrency),
		zap.Int("rpm_limit", p.config.RPM),
	)

	indexes := make(chan int, len(items))
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, items, indexes, result.Items, progress)
		}()
	}
	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, out := range result.Items {
		switch {
		case out.Success:
			result.Success++
			if out.NeedsReview {
				result.Review++
			}
		case out.Error == skipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	p.logPerformanceStats(result)

	if outputPath != "" {
		if err := p.saveOutputFile(outputPath, result); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	}
	return result, nil
}

func (p *Processor) worker(ctx context.Context, items []InputItem, indexes <-chan int, out []OutputItem, progress *ProgressTracker) {
	for i := range indexes {
		item := items[i]
		if err := p.limiter.Wait(ctx); err != nil {
			out[i] = OutputItem{
				ID:        item.ID,
				Path:      item.Path,
				Error:     fmt.Sprintf("rate limit error: %v", err),
				Timestamp: time.Now(),
			}
			continue
		}

		out[i] = p.processItem(ctx, item)

		if n := progress.Increment(); n%100 == 0 {
			p.logger.Info("Batch progress",
				zap.Int("completed", n),
				zap.Int("total", progress.Total),
				zap.Float64("percent", progress.Percent()),
				zap.Duration("elapsed", progress.Elapsed()),
				zap.Duration("eta", progress.ETA()),
			)
		}
	}
}

func (p *Processor) processItem(ctx context.Context, item InputItem) OutputItem {
	output := OutputItem{
		ID:        item.ID,
		Path:      item.Path,
		Timestamp: time.Now(),
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		output.Error = err.Error()
		return output
	}
	if info.Size() == 0 || (p.config.MaxFileSize > 0 && info.Size() > p.config.MaxFileSize) {
		output.Error = skipped
		return output
	}
	data, err := os.ReadFile(item.Path)
	if err != nil {
		output.Error = err.Error()
		return output
	}

	processCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	doc := p.extractor.ExtractDocument(processCtx, rfq.Attachment{
		Filename:    filepath.Base(item.Path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(item.Path))),
		Data:        data,
		Size:        info.Size(),
	})
	output.ResponseTime = time.Since(start)

	if errors.Is(processCtx.Err(), context.DeadlineExceeded) {
		// the document is still usable; tiers after the deadline were skipped
		p.logger.Warn("Extraction hit the timeout",
			zap.String("file", item.Path),
			zap.Duration("timeout", p.config.Timeout),
		)
	}

	output.Document = doc
	output.ItemCount = len(doc.Items)
	output.NeedsReview = doc.NeedsManualReview()
	output.Success = true
	return output
}

func (p *Processor) listDir(dir string) ([]InputItem, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != dir
		if d.IsDir() {
			if path != dir && (hidden || !p.config.Recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden && d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	items := make([]InputItem, len(paths))
	for i, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		items[i] = InputItem{ID: rel, Path: path}
	}
	return items, nil
}

// saveOutputFile writes the result as JSON (.json), one document per line
// (.jsonl), or a plain-text report.
func (p *Processor) saveOutputFile(path string, result *Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case ".jsonl":
		encoder := json.NewEncoder(file)
		for _, item := range result.Items {
			if err := encoder.Encode(item); err != nil {
				return err
			}
		}
		return nil
	}

	for _, item := range result.Items {
		fmt.Fprintf(file, "=== %s ===\n", item.ID)
		if item.Error != "" {
			fmt.Fprintf(file, "Error: %s\n\n", item.Error)
			continue
		}
		doc := item.Document
		fmt.Fprintf(file, "Format: %s | Method: %s | RFQ: %s\n", doc.FormatKind, doc.ExtractionMethod, doc.RFQNumber)
		for _, it := range doc.Items {
			fmt.Fprintf(file, "  %g %s  %s\n", it.Quantity, it.Unit, it.Description)
		}
		fmt.Fprintf(file, "Items: %d | Review: %v | Time: %v\n\n", item.ItemCount, item.NeedsReview, item.ResponseTime)
	}
	return nil
}

func (p *Processor) logPerformanceStats(result *Result) {
	minutes := result.Duration.Minutes()
	if minutes == 0 {
		minutes = 0.001
	}
	p.logger.Info("Batch extraction complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("needs_review", result.Review),
		zap.Duration("duration", result.Duration),
		zap.Float64("docs_per_minute", float64(result.Success)/minutes),
	)
}

func (r *Result) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== Batch Extraction Summary ===\n")
	sb.WriteString(fmt.Sprintf("Total:     %d\n", r.Total))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", r.Success))
	sb.WriteString(fmt.Sprintf("Review:    %d\n", r.Review))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Skipped:   %d\n", r.Skipped))
	sb.WriteString(fmt.Sprintf("Duration:  %v\n", r.Duration))
	return sb.String()
}

func (r *Result) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
