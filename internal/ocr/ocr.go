// Package ocr is the fallback used when a PDF page or an image carries no
// usable text layer. Pages are rasterized, recognized at a few rotations
// and the most legible attempt wins.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/metrics"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/toolexec"
)

// Rasterizer renders one PDF page to an image file tracked by scope.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, page int, scope *tempfs.Scope) (string, error)
}

// Recognizer turns an image file into text.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

type Config struct {
	Languages       string
	DPI             int
	MinCharsPerPage int
	MaxPages        int
	GoodEnoughWords int
	// Rotations are counter-clockwise degrees tried in order.
	Rotations     []int
	TesseractPath string
	PdftoppmPath  string
}

func DefaultConfig() Config {
	return Config{
		Languages:       "fra+eng",
		DPI:             300,
		MinCharsPerPage: 50,
		MaxPages:        5,
		GoodEnoughWords: 50,
		Rotations:       []int{0, 90, 270, 180},
		TesseractPath:   "tesseract",
		PdftoppmPath:    "pdftoppm",
	}
}

type PageResult struct {
	Page     int    `json:"page"`
	Text     string `json:"text"`
	Rotation int    `json:"rotation"`
	Score    int    `json:"score"`
}

type Result struct {
	Text  string       `json:"text"`
	Pages []PageResult `json:"pages"`
}

type Engine struct {
	config     Config
	rasterizer Rasterizer
	recognizer Recognizer
	logger     *zap.Logger
}

// NewEngine wires pdftoppm and tesseract through runner.
func NewEngine(cfg Config, runner *toolexec.Runner, logger *zap.Logger) *Engine {
	cfg = withDefaults(cfg)
	return NewEngineWith(cfg,
		&Pdftoppm{Runner: runner, Path: cfg.PdftoppmPath, DPI: cfg.DPI},
		&Tesseract{Runner: runner, Path: cfg.TesseractPath, Languages: cfg.Languages},
		logger,
	)
}

// NewEngineWith builds an engine around arbitrary capabilities.
func NewEngineWith(cfg Config, r Rasterizer, rec Recognizer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:     withDefaults(cfg),
		rasterizer: r,
		recognizer: rec,
		logger:     logger,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Languages == "" {
		cfg.Languages = def.Languages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.MinCharsPerPage <= 0 {
		cfg.MinCharsPerPage = def.MinCharsPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.GoodEnoughWords <= 0 {
		cfg.GoodEnoughWords = def.GoodEnoughWords
	}
	if len(cfg.Rotations) == 0 {
		cfg.Rotations = def.Rotations
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = def.TesseractPath
	}
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = def.PdftoppmPath
	}
	return cfg
}

func (e *Engine) Config() Config { return e.config }

// NeedsOCR reports whether a page's native text is too thin to trust.
func (e *Engine) NeedsOCR(text string) bool {
	return UsableChars(text) < e.config.MinCharsPerPage
}

// OCRPDF rasterizes and recognizes the given 1-based pages, at most
// MaxPages of them. With no pages it walks from page 1 until the
// rasterizer fails (past the last page) or MaxPages is reached.
func (e *Engine) OCRPDF(ctx context.Context, pdfPath string, pages []int, scope *tempfs.Scope) (*Result, error) {
	probe := len(pages) == 0
	if probe {
		for p := 1; p <= e.config.MaxPages; p++ {
			pages = append(pages, p)
		}
	}
	if len(pages) > e.config.MaxPages {
		pages = pages[:e.config.MaxPages]
	}

	res := &Result{}
	var lastErr error
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		img, err := e.rasterizer.Rasterize(ctx, pdfPath, page, scope)
		if err != nil {
			lastErr = apperrors.ErrRasterize.WithCause(err, fmt.Sprintf("rasterize page %d", page))
			if probe && page > 1 {
				break
			}
			e.logger.Debug("Rasterize failed", zap.Int("page", page), zap.Error(err))
			continue
		}

		pr, err := e.bestRotation(ctx, img, scope)
		if err != nil {
			lastErr = err
			e.logger.Debug("Page OCR failed", zap.Int("page", page), zap.Error(err))
			continue
		}
		pr.Page = page
		res.Pages = append(res.Pages, pr)
	}

	if len(res.Pages) == 0 && lastErr != nil {
		return res, lastErr
	}
	res.Text = joinPages(res.Pages)
	return res, nil
}

// OCRImage recognizes an image file as-is, without rotation search.
func (e *Engine) OCRImage(ctx context.Context, imagePath string) (*Result, error) {
	text, err := e.recognizer.Recognize(ctx, imagePath)
	if err != nil {
		return nil, apperrors.ErrRecognize.WithCause(err)
	}
	metrics.RecordOCRPage(0)
	text = strings.TrimSpace(text)
	return &Result{
		Text:  text,
		Pages: []PageResult{{Page: 1, Text: text, Score: ScoreText(text)}},
	}, nil
}

// bestRotation tries each configured rotation in order and keeps the
// highest score, stopping as soon as one is good enough.
func (e *Engine) bestRotation(ctx context.Context, imgPath string, scope *tempfs.Scope) (PageResult, error) {
	var (
		best    PageResult
		found   bool
		lastErr error
	)
	for _, rot := range e.config.Rotations {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		path := imgPath
		if rot%360 != 0 {
			rotated, err := rotate(imgPath, rot, scope)
			if err != nil {
				lastErr = err
				continue
			}
			path = rotated
		}

		text, err := e.recognizer.Recognize(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}
		score := ScoreText(text)
		e.logger.Debug("OCR attempt",
			zap.Int("rotation", rot),
			zap.Int("score", score),
		)
		if !found || score > best.Score {
			best = PageResult{Text: strings.TrimSpace(text), Rotation: rot, Score: score}
			found = true
		}
		if score >= e.config.GoodEnoughWords {
			break
		}
	}
	if !found {
		return best, apperrors.ErrRecognize.WithCause(lastErr)
	}
	metrics.RecordOCRPage(best.Rotation)
	return best, nil
}

func rotate(src string, degrees int, scope *tempfs.Scope) (string, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("open raster: %w", err)
	}
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	default:
		img = imaging.Rotate(img, float64(degrees), nil)
	}
	out := scope.Name(fmt.Sprintf("rot%d", degrees), ".png")
	if err := imaging.Save(img, out); err != nil {
		return "", apperrors.ErrTempCreate.WithCause(err)
	}
	return out, nil
}

// ScoreText counts alphabetic words of three letters or more; noise from a
// sideways page rarely forms them.
func ScoreText(text string) int {
	n := 0
	for _, f := range strings.Fields(text) {
		f = strings.TrimFunc(f, unicode.IsPunct)
		if len([]rune(f)) >= 3 && isAlpha(f) {
			n++
		}
	}
	return n
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// UsableChars counts letters and digits.
func UsableChars(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func joinPages(pages []PageResult) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\f\n")
}
