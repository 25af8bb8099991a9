package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rfqextract.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OCR.Languages != "fra+eng" {
		t.Errorf("Expected fra+eng, got %s", cfg.OCR.Languages)
	}
	if cfg.OCR.DPI != 300 {
		t.Errorf("Expected DPI 300, got %d", cfg.OCR.DPI)
	}
	if len(cfg.OCR.Rotations) != 4 || cfg.OCR.Rotations[0] != 0 {
		t.Errorf("Unexpected rotations: %v", cfg.OCR.Rotations)
	}
	if cfg.Layout.VerticalTolerance != 3.0 || cfg.Layout.GapMultiplier != 1.8 {
		t.Errorf("Unexpected layout defaults: %+v", cfg.Layout)
	}
	if cfg.Extraction.MaxItems != 100 {
		t.Errorf("Expected MaxItems 100, got %d", cfg.Extraction.MaxItems)
	}
	if cfg.Tools.Timeout != 60*time.Second {
		t.Errorf("Expected tool timeout 60s, got %v", cfg.Tools.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
ocr:
  dpi: 200
  languages: fra
layout:
  min_gap: 20
batch:
  concurrency: 8
  timeout: 45s
vocabulary:
  extra_brands: [Zorblax, Quuxflow]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OCR.DPI != 200 {
		t.Errorf("Expected DPI 200, got %d", cfg.OCR.DPI)
	}
	if cfg.OCR.Languages != "fra" {
		t.Errorf("Expected fra, got %s", cfg.OCR.Languages)
	}
	if cfg.Layout.MinGap != 20 {
		t.Errorf("Expected MinGap 20, got %f", cfg.Layout.MinGap)
	}
	if cfg.Batch.Concurrency != 8 || cfg.Batch.Timeout != 45*time.Second {
		t.Errorf("Unexpected batch config: %+v", cfg.Batch)
	}
	if len(cfg.Vocabulary.ExtraBrands) != 2 {
		t.Errorf("Expected 2 extra brands, got %v", cfg.Vocabulary.ExtraBrands)
	}
	// untouched keys keep their defaults
	if cfg.Extraction.MaxQuantity != 100000 {
		t.Errorf("Expected default MaxQuantity, got %f", cfg.Extraction.MaxQuantity)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if apperrors.GetCode(err) != apperrors.ErrConfigNotFound.Code {
		t.Errorf("Expected config not found code, got %s", apperrors.GetCode(err))
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OCR.DPI != 300 {
		t.Errorf("Expected default DPI, got %d", cfg.OCR.DPI)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("RFQ_BATCH_CONCURRENCY", "2")
	t.Setenv("RFQ_OCR_DPI", "150")
	t.Setenv("PDFTOTEXT_PATH", "/opt/poppler/pdftotext")
	t.Setenv("RFQ_VOCABULARY_EXTRA_BRANDS", "Zorblax, ,Quuxflow")
	t.Setenv("RFQ_OCR_DISABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Batch.Concurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", cfg.Batch.Concurrency)
	}
	if cfg.OCR.DPI != 150 {
		t.Errorf("Expected DPI 150, got %d", cfg.OCR.DPI)
	}
	if cfg.PDF.PdftotextPath != "/opt/poppler/pdftotext" {
		t.Errorf("Alias not applied: %s", cfg.PDF.PdftotextPath)
	}
	if strings.Join(cfg.Vocabulary.ExtraBrands, "|") != "Zorblax|Quuxflow" {
		t.Errorf("Unexpected brands: %v", cfg.Vocabulary.ExtraBrands)
	}
	if !cfg.OCR.Disabled {
		t.Error("Expected OCR to be disabled")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "ocr: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.OCR.DPI = 0
	cfg.OCR.Rotations = []int{0, 45}
	cfg.Batch.Concurrency = 0
	cfg.Batch.RPM = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if apperrors.GetCode(err) != apperrors.ErrConfigInvalid.Code {
		t.Errorf("Expected config invalid code, got %s", apperrors.GetCode(err))
	}
	for _, want := range []string{"ocr.dpi", "45 is not a right angle", "batch.concurrency", "batch.rpm"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error %q does not mention %s", err.Error(), want)
		}
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.OCR.Disabled = true
	cfg.Tools.TempDir = "/tmp/rfq"
	cfg.Batch.Concurrency = 3

	v, err := cfg.LoadVocabulary()
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	opts := cfg.PipelineOptions(v, nil)

	if opts.Vocabulary != v {
		t.Error("Vocabulary not passed through")
	}
	if !opts.DisableOCR {
		t.Error("DisableOCR not mapped")
	}
	if opts.TempDir != "/tmp/rfq" || opts.Concurrency != 3 {
		t.Errorf("Unexpected options: temp=%s concurrency=%d", opts.TempDir, opts.Concurrency)
	}
	if opts.OCR.DPI != 300 || opts.OCR.Languages != "fra+eng" {
		t.Errorf("OCR options not mapped: %+v", opts.OCR)
	}
	if opts.Layout.GapMultiplier != 1.8 {
		t.Errorf("Layout options not mapped: %+v", opts.Layout)
	}
	if opts.Tools.BreakerFailures != 5 {
		t.Errorf("Tool options not mapped: %+v", opts.Tools)
	}
	if opts.Extraction.MaxItems != 100 {
		t.Errorf("Extraction options not mapped: %+v", opts.Extraction)
	}
}

func TestLoadVocabulary_ExtraBrands(t *testing.T) {
	cfg := Default()
	cfg.Vocabulary.ExtraBrands = []string{"Zorblax"}

	v, err := cfg.LoadVocabulary()
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if v.DetectBrand("Vanne Zorblax DN50") == "" {
		t.Error("Extra brand not detected")
	}
}

func TestLoadVocabulary_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	if err := os.WriteFile(path, []byte("extra_brands: [Quuxflow]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.Vocabulary.File = path
	cfg.Vocabulary.ExtraBrands = []string{"Zorblax"}

	v, err := cfg.LoadVocabulary()
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if v.DetectBrand("pompe Quuxflow") == "" || v.DetectBrand("pompe Zorblax") == "" {
		t.Error("Expected both file and extra brands")
	}
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	cfg := Default()
	cfg.Vocabulary.File = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.LoadVocabulary(); err == nil {
		t.Error("Expected error for missing vocabulary file")
	}
}

func TestNewLogger(t *testing.T) {
	for _, lc := range []LogConfig{
		{Level: "debug", Development: true},
		{Level: "warn"},
		{Level: "bogus"},
	} {
		logger, err := lc.NewLogger()
		if err != nil {
			t.Fatalf("NewLogger(%+v) failed: %v", lc, err)
		}
		logger.Debug("test")
	}
}
