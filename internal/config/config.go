package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
)

// Config holds all configuration for rfqextract
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr"`
	PDF        PDFConfig        `mapstructure:"pdf"`
	Layout     LayoutConfig     `mapstructure:"layout"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Log        LogConfig        `mapstructure:"log"`
}

// OCRConfig holds rasterizer and tesseract settings
type OCRConfig struct {
	Languages       string `mapstructure:"languages"`
	DPI             int    `mapstructure:"dpi"`
	MinCharsPerPage int    `mapstructure:"min_chars_per_page"`
	MaxPages        int    `mapstructure:"max_pages"`
	GoodEnoughWords int    `mapstructure:"good_enough_words"`
	Rotations       []int  `mapstructure:"rotations"`
	TesseractPath   string `mapstructure:"tesseract_path"`
	PdftoppmPath    string `mapstructure:"pdftoppm_path"`
	Disabled        bool   `mapstructure:"disabled"`
}

// PDFConfig holds the PDF tier thresholds
type PDFConfig struct {
	MinTextChars  int    `mapstructure:"min_text_chars"`
	MaxPages      int    `mapstructure:"max_pages"`
	PdftotextPath string `mapstructure:"pdftotext_path"`
}

// LayoutConfig holds row and cell detection thresholds
type LayoutConfig struct {
	VerticalTolerance float64 `mapstructure:"vertical_tolerance"`
	MinGap            float64 `mapstructure:"min_gap"`
	DynamicGap        bool    `mapstructure:"dynamic_gap"`
	GapMultiplier     float64 `mapstructure:"gap_multiplier"`
}

// ExtractionConfig holds the line-item limits
type ExtractionConfig struct {
	MaxItems             int     `mapstructure:"max_items"`
	MaxQuantity          float64 `mapstructure:"max_quantity"`
	MinDescriptionLength int     `mapstructure:"min_description_length"`
}

// ToolsConfig holds external process settings
type ToolsConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	TempDir         string        `mapstructure:"temp_dir"`
	AntiwordPath    string        `mapstructure:"antiword_path"`
}

// VocabularyConfig points at an optional YAML override file
type VocabularyConfig struct {
	File        string   `mapstructure:"file"`
	ExtraBrands []string `mapstructure:"extra_brands"`
}

// BatchConfig holds directory processing settings
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RPM         int           `mapstructure:"rpm"`
	Burst       int           `mapstructure:"burst"`
}

// WatchConfig holds folder watching settings
type WatchConfig struct {
	OutputDir string        `mapstructure:"output_dir"`
	Settle    time.Duration `mapstructure:"settle"`
	Sweep     string        `mapstructure:"sweep"`
	// LedgerDir holds the record of extracted files; "" keeps it in memory.
	LedgerDir   string        `mapstructure:"ledger_dir"`
	LedgerTTL   time.Duration `mapstructure:"ledger_ttl"`
	StatusAddr  string        `mapstructure:"status_addr"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Concurrency int           `mapstructure:"concurrency"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from defaults, the config file and the
// environment. An empty configPath looks for rfqextract.yaml in the data
// directory; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(DefaultDataDir(), "rfqextract.yaml")
	}
	configPath = expandPath(configPath)

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.ErrConfigInvalid.WithCause(err, "failed to read config")
		}
	} else if explicit {
		return nil, apperrors.ErrConfigNotFound.WithCause(err, "config file "+configPath)
	}

	// Environment variables (RFQ_OCR_DPI, RFQ_BATCH_CONCURRENCY, etc.)
	v.SetEnvPrefix("RFQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.ErrConfigInvalid.WithCause(err, "failed to unmarshal config")
	}

	loadEnvOverrides(&cfg)
	cfg.Vocabulary.File = expandPath(cfg.Vocabulary.File)
	cfg.Tools.TempDir = expandPath(cfg.Tools.TempDir)
	cfg.Watch.OutputDir = expandPath(cfg.Watch.OutputDir)
	cfg.Watch.LedgerDir = expandPath(cfg.Watch.LedgerDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration without reading any file or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// OCR defaults
	v.SetDefault("ocr.languages", "fra+eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.min_chars_per_page", 50)
	v.SetDefault("ocr.max_pages", 5)
	v.SetDefault("ocr.good_enough_words", 50)
	v.SetDefault("ocr.rotations", []int{0, 90, 270, 180})
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.disabled", false)

	// PDF defaults
	v.SetDefault("pdf.min_text_chars", 50)
	v.SetDefault("pdf.max_pages", 50)
	v.SetDefault("pdf.pdftotext_path", "pdftotext")

	// Layout defaults
	v.SetDefault("layout.vertical_tolerance", 3.0)
	v.SetDefault("layout.min_gap", 15.0)
	v.SetDefault("layout.dynamic_gap", true)
	v.SetDefault("layout.gap_multiplier", 1.8)

	// Extraction defaults
	v.SetDefault("extraction.max_items", 100)
	v.SetDefault("extraction.max_quantity", 100000.0)
	v.SetDefault("extraction.min_description_length", 5)

	// Tools defaults
	v.SetDefault("tools.timeout", 60*time.Second)
	v.SetDefault("tools.breaker_failures", 5)
	v.SetDefault("tools.breaker_cooldown", 30*time.Second)
	v.SetDefault("tools.temp_dir", "")
	v.SetDefault("tools.antiword_path", "antiword")

	v.SetDefault("vocabulary.file", "")
	v.SetDefault("vocabulary.extra_brands", []string{})

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.timeout", 120*time.Second)
	v.SetDefault("batch.rpm", 0)
	v.SetDefault("batch.burst", 1)

	// Watch defaults
	v.SetDefault("watch.output_dir", "")
	v.SetDefault("watch.settle", 2*time.Second)
	v.SetDefault("watch.sweep", "@every 15m")
	v.SetDefault("watch.ledger_dir", filepath.Join(DefaultDataDir(), "ledger"))
	v.SetDefault("watch.ledger_ttl", 30*24*time.Hour)
	v.SetDefault("watch.status_addr", "")
	v.SetDefault("watch.jwt_secret", "")
	v.SetDefault("watch.concurrency", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// DefaultDataDir is where the config file and .env live by default.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rfqextract")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".rfqextract")
}

// loadEnvOverrides applies the tool path aliases viper cannot know about
// and the comma-separated brand list.
func loadEnvOverrides(cfg *Config) {
	if p := ResolveEnvWithAliases("RFQ_OCR_TESSERACT_PATH"); p != "" {
		cfg.OCR.TesseractPath = p
	}
	if p := ResolveEnvWithAliases("RFQ_OCR_PDFTOPPM_PATH"); p != "" {
		cfg.OCR.PdftoppmPath = p
	}
	if p := ResolveEnvWithAliases("RFQ_PDF_PDFTOTEXT_PATH"); p != "" {
		cfg.PDF.PdftotextPath = p
	}
	if l := ResolveEnvWithAliases("RFQ_OCR_LANGUAGES"); l != "" {
		cfg.OCR.Languages = l
	}
	if brands := os.Getenv("RFQ_VOCABULARY_EXTRA_BRANDS"); brands != "" {
		cfg.Vocabulary.ExtraBrands = nil
		for _, b := range strings.Split(brands, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Vocabulary.ExtraBrands = append(cfg.Vocabulary.ExtraBrands, b)
			}
		}
	}
	if secret := ResolveEnvWithAliases("RFQ_WATCH_JWT_SECRET"); secret != "" {
		cfg.Watch.JWTSecret = secret
	}
	if d := os.Getenv("RFQ_OCR_DISABLED"); d != "" {
		if on, err := strconv.ParseBool(d); err == nil {
			cfg.OCR.Disabled = on
		}
	}
}

// Validate rejects thresholds the extractors cannot work with.
func (c *Config) Validate() error {
	var problems []string
	if c.OCR.DPI <= 0 {
		problems = append(problems, "ocr.dpi must be positive")
	}
	for _, r := range c.OCR.Rotations {
		if r%90 != 0 || r < 0 || r >= 360 {
			problems = append(problems, fmt.Sprintf("ocr.rotations: %d is not a right angle", r))
		}
	}
	if c.Layout.VerticalTolerance <= 0 {
		problems = append(problems, "layout.vertical_tolerance must be positive")
	}
	if c.Layout.GapMultiplier <= 0 {
		problems = append(problems, "layout.gap_multiplier must be positive")
	}
	if c.Extraction.MaxQuantity <= 0 {
		problems = append(problems, "extraction.max_quantity must be positive")
	}
	if c.Extraction.MaxItems <= 0 {
		problems = append(problems, "extraction.max_items must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		problems = append(problems, "batch.concurrency must be positive")
	}
	if c.Batch.RPM < 0 {
		problems = append(problems, "batch.rpm must not be negative")
	}
	if c.Watch.Settle <= 0 {
		problems = append(problems, "watch.settle must be positive")
	}
	if len(problems) > 0 {
		return apperrors.ErrConfigInvalid.WithCause(fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
