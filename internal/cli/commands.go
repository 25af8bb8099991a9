package cli

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gmsas95/rfqextract/internal/api"
	"github.com/gmsas95/rfqextract/internal/config"
	"github.com/gmsas95/rfqextract/internal/metrics"
	"github.com/gmsas95/rfqextract/internal/rfq"
)

func HandleExtractCommand(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	showStats := fs.Bool("stats", false, "Print extraction metrics at the end")
	fs.Usage = PrintExtractHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() == 0 {
		PrintExtractHelp()
		return nil
	}

	attachments, err := readAttachments(fs.Args())
	if err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	docs := make([]*rfq.ExtractedDocument, 0, len(attachments))
	for _, a := range attachments {
		docs = append(docs, e.pipeline.ExtractDocument(e.ctx, a))
	}

	r := newRenderer(stdout)
	if *asJSON {
		if len(docs) == 1 {
			return r.json(docs[0])
		}
		return r.json(docs)
	}
	for _, doc := range docs {
		r.document(doc)
	}
	if *showStats {
		printStats(r)
	}
	return nil
}

func HandleEmailCommand(args []string) error {
	fs := flag.NewFlagSet("email", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	subject := fs.String("subject", "", "Email subject")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	fs.Usage = PrintEmailHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		PrintEmailHelp()
		return nil
	}

	body, err := readText(fs.Arg(0))
	if err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	doc := e.pipeline.ExtractEmailBody(e.ctx, body, *subject)
	r := newRenderer(stdout)
	if *asJSON {
		return r.json(doc)
	}
	r.document(doc)
	return nil
}

// HandleRequestCommand runs a whole incoming request: body, subject and
// attachments.
func HandleRequestCommand(args []string) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	bodyPath := fs.String("body", "", "File holding the email body (text or HTML), - for stdin")
	subject := fs.String("subject", "", "Email subject")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	fs.Usage = PrintRequestHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() == 0 && *bodyPath == "" && *subject == "" {
		PrintRequestHelp()
		return nil
	}

	body, err := readText(*bodyPath)
	if err != nil {
		return err
	}
	attachments, err := readAttachments(fs.Args())
	if err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	res := e.pipeline.ExtractAll(e.ctx, attachments, body, *subject)
	r := newRenderer(stdout)
	if *asJSON {
		return r.json(res)
	}
	r.result(res)
	return nil
}

func HandleClassifyCommand(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	fs.Usage = PrintClassifyHelp
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() == 0 {
		PrintClassifyHelp()
		return nil
	}

	attachments, err := readAttachments(fs.Args())
	if err != nil {
		return err
	}
	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	classified := e.pipeline.ClassifyAttachments(attachments)
	sameBrand := e.pipeline.AllSameBrand(classified)
	r := newRenderer(stdout)
	if *asJSON {
		return r.json(map[string]any{
			"attachments":    classified,
			"all_same_brand": sameBrand,
		})
	}
	r.classification(classified, sameBrand)
	return nil
}

func HandleConfigCommand(args []string) error {
	if len(args) == 0 {
		PrintConfigHelp()
		return nil
	}

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if ok, err := parseFlags(fs, args[1:]); !ok {
		return err
	}

	switch args[0] {
	case "path":
		path := *configPath
		if path == "" {
			path = defaultConfigPath()
		}
		fmt.Fprintln(stdout, path)

	case "show", "view":
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(configView(cfg))
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, string(data))

	case "defaults":
		data, err := yaml.Marshal(configView(config.Default()))
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, string(data))

	case "validate":
		if _, err := config.Load(*configPath); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "✓ Configuration is valid")

	default:
		PrintConfigHelp()
	}
	return nil
}

func defaultConfigPath() string {
	return config.DefaultDataDir() + string(os.PathSeparator) + "rfqextract.yaml"
}

// configView is the YAML shape of the configuration, secrets masked.
func configView(cfg *config.Config) map[string]any {
	secret := ""
	if cfg.Watch.JWTSecret != "" {
		secret = maskToken(cfg.Watch.JWTSecret)
	}
	return map[string]any{
		"ocr": map[string]any{
			"languages":          cfg.OCR.Languages,
			"dpi":                cfg.OCR.DPI,
			"min_chars_per_page": cfg.OCR.MinCharsPerPage,
			"max_pages":          cfg.OCR.MaxPages,
			"good_enough_words":  cfg.OCR.GoodEnoughWords,
			"rotations":          cfg.OCR.Rotations,
			"tesseract_path":     cfg.OCR.TesseractPath,
			"pdftoppm_path":      cfg.OCR.PdftoppmPath,
			"disabled":           cfg.OCR.Disabled,
		},
		"pdf": map[string]any{
			"min_text_chars": cfg.PDF.MinTextChars,
			"max_pages":      cfg.PDF.MaxPages,
			"pdftotext_path": cfg.PDF.PdftotextPath,
		},
		"layout": map[string]any{
			"vertical_tolerance": cfg.Layout.VerticalTolerance,
			"min_gap":            cfg.Layout.MinGap,
			"dynamic_gap":        cfg.Layout.DynamicGap,
			"gap_multiplier":     cfg.Layout.GapMultiplier,
		},
		"extraction": map[string]any{
			"max_items":              cfg.Extraction.MaxItems,
			"max_quantity":           cfg.Extraction.MaxQuantity,
			"min_description_length": cfg.Extraction.MinDescriptionLength,
		},
		"tools": map[string]any{
			"timeout":          cfg.Tools.Timeout.String(),
			"breaker_failures": cfg.Tools.BreakerFailures,
			"breaker_cooldown": cfg.Tools.BreakerCooldown.String(),
			"temp_dir":         cfg.Tools.TempDir,
			"antiword_path":    cfg.Tools.AntiwordPath,
		},
		"vocabulary": map[string]any{
			"file":         cfg.Vocabulary.File,
			"extra_brands": cfg.Vocabulary.ExtraBrands,
		},
		"batch": map[string]any{
			"concurrency": cfg.Batch.Concurrency,
			"timeout":     cfg.Batch.Timeout.String(),
			"rpm":         cfg.Batch.RPM,
			"burst":       cfg.Batch.Burst,
		},
		"watch": map[string]any{
			"output_dir":  cfg.Watch.OutputDir,
			"settle":      cfg.Watch.Settle.String(),
			"sweep":       cfg.Watch.Sweep,
			"ledger_dir":  cfg.Watch.LedgerDir,
			"ledger_ttl":  cfg.Watch.LedgerTTL.String(),
			"status_addr": cfg.Watch.StatusAddr,
			"jwt_secret":  secret,
			"concurrency": cfg.Watch.Concurrency,
		},
		"log": map[string]any{
			"level":       cfg.Log.Level,
			"development": cfg.Log.Development,
		},
	}
}

// HandleTokenCommand prints a bearer token for the watch status API.
func HandleTokenCommand(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	subject := fs.String("subject", "ops", "Token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	token, err := api.IssueToken(cfg.Watch.JWTSecret, *subject, *ttl)
	if err != nil {
		return fmt.Errorf("cannot issue token (set watch.jwt_secret): %w", err)
	}
	fmt.Fprintln(stdout, token)
	return nil
}

// HandleDoctorCommand checks the configuration and the external tools the
// OCR and legacy-format tiers rely on.
func HandleDoctorCommand(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	fmt.Fprintln(stdout, "rfqextract Diagnostics")
	fmt.Fprintln(stdout, "======================")
	fmt.Fprintln(stdout)

	issues := 0
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stdout, "❌ Config: Error loading configuration")
		fmt.Fprintf(stdout, "   %v\n", err)
		cfg = config.Default()
		issues++
	} else {
		fmt.Fprintln(stdout, "✅ Config: Loaded successfully")
	}

	if _, err := cfg.LoadVocabulary(); err != nil {
		fmt.Fprintf(stdout, "❌ Vocabulary: %v\n", err)
		issues++
	} else {
		fmt.Fprintln(stdout, "✅ Vocabulary: Loaded")
	}

	for _, tool := range []struct {
		name, path, usedFor, install string
	}{
		{"pdftotext", cfg.PDF.PdftotextPath, "PDF layout text", "sudo apt-get install poppler-utils"},
		{"pdftoppm", cfg.OCR.PdftoppmPath, "scanned PDF OCR", "sudo apt-get install poppler-utils"},
		{"tesseract", cfg.OCR.TesseractPath, "OCR", "sudo apt-get install tesseract-ocr tesseract-ocr-fra"},
		{"antiword", cfg.Tools.AntiwordPath, "legacy .doc files", "sudo apt-get install antiword"},
	} {
		if _, err := exec.LookPath(tool.path); err != nil {
			fmt.Fprintf(stdout, "⚠️  %s: Not found (required for %s)\n", tool.name, tool.usedFor)
			fmt.Fprintf(stdout, "   Install: %s\n", tool.install)
			issues++
		} else {
			fmt.Fprintf(stdout, "✅ %s: Found\n", tool.name)
		}
	}
	if cfg.OCR.Disabled {
		fmt.Fprintln(stdout, "ℹ️  OCR is disabled by configuration")
	}

	fmt.Fprintln(stdout)
	if issues == 0 {
		fmt.Fprintln(stdout, "✅ All checks passed!")
	} else {
		fmt.Fprintf(stdout, "⚠️  Found %d issue(s). Extraction still works; affected tiers fall back to the next one.\n", issues)
	}
	return nil
}

func printStats(r *renderer) {
	s := metrics.GetSnapshot()
	r.title("Metrics")
	r.field("Documents", fmt.Sprint(s.Documents))
	r.field("Line items", fmt.Sprint(s.LineItems))
	r.field("Placeholders", fmt.Sprintf("%d (%.0f%%)", s.Placeholders, s.PlaceholderRate))
	r.field("OCR pages", fmt.Sprint(s.OCRPages))
	r.field("Tool failures", fmt.Sprint(s.ToolFailures))
}

func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
