package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gmsas95/rfqextract/internal/config"
	"github.com/gmsas95/rfqextract/internal/rfq"
)

// captureStdout redirects command output into a buffer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

// isolate keeps config and .env lookups away from the developer's files.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("RFQ_OCR_DISABLED", "true")
	t.Setenv("RFQ_LOG_LEVEL", "error")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const csvRFQ = "Désignation;Qté;Unité\nRoulement SKF 6205;4;pcs\nJoint spi 40x62x7;10;u\n"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"1234567890", "1234...7890"},
		{"1234567890abcdef", "1234...cdef"},
		{"short", "***"},
		{"", "***"},
		{"1234567", "***"},
	}

	for _, tt := range tests {
		result := maskToken(tt.token)
		if result != tt.expected {
			t.Errorf("maskToken(%q) = %q, want %q", tt.token, result, tt.expected)
		}
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Vanne  DN50", "Vanne DN50"},
		{"A|B", `A\|B`},
		{"line\nbreak", "line break"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cell(tt.in); got != tt.want {
			t.Errorf("cell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemsMarkdown(t *testing.T) {
	md := itemsMarkdown([]rfq.LineItem{
		{Description: "Vanne papillon DN50", Quantity: 2, Unit: "pcs", InternalCode: "A-100", Brand: "KSB"},
		{Description: "Joint", Quantity: 1.5, Unit: "m", SupplierCode: "J-7", IsEstimated: true, NeedsManualReview: true},
	})

	lines := strings.Split(strings.TrimSpace(md), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header, separator and 2 rows, got %d lines", len(lines))
	}
	if lines[2] != "| 1 | 2 | pcs | Vanne papillon DN50 | A-100 | KSB |  |" {
		t.Errorf("Unexpected row: %s", lines[2])
	}
	if lines[3] != "| 2 | 1.5? | m | Joint | J-7 |  | yes |" {
		t.Errorf("Unexpected row: %s", lines[3])
	}
}

func TestRenderer_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	if r.pretty {
		t.Fatal("Buffer output must not be styled")
	}

	r.document(&rfq.ExtractedDocument{
		Filename:          "demande.pdf",
		FormatKind:        rfq.FormatPDF,
		ExtractionMethod:  "filename",
		NeedsVerification: true,
		EmailMetadata:     &rfq.EmailMetadata{Deadline: "15/06/2024", IsUrgent: true},
		Items:             []rfq.LineItem{{Description: "Article", Quantity: 1, Unit: "pcs"}},
	})

	out := buf.String()
	for _, want := range []string{"demande.pdf", "Method: filename", "needs manual review", "Deadline: 15/06/2024", "Urgent: yes", "| 1 | 1 | pcs | Article |"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("Plain output contains ANSI escapes")
	}
}

func TestConfigView_MasksSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Watch.JWTSecret = "supersecretvalue"

	view := configView(cfg)
	watch := view["watch"].(map[string]any)
	if watch["jwt_secret"] != "supe...alue" {
		t.Errorf("Secret not masked: %v", watch["jwt_secret"])
	}
	ocr := view["ocr"].(map[string]any)
	if ocr["dpi"] != 300 {
		t.Errorf("Unexpected dpi: %v", ocr["dpi"])
	}
}

func TestPrintFunctions(t *testing.T) {
	buf := captureStdout(t)

	PrintExtendedHelp()
	PrintExtractHelp()
	PrintEmailHelp()
	PrintRequestHelp()
	PrintClassifyHelp()
	PrintBatchHelp()
	PrintWatchHelp()
	PrintConfigHelp()

	if !strings.Contains(buf.String(), "rfqextract dev") {
		t.Error("Help does not show the version")
	}
}

func TestHandleCommandsNoArgs(t *testing.T) {
	buf := captureStdout(t)

	handlers := map[string]func([]string) error{
		"extract":  HandleExtractCommand,
		"email":    HandleEmailCommand,
		"request":  HandleRequestCommand,
		"classify": HandleClassifyCommand,
		"batch":    HandleBatchCommand,
		"watch":    HandleWatchCommand,
		"config":   HandleConfigCommand,
	}
	for name, handle := range handlers {
		buf.Reset()
		if err := handle(nil); err != nil {
			t.Errorf("%s with no args: %v", name, err)
		}
		if !strings.Contains(buf.String(), "Usage: rfqextract "+name) {
			t.Errorf("%s with no args did not print its usage:\n%s", name, buf.String())
		}
	}
}

func TestHandleCommandsHelpFlag(t *testing.T) {
	captureStdout(t)
	if err := HandleExtractCommand([]string{"-h"}); err != nil {
		t.Errorf("-h should not fail: %v", err)
	}
	if err := HandleExtractCommand([]string{"-bogus"}); err == nil {
		t.Error("Unknown flag should fail")
	}
}

func TestHandleExtractCommand_JSON(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)
	path := writeFile(t, "besoin.csv", csvRFQ)

	if err := HandleExtractCommand([]string{"-json", path}); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var doc rfq.ExtractedDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, buf.String())
	}
	if doc.Filename != "besoin.csv" {
		t.Errorf("Unexpected filename: %s", doc.Filename)
	}
	if len(doc.Items) != 2 || doc.Items[0].Description != "Roulement SKF 6205" {
		t.Errorf("Unexpected items: %+v", doc.Items)
	}
}

func TestHandleExtractCommand_MissingFile(t *testing.T) {
	isolate(t)
	captureStdout(t)
	if err := HandleExtractCommand([]string{filepath.Join(t.TempDir(), "nope.pdf")}); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestHandleEmailCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)
	body := writeFile(t, "body.txt", "Bonjour,\nMerci de nous chiffrer :\n- 4 Roulement SKF 6205\n- 10 Joint spi 40x62x7\nCordialement\n")

	if err := HandleEmailCommand([]string{"-subject", "Demande de prix DA-2024-118", "-json", body}); err != nil {
		t.Fatalf("email failed: %v", err)
	}

	var doc rfq.ExtractedDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if doc.FormatKind != rfq.FormatEmail {
		t.Errorf("Expected email format, got %s", doc.FormatKind)
	}
	if !doc.NeedsVerification {
		t.Error("Email extraction must be flagged for verification")
	}
	if len(doc.Items) == 0 {
		t.Error("Expected at least one item")
	}
}

func TestHandleRequestCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)
	csvPath := writeFile(t, "demande_prix.csv", csvRFQ)

	if err := HandleRequestCommand([]string{"-subject", "RFQ", "-json", csvPath}); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var payload struct {
		Items      []rfq.LineItem `json:"items"`
		Classified []rfq.ClassifiedAttachment
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Errorf("Expected 2 merged items, got %+v", payload.Items)
	}
	if len(payload.Classified) != 1 {
		t.Errorf("Expected 1 classified attachment, got %d", len(payload.Classified))
	}
}

func TestHandleClassifyCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)
	rfqPath := writeFile(t, "demande_prix.csv", csvRFQ)

	if err := HandleClassifyCommand([]string{rfqPath}); err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "demande_prix.csv") || !strings.Contains(out, "Same brand:") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestHandleBatchCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte(csvRFQ), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "result.json")

	if err := HandleBatchCommand([]string{"-i", dir, "-o", out, "-c", "2"}); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Success:   1") {
		t.Errorf("Unexpected summary:\n%s", buf.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Output file not written: %v", err)
	}
}

func TestHandleBatchCommand_MissingDir(t *testing.T) {
	captureStdout(t)
	if err := HandleBatchCommand([]string{"-i", filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestHandleConfigCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)

	if err := HandleConfigCommand([]string{"path"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(buf.String()), filepath.Join("rfqextract", "rfqextract.yaml")) {
		t.Errorf("Unexpected path: %s", buf.String())
	}

	buf.Reset()
	if err := HandleConfigCommand([]string{"validate"}); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "valid") {
		t.Errorf("Unexpected output: %s", buf.String())
	}

	buf.Reset()
	if err := HandleConfigCommand([]string{"show"}); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(buf.String(), "languages: fra+eng") {
		t.Errorf("Unexpected config:\n%s", buf.String())
	}

	bad := writeFile(t, "bad.yaml", "ocr:\n  dpi: -1\n")
	if err := HandleConfigCommand([]string{"validate", "-config", bad}); err == nil {
		t.Error("Expected validation error")
	}
}

func TestHandleTokenCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)

	if err := HandleTokenCommand(nil); err == nil {
		t.Error("Expected error without secret")
	}

	t.Setenv("RFQ_WATCH_JWT_SECRET", "s3cret")
	if err := HandleTokenCommand([]string{"-ttl", "1h"}); err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if strings.Count(strings.TrimSpace(buf.String()), ".") != 2 {
		t.Errorf("Output is not a JWT: %s", buf.String())
	}
}

func TestHandleDoctorCommand(t *testing.T) {
	isolate(t)
	buf := captureStdout(t)

	if err := HandleDoctorCommand(nil); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Config: Loaded successfully", "tesseract", "pdftotext"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Doctor output missing %q", want)
		}
	}
}
