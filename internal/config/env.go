package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFiles reads KEY=value pairs from ./.env and the data directory's
// .env. Variables already set in the environment win.
func LoadEnvFiles() error {
	envPaths := []string{
		"./.env",
		filepath.Join(DefaultDataDir(), ".env"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths, filepath.Join(home, ".config", "rfqextract", ".env"))
	}

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := loadEnvFile(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = strings.Trim(value, `"`)
		} else if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
			value = strings.Trim(value, `'`)
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func GetEnvWithFallback(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

// Tool locations are commonly exported under these names by installers.
// JWT_SECRET is shared with the deployment's other services.
var envAliases = map[string][]string{
	"RFQ_OCR_TESSERACT_PATH": {"TESSERACT_PATH", "TESSERACT_CMD"},
	"RFQ_OCR_PDFTOPPM_PATH":  {"PDFTOPPM_PATH"},
	"RFQ_PDF_PDFTOTEXT_PATH": {"PDFTOTEXT_PATH"},
	"RFQ_OCR_LANGUAGES":      {"TESSERACT_LANGS", "OCR_LANGUAGES"},
	"RFQ_WATCH_JWT_SECRET":   {"JWT_SECRET"},
}

func ResolveEnvWithAliases(canonicalKey string) string {
	return GetEnvWithFallback(append([]string{canonicalKey}, envAliases[canonicalKey]...)...)
}
