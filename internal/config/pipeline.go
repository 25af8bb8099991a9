package config

import (
	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/documents"
	"github.com/gmsas95/rfqextract/internal/layout"
	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/ocr"
	"github.com/gmsas95/rfqextract/internal/toolexec"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// LoadVocabulary builds the vocabulary from the override file, if any,
// plus the extra brands.
func (c *Config) LoadVocabulary() (*vocab.Vocabulary, error) {
	if c.Vocabulary.File != "" {
		return vocab.LoadFile(c.Vocabulary.File, c.Vocabulary.ExtraBrands...)
	}
	if len(c.Vocabulary.ExtraBrands) == 0 {
		return vocab.Default(), nil
	}
	return vocab.New(vocab.Overrides{ExtraBrands: c.Vocabulary.ExtraBrands}), nil
}

// PipelineOptions maps the configuration onto the extraction pipeline.
func (c *Config) PipelineOptions(v *vocab.Vocabulary, logger *zap.Logger) documents.Options {
	return documents.Options{
		Vocabulary: v,
		Extraction: lineitems.Config{
			MaxItems:             c.Extraction.MaxItems,
			MaxQuantity:          c.Extraction.MaxQuantity,
			MinDescriptionLength: c.Extraction.MinDescriptionLength,
		},
		Layout: layout.Options{
			VerticalTolerance: c.Layout.VerticalTolerance,
			MinGap:            c.Layout.MinGap,
			DynamicGap:        c.Layout.DynamicGap,
			GapMultiplier:     c.Layout.GapMultiplier,
		},
		OCR: ocr.Config{
			Languages:       c.OCR.Languages,
			DPI:             c.OCR.DPI,
			MinCharsPerPage: c.OCR.MinCharsPerPage,
			MaxPages:        c.OCR.MaxPages,
			GoodEnoughWords: c.OCR.GoodEnoughWords,
			Rotations:       c.OCR.Rotations,
			TesseractPath:   c.OCR.TesseractPath,
			PdftoppmPath:    c.OCR.PdftoppmPath,
		},
		PDF: documents.PDFConfig{
			MinTextChars:  c.PDF.MinTextChars,
			MaxPages:      c.PDF.MaxPages,
			PdftotextPath: c.PDF.PdftotextPath,
		},
		Tools: toolexec.Config{
			Timeout:         c.Tools.Timeout,
			BreakerFailures: c.Tools.BreakerFailures,
			BreakerCooldown: c.Tools.BreakerCooldown,
		},
		TempDir:      c.Tools.TempDir,
		AntiwordPath: c.Tools.AntiwordPath,
		DisableOCR:   c.OCR.Disabled,
		Concurrency:  c.Batch.Concurrency,
		Logger:       logger,
	}
}
