package documents

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/classify"
	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/ocr"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const (
	MethodNameplate = "nameplate_ocr"
	MethodSignature = "signature_filtered"
)

const plateLabel = `\s*[.:#°]?\s*([A-Z0-9][A-Z0-9./-]{2,})`

var (
	platePart   = regexp.MustCompile(`(?i)\b(?:p\s*/\s*n|part\s*(?:no|number|n°)|ref(?:erence)?|art(?:icle)?\.?\s*(?:no|n°)|code)` + plateLabel)
	plateModel  = regexp.MustCompile(`(?i)\b(?:model|modele|mod|type|typ)\b` + plateLabel)
	plateSerial = regexp.MustCompile(`(?i)(?:\bs\s*/\s*n\b|\bser(?:ial)?\.?\s*(?:no|n°|number|#)?|\bn°\s*(?:de\s+)?serie|\bnumero\s+de\s+serie|\bfab(?:\.|rication)?\s*(?:no|n°))` + plateLabel)
)

// Nameplate holds the fields read off an equipment label.
type Nameplate struct {
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	PartNumber   string `json:"part_number,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

func (n Nameplate) Empty() bool {
	return n.Model == "" && n.PartNumber == "" && n.SerialNumber == ""
}

// ParseNameplate reads label fields from OCR text. Values must carry a
// digit; OCR noise rarely does.
func ParseNameplate(v *vocab.Vocabulary, text string) Nameplate {
	folded := vocab.Fold(text)
	n := Nameplate{Brand: v.DetectBrand(text)}
	n.PartNumber = firstCode(platePart, folded)
	n.Model = firstCode(plateModel, folded)
	n.SerialNumber = firstCode(plateSerial, folded)
	return n
}

func firstCode(re *regexp.Regexp, text string) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := strings.Trim(m[1], ".-/"); hasDigit(v) {
			return v
		}
	}
	return ""
}

// Item describes the labelled equipment as one reviewable line.
func (n Nameplate) Item() rfq.LineItem {
	parts := []string{"Pièce de rechange"}
	if n.Brand != "" {
		parts = append(parts, n.Brand)
	}
	if n.Model != "" {
		parts = append(parts, n.Model)
	}
	if n.PartNumber != "" && n.PartNumber != n.Model {
		parts = append(parts, "P/N "+n.PartNumber)
	}
	code := n.PartNumber
	if code == "" {
		code = n.Model
	}
	return rfq.LineItem{
		Description:       strings.Join(parts, " "),
		Quantity:          1,
		Unit:              rfq.UnitPieces,
		SupplierCode:      code,
		Brand:             n.Brand,
		Reference:         n.Model,
		SerialNumber:      n.SerialNumber,
		IsEstimated:       true,
		NeedsManualReview: true,
		Notes:             "read from nameplate photo",
	}
}

type imageExtractor struct {
	vocab  *vocab.Vocabulary
	filter classify.SignatureFilter
	ocr    *ocr.Engine
	logger *zap.Logger
}

// Extract OCRs the picture once, without rotation search, and reads
// nameplate fields from the text and the file name. Image documents always
// need verification.
func (x *imageExtractor) Extract(ctx context.Context, a rfq.Attachment, scope *tempfs.Scope) (*rfq.ExtractedDocument, error) {
	doc := &rfq.ExtractedDocument{
		Filename:          a.Filename,
		FormatKind:        rfq.FormatImage,
		NeedsVerification: true,
		ExtractionMethod:  MethodNameplate,
	}
	if sig, reason := x.filter.Check(a); sig {
		doc.ExtractionMethod = MethodSignature
		x.logger.Debug("Signature image skipped", zap.String("file", a.Filename), zap.String("reason", reason))
		return doc, nil
	}
	if x.ocr == nil {
		return nil, apperrors.ErrToolMissing.WithCause(nil, "ocr disabled")
	}

	ext := strings.ToLower(filepath.Ext(a.Filename))
	if ext == "" {
		ext = ".png"
	}
	path, err := scope.Write("rfq_img", ext, a.Data)
	if err != nil {
		return nil, err
	}
	res, err := x.ocr.OCRImage(ctx, path)
	if err != nil {
		return nil, err
	}
	doc.RawText = res.Text

	plate := ParseNameplate(x.vocab, res.Text)
	hints := ParseFilename(x.vocab, a.Filename)
	if plate.Brand == "" {
		plate.Brand = hints.Brand
	}
	if !plate.Empty() {
		doc.Items = []rfq.LineItem{plate.Item()}
	}
	doc.RFQNumber = FindReference(res.Text)
	if doc.RFQNumber == "" {
		doc.RFQNumber = hints.Reference
	}
	return doc, nil
}
