// Package classify sorts the attachments of a request into RFQ documents,
// technical sheets, images and unknowns, and links each technical sheet to
// the RFQ it supplements.
package classify

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/metrics"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const (
	techKeywordWeight = 20
	rfqKeywordWeight  = 15
	referenceBonus    = 25
	spreadsheetPrior  = 20
	pdfPrior          = 10
	smallPDFBytes     = 500 * 1024
	// imagePrior is the base score of a photo that passed the signature filter
	imagePrior = 50
	// extensionFloor is the least an RFQ-bucket document scores; when it
	// lifts the score the reason says so
	extensionFloor = 30
)

var (
	spreadsheetExts = map[string]bool{".xlsx": true, ".xls": true, ".xlsm": true, ".csv": true, ".ods": true}
	wordExts        = map[string]bool{".doc": true, ".docx": true, ".odt": true, ".rtf": true}

	referencePattern = regexp.MustCompile(`(?i)(?:^|[^a-z])((?:rfq|pr|da|po|ref|req|dp)[-_ #]?\d{3,}|\d{5,})`)
	tokenSplit       = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

type Classifier struct {
	vocab  *vocab.Vocabulary
	filter SignatureFilter
	logger *zap.Logger
}

func New(v *vocab.Vocabulary, filter SignatureFilter, logger *zap.Logger) *Classifier {
	if v == nil {
		v = vocab.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{vocab: v, filter: filter, logger: logger}
}

// Classify scores every attachment, then links technical sheets to RFQs.
// The output has one entry per input, in input order.
func (c *Classifier) Classify(attachments []rfq.Attachment) []rfq.ClassifiedAttachment {
	out := make([]rfq.ClassifiedAttachment, len(attachments))
	for i, a := range attachments {
		out[i] = c.classifyOne(a)
		metrics.RecordClassification(string(out[i].Category))
		c.logger.Debug("Attachment classified",
			zap.String("file", a.Filename),
			zap.String("category", string(out[i].Category)),
			zap.Int("confidence", out[i].Confidence),
			zap.String("reason", out[i].Reason),
		)
	}
	linkTechnicalSheets(out)
	return out
}

func (c *Classifier) classifyOne(a rfq.Attachment) rfq.ClassifiedAttachment {
	ca := rfq.ClassifiedAttachment{Attachment: a}

	if ok, reason := c.filter.Check(a); ok {
		ca.Category = rfq.CategoryImage
		ca.Confidence = 100
		ca.Reason = reason
		return ca
	}

	name := filepath.Base(a.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	ca.Brand = c.vocab.DetectBrand(name)

	techScore := vocab.CountKeywords(name, c.vocab.TechKeywords()) * techKeywordWeight
	rfqScore := vocab.CountKeywords(name, c.vocab.RFQKeywords()) * rfqKeywordWeight
	var reasons []string
	if techScore > 0 {
		reasons = append(reasons, "technical keywords")
	}
	if rfqScore > 0 {
		reasons = append(reasons, "rfq keywords")
	}

	if m := referencePattern.FindStringSubmatch(strings.TrimSuffix(name, filepath.Ext(name))); m != nil {
		rfqScore += referenceBonus
		ca.RFQNumberHint = strings.ToUpper(m[1])
		reasons = append(reasons, "reference number")
	}

	switch {
	case spreadsheetExts[ext]:
		rfqScore += spreadsheetPrior
		reasons = append(reasons, "spreadsheet")
	case ext == ".pdf" && techScore == 0 && rfqScore == 0:
		if a.Len() > 0 && a.Len() < smallPDFBytes {
			techScore += pdfPrior
			reasons = append(reasons, "small pdf")
		} else {
			rfqScore += pdfPrior
			reasons = append(reasons, "large pdf")
		}
	}

	knownDoc := ext == ".pdf" || spreadsheetExts[ext] || wordExts[ext]
	switch {
	case techScore > rfqScore && techScore >= 20:
		ca.Category = rfq.CategoryTechnicalSheet
		ca.Confidence = clamp(techScore)
	case IsImage(a):
		// photos without an rfq signal are nameplate candidates
		rfqScore += imagePrior
		reasons = append(reasons, "image prior")
		ca.Category = rfq.CategoryImage
		ca.Confidence = clamp(rfqScore)
	case rfqScore >= 10 || knownDoc:
		if rfqScore < extensionFloor {
			rfqScore = extensionFloor
			reasons = append(reasons, "extension floor")
		}
		ca.Category = rfq.CategoryRFQ
		ca.Confidence = clamp(rfqScore)
	default:
		ca.Category = rfq.CategoryUnknown
		ca.Confidence = clamp(max(techScore, rfqScore))
	}
	ca.Reason = strings.Join(reasons, ", ")
	if ca.Reason == "" {
		ca.Reason = "no signal"
	}
	return ca
}

// linkTechnicalSheets sets RelatedTo on every technical sheet: same brand
// first, then best filename overlap, then the only RFQ if there is one.
func linkTechnicalSheets(items []rfq.ClassifiedAttachment) {
	var rfqs []int
	for i, it := range items {
		if it.Category == rfq.CategoryRFQ {
			rfqs = append(rfqs, i)
		}
	}
	if len(rfqs) == 0 {
		return
	}

	for i := range items {
		ts := &items[i]
		if ts.Category != rfq.CategoryTechnicalSheet {
			continue
		}

		if ts.Brand != "" {
			for _, j := range rfqs {
				if strings.EqualFold(items[j].Brand, ts.Brand) {
					ts.RelatedTo = items[j].Attachment.Filename
					break
				}
			}
			if ts.RelatedTo != "" {
				continue
			}
		}

		best, bestScore := -1, 0.0
		tsTokens := nameTokens(ts.Attachment.Filename)
		for _, j := range rfqs {
			if s := overlap(tsTokens, nameTokens(items[j].Attachment.Filename)); s > bestScore {
				best, bestScore = j, s
			}
		}
		if best >= 0 {
			ts.RelatedTo = items[best].Attachment.Filename
			continue
		}

		if len(rfqs) == 1 {
			ts.RelatedTo = items[rfqs[0]].Attachment.Filename
		}
	}
}

// nameTokens lower-cases the base name and keeps tokens of 3+ characters.
func nameTokens(filename string) map[string]bool {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	out := make(map[string]bool)
	for _, t := range tokenSplit.Split(strings.ToLower(vocab.Fold(base)), -1) {
		if len(t) >= 3 {
			out[t] = true
		}
	}
	return out
}

// overlap is the Jaccard index of two token sets.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
