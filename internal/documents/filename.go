package documents

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

var (
	filenameSeparators = regexp.MustCompile(`[_\s.+]+|-{2,}|\s-\s`)
	filenameNoise      = regexp.MustCompile(`(?i)^(?:scan|scanned|img|image|doc|document|copie|copy|final|v\d+|\d{1,2}|\d{8}|\d{4}-\d{2}-\d{2})$`)
)

// FilenameHints is what can still be said about a document whose content
// could not be read.
type FilenameHints struct {
	Reference   string
	Brand       string
	Description string
}

// ParseFilename reads a reference number, a brand and a description from
// a file name such as "RFQ_2024-118_Pompe_Grundfos_CR10.pdf".
func ParseFilename(v *vocab.Vocabulary, filename string) FilenameHints {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	spaced := strings.TrimSpace(filenameSeparators.ReplaceAllString(base, " "))

	h := FilenameHints{
		Reference: FindReference(spaced),
		Brand:     v.DetectBrand(spaced),
	}
	if h.Reference == "" {
		if m := referencePatterns[2].FindStringSubmatch(vocab.Fold(base)); m != nil {
			h.Reference = strings.ToUpper(m[1])
		}
	}

	rfqWords := make(map[string]bool)
	for _, k := range v.RFQKeywords() {
		rfqWords[vocab.Key(k)] = true
	}
	refParts := make(map[string]bool)
	for _, p := range strings.FieldsFunc(strings.ToLower(h.Reference), func(r rune) bool { return r == '-' || r == '/' || r == '_' }) {
		refParts[p] = true
	}

	var words []string
	for _, w := range strings.Fields(spaced) {
		k := vocab.Key(w)
		if rfqWords[k] || refParts[k] || filenameNoise.MatchString(w) {
			continue
		}
		if h.Reference != "" && strings.EqualFold(w, h.Reference) {
			continue
		}
		if k == "no" || k == "n°" || k == "ref" {
			continue
		}
		words = append(words, w)
	}
	if desc := strings.Join(words, " "); hasLetters(desc) && len([]rune(desc)) >= rfq.MinDescriptionLength {
		h.Description = desc
	}
	return h
}

// Items turns the hints into at most one reviewable item.
func (h FilenameHints) Items() []rfq.LineItem {
	if h.Description == "" {
		return nil
	}
	return []rfq.LineItem{{
		Description:       h.Description,
		Quantity:          1,
		Unit:              rfq.UnitPieces,
		Brand:             h.Brand,
		Reference:         h.Reference,
		IsEstimated:       true,
		NeedsManualReview: true,
		Notes:             "derived from file name",
	}}
}

func hasLetters(s string) bool {
	for _, r := range s {
		if r > 0x7f || (r|0x20 >= 'a' && r|0x20 <= 'z') {
			return true
		}
	}
	return false
}
