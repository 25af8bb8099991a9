package documents

import (
	"regexp"
	"strings"

	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Reference patterns, most explicit first. Matching runs on folded text so
// "Référence" and "reference" are the same.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:purchase\s+)?requisition\s*(?:no|number|n°|#)\.?\s*[:#]?\s*([A-Z0-9][A-Z0-9/_-]{3,})`),
	regexp.MustCompile(`(?i)\bdemande\s+(?:de\s+prix|d'achat|de\s+cotation|de\s+devis)\s*(?:numero|num|no|n°|n)?\.?\s*[:#]?\s*([A-Z0-9][A-Z0-9/_-]{3,})`),
	regexp.MustCompile(`(?i)\b((?:PR|DA|PO|BC|RFQ)[-_/]?\d{4,}(?:[-/]\d+)*)\b`),
	regexp.MustCompile(`(?i)\b(?:rfq|rfi|rfp)\s*(?:no|n°|#)?\.?\s*[:#_-]?\s*([A-Z0-9][A-Z0-9/_-]{2,})`),
	regexp.MustCompile(`(?i)\b(?:notre|votre|our|your)\s+r[ée]f(?:[ée]rence)?\.?\s*[:#]?\s*([A-Z0-9][A-Z0-9/_-]{3,})`),
	regexp.MustCompile(`(?i)\bref(?:erence)?\s*(?:no|n°|#)?\.?\s*[:#]\s*([A-Z0-9][A-Z0-9/_-]{3,})`),
}

// FindReference returns the client's request number found in text, upper
// cased, or "". A candidate must contain a digit.
func FindReference(text string) string {
	if text == "" {
		return ""
	}
	folded := vocab.Fold(text)
	for _, re := range referencePatterns {
		for _, m := range re.FindAllStringSubmatch(folded, -1) {
			ref := strings.Trim(m[1], "-_/")
			if hasDigit(ref) {
				return strings.ToUpper(ref)
			}
		}
	}
	return ""
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
