package lineitems

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// PageBreak marks a form feed in Input.Lines.
const PageBreak = "\f"

const numberPattern = `\d+(?:[.,]\d+)?`

// Units that are only safe inside a fixed UOM column.
const columnUnitPattern = rfq.UnitPattern + `|pair|pr|ens|nr|un|lt|rlx|rl|bx|ctn`

var (
	totalLine        = regexp.MustCompile(`(?i)^(?:grand\s+|sub\s*-?\s*|sous\s*-?\s*)?total\b|^montant\b|^net\s+amount\b|^total\s+ht\b`)
	strongHeaderTerm = regexp.MustCompile(`(?i)\b(?:item\s+code|item\s+description|description|designation|qty|quantit[ye]|qte|uom)\b`)
	headerTerm       = regexp.MustCompile(`(?i)\b(?:item\s+code|item\s+description|description|designation|d[ée]signation|qty|quantit[ye]|qt[ée]|uom|unit[ée]?|gl\s+code|line|ref[ée]rence|part\s+no)\b`)
)

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		parts := strings.Split(raw, PageBreak)
		for i, p := range parts {
			if i > 0 {
				out = append(out, PageBreak)
			}
			if line := strings.Join(strings.Fields(p), " "); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// parseQuantity reads "5", "2,5", "10.000" (SAP style three decimals) and
// rejects anything else.
func parseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, false
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return q, true
}

// splitLineAndQty separates a line ordinal glued to its quantity, as left
// behind when a text converter drops column spacing: "105" is line 10,
// quantity 5. Ordinals are multiples of ten; quantities never start with 0.
func splitLineAndQty(digits string, maxQty float64) (line int, qty float64, ok bool) {
	for i := 2; i < len(digits); i++ {
		head, tail := digits[:i], digits[i:]
		if tail[0] == '0' {
			continue
		}
		l, err := strconv.Atoi(head)
		if err != nil || l == 0 || l%10 != 0 {
			continue
		}
		q, err := strconv.ParseFloat(tail, 64)
		if err != nil || !rfq.ValidQuantity(q, maxQty) {
			continue
		}
		return l, q, true
	}
	return 0, 0, false
}

func isTotalLine(line string) bool {
	return totalLine.MatchString(vocab.Fold(strings.TrimSpace(line)))
}

// isHeaderLine reports whether a line looks like a table header: two or
// more distinct column names, one of them a quantity or description column.
func isHeaderLine(line string) bool {
	folded := vocab.Fold(line)
	if !strongHeaderTerm.MatchString(folded) {
		return false
	}
	found := headerTerm.FindAllString(folded, -1)
	if len(found) < 2 {
		return false
	}
	seen := make(map[string]bool)
	for _, f := range found {
		seen[strings.ToLower(f)] = true
	}
	return len(seen) >= 2
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 0x7f {
			return true
		}
	}
	return false
}
