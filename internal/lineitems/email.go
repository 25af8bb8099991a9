package lineitems

import (
	"regexp"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

var (
	sentenceSplit = regexp.MustCompile(`[;!?]\s+|\.\s+(?:[A-ZÀ-Ý])|\n`)

	// "merci de nous coter 4 roulements SKF 6205", "we need 2 pcs of ..."
	requestQtyFirst = regexp.MustCompile(`(?i)(?:besoin|demande|coter|cotation|chiffrer|fournir|prix|offre|commander|need|require|request|quote|quotation|supply|send)\b[^0-9]{0,40}?\b(` + numberPattern + `)\s*(?:(` + rfq.UnitPattern + `)\.?\s+)?(?:de\s+|d'|d’|of\s+|x\s+)?(.{5,}?)\s*$`)
	// "4 pcs de roulement 6205", "10 roulements 6205-2RS"
	qtyThenProduct = regexp.MustCompile(`(?i)^(` + numberPattern + `)\s*(?:(` + rfq.UnitPattern + `)\.?\s+)?(?:de\s+|d'|d’|of\s+|x\s+)?(\p{L}.{4,}?)\s*$`)
	// "roulement 6205 - qté 4", "bearing 6205 (qty: 4 pcs)"
	productThenQty = regexp.MustCompile(`(?i)^(.{5,}?)\s*[-:(,]?\s*(?:qt[ée]|qty|quantit[ée]|quantity)\s*[:=]?\s*(` + numberPattern + `)\s*(` + rfq.UnitPattern + `)?\.?\)?\s*$`)
)

// EmailSentences reads request phrasing in French or English email
// bodies. A sentence only counts when it names equipment: a technical
// term, a brand or a part-number-like token.
type EmailSentences struct {
	vocab  *vocab.Vocabulary
	config Config
}

func NewEmailSentences(v *vocab.Vocabulary, cfg Config) *EmailSentences {
	return &EmailSentences{vocab: v, config: cfg}
}

func (s *EmailSentences) Name() string { return "email_sentences" }

func (s *EmailSentences) Extract(in *Input) Match {
	var items []rfq.LineItem
	for _, line := range in.Lines() {
		if line == PageBreak || s.vocab.IsLetterhead(line) {
			continue
		}
		for _, sentence := range splitSentences(line) {
			if it, ok := s.parse(sentence); ok {
				items = append(items, it)
			}
		}
	}
	return Match{Items: items}
}

func (s *EmailSentences) parse(sentence string) (rfq.LineItem, bool) {
	for _, re := range []*regexp.Regexp{productThenQty, requestQtyFirst, qtyThenProduct} {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		var qtyS, unit, desc string
		if re == productThenQty {
			desc, qtyS, unit = m[1], m[2], m[3]
		} else {
			qtyS, unit, desc = m[1], m[2], m[3]
		}
		qty, ok := parseQuantity(qtyS)
		if !ok || !rfq.ValidQuantity(qty, s.config.MaxQuantity) {
			continue
		}
		desc = strings.TrimRight(strings.TrimSpace(desc), ".,;")
		if !s.namesEquipment(desc) {
			continue
		}
		return rfq.LineItem{Description: desc, Quantity: qty, Unit: unit}, true
	}
	return rfq.LineItem{}, false
}

func (s *EmailSentences) namesEquipment(desc string) bool {
	if s.vocab.HasTechnicalTerm(desc) || s.vocab.DetectBrand(desc) != "" {
		return true
	}
	for _, tok := range strings.Fields(desc) {
		if len(tok) >= 4 && hasDigit(tok) && hasLetter(tok) {
			return true
		}
	}
	return false
}

// splitSentences cuts a line on sentence punctuation. The capital letter
// that starts the next sentence is kept.
func splitSentences(line string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceSplit.FindAllStringIndex(line, -1) {
		end := loc[1]
		// keep the capital that was consumed by the separator
		if r := line[loc[0]]; r == '.' && end > loc[0]+1 {
			for end > loc[0]+1 && line[end-1] != ' ' && line[end-1] != '\t' {
				end--
			}
		}
		if s := strings.TrimSpace(line[last:loc[0]]); s != "" {
			out = append(out, s)
		}
		last = end
	}
	if s := strings.TrimSpace(line[last:]); s != "" {
		out = append(out, s)
	}
	return out
}
