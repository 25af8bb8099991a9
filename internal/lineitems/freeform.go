package lineitems

import (
	"regexp"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const unitGroup = `(?:\s*(` + rfq.UnitPattern + `)\.?)?`

type freeformPattern struct {
	name string
	re   *regexp.Regexp
	// submatch indexes; 0 means absent
	ref, desc, qty, unit int
}

// Freeform patterns, most constrained first.
var freeformPatterns = []freeformPattern{
	{"ref_desc_qty", regexp.MustCompile(`(?i)^(?:r[ée]f\.?\s*:?\s*)?([A-Z0-9][A-Z0-9./-]{2,})\s+[-–]\s+(.+?)\s+[-–]\s+(?:qt[ée]\s*:?\s*|qty\s*:?\s*)?(` + numberPattern + `)` + unitGroup + `$`), 1, 2, 3, 4},
	{"qty_x_desc", regexp.MustCompile(`(?i)^(` + numberPattern + `)\s*[x×*]\s+(.+)$`), 0, 2, 1, 0},
	{"qty_unit_desc", regexp.MustCompile(`(?i)^(` + numberPattern + `)\s*(` + rfq.UnitPattern + `)\.?\s+(?:de\s+|d'|d’|of\s+)?(.+)$`), 0, 3, 1, 2},
	{"desc_colon_qty", regexp.MustCompile(`(?i)^(.+?)\s*:\s*(` + numberPattern + `)` + unitGroup + `$`), 0, 1, 2, 3},
	{"desc_x_qty", regexp.MustCompile(`(?i)^(.+?)\s+(?:[x×*]\s*|qt[ée]\s*:?\s*|qty\s*:?\s*)(` + numberPattern + `)` + unitGroup + `$`), 0, 1, 2, 3},
}

var (
	bulletLine = regexp.MustCompile(`^(?:[-*•·▪►➢]|\d{1,3}[.)])\s+(.+)$`)
	labelLine  = regexp.MustCompile(`^([^:]{1,30}?)\s*:\s*(.+)$`)
	qtyValue   = regexp.MustCompile(`(?i)^(` + numberPattern + `)` + unitGroup + `$`)
)

// Freeform reads loosely written lists: "REF - description - 4",
// "3 x description", "2 pcs de description", "description: 5",
// "description x 2", bulleted or numbered lines, and form fields
// ("Désignation: ..." followed by "Qté: ...").
type Freeform struct {
	vocab  *vocab.Vocabulary
	config Config
}

func NewFreeform(v *vocab.Vocabulary, cfg Config) *Freeform {
	return &Freeform{vocab: v, config: cfg}
}

func (f *Freeform) Name() string { return "freeform" }

func (f *Freeform) Extract(in *Input) Match {
	var items []rfq.LineItem
	seen := make(map[string]bool)

	lines := in.Lines()
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == PageBreak || f.vocab.IsLetterhead(line) || isTotalLine(line) || isHeaderLine(line) {
			continue
		}
		it, ok, consumed := f.formField(line, lines[i+1:])
		if consumed {
			i++
		}
		if !ok {
			if it, ok = f.parse(line); !ok {
				continue
			}
		}
		key := strings.ToLower(strings.TrimSpace(it.Description))
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, it)
		if len(items) >= f.config.MaxItems {
			break
		}
	}
	return Match{Items: items}
}

func (f *Freeform) parse(line string) (rfq.LineItem, bool) {
	if it, ok := f.match(line); ok {
		return it, true
	}
	m := bulletLine.FindStringSubmatch(line)
	if m == nil {
		return rfq.LineItem{}, false
	}
	body := m[1]
	if it, ok := f.match(body); ok {
		return it, true
	}
	// a bullet without quantity only counts when it names equipment
	if !f.looksLikeProduct(body) {
		return rfq.LineItem{}, false
	}
	return rfq.LineItem{
		Description: body,
		Quantity:    1,
		Unit:        rfq.UnitPieces,
		IsEstimated: true,
		Notes:       "quantity not stated",
	}, true
}

// formField reads a "Désignation: X" line and, when the next line is
// "Quantité: N", pairs both into one item. consumed reports whether the
// quantity line was used. A labelled line that is not a description is
// never an item.
func (f *Freeform) formField(line string, rest []string) (it rfq.LineItem, ok, consumed bool) {
	m := labelLine.FindStringSubmatch(line)
	if m == nil {
		return it, false, false
	}
	kind, isLabel := f.vocab.FieldLabel(m[1])
	if !isLabel || kind != vocab.FieldDescription || !hasLetter(m[2]) {
		return it, false, false
	}
	desc := strings.TrimSpace(m[2])

	if len(rest) > 0 {
		if qm := labelLine.FindStringSubmatch(rest[0]); qm != nil {
			if k, _ := f.vocab.FieldLabel(qm[1]); k == vocab.FieldQuantity {
				if vm := qtyValue.FindStringSubmatch(strings.TrimSpace(qm[2])); vm != nil {
					qty, valid := parseQuantity(vm[1])
					if valid && rfq.ValidQuantity(qty, f.config.MaxQuantity) {
						it = rfq.LineItem{Description: desc, Quantity: qty, Unit: rfq.UnitPieces}
						if vm[2] != "" {
							it.Unit = vm[2]
						}
						return it, true, true
					}
				}
			}
		}
	}
	if it, ok := f.match(desc); ok {
		return it, true, false
	}
	if !f.looksLikeProduct(desc) {
		return it, false, false
	}
	return rfq.LineItem{
		Description: desc,
		Quantity:    1,
		Unit:        rfq.UnitPieces,
		IsEstimated: true,
		Notes:       "quantity not stated",
	}, true, false
}

func (f *Freeform) match(line string) (rfq.LineItem, bool) {
	for _, p := range freeformPatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, ok := parseQuantity(m[p.qty])
		if !ok || !rfq.ValidQuantity(qty, f.config.MaxQuantity) {
			continue
		}
		desc := strings.TrimSpace(m[p.desc])
		if !hasLetter(desc) {
			continue
		}
		if _, label := f.vocab.FieldLabel(desc); label {
			continue
		}
		it := rfq.LineItem{Description: desc, Quantity: qty, Unit: rfq.UnitPieces}
		if p.unit > 0 && m[p.unit] != "" {
			it.Unit = m[p.unit]
		}
		if p.ref > 0 {
			it.Reference = m[p.ref]
			if hasDigit(it.Reference) {
				it.SupplierCode = it.Reference
			}
		}
		return it, true
	}
	return rfq.LineItem{}, false
}

// looksLikeProduct requires an equipment term, a brand or a code-like
// token mixing letters and digits.
func (f *Freeform) looksLikeProduct(s string) bool {
	if f.vocab.HasTechnicalTerm(s) || f.vocab.DetectBrand(s) != "" {
		return true
	}
	for _, tok := range strings.Fields(s) {
		if len(tok) >= 4 && hasDigit(tok) && hasLetter(tok) {
			return true
		}
	}
	return false
}
