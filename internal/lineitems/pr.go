package lineitems

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Purchase requisition rows read <line> <qty> <uom> <item code>
// <description> <GL code> [<price> <amount>]. Text converters often drop
// the spacing between columns, so the compact patterns accept none.
var (
	prCompactRow = regexp.MustCompile(`(?i)^(\d{1,4})\s*(` + numberPattern + `)?\s*(` + columnUnitPattern + `)\s*(\d{4,10})\s*(.+?)\s*(\d{7})(?:\s*[\d.,]+)*\s*$`)
	prSpacedRow  = regexp.MustCompile(`(?i)^(\d{1,4})\s+(` + numberPattern + `)\s+(` + columnUnitPattern + `)\s+(\d{4,10})\s+(.+?)(?:\s+\d{7}(?:\s+[\d.,]+)*)?\s*$`)
	prOpener     = regexp.MustCompile(`(?i)^(\d{1,4})\s*(` + numberPattern + `)?\s*(` + columnUnitPattern + `)\s*(\d{4,10})(?:\s*(.*))?$`)
	prCodeDesc   = regexp.MustCompile(`^(\d{5,6})\s+(\p{L}.{4,})$`)
)

var prTriggers = []string{"item code", "item description", "purchase requisition", "requisition no"}

// PurchaseRequisition reads the tabular requisition export found in most
// ERP attachments. It tries, in order: reconstructed PDF columns, a compact
// row pattern anchored on the GL code, a spaced variant with the GL code
// optional, a line state machine that follows wrapped descriptions, and
// bare "<code> <description>" lines.
type PurchaseRequisition struct {
	vocab  *vocab.Vocabulary
	config Config
}

func NewPurchaseRequisition(v *vocab.Vocabulary, cfg Config) *PurchaseRequisition {
	return &PurchaseRequisition{vocab: v, config: cfg}
}

func (p *PurchaseRequisition) Name() string { return "purchase_requisition" }

func (p *PurchaseRequisition) DedupByCode() bool { return true }

// Detect reports whether the text looks like a requisition.
func (p *PurchaseRequisition) Detect(in *Input) bool {
	key := vocab.Key(in.Text)
	for _, t := range prTriggers {
		if strings.Contains(key, t) {
			return true
		}
	}
	for _, line := range in.Lines() {
		if prCompactRow.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *PurchaseRequisition) Extract(in *Input) Match {
	if !p.Detect(in) {
		return Match{}
	}
	tiers := []struct {
		name string
		fn   func(*Input) []rfq.LineItem
	}{
		{"columns", p.fromColumns},
		{"compact", func(in *Input) []rfq.LineItem { return p.fromPattern(in, prCompactRow) }},
		{"spaced", func(in *Input) []rfq.LineItem { return p.fromPattern(in, prSpacedRow) }},
		{"state_machine", p.stateMachine},
		{"code_description", p.codeDescription},
	}
	for _, t := range tiers {
		if items := t.fn(in); p.anyUsable(items) {
			return Match{Items: items, Tier: t.name}
		}
	}
	return Match{}
}

func (p *PurchaseRequisition) anyUsable(items []rfq.LineItem) bool {
	for _, it := range items {
		if rfq.ValidQuantity(it.Quantity, p.config.MaxQuantity) &&
			rfq.ValidDescription(CleanDescription(it.Description), p.config.MinDescriptionLength) {
			return true
		}
	}
	return false
}

// skippable filters metadata lines that must never become descriptions.
func (p *PurchaseRequisition) skippable(line string) bool {
	return line == PageBreak || isHeaderLine(line) || p.vocab.IsLetterhead(line) || isTotalLine(line)
}

// rowItem builds an item from a row match laid out as line, qty, uom, code,
// description. An empty qty group means line and quantity were glued.
func (p *PurchaseRequisition) rowItem(m []string) (rfq.LineItem, bool) {
	var (
		line int
		qty  float64
		ok   bool
	)
	if m[2] == "" {
		line, qty, ok = splitLineAndQty(m[1], p.config.MaxQuantity)
	} else {
		line, _ = strconv.Atoi(m[1])
		qty, ok = parseQuantity(m[2])
	}
	if !ok || !rfq.ValidQuantity(qty, p.config.MaxQuantity) {
		return rfq.LineItem{}, false
	}
	desc := ""
	if len(m) > 5 {
		desc = m[5]
	}
	return rfq.LineItem{
		Description:        desc,
		Quantity:           qty,
		Unit:               m[3],
		InternalCode:       m[4],
		OriginalLineNumber: line,
	}, true
}

func (p *PurchaseRequisition) fromPattern(in *Input, re *regexp.Regexp) []rfq.LineItem {
	var items []rfq.LineItem
	for _, line := range in.Lines() {
		if p.skippable(line) {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if it, ok := p.rowItem(m); ok {
			items = append(items, it)
		}
	}
	return items
}

// stateMachine opens an item on every row start and appends the following
// lines to its description until the next row, a total, an "Additional
// Description" block or a page break.
func (p *PurchaseRequisition) stateMachine(in *Input) []rfq.LineItem {
	var (
		items []rfq.LineItem
		cur   *rfq.LineItem
	)
	flush := func() {
		if cur != nil {
			items = append(items, *cur)
			cur = nil
		}
	}

	for _, line := range in.Lines() {
		if line == PageBreak || isTotalLine(line) || startsAdditional(line) {
			flush()
			continue
		}
		if m := prOpener.FindStringSubmatch(line); m != nil {
			if it, ok := p.rowItem(m); ok {
				flush()
				cur = &it
				continue
			}
		}
		if cur == nil || p.skippable(line) {
			continue
		}
		if isAllDigits(strings.NewReplacer(" ", "", ".", "", ",", "").Replace(line)) {
			continue
		}
		cur.Description = strings.TrimSpace(cur.Description + " " + line)
	}
	flush()
	return items
}

func (p *PurchaseRequisition) codeDescription(in *Input) []rfq.LineItem {
	var items []rfq.LineItem
	for _, line := range in.Lines() {
		if p.skippable(line) {
			continue
		}
		if m := prCodeDesc.FindStringSubmatch(line); m != nil {
			items = append(items, rfq.LineItem{
				Description:  m[2],
				Quantity:     1,
				Unit:         rfq.UnitPieces,
				InternalCode: m[1],
				IsEstimated:  true,
				Notes:        "quantity not stated",
			})
		}
	}
	return items
}

func startsAdditional(line string) bool {
	return strings.HasPrefix(vocab.Key(line), "additional description")
}
