package lineitems

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

var (
	lineNumberRow = regexp.MustCompile(`^(\d{1,3})[.)-]?\s+(.+)$`)
	partNumber    = regexp.MustCompile(`^[A-Za-z0-9]*\d[A-Za-z0-9]*(?:[-/.][A-Za-z0-9]+)+$`)
)

// LineNumber parses rows that start with the table ordinal and then carry
// quantity, unit, an optional numeric item code, an optional part number
// and the description, separated by whitespace. Rows that do not fit are
// dropped rather than guessed at.
type LineNumber struct {
	config Config
}

func NewLineNumber(cfg Config) *LineNumber {
	return &LineNumber{config: cfg}
}

func (l *LineNumber) Name() string { return "line_number" }

func (l *LineNumber) Extract(in *Input) Match {
	var items []rfq.LineItem
	for _, line := range in.Lines() {
		if it, ok := l.parse(line); ok {
			items = append(items, it)
		}
	}
	return Match{Items: items}
}

func (l *LineNumber) parse(line string) (rfq.LineItem, bool) {
	m := lineNumberRow.FindStringSubmatch(line)
	if m == nil {
		return rfq.LineItem{}, false
	}
	ordinal, _ := strconv.Atoi(m[1])
	if ordinal < 1 || ordinal > 999 {
		return rfq.LineItem{}, false
	}

	tok := strings.Fields(m[2])
	if len(tok) < 3 {
		return rfq.LineItem{}, false
	}
	qty, ok := parseQuantity(tok[0])
	if !ok || !rfq.ValidQuantity(qty, l.config.MaxQuantity) {
		return rfq.LineItem{}, false
	}
	if !rfq.IsUnit(tok[1]) {
		return rfq.LineItem{}, false
	}
	it := rfq.LineItem{
		Quantity:           qty,
		Unit:               tok[1],
		OriginalLineNumber: ordinal,
	}

	rest := tok[2:]
	if len(rest) > 1 && isAllDigits(rest[0]) && len(rest[0]) >= 4 && len(rest[0]) <= 10 {
		it.InternalCode = rest[0]
		rest = rest[1:]
	}
	switch {
	case len(rest) > 1 && partNumber.MatchString(rest[0]):
		it.SupplierCode = rest[0]
		rest = rest[1:]
	case len(rest) > 2 && isAllDigits(rest[0]) && isAllDigits(rest[1]) && len(rest[0]) >= 3 && len(rest[1]) >= 3:
		it.SupplierCode = rest[0] + " " + rest[1]
		rest = rest[2:]
	}

	it.Description = strings.Join(rest, " ")
	if !hasLetter(it.Description) {
		return rfq.LineItem{}, false
	}
	return it, true
}
