package lineitems

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const amountPattern = `\d{1,3}(?:[\s.]\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?`

var (
	trailingGL       = regexp.MustCompile(`\s+\d{7}(?:\s+[\d.,]+)*$`)
	trailingCurrency = regexp.MustCompile(`(?i)(?:^|\s)(?:(?:€|eur|euros?|mad|usd|\$|dhs?)\s*(?:` + amountPattern + `)|(?:` + amountPattern + `)\s*(?:€|eur|euros?|mad|usd|dhs?))\s*$`)
	orphanZeros      = regexp.MustCompile(`(?:\s+0(?:[.,]0+)?){2,}$`)
	edgePunct        = regexp.MustCompile(`^[\s\-–—:;,.|*•]+|[\s\-–—:;,|*•]+$`)

	codeToken      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9./-]*$`)
	labelledCode   = regexp.MustCompile(`(?i)(?:\bref(?:erence)?\b|\bréf(?:érence)?\b|\bp/?n\b|\bpart\s*(?:no|number|n°)\b|\bmod[eè]le?\b|\bmodel\b|\btype\b|\bcode\b)\s*[.:#°]?\s*([A-Za-z0-9][A-Za-z0-9./-]{2,})`)
	additionalDesc = regexp.MustCompile(`(?is)additional\s+description\s*:?\s*(.+?)(?:\n\s*\n|\n\s*(?:total|line\b|\f)|$)`)
	serialNumber   = regexp.MustCompile(`(?i)(?:\bs/n\b|\bsn\b|\bserial\s*(?:no|number|n°|#)?|n°\s*(?:de\s+)?s[ée]rie|num[ée]ro\s+de\s+s[ée]rie)\s*[.:#]?\s*([A-Za-z0-9][A-Za-z0-9-]{3,})`)
)

// CleanDescription strips ledger codes, prices and stray zero columns from
// a description, collapses whitespace and folds "X - X" repetitions.
func CleanDescription(desc string) string {
	d := strings.Join(strings.Fields(desc), " ")
	for i := 0; i < 3; i++ {
		prev := d
		d = trailingCurrency.ReplaceAllString(d, "")
		d = orphanZeros.ReplaceAllString(d, "")
		d = trailingGL.ReplaceAllString(d, "")
		d = edgePunct.ReplaceAllString(d, "")
		if d == prev {
			break
		}
	}
	if parts := strings.Split(d, " - "); len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])) {
		d = strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(d)
}

func (e *Engine) finalize(items []rfq.LineItem, text string, byCode bool) []rfq.LineItem {
	out := make([]rfq.LineItem, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, it := range items {
		it.Description = CleanDescription(it.Description)
		it.Unit = rfq.NormalizeUnit(it.Unit)
		e.enrich(&it)

		if !rfq.ValidQuantity(it.Quantity, e.config.MaxQuantity) {
			continue
		}
		if !rfq.ValidDescription(it.Description, e.config.MinDescriptionLength) {
			continue
		}

		key := dedupKey(it, byCode)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) >= e.config.MaxItems {
			break
		}
	}

	if brand, serial := e.additionalDescription(text); brand != "" || serial != "" {
		for i := range out {
			if out[i].Brand == "" {
				out[i].Brand = brand
			}
			if out[i].SerialNumber == "" {
				out[i].SerialNumber = serial
			}
		}
	}
	return out
}

func dedupKey(it rfq.LineItem, byCode bool) string {
	if byCode && it.InternalCode != "" {
		return "code:" + it.InternalCode
	}
	return fmt.Sprintf("%s|%g", vocab.Key(it.Description), it.Quantity)
}

// enrich fills brand and supplier code from the description.
func (e *Engine) enrich(it *rfq.LineItem) {
	idx, brand := e.vocab.LocateBrand(it.Description)
	if it.Brand == "" {
		it.Brand = brand
	}
	if it.SupplierCode != "" {
		return
	}
	if idx >= 0 && idx+len(brand) <= len(it.Description) {
		if code := codeAfterBrand(it.Description[idx+len(brand):]); code != "" {
			it.SupplierCode = code
			return
		}
	}
	if m := labelledCode.FindStringSubmatch(it.Description); m != nil && hasDigit(m[1]) {
		it.SupplierCode = m[1]
		if it.Reference == "" {
			it.Reference = m[1]
		}
	}
}

// codeAfterBrand returns the first alphanumeric token with a digit among
// the two tokens following a brand name.
func codeAfterBrand(rest string) string {
	fields := strings.Fields(rest)
	for i := 0; i < len(fields) && i < 2; i++ {
		tok := strings.Trim(fields[i], ",;:()")
		if len(tok) >= 3 && hasDigit(tok) && codeToken.MatchString(tok) {
			return tok
		}
	}
	return ""
}

// additionalDescription reads brand and serial number from the free-text
// block some requisition systems print under the table.
func (e *Engine) additionalDescription(text string) (brand, serial string) {
	m := additionalDesc.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	block := m[1]
	brand = e.vocab.DetectBrand(block)
	if s := serialNumber.FindStringSubmatch(block); s != nil && hasDigit(s[1]) {
		serial = s[1]
	}
	return brand, serial
}
