package lineitems

import (
	"math"
	"strconv"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

type columnRole string

const (
	roleLine  columnRole = "line"
	roleQty   columnRole = "qty"
	roleUOM   columnRole = "uom"
	roleCode  columnRole = "code"
	roleDesc  columnRole = "desc"
	roleGL    columnRole = "gl"
	roleOther columnRole = "other" // recognized, unused
	roleNone  columnRole = ""
)

type column struct {
	role columnRole
	x    float64
}

// roleOf maps a header cell to a column role. Description is tested before
// code so that "Item Description" is never read as the code column.
func roleOf(cell string) columnRole {
	k := vocab.Key(cell)
	switch {
	case k == "":
		return roleNone
	case strings.Contains(k, "description") || strings.Contains(k, "designation") || strings.Contains(k, "libelle"):
		return roleDesc
	case strings.Contains(k, "qty") || strings.Contains(k, "quantit") || k == "qte" || strings.HasPrefix(k, "qte "):
		return roleQty
	case k == "uom" || k == "u/m" || k == "um" || k == "unit" || k == "unite" || strings.HasPrefix(k, "uom "):
		return roleUOM
	case k == "gl" || strings.HasPrefix(k, "gl ") || strings.Contains(k, "gl code"),
		strings.Contains(k, "account"), strings.Contains(k, "cost cent"), strings.Contains(k, "compte"):
		return roleGL
	case strings.Contains(k, "price") || strings.Contains(k, "prix") || strings.Contains(k, "amount") ||
		strings.Contains(k, "montant") || strings.Contains(k, "date") || strings.Contains(k, "delivery") || k == "total":
		return roleOther
	case strings.Contains(k, "code") || strings.Contains(k, "article") || k == "item no" || k == "part no":
		return roleCode
	case k == "line" || k == "ln" || k == "item" || k == "#" || k == "no" || k == "n°" || k == "pos" || k == "poste" || k == "line no":
		return roleLine
	}
	return roleNone
}

func headerColumns(row rfq.PdfRow) []column {
	if len(row.CellX) != len(row.Cells) {
		return nil
	}
	var cols []column
	hasDesc, hasQty := false, false
	for i, c := range row.Cells {
		r := roleOf(c)
		if r == roleNone {
			continue
		}
		hasDesc = hasDesc || r == roleDesc
		hasQty = hasQty || r == roleQty
		cols = append(cols, column{role: r, x: row.CellX[i]})
	}
	if !hasDesc || !hasQty {
		return nil
	}
	return cols
}

func nearestColumn(cols []column, x float64) columnRole {
	best, dist := roleNone, math.MaxFloat64
	for _, c := range cols {
		if d := math.Abs(c.x - x); d < dist {
			best, dist = c.role, d
		}
	}
	return best
}

// fromColumns reads rows against the x positions of a detected header. It
// only runs when the reconstructed layout looked like a regular table.
func (p *PurchaseRequisition) fromColumns(in *Input) []rfq.LineItem {
	if !in.Tabular || len(in.Rows) == 0 {
		return nil
	}

	var (
		items []rfq.LineItem
		cols  []column
		cur   = -1
		page  = -1
	)
	for _, row := range in.Rows {
		if row.Page != page {
			page = row.Page
			cur = -1
		}
		if h := headerColumns(row); h != nil {
			cols = h
			cur = -1
			continue
		}
		if cols == nil || len(row.CellX) != len(row.Cells) {
			continue
		}
		if isTotalLine(row.RawText) || startsAdditional(row.RawText) {
			cur = -1
			continue
		}
		if p.vocab.IsLetterhead(row.RawText) {
			continue
		}

		values := make(map[columnRole][]string)
		for i, cell := range row.Cells {
			r := nearestColumn(cols, row.CellX[i])
			values[r] = append(values[r], cell)
		}

		it, ok := p.columnItem(values)
		if ok {
			items = append(items, it)
			cur = len(items) - 1
			continue
		}

		// description-only rows continue the previous item
		desc := strings.Join(values[roleDesc], " ")
		if cur >= 0 && desc != "" && len(values[roleQty]) == 0 && len(values[roleLine]) == 0 {
			items[cur].Description = strings.TrimSpace(items[cur].Description + " " + desc)
		}
	}
	return items
}

func (p *PurchaseRequisition) columnItem(values map[columnRole][]string) (rfq.LineItem, bool) {
	lineCell := strings.Join(values[roleLine], " ")
	qtyCell := strings.Join(values[roleQty], " ")
	unit := strings.Join(values[roleUOM], " ")

	// line and quantity merged into one cell when their gap was narrow
	if qtyCell == "" {
		if f := strings.Fields(lineCell); len(f) == 2 {
			lineCell, qtyCell = f[0], f[1]
		}
	}
	qf := strings.Fields(qtyCell)
	if len(qf) == 0 {
		return rfq.LineItem{}, false
	}
	qty, ok := parseQuantity(qf[0])
	if !ok || !rfq.ValidQuantity(qty, p.config.MaxQuantity) {
		return rfq.LineItem{}, false
	}
	if unit == "" && len(qf) > 1 && rfq.IsUnit(qf[1]) {
		unit = qf[1]
	}

	desc := strings.Join(values[roleDesc], " ")
	code := strings.Join(values[roleCode], " ")
	if !isAllDigits(code) {
		// a code column holding text is really the start of the description
		if code != "" {
			desc = strings.TrimSpace(code + " " + desc)
		}
		code = ""
	}
	if desc == "" {
		return rfq.LineItem{}, false
	}

	line, _ := strconv.Atoi(strings.TrimSpace(lineCell))
	return rfq.LineItem{
		Description:        desc,
		Quantity:           qty,
		Unit:               unit,
		InternalCode:       code,
		OriginalLineNumber: line,
	}, true
}
