package documents

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const (
	MethodSheetColumns = "sheet_columns"
	MethodSheetText    = "sheet_text"

	headerScanRows = 20
)

type sheetRole int

const (
	sheetNone sheetRole = iota
	sheetDesc
	sheetQty
	sheetRef
	sheetCode
	sheetUnit
	sheetDiameter
	sheetBrand
)

var (
	sheetQtyCell   = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*([\p{L}.]*)\s*$`)
	sheetFooterRow = regexp.MustCompile(`(?i)^(?:sous[\s-]?total|total|montant|signature|visa|cachet|approuv|fait\s+(?:a|le)|date\s*:|le\s+demandeur|demandeur|requested\s+by|approved\s+by)`)
)

// sheetRoleOf maps a header cell to a column role. Code is tested first:
// "Code article" names the code column, never the description.
func sheetRoleOf(cell string) sheetRole {
	k := vocab.Key(cell)
	switch {
	case k == "":
		return sheetNone
	case strings.Contains(k, "code") || k == "sap" || k == "item no" || k == "n° article":
		return sheetCode
	case strings.Contains(k, "designation") || strings.Contains(k, "description") ||
		strings.Contains(k, "libelle") || strings.Contains(k, "descriptif") || k == "article" || k == "produit" || k == "product" || k == "item":
		return sheetDesc
	case strings.HasPrefix(k, "qte") || strings.HasPrefix(k, "qt ") || k == "qt" ||
		strings.Contains(k, "quantit") || strings.HasPrefix(k, "qty") || k == "nombre" || k == "nb":
		return sheetQty
	case strings.HasPrefix(k, "ref") || strings.Contains(k, "p/n") || k == "pn" ||
		strings.Contains(k, "part n") || strings.Contains(k, "n° piece") || strings.Contains(k, "reference"):
		return sheetRef
	case k == "unite" || k == "unit" || k == "uom" || k == "u/m" || k == "um" || k == "u" || strings.HasPrefix(k, "unite "):
		return sheetUnit
	case strings.Contains(k, "diametre") || strings.Contains(k, "ø") || k == "dn" || k == "dim" ||
		strings.HasPrefix(k, "dimension") || k == "taille" || k == "size":
		return sheetDiameter
	case k == "marque" || k == "brand" || k == "fabricant" || k == "manufacturer" || k == "constructeur":
		return sheetBrand
	}
	return sheetNone
}

// sheetHeader is the column layout of a detected header row.
type sheetHeader struct {
	row      int
	cols     map[sheetRole]int
	dimLabel string
}

// findHeader scans the first rows for a row naming a description and a
// quantity column. Each role keeps its leftmost column.
func findHeader(rows [][]string) (sheetHeader, bool) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		cols := make(map[sheetRole]int)
		dimLabel := "Ø"
		for j, cell := range rows[i] {
			r := sheetRoleOf(cell)
			if r == sheetNone {
				continue
			}
			if _, taken := cols[r]; taken {
				continue
			}
			cols[r] = j
			if r == sheetDiameter && vocab.Key(cell) == "dn" {
				dimLabel = "DN"
			}
		}
		_, hasDesc := cols[sheetDesc]
		_, hasQty := cols[sheetQty]
		if hasDesc && hasQty {
			return sheetHeader{row: i, cols: cols, dimLabel: dimLabel}, true
		}
	}
	return sheetHeader{}, false
}

func (h sheetHeader) cell(row []string, r sheetRole) string {
	j, ok := h.cols[r]
	if !ok || j >= len(row) {
		return ""
	}
	return strings.Join(strings.Fields(row[j]), " ")
}

type excelExtractor struct {
	engine *lineitems.Engine
	logger *zap.Logger
}

func (x *excelExtractor) Extract(_ context.Context, a rfq.Attachment, _ *tempfs.Scope) (*rfq.ExtractedDocument, error) {
	var (
		sheets map[string][][]string
		order  []string
		err    error
	)
	switch DetectKind(a) {
	case KindCSV:
		sheets, order, err = readCSV(a.Data)
	case KindXLS:
		return nil, apperrors.ErrUnsupportedFormat.WithCause(fmt.Errorf("legacy .xls workbook"))
	default:
		sheets, order, err = readWorkbook(a.Data)
	}
	if err != nil {
		return nil, err
	}

	doc := &rfq.ExtractedDocument{Filename: a.Filename, FormatKind: rfq.FormatExcel}
	var (
		items []rfq.LineItem
		text  strings.Builder
	)
	for _, name := range order {
		rows := sheets[name]
		for _, row := range rows {
			if line := strings.Join(strings.Fields(strings.Join(row, " ")), " "); line != "" {
				text.WriteString(line)
				text.WriteByte('\n')
			}
		}
		h, ok := findHeader(rows)
		if !ok {
			continue
		}
		found := sheetItems(rows, h)
		x.logger.Debug("Sheet header found",
			zap.String("file", a.Filename),
			zap.String("sheet", name),
			zap.Int("header_row", h.row+1),
			zap.Int("items", len(found)),
		)
		items = append(items, found...)
	}
	doc.RawText = text.String()
	doc.RFQNumber = FindReference(doc.RawText)

	if items = x.engine.Finalize(items, doc.RawText, true); len(items) > 0 {
		doc.Items = items
		doc.ExtractionMethod = MethodSheetColumns
		return doc, nil
	}

	res := x.engine.Extract(&lineitems.Input{Text: doc.RawText, Format: rfq.FormatExcel})
	doc.Items = res.Items
	doc.Strategy = res.Strategy
	doc.ExtractionMethod = MethodSheetText
	return doc, nil
}

// sheetItems walks the rows under a header. A row with text but no
// quantity continues the previous description; a row with a quantity but
// no description reuses the last one (merged cells).
func sheetItems(rows [][]string, h sheetHeader) []rfq.LineItem {
	var (
		items    []rfq.LineItem
		lastDesc string
	)
	for i := h.row + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		if first := firstCell(row); sheetFooterRow.MatchString(vocab.Fold(first)) {
			continue
		}

		desc := h.cell(row, sheetDesc)
		qtyCell := h.cell(row, sheetQty)
		ref := h.cell(row, sheetRef)
		code := h.cell(row, sheetCode)

		qty, unitHint, ok := parseSheetQty(qtyCell)
		if !ok {
			if desc != "" && qtyCell == "" && ref == "" && code == "" && len(items) > 0 {
				last := &items[len(items)-1]
				last.Description = strings.TrimSpace(last.Description + " " + desc)
				lastDesc = last.Description
			}
			continue
		}
		if desc == "" {
			desc = lastDesc
		} else {
			lastDesc = desc
		}
		if desc == "" {
			continue
		}

		if dim := h.cell(row, sheetDiameter); dim != "" {
			if strings.ContainsAny(dim, "Øø") || strings.HasPrefix(strings.ToUpper(dim), "DN") {
				desc += " " + dim
			} else {
				desc += " " + h.dimLabel + " " + dim
			}
		}
		unit := h.cell(row, sheetUnit)
		if unit == "" {
			unit = unitHint
		}
		it := rfq.LineItem{
			Description:        desc,
			Quantity:           qty,
			Unit:               unit,
			InternalCode:       code,
			SupplierCode:       ref,
			Reference:          ref,
			Brand:              h.cell(row, sheetBrand),
			OriginalLineNumber: i + 1,
		}
		items = append(items, it)
	}
	return items
}

// parseSheetQty reads "4", "2,5", "10 pcs". Spreadsheets often store
// integers as "4.0".
func parseSheetQty(cell string) (float64, string, bool) {
	m := sheetQtyCell.FindStringSubmatch(cell)
	if m == nil {
		return 0, "", false
	}
	q, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || !rfq.ValidQuantity(q, rfq.MaxQuantity) {
		return 0, "", false
	}
	unit := ""
	if rfq.IsUnit(m[2]) {
		unit = m[2]
	}
	return q, unit, true
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func firstCell(row []string) string {
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

func readWorkbook(data []byte) (map[string][][]string, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, apperrors.ErrMalformedInput.WithCause(err, "open workbook")
	}
	defer f.Close()

	sheets := make(map[string][][]string)
	var order []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, nil, apperrors.ErrMalformedInput.WithCause(err, "read sheet "+name)
		}
		sheets[name] = rows
		order = append(order, name)
	}
	return sheets, order, nil
}

// readCSV guesses the delimiter from the first line; French exports use
// semicolons.
func readCSV(data []byte) (map[string][][]string, []string, error) {
	if !utf8.Valid(data) {
		// Excel on Windows writes CSV in the ANSI code page
		if dec, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			data = dec
		}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ','
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		r.Comma = ';'
	} else if bytes.Count(first, []byte("\t")) > bytes.Count(first, []byte(",")) {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.ErrMalformedInput.WithCause(err, "read csv")
		}
		rows = append(rows, rec)
	}
	return map[string][][]string{"csv": rows}, []string{"csv"}, nil
}

