package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

func xlsxBytes(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &cells))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + html.EscapeString(text) + `</w:t></w:r></w:p>`
}

func cell(text string) string {
	return `<w:tc>` + para(text) + `</w:tc>`
}

func newEngine() *lineitems.Engine {
	return lineitems.New(vocab.Default(), lineitems.DefaultConfig(), nil)
}

func TestExcel_HeaderColumns(t *testing.T) {
	data := xlsxBytes(t,
		[]string{"Demande de prix N° DA-2024-118"},
		[]string{},
		[]string{"Qté", "Code Article", "Désignation", "Unité", "Marque"},
		[]string{"4", "100234", "Roulement à billes 6205-2RS", "pcs", "SKF"},
		[]string{"", "", "étanche", "", ""},
		[]string{"2", "100567", "Courroie trapézoïdale SPA 1250", "", "Gates"},
		[]string{"Total", "", "", "", ""},
	)
	x := &excelExtractor{engine: newEngine(), logger: nopLogger()}

	doc, err := x.Extract(context.Background(), rfq.Attachment{Filename: "DA.xlsx", Data: data}, nil)
	require.NoError(t, err)

	assert.Equal(t, rfq.FormatExcel, doc.FormatKind)
	assert.Equal(t, MethodSheetColumns, doc.ExtractionMethod)
	assert.Equal(t, "DA-2024-118", doc.RFQNumber)
	require.Len(t, doc.Items, 2)

	first := doc.Items[0]
	assert.Equal(t, "Roulement à billes 6205-2RS étanche", first.Description)
	assert.Equal(t, 4.0, first.Quantity)
	assert.Equal(t, "100234", first.InternalCode)
	assert.Equal(t, "SKF", first.Brand)
	assert.Equal(t, rfq.UnitPieces, first.Unit)
	assert.Equal(t, 4, first.OriginalLineNumber)

	assert.Equal(t, "Gates", doc.Items[1].Brand)
	assert.Equal(t, 2.0, doc.Items[1].Quantity)
}

func TestExcel_DiameterColumn(t *testing.T) {
	rows := [][]string{
		{"Désignation", "DN", "Quantité"},
		{"Vanne papillon", "50", "3"},
		{"Vanne à boisseau", "DN80", "1"},
	}
	h, ok := findHeader(rows)
	require.True(t, ok)

	items := sheetItems(rows, h)
	require.Len(t, items, 2)
	assert.Equal(t, "Vanne papillon DN 50", items[0].Description)
	assert.Equal(t, "Vanne à boisseau DN80", items[1].Description)
}

func TestExcel_NoHeaderFallsBackToText(t *testing.T) {
	data := xlsxBytes(t,
		[]string{"Merci de nous coter :"},
		[]string{"- Roulement SKF 6205-2RS x 4"},
	)
	x := &excelExtractor{engine: newEngine(), logger: nopLogger()}

	doc, err := x.Extract(context.Background(), rfq.Attachment{Filename: "liste.xlsx", Data: data}, nil)
	require.NoError(t, err)

	assert.Equal(t, MethodSheetText, doc.ExtractionMethod)
	assert.Equal(t, "freeform", doc.Strategy)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 4.0, doc.Items[0].Quantity)
}

func TestExcel_CSVWindows1252(t *testing.T) {
	raw := "Désignation;Qté;Unité\nRoulement SKF 6205;4;pcs\nJoint spi 40x62x7;10;u\n"
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(raw))
	require.NoError(t, err)
	x := &excelExtractor{engine: newEngine(), logger: nopLogger()}

	doc, err := x.Extract(context.Background(), rfq.Attachment{Filename: "besoin.csv", Data: data}, nil)
	require.NoError(t, err)

	require.Len(t, doc.Items, 2)
	assert.Equal(t, "Roulement SKF 6205", doc.Items[0].Description)
	assert.Equal(t, "SKF", doc.Items[0].Brand)
	assert.Equal(t, 10.0, doc.Items[1].Quantity)
	assert.Equal(t, rfq.UnitPieces, doc.Items[1].Unit)
}

func TestSheetRoleOf(t *testing.T) {
	assert.Equal(t, sheetCode, sheetRoleOf("Code article"))
	assert.Equal(t, sheetDesc, sheetRoleOf("Désignation"))
	assert.Equal(t, sheetQty, sheetRoleOf("QTY"))
	assert.Equal(t, sheetRef, sheetRoleOf("Réf. fournisseur"))
	assert.Equal(t, sheetUnit, sheetRoleOf("UOM"))
	assert.Equal(t, sheetDiameter, sheetRoleOf("Diamètre"))
	assert.Equal(t, sheetBrand, sheetRoleOf("Marque"))
	assert.Equal(t, sheetNone, sheetRoleOf("Prix unitaire"))
}

func TestWord_DOCX(t *testing.T) {
	body := para("Demande de prix N° DA-2024-200") +
		para("Merci de nous coter :") +
		para("- Roulement SKF 6205-2RS x 4") +
		para("2 pcs de joint spi 40x62x7")
	x := &wordExtractor{engine: newEngine(), logger: nopLogger()}

	doc, err := x.Extract(context.Background(), rfq.Attachment{Filename: "DA.docx", Data: docxBytes(t, body)}, nil)
	require.NoError(t, err)

	assert.Equal(t, rfq.FormatWord, doc.FormatKind)
	assert.Equal(t, MethodDOCX, doc.ExtractionMethod)
	assert.Equal(t, "DA-2024-200", doc.RFQNumber)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "Roulement SKF 6205-2RS", doc.Items[0].Description)
	assert.Equal(t, 2.0, doc.Items[1].Quantity)
}

func TestZipXMLText_TableRows(t *testing.T) {
	body := `<w:tbl>` +
		`<w:tr>` + cell("Qté") + cell("Désignation") + `</w:tr>` +
		`<w:tr>` + cell("2") + cell("Courroie Gates 6PK1200") + `</w:tr>` +
		`</w:tbl>` + para("Fin")

	text, err := zipXMLText(docxBytes(t, body), "word/document.xml", docxMarkup)
	require.NoError(t, err)
	assert.Equal(t, []string{"Qté Désignation", "2 Courroie Gates 6PK1200", "Fin"}, strings.Split(strings.TrimSpace(text), "\n"))
}

func TestZipXMLText_MissingPart(t *testing.T) {
	_, err := zipXMLText(docxBytes(t, ""), "content.xml", odtMarkup)
	assert.Error(t, err)
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "Qté", decodeText([]byte("\xef\xbb\xbfQté")))
	assert.Equal(t, "Qté", decodeText([]byte("Qt\xe9")))
}
