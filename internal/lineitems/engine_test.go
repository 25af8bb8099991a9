package lineitems

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

func newEngine() *Engine {
	return New(vocab.Default(), DefaultConfig(), nil)
}

func extract(text string) Result {
	return newEngine().Extract(&Input{Text: text})
}

func TestEngine_Strategies(t *testing.T) {
	assert.Equal(t, []string{"purchase_requisition", "line_number", "freeform"}, newEngine().Strategies())
}

func TestEngine_PurchaseRequisitionRow(t *testing.T) {
	res := extract("10 5 EA 201368 RELAY OVERLOAD 1500405 0 0")

	require.Len(t, res.Items, 1)
	it := res.Items[0]
	assert.Equal(t, 5.0, it.Quantity)
	assert.Equal(t, "pcs", it.Unit)
	assert.Equal(t, "201368", it.InternalCode)
	assert.Equal(t, "RELAY OVERLOAD", it.Description)
	assert.Equal(t, 10, it.OriginalLineNumber)
	assert.Equal(t, "purchase_requisition/compact", res.Strategy)
}

func TestEngine_PurchaseRequisitionDocument(t *testing.T) {
	text := strings.Join([]string{
		"PURCHASE REQUISITION",
		"Requisition No: PR-204518",
		"Line Qty UOM Item Code Item Description GL Code Unit Price Amount",
		"10 5 EA 201368 RELAY OVERLOAD 1500405 0 0",
		"20 2 PCS 201369 CONTACTOR 3P 25A 1500405 0 0",
		"30 1 SET 201370 GASKET KIT PUMP P12 1500405 0 0",
		"Total 0.00",
	}, "\n")

	res := extract(text)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "CONTACTOR 3P 25A", res.Items[1].Description)
	assert.Equal(t, 2.0, res.Items[1].Quantity)
	assert.Equal(t, "set", res.Items[2].Unit)
	assert.Equal(t, 30, res.Items[2].OriginalLineNumber)
}

func TestEngine_PurchaseRequisitionWithoutColumnSpacing(t *testing.T) {
	res := extract("Item Code Item Description\n105EA201368RELAY OVERLOAD1500405 0 0\n201PCS201400PUMP SEAL KIT1500405 0 0")

	require.Len(t, res.Items, 2)
	assert.Equal(t, 10, res.Items[0].OriginalLineNumber)
	assert.Equal(t, 5.0, res.Items[0].Quantity)
	assert.Equal(t, "RELAY OVERLOAD", res.Items[0].Description)
	assert.Equal(t, 20, res.Items[1].OriginalLineNumber)
	assert.Equal(t, 1.0, res.Items[1].Quantity)
	assert.Equal(t, "201400", res.Items[1].InternalCode)
}

func TestEngine_PurchaseRequisitionStateMachine(t *testing.T) {
	text := strings.Join([]string{
		"Item Code Item Description",
		"10 5 EA 201368",
		"RELAY OVERLOAD",
		"THERMAL 2.5-4A",
		"20 1 EA 201400",
		"PUMP SEAL KIT",
		"Total 0.00",
		"Additional Description: SCHNEIDER S/N 12345X",
	}, "\n")

	res := extract(text)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "purchase_requisition/state_machine", res.Strategy)
	assert.Equal(t, "RELAY OVERLOAD THERMAL 2.5-4A", res.Items[0].Description)
	assert.Equal(t, "PUMP SEAL KIT", res.Items[1].Description)
	for _, it := range res.Items {
		assert.Equal(t, "Schneider", it.Brand)
		assert.Equal(t, "12345X", it.SerialNumber)
	}
}

func TestEngine_PurchaseRequisitionCodeDescription(t *testing.T) {
	res := extract("Item Code Item Description\n201368 RELAY OVERLOAD\n201400 PUMP SEAL KIT")

	require.Len(t, res.Items, 2)
	assert.Equal(t, "purchase_requisition/code_description", res.Strategy)
	assert.True(t, res.Items[0].IsEstimated)
	assert.Equal(t, 1.0, res.Items[0].Quantity)
	assert.Equal(t, "201368", res.Items[0].InternalCode)
}

func TestEngine_PurchaseRequisitionDedupByCode(t *testing.T) {
	res := extract("10 5 EA 201368 RELAY OVERLOAD 1500405 0 0\n10 5 EA 201368 RELAY OVERLOAD 1500405 0 0")
	assert.Len(t, res.Items, 1)
}

func TestEngine_PurchaseRequisitionColumns(t *testing.T) {
	row := func(y float64, cells []string, xs []float64) rfq.PdfRow {
		return rfq.PdfRow{RawText: strings.Join(cells, " "), Cells: cells, CellX: xs, Page: 1, Y: y}
	}
	rows := []rfq.PdfRow{
		row(700, []string{"Line", "Qty", "UOM", "Item Code", "Item Description", "GL Code"}, []float64{20, 60, 100, 140, 220, 480}),
		// the ordinal and the quantity sit in their own columns
		row(680, []string{"10", "30", "EA", "201368", "BEARING 6205-2RS SKF", "1500405"}, []float64{20, 62, 100, 140, 220, 480}),
		row(670, []string{"C3 CLEARANCE"}, []float64{221}),
		row(660, []string{"20", "2", "EA", "201369", "V-BELT SPA 1250", "1500405"}, []float64{20, 64, 100, 140, 220, 480}),
	}
	in := &Input{
		Text:    "Item Code Item Description\n" + rows[1].RawText,
		Rows:    rows,
		Tabular: true,
		Format:  rfq.FormatPDF,
	}

	res := newEngine().Extract(in)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "purchase_requisition/columns", res.Strategy)
	assert.Equal(t, 30.0, res.Items[0].Quantity)
	assert.Equal(t, 10, res.Items[0].OriginalLineNumber)
	assert.Equal(t, "BEARING 6205-2RS SKF C3 CLEARANCE", res.Items[0].Description)
	assert.Equal(t, "SKF", res.Items[0].Brand)
	assert.Equal(t, "201369", res.Items[1].InternalCode)
}

func TestEngine_LineNumberParser(t *testing.T) {
	text := strings.Join([]string{
		"1 4 PCS 100234 6205-2RS ROULEMENT A BILLES",
		"2 2 EA FILTRE HUILE HF6553",
		"3 10 M CABLE 3G2.5",
		"4 x invalid line",
	}, "\n")

	res := extract(text)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "line_number", res.Strategy)

	assert.Equal(t, "100234", res.Items[0].InternalCode)
	assert.Equal(t, "6205-2RS", res.Items[0].SupplierCode)
	assert.Equal(t, "ROULEMENT A BILLES", res.Items[0].Description)
	assert.Equal(t, 4.0, res.Items[0].Quantity)

	assert.Equal(t, "pcs", res.Items[1].Unit)
	assert.Equal(t, "m", res.Items[2].Unit)
	assert.Equal(t, 10.0, res.Items[2].Quantity)
}

func TestEngine_LineNumberTwoTokenCode(t *testing.T) {
	res := extract("1 2 PCS 100234 4521 889 JOINT SPI 40X62X7")

	require.Len(t, res.Items, 1)
	assert.Equal(t, "4521 889", res.Items[0].SupplierCode)
	assert.Equal(t, "JOINT SPI 40X62X7", res.Items[0].Description)
}

func TestEngine_Freeform(t *testing.T) {
	text := strings.Join([]string{
		"Bonjour,",
		"Merci de nous coter :",
		"- Roulement SKF 6205-2RS x 4",
		"2 pcs de joint spi 40x62x7",
		"REF-123 - Courroie trapézoïdale - 3",
		"Pompe Grundfos CR10: 1",
		"Cordialement",
	}, "\n")

	res := extract(text)

	require.Len(t, res.Items, 4)
	assert.Equal(t, "freeform", res.Strategy)

	assert.Equal(t, "Roulement SKF 6205-2RS", res.Items[0].Description)
	assert.Equal(t, 4.0, res.Items[0].Quantity)
	assert.Equal(t, "SKF", res.Items[0].Brand)
	assert.Equal(t, "6205-2RS", res.Items[0].SupplierCode)

	assert.Equal(t, "joint spi 40x62x7", res.Items[1].Description)
	assert.Equal(t, 2.0, res.Items[1].Quantity)

	assert.Equal(t, "REF-123", res.Items[2].Reference)
	assert.Equal(t, 3.0, res.Items[2].Quantity)

	assert.Equal(t, "Grundfos", res.Items[3].Brand)
	assert.Equal(t, "CR10", res.Items[3].SupplierCode)
}

func TestEngine_FreeformBulletWithoutQuantity(t *testing.T) {
	res := extract("Voici notre besoin\n• Moteur asynchrone 5.5kW B3\n• Merci pour votre retour rapide")

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Moteur asynchrone 5.5kW B3", res.Items[0].Description)
	assert.True(t, res.Items[0].IsEstimated)
	assert.Equal(t, 1.0, res.Items[0].Quantity)
}

func TestEngine_FreeformCap(t *testing.T) {
	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, "Joint torique modele "+strings.Repeat("A", i%5+1)+string(rune('a'+i%26))+strings.Repeat("b", i/26)+": 2")
	}
	e := New(vocab.Default(), Config{MaxItems: 100}, nil)

	res := e.Extract(&Input{Text: strings.Join(lines, "\n")})

	assert.LessOrEqual(t, len(res.Items), 100)
	assert.NotEmpty(t, res.Items)
}

func TestEngine_DeduplicatesDescriptionAndQuantity(t *testing.T) {
	res := extract("1 2 PCS ROULEMENT 6205\n2 2 PCS ROULEMENT 6205\n3 3 PCS ROULEMENT 6205")

	require.Len(t, res.Items, 2)
	assert.Equal(t, 2.0, res.Items[0].Quantity)
	assert.Equal(t, 3.0, res.Items[1].Quantity)
}

func TestEngine_RejectsImplausibleRows(t *testing.T) {
	res := extract("1 200000 PCS ROULEMENT 6205\n2 2 PCS AB")
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Strategy)
}

func TestEngine_InvariantsHoldForAllItems(t *testing.T) {
	texts := []string{
		"10 5 EA 201368 RELAY OVERLOAD 1500405 0 0",
		"1 4 PCS 100234 6205-2RS ROULEMENT A BILLES",
		"- Roulement SKF 6205-2RS x 4\nPompe Grundfos CR10: 1",
		"3 x vanne\n0 x filtre hydraulique\n99999999 x pompe",
	}
	for _, text := range texts {
		for _, it := range extract(text).Items {
			assert.Greater(t, it.Quantity, 0.0, text)
			assert.LessOrEqual(t, it.Quantity, float64(rfq.MaxQuantity), text)
			assert.GreaterOrEqual(t, len([]rune(it.Description)), rfq.MinDescriptionLength, text)
		}
	}
}

func TestEngine_ExtractEmail(t *testing.T) {
	text := "Bonjour,\nNous avons besoin de 10 roulements SKF 6205 pour lundi.\nCordialement"

	res := newEngine().ExtractEmail(&Input{Text: text, Format: rfq.FormatEmail})

	require.Len(t, res.Items, 1)
	assert.Equal(t, "email_sentences", res.Strategy)
	assert.Equal(t, 10.0, res.Items[0].Quantity)
	assert.Contains(t, res.Items[0].Description, "roulements SKF 6205")
	assert.Equal(t, "SKF", res.Items[0].Brand)
}

func TestEngine_ExtractEmailQuantityAfterProduct(t *testing.T) {
	res := newEngine().ExtractEmail(&Input{Text: "Pompe centrifuge Grundfos CR10 - Qté : 2"})

	require.Len(t, res.Items, 1)
	assert.Equal(t, 2.0, res.Items[0].Quantity)
	assert.Equal(t, "Pompe centrifuge Grundfos CR10", res.Items[0].Description)
}

func TestEngine_ExtractEmailFallsBackToCascade(t *testing.T) {
	res := newEngine().ExtractEmail(&Input{Text: "Merci de coter:\nHF6553 - Filtre hydraulique - 3"})

	require.Len(t, res.Items, 1)
	assert.Equal(t, "freeform", res.Strategy)
	assert.Equal(t, "HF6553", res.Items[0].Reference)
}

func TestEngine_ExtractEmailIgnoresNonEquipment(t *testing.T) {
	res := newEngine().ExtractEmail(&Input{Text: "Nous avons besoin de 2 jours pour valider."})
	assert.Empty(t, res.Items)
}

func TestEngine_Finalize(t *testing.T) {
	items := []rfq.LineItem{
		{Description: "Contacteur Schneider LC1D25 EUR 45,00", Quantity: 2, Unit: "EA"},
		{Description: "abc", Quantity: 1},
		{Description: "Contacteur Schneider LC1D25", Quantity: 2, Unit: "pcs"},
	}

	out := newEngine().Finalize(items, "", false)

	require.Len(t, out, 1)
	assert.Equal(t, "Contacteur Schneider LC1D25", out[0].Description)
	assert.Equal(t, "pcs", out[0].Unit)
	assert.Equal(t, "Schneider", out[0].Brand)
	assert.Equal(t, "LC1D25", out[0].SupplierCode)
}

type fixedStrategy struct {
	name  string
	items []rfq.LineItem
}

func (f fixedStrategy) Name() string         { return f.name }
func (f fixedStrategy) Extract(*Input) Match { return Match{Items: f.items} }

func TestEngine_StopsAtFirstUsableStrategy(t *testing.T) {
	e := newEngine().WithStrategies(
		fixedStrategy{name: "empty"},
		fixedStrategy{name: "junk", items: []rfq.LineItem{{Description: "x", Quantity: 1}}},
		fixedStrategy{name: "good", items: []rfq.LineItem{{Description: "Vanne papillon DN100", Quantity: 1}}},
		fixedStrategy{name: "never", items: []rfq.LineItem{{Description: "Pompe doseuse", Quantity: 1}}},
	)

	res := e.Extract(&Input{Text: "anything"})

	assert.Equal(t, "good", res.Strategy)
	require.Len(t, res.Items, 1)
}
