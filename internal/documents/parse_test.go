package documents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

func TestParseFilename(t *testing.T) {
	h := ParseFilename(vocab.Default(), "RFQ-2024-118_Pompe_Grundfos_CR10.pdf")

	assert.Equal(t, "RFQ-2024-118", h.Reference)
	assert.Equal(t, "Grundfos", h.Brand)
	assert.Equal(t, "Pompe Grundfos CR10", h.Description)

	items := h.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Equal(t, rfq.UnitPieces, items[0].Unit)
	assert.True(t, items[0].IsEstimated)
	assert.True(t, items[0].NeedsManualReview)
	assert.Equal(t, "Grundfos", items[0].Brand)
}

func TestParseFilename_NoDescription(t *testing.T) {
	h := ParseFilename(vocab.Default(), "scan_001.pdf")

	assert.Empty(t, h.Description)
	assert.Nil(t, h.Items())
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><title>x</title><style>p{color:red}</style></head><body>
<p>Bonjour,</p>
<table><tr><td>Qté</td><td>Désignation</td></tr><tr><td>2</td><td>Vanne   DN50</td></tr></table>
<div>Merci<br>Ali</div>
<div class="gmail_quote">ancien message</div>
</body></html>`

	text, err := HTMLToText(html)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour,\nQté Désignation\n2 Vanne DN50\nMerci\nAli", text)
}

func TestTrimReply(t *testing.T) {
	body := strings.Join([]string{
		"Bonjour,",
		"> ligne citée",
		"Merci de coter 2 vannes DN50.",
		"",
		"Cordialement,",
		"Jean",
		"",
		"Le lun. 3 juin 2024 à 10:00, X <x@y.com> a écrit :",
		"> vieux message",
	}, "\n")

	assert.Equal(t, "Bonjour,\nMerci de coter 2 vannes DN50.", TrimReply(body))
}

func TestTrimReply_ForwardHeader(t *testing.T) {
	body := "Voir ci-dessous\n-----Original Message-----\nFrom: a@b.com\n10 x filtres"
	assert.Equal(t, "Voir ci-dessous", TrimReply(body))
}

func TestParseEmailMetadata(t *testing.T) {
	body := strings.Join([]string{
		"Bonjour,",
		"Merci de nous faire parvenir votre offre avant le 15/06/2024.",
		"Cordialement",
		"Jean Dupont",
		"Responsable achats",
		"Tél : 06 12 34 56 78",
	}, "\n")

	md := ParseEmailMetadata(vocab.Default(), body, "Demande urgente")

	assert.Equal(t, "15/06/2024", md.Deadline)
	assert.True(t, md.IsUrgent)
	assert.Equal(t, "06 12 34 56 78", md.ContactPhone)
	assert.Equal(t, "Jean Dupont", md.ContactName)
	assert.Equal(t, "Responsable achats", md.ContactRole)
}

func TestParseEmailMetadata_Empty(t *testing.T) {
	md := ParseEmailMetadata(vocab.Default(), "Merci de coter 4 roulements.", "")

	assert.Empty(t, md.Deadline)
	assert.False(t, md.IsUrgent)
	assert.Empty(t, md.ContactPhone)
	assert.Empty(t, md.ContactName)
}

func TestParseNameplate(t *testing.T) {
	text := "GRUNDFOS\nType CR10-4 A-FGJ-A-E-HQQE\nP/N 96501904\nSerial No 0123456789\nMade in Denmark"

	n := ParseNameplate(vocab.Default(), text)

	assert.Equal(t, "Grundfos", n.Brand)
	assert.Equal(t, "CR10-4", n.Model)
	assert.Equal(t, "96501904", n.PartNumber)
	assert.Equal(t, "0123456789", n.SerialNumber)
	assert.False(t, n.Empty())

	it := n.Item()
	assert.Equal(t, "Pièce de rechange Grundfos CR10-4 P/N 96501904", it.Description)
	assert.Equal(t, "96501904", it.SupplierCode)
	assert.Equal(t, "0123456789", it.SerialNumber)
	assert.True(t, it.NeedsManualReview)
}

func TestParseNameplate_Noise(t *testing.T) {
	n := ParseNameplate(vocab.Default(), "~~ |i 1l :: type ABC")
	assert.True(t, n.Empty())
}
