package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Shared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestDetectBrand(t *testing.T) {
	v := Default()

	tests := []struct {
		text string
		want string
	}{
		{"Roulement SKF 6205-2RS", "SKF"},
		{"contacteur schneider LC1D25", "Schneider"},
		{"Bosch Rexroth valve 4WE6", "Bosch Rexroth"},
		{"Endress+Hauser Promag", "Endress+Hauser"},
		{"RFQ_skf_bearings.xlsx", "SKF"},
		{"no brand here", ""},
		{"ASKFOR nothing", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.DetectBrand(tt.text), "DetectBrand(%q)", tt.text)
	}
}

func TestLocateBrand(t *testing.T) {
	idx, brand := Default().LocateBrand("Pompe GRUNDFOS CR 10-4")
	assert.Equal(t, "Grundfos", brand)
	assert.Equal(t, 6, idx)

	idx, brand = Default().LocateBrand("")
	assert.Equal(t, -1, idx)
	assert.Empty(t, brand)
}

func TestFoldAndKey(t *testing.T) {
	assert.Equal(t, "Designation", Fold("Désignation"))
	assert.Equal(t, "Qte", Fold("Qté"))
	assert.Equal(t, "qte commandee", Key("  Qté   Commandée "))
	assert.Equal(t, "plain", Fold("plain"))
}

func TestHasTechnicalTerm(t *testing.T) {
	v := Default()
	assert.True(t, v.HasTechnicalTerm("2 roulements à billes"))
	assert.True(t, v.HasTechnicalTerm("Manomètre 0-10 bar"))
	assert.False(t, v.HasTechnicalTerm("Bonjour, merci"))
}

func TestIsLetterhead(t *testing.T) {
	v := Default()
	assert.True(t, v.IsLetterhead("Tél: +33 1 23 45 67 89"))
	assert.True(t, v.IsLetterhead("SIRET 123 456 789 00010"))
	assert.True(t, v.IsLetterhead("Page 1 of 3"))
	assert.True(t, v.IsLetterhead("Votre réf: 45678"))
	assert.True(t, v.IsLetterhead("Notre Réf. 2024-118"))
	assert.True(t, v.IsLetterhead("Référence : DP-778"))
	assert.False(t, v.IsLetterhead("RELAY OVERLOAD 2.5-4A"))
	assert.False(t, v.IsLetterhead("Roulement référence 6205 x 4"))
}

func TestFieldLabel(t *testing.T) {
	v := Default()

	tests := []struct {
		label string
		want  FieldKind
		ok    bool
	}{
		{"Désignation", FieldDescription, true},
		{"QUANTITÉ", FieldQuantity, true},
		{"Qté.", FieldQuantity, true},
		{"Votre réf.", FieldReference, true},
		{"N°", FieldReference, true},
		{"Délai de livraison", FieldOther, true},
		{"Roulement SKF 6205", "", false},
	}
	for _, tt := range tests {
		kind, ok := v.FieldLabel(tt.label)
		assert.Equal(t, tt.ok, ok, "FieldLabel(%q)", tt.label)
		assert.Equal(t, tt.want, kind, "FieldLabel(%q)", tt.label)
	}
}

func TestFieldLabel_Override(t *testing.T) {
	v := New(Overrides{FieldLabels: map[FieldKind][]string{FieldQuantity: {"menge"}}})

	kind, ok := v.FieldLabel("Menge")
	assert.True(t, ok)
	assert.Equal(t, FieldQuantity, kind)

	_, ok = v.FieldLabel("Quantité")
	assert.False(t, ok)
	_, ok = v.FieldLabel("Désignation")
	assert.True(t, ok)
}

func TestCountKeywords(t *testing.T) {
	assert.GreaterOrEqual(t, CountKeywords("Fiche_Technique_datasheet.pdf", Default().TechKeywords()), 2)
	assert.Equal(t, 0, CountKeywords("image003.png", Default().RFQKeywords()))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := "extra_brands:\n  - Acme Pumps\nrfq_keywords:\n  - consultation\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := LoadFile(path, "Zenith")
	require.NoError(t, err)

	assert.Equal(t, "Acme Pumps", v.DetectBrand("pompe acme pumps AP-100"))
	assert.Equal(t, "Zenith", v.DetectBrand("ZENITH carburettor"))
	assert.Equal(t, "SKF", v.DetectBrand("SKF 6205"))
	assert.Equal(t, []string{"consultation"}, v.RFQKeywords())

	// Overrides never leak into the shared default.
	assert.Empty(t, Default().DetectBrand("acme pumps"))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
