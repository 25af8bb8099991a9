// Package vocab holds the keyword, brand and technical-term tables used by
// the classifier and the line-item engine. A Vocabulary is built once and
// shared read-only between concurrent extractions.
package vocab

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Vocabulary is an immutable snapshot of the lookup tables. Build it with
// Default, New or LoadFile; never mutate the slices it exposes.
type Vocabulary struct {
	brands          []string
	techKeywords    []string
	rfqKeywords     []string
	technicalTerms  []string
	letterheadTerms []string
	fieldLabels     map[string]FieldKind

	brandRe *regexp.Regexp
	termRe  *regexp.Regexp
}

// Overrides is the on-disk shape of a vocabulary file. Lists replace the
// defaults unless the matching Extra* list is used.
type Overrides struct {
	Brands          []string `yaml:"brands"`
	ExtraBrands     []string `yaml:"extra_brands"`
	TechKeywords    []string `yaml:"tech_keywords"`
	RFQKeywords     []string `yaml:"rfq_keywords"`
	TechnicalTerms  []string `yaml:"technical_terms"`
	ExtraTerms      []string `yaml:"extra_technical_terms"`
	LetterheadTerms []string `yaml:"letterhead_terms"`
	// FieldLabels replaces the labels of the kinds it names.
	FieldLabels map[FieldKind][]string `yaml:"field_labels"`
}

// FieldKind is what a form label announces.
type FieldKind string

const (
	FieldDescription FieldKind = "description"
	FieldQuantity    FieldKind = "quantity"
	FieldReference   FieldKind = "reference"
	FieldOther       FieldKind = "other"
)

var (
	defaultVocab *Vocabulary
	defaultOnce  sync.Once
)

// Default returns the process-wide default vocabulary.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		defaultVocab = New(Overrides{})
	})
	return defaultVocab
}

// New builds a vocabulary from the defaults and the given overrides.
func New(o Overrides) *Vocabulary {
	v := &Vocabulary{
		brands:          pick(o.Brands, defaultBrands),
		techKeywords:    pick(o.TechKeywords, defaultTechKeywords),
		rfqKeywords:     pick(o.RFQKeywords, defaultRFQKeywords),
		technicalTerms:  pick(o.TechnicalTerms, defaultTechnicalTerms),
		letterheadTerms: pick(o.LetterheadTerms, defaultLetterheadTerms),
	}
	v.brands = dedupe(append(v.brands, o.ExtraBrands...))
	v.technicalTerms = dedupe(append(v.technicalTerms, o.ExtraTerms...))

	v.fieldLabels = make(map[string]FieldKind)
	for kind, labels := range defaultFieldLabels {
		if override, ok := o.FieldLabels[kind]; ok {
			labels = override
		}
		for _, l := range labels {
			v.fieldLabels[labelKey(l)] = kind
		}
	}

	v.brandRe = alternation(v.brands, "")
	// terms also match their plural form
	v.termRe = alternation(foldAll(v.technicalTerms), `(?:s|x|es)?`)
	return v
}

// LoadFile reads YAML overrides from path and builds a vocabulary from them.
func LoadFile(path string, extraBrands ...string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	o.ExtraBrands = append(o.ExtraBrands, extraBrands...)
	return New(o), nil
}

func pick(override, fallback []string) []string {
	src := fallback
	if len(override) > 0 {
		src = override
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func foldAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = Fold(s)
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// alternation compiles a case-insensitive, word-bounded, longest-first
// alternation of the given phrases.
func alternation(words []string, suffix string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	parts := make([]string, len(sorted))
	for i, w := range sorted {
		parts[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + strings.Join(parts, "|") + `)` + suffix + `(?:$|[^\p{L}\p{N}])`)
}

// Brands returns a copy of the brand list.
func (v *Vocabulary) Brands() []string { return append([]string(nil), v.brands...) }

// TechKeywords returns a copy of the technical-sheet filename keywords.
func (v *Vocabulary) TechKeywords() []string { return append([]string(nil), v.techKeywords...) }

// RFQKeywords returns a copy of the RFQ filename keywords.
func (v *Vocabulary) RFQKeywords() []string { return append([]string(nil), v.rfqKeywords...) }

// DetectBrand returns the canonical spelling of the first brand found in
// text, or "".
func (v *Vocabulary) DetectBrand(text string) string {
	_, brand := v.LocateBrand(text)
	return brand
}

// LocateBrand returns the byte offset and canonical spelling of the first
// brand found in text. The offset is -1 when none is found.
func (v *Vocabulary) LocateBrand(text string) (int, string) {
	if v.brandRe == nil || text == "" {
		return -1, ""
	}
	loc := v.brandRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return -1, ""
	}
	found := text[loc[2]:loc[3]]
	for _, b := range v.brands {
		if strings.EqualFold(b, found) {
			return loc[2], b
		}
	}
	return loc[2], found
}

// HasTechnicalTerm reports whether text mentions a known equipment term.
func (v *Vocabulary) HasTechnicalTerm(text string) bool {
	return v.termRe != nil && v.termRe.MatchString(Fold(text))
}

// IsLetterhead reports whether line looks like company letterhead or
// document metadata rather than a product description.
func (v *Vocabulary) IsLetterhead(line string) bool {
	folded := strings.ToLower(Fold(line))
	for _, t := range v.letterheadTerms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

// FieldLabel reports whether s, without its trailing colon or dots, is a
// form field label such as "Désignation", "Qté" or "Votre réf.".
func (v *Vocabulary) FieldLabel(s string) (FieldKind, bool) {
	kind, ok := v.fieldLabels[labelKey(s)]
	return kind, ok
}

func labelKey(s string) string {
	return strings.TrimRight(Key(s), " .:#")
}

// CountKeywords counts how many of keywords occur in the folded text.
func CountKeywords(text string, keywords []string) int {
	folded := strings.ToLower(Fold(text))
	n := 0
	for _, k := range keywords {
		if strings.Contains(folded, strings.ToLower(Fold(k))) {
			n++
		}
	}
	return n
}
