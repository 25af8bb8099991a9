package rfq

import (
	"math"
	"strings"
)

const (
	// MaxQuantity is the largest plausible requested quantity. Larger values
	// are nearly always row ordinals or codes read as numbers.
	MaxQuantity = 100000

	// MinDescriptionLength is the shortest description kept after cleaning.
	MinDescriptionLength = 5

	// PlaceholderDescription is used when nothing usable could be extracted.
	PlaceholderDescription = "Article à définir - voir document joint"
)

// ValidQuantity reports whether q is a finite quantity in (0, max].
func ValidQuantity(q, max float64) bool {
	if max <= 0 {
		max = MaxQuantity
	}
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q > 0 && q <= max
}

// ValidDescription reports whether a cleaned description is long enough.
func ValidDescription(desc string, minLen int) bool {
	if minLen <= 0 {
		minLen = MinDescriptionLength
	}
	return len([]rune(strings.TrimSpace(desc))) >= minLen
}

// PlaceholderItem returns the generic item emitted when a document yields
// nothing. It always requires manual review.
func PlaceholderItem(notes string) LineItem {
	return LineItem{
		Description:       PlaceholderDescription,
		Quantity:          1,
		Unit:              UnitPieces,
		IsEstimated:       true,
		NeedsManualReview: true,
		Notes:             notes,
	}
}

// IsPlaceholder reports whether item was synthesized by PlaceholderItem.
func IsPlaceholder(item LineItem) bool {
	return item.Description == PlaceholderDescription
}

// EnsureItems guarantees at least one item on the document and propagates
// the verification flag onto every item.
func (d *ExtractedDocument) EnsureItems(notes string) {
	if len(d.Items) == 0 {
		d.Items = []LineItem{PlaceholderItem(notes)}
		d.NeedsVerification = true
	}
	if d.NeedsVerification {
		for i := range d.Items {
			d.Items[i].NeedsManualReview = true
		}
	}
}

// NeedsManualReview reports whether any item of the document needs review.
func (d *ExtractedDocument) NeedsManualReview() bool {
	if d.NeedsVerification {
		return true
	}
	for _, it := range d.Items {
		if it.NeedsManualReview {
			return true
		}
	}
	return false
}
