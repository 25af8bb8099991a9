package classify

import (
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

// AllSameBrand reports whether every RFQ attachment shares one detected
// brand. With zero or one RFQ attachment there is nothing to split, so the
// answer is true; an RFQ without a brand makes it false.
func AllSameBrand(classified []rfq.ClassifiedAttachment) bool {
	var brand string
	n := 0
	for _, c := range classified {
		if c.Category != rfq.CategoryRFQ {
			continue
		}
		n++
		if n == 1 {
			brand = c.Brand
			continue
		}
		if brand == "" || !strings.EqualFold(c.Brand, brand) {
			return false
		}
	}
	if n > 1 && brand == "" {
		return false
	}
	return true
}

// GroupByBrand buckets RFQ attachments by brand; the "" key holds those
// with no detected brand.
func GroupByBrand(classified []rfq.ClassifiedAttachment) map[string][]rfq.ClassifiedAttachment {
	groups := make(map[string][]rfq.ClassifiedAttachment)
	for _, c := range classified {
		if c.Category != rfq.CategoryRFQ {
			continue
		}
		key := c.Brand
		for existing := range groups {
			if strings.EqualFold(existing, key) {
				key = existing
				break
			}
		}
		groups[key] = append(groups[key], c)
	}
	return groups
}
