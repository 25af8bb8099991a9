package documents

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Result is everything extracted from one incoming request.
type Result struct {
	Classified        []rfq.ClassifiedAttachment `json:"classified"`
	Documents         []*rfq.ExtractedDocument   `json:"documents"`
	Email             *rfq.ExtractedDocument     `json:"email,omitempty"`
	Items             []rfq.LineItem             `json:"items"`
	RFQNumber         string                     `json:"rfq_number,omitempty"`
	NeedsManualReview bool                       `json:"needs_manual_review"`
	AllSameBrand      bool                       `json:"all_same_brand"`
	EmailMetadata     *rfq.EmailMetadata         `json:"email_metadata,omitempty"`
}

// ExtractAll classifies the attachments, extracts every RFQ document and
// nameplate photo concurrently, and merges their items. Technical sheets
// and decoration images contribute no items. Email body items are used
// only when the attachments produced nothing but placeholders.
func (p *Pipeline) ExtractAll(ctx context.Context, attachments []rfq.Attachment, body, subject string) *Result {
	res := &Result{Classified: p.ClassifyAttachments(attachments)}
	res.AllSameBrand = p.AllSameBrand(res.Classified)

	var targets []rfq.Attachment
	for _, ca := range res.Classified {
		switch ca.Category {
		case rfq.CategoryRFQ, rfq.CategoryUnknown:
			targets = append(targets, ca.Attachment)
		case rfq.CategoryImage:
			if ok, _ := p.signature.Check(ca.Attachment); !ok {
				targets = append(targets, ca.Attachment)
			}
		}
	}

	res.Documents = make([]*rfq.ExtractedDocument, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, a := range targets {
		g.Go(func() error {
			res.Documents[i] = p.ExtractDocument(gctx, a)
			return nil
		})
	}
	_ = g.Wait()

	var items []rfq.LineItem
	for _, d := range res.Documents {
		for _, it := range d.Items {
			if !rfq.IsPlaceholder(it) {
				items = append(items, it)
			}
		}
	}

	if strings.TrimSpace(body) != "" || subject != "" {
		res.Email = p.ExtractEmailBody(ctx, body, subject)
		res.EmailMetadata = res.Email.EmailMetadata
		if len(items) == 0 {
			for _, it := range res.Email.Items {
				if !rfq.IsPlaceholder(it) {
					items = append(items, it)
				}
			}
		}
	}

	items = mergeItems(items)
	if len(items) == 0 {
		items = []rfq.LineItem{rfq.PlaceholderItem("nothing extracted from the request")}
	}
	res.Items = items
	res.RFQNumber = p.rfqNumber(res)

	for _, d := range res.Documents {
		if d.NeedsManualReview() {
			res.NeedsManualReview = true
		}
	}
	for _, it := range res.Items {
		if it.NeedsManualReview {
			res.NeedsManualReview = true
		}
	}

	p.logger.Info("Request extracted",
		zap.Int("attachments", len(attachments)),
		zap.Int("documents", len(res.Documents)),
		zap.Int("items", len(res.Items)),
		zap.String("rfq_number", res.RFQNumber),
		zap.Bool("needs_manual_review", res.NeedsManualReview),
	)
	return res
}

// rfqNumber prefers the email, then the documents in input order, then
// the classifier's filename hints.
func (p *Pipeline) rfqNumber(res *Result) string {
	if res.Email != nil && res.Email.RFQNumber != "" {
		return res.Email.RFQNumber
	}
	for _, d := range res.Documents {
		if d.RFQNumber != "" {
			return d.RFQNumber
		}
	}
	for _, ca := range res.Classified {
		if ca.RFQNumberHint != "" {
			return ca.RFQNumberHint
		}
	}
	return ""
}

// mergeItems drops the same item listed by two documents. Items sharing an
// internal code merge; otherwise description and quantity must match.
func mergeItems(items []rfq.LineItem) []rfq.LineItem {
	seen := make(map[string]int, len(items))
	out := make([]rfq.LineItem, 0, len(items))
	for _, it := range items {
		key := "d:" + vocab.Key(it.Description) + "|" + formatQty(it.Quantity)
		if it.InternalCode != "" {
			key = "c:" + strings.ToUpper(it.InternalCode)
		}
		if i, ok := seen[key]; ok {
			out[i] = fillGaps(out[i], it)
			continue
		}
		seen[key] = len(out)
		out = append(out, it)
	}
	return out
}

// fillGaps copies the fields dst lacks from src.
func fillGaps(dst, src rfq.LineItem) rfq.LineItem {
	if dst.Brand == "" {
		dst.Brand = src.Brand
	}
	if dst.SupplierCode == "" {
		dst.SupplierCode = src.SupplierCode
	}
	if dst.Reference == "" {
		dst.Reference = src.Reference
	}
	if dst.SerialNumber == "" {
		dst.SerialNumber = src.SerialNumber
	}
	dst.NeedsManualReview = dst.NeedsManualReview || src.NeedsManualReview
	return dst
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
