package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gmsas95/rfqextract/internal/documents"
	"github.com/gmsas95/rfqextract/internal/rfq"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	reviewStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// renderer prints markdown through glamour and headings through lipgloss
// when writing to a terminal, and plain text otherwise.
type renderer struct {
	w      io.Writer
	pretty bool
	md     *glamour.TermRenderer
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{w: w}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}
	width := 100
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
		width = cols - 4
	}
	md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return r
	}
	r.pretty = true
	r.md = md
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.pretty {
		return text
	}
	return s.Render(text)
}

func (r *renderer) title(text string) {
	fmt.Fprintln(r.w, r.style(titleStyle, text))
}

func (r *renderer) field(label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.style(labelStyle, label+":"), value)
}

func (r *renderer) markdown(md string) {
	if r.pretty {
		if out, err := r.md.Render(md); err == nil {
			fmt.Fprint(r.w, out)
			return
		}
	}
	fmt.Fprintln(r.w, md)
}

func (r *renderer) json(v any) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *renderer) reviewFlag(needs bool) string {
	if needs {
		return r.style(reviewStyle, "needs manual review")
	}
	return r.style(okStyle, "ok")
}

func (r *renderer) document(doc *rfq.ExtractedDocument) {
	r.title(doc.Filename)
	r.field("Format", string(doc.FormatKind))
	r.field("Method", doc.ExtractionMethod)
	r.field("Strategy", doc.Strategy)
	r.field("RFQ", doc.RFQNumber)
	r.field("Status", r.reviewFlag(doc.NeedsManualReview()))
	r.metadata(doc.EmailMetadata)
	fmt.Fprintln(r.w)
	r.markdown(itemsMarkdown(doc.Items))
}

func (r *renderer) metadata(m *rfq.EmailMetadata) {
	if m == nil {
		return
	}
	r.field("Deadline", m.Deadline)
	contact := strings.TrimSpace(strings.Join([]string{m.ContactName, m.ContactRole}, " "))
	r.field("Contact", contact)
	r.field("Phone", m.ContactPhone)
	if m.IsUrgent {
		r.field("Urgent", r.style(reviewStyle, "yes"))
	}
}

func (r *renderer) classification(classified []rfq.ClassifiedAttachment, sameBrand bool) {
	var sb strings.Builder
	sb.WriteString("| File | Category | Confidence | Brand | Related to | Reason |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, c := range classified {
		fmt.Fprintf(&sb, "| %s | %s | %d | %s | %s | %s |\n",
			cell(c.Attachment.Filename), c.Category, c.Confidence,
			cell(c.Brand), cell(c.RelatedTo), cell(c.Reason))
	}
	r.markdown(sb.String())
	r.field("Same brand", strconv.FormatBool(sameBrand))
}

func (r *renderer) result(res *documents.Result) {
	r.title("Request")
	r.field("RFQ", res.RFQNumber)
	r.field("Attachments", strconv.Itoa(len(res.Classified)))
	r.field("Documents", strconv.Itoa(len(res.Documents)))
	r.field("Same brand", strconv.FormatBool(res.AllSameBrand))
	r.field("Status", r.reviewFlag(res.NeedsManualReview))
	r.metadata(res.EmailMetadata)
	fmt.Fprintln(r.w)
	r.markdown(itemsMarkdown(res.Items))
}

func itemsMarkdown(items []rfq.LineItem) string {
	var sb strings.Builder
	sb.WriteString("| # | Qty | Unit | Description | Code | Brand | Review |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for i, it := range items {
		qty := strconv.FormatFloat(it.Quantity, 'f', -1, 64)
		if it.IsEstimated {
			qty += "?"
		}
		code := it.InternalCode
		if code == "" {
			code = it.SupplierCode
		}
		review := ""
		if it.NeedsManualReview {
			review = "yes"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, qty, it.Unit, cell(it.Description), cell(code), cell(it.Brand), review)
	}
	return sb.String()
}

// cell keeps a value on one markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
