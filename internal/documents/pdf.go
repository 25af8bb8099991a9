package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/layout"
	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/ocr"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/toolexec"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Extraction methods reported on PDF documents, in tier order.
const (
	MethodTextLayer = "text_layer"
	MethodPdfcpu    = "pdfcpu_stream"
	MethodPdftotext = "pdftotext"
	MethodOCR       = "ocr"
	MethodFilename  = "filename"
)

type PDFConfig struct {
	// MinTextChars is the usable text below which the next tier runs.
	MinTextChars  int
	MaxPages      int
	PdftotextPath string
}

func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		MinTextChars:  50,
		MaxPages:      50,
		PdftotextPath: "pdftotext",
	}
}

// pdfText is the output of one tier.
type pdfText struct {
	text   string
	rows   []rfq.PdfRow
	stats  layout.Stats
	method string
}

// pdfInfo is what pdfcpu tells about the file structure.
type pdfInfo struct {
	pages  int
	images bool
	text   string
}

type pdfExtractor struct {
	config PDFConfig
	vocab  *vocab.Vocabulary
	engine *lineitems.Engine
	layout *layout.Reconstructor
	runner *toolexec.Runner
	ocr    *ocr.Engine
	logger *zap.Logger
}

// Extract walks the tiers: text layer with coordinates, pdfcpu content
// streams, pdftotext, OCR. A tier runs only while the best text so far is
// under MinTextChars. When all of them come up short the file name is all
// that is left. A usable text layer still gets its thin pages OCRed, so a
// scanned annex behind a native first page is read too.
func (x *pdfExtractor) Extract(ctx context.Context, a rfq.Attachment, scope *tempfs.Scope) (*rfq.ExtractedDocument, error) {
	doc := &rfq.ExtractedDocument{Filename: a.Filename, FormatKind: rfq.FormatPDF}
	log := x.logger.With(zap.String("file", a.Filename))

	tokens, pages, err := readTextLayer(a.Data, x.config.MaxPages)
	if err != nil {
		log.Debug("Text layer unreadable", zap.Error(err))
	}
	rows, stats := x.layout.Reconstruct(tokens)
	best := pdfText{text: rowsText(rows), rows: rows, stats: stats, method: MethodTextLayer}

	info, err := inspectPDF(a.Data, x.config.MaxPages)
	if err != nil {
		log.Debug("pdfcpu inspection failed", zap.Error(err))
	}
	if info.pages > pages {
		pages = info.pages
	}
	if x.short(best.text) && usable(info.text) > usable(best.text) {
		best = pdfText{text: info.text, method: MethodPdfcpu}
	}

	var pdfPath string
	// image-only scans have nothing for pdftotext to find
	imageOnly := info.images && usable(best.text) == 0
	if x.short(best.text) && !imageOnly {
		if pdfPath, err = x.ensureFile(pdfPath, a, scope); err == nil {
			text, err := x.pdftotext(ctx, pdfPath)
			switch {
			case err != nil:
				log.Debug("pdftotext tier failed", zap.Error(err))
			case usable(text) > usable(best.text):
				best = pdfText{text: text, method: MethodPdftotext}
			}
		}
	}

	if x.short(best.text) && x.ocr != nil {
		if pdfPath, err = x.ensureFile(pdfPath, a, scope); err == nil {
			res, err := x.ocr.OCRPDF(ctx, pdfPath, thinPages(tokens, pages, x.ocr), scope)
			switch {
			case err != nil:
				log.Warn("OCR tier failed", zap.Error(err))
			case usable(res.Text) > usable(best.text):
				best = pdfText{text: res.Text, method: MethodOCR}
				doc.NeedsVerification = true
			}
		}
	}

	// scanned pages bound behind native ones
	if !x.short(best.text) && best.method == MethodTextLayer && x.ocr != nil {
		if thin := thinPages(tokens, pages, x.ocr); len(thin) > 0 {
			if pdfPath, err = x.ensureFile(pdfPath, a, scope); err == nil {
				res, err := x.ocr.OCRPDF(ctx, pdfPath, thin, scope)
				switch {
				case err != nil:
					log.Warn("OCR of scanned pages failed", zap.Ints("pages", thin), zap.Error(err))
				case usable(res.Text) > 0:
					best.text += "\n" + lineitems.PageBreak + "\n" + res.Text
					best.method = MethodTextLayer + "+" + MethodOCR
					doc.NeedsVerification = true
				}
			}
		}
	}

	doc.RawText = best.text
	if x.short(best.text) {
		hints := ParseFilename(x.vocab, a.Filename)
		doc.Items = hints.Items()
		doc.RFQNumber = hints.Reference
		doc.NeedsVerification = true
		doc.ExtractionMethod = MethodFilename
		log.Info("No usable PDF text, using file name",
			zap.Int("chars", usable(best.text)),
			zap.Int("pages", pages),
		)
		return doc, nil
	}

	res := x.engine.Extract(&lineitems.Input{
		Text:    best.text,
		Rows:    best.rows,
		Tabular: best.stats.LooksTabular(),
		Format:  rfq.FormatPDF,
	})
	doc.Items = res.Items
	doc.Strategy = res.Strategy
	doc.ExtractionMethod = best.method
	doc.RFQNumber = FindReference(best.text)
	return doc, nil
}

func (x *pdfExtractor) short(text string) bool {
	return usable(text) < x.config.MinTextChars
}

// ensureFile writes the attachment once for the external tools.
func (x *pdfExtractor) ensureFile(path string, a rfq.Attachment, scope *tempfs.Scope) (string, error) {
	if path != "" {
		return path, nil
	}
	return scope.Write("rfq_pdf", ".pdf", a.Data)
}

func (x *pdfExtractor) pdftotext(ctx context.Context, pdfPath string) (string, error) {
	if x.runner == nil {
		return "", apperrors.ErrToolMissing.WithCause(fmt.Errorf("no tool runner"))
	}
	out, err := x.runner.Run(ctx, x.config.PdftotextPath,
		"-layout",
		"-enc", "UTF-8",
		"-l", fmt.Sprint(x.config.MaxPages),
		pdfPath, "-",
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// thinPages lists the pages whose text layer is below the OCR trigger.
// Without a page count OCR probes from page 1.
func thinPages(tokens []rfq.PdfToken, pages int, engine *ocr.Engine) []int {
	if pages <= 0 {
		return nil
	}
	perPage := make(map[int]*strings.Builder)
	for _, t := range tokens {
		b, ok := perPage[t.Page]
		if !ok {
			b = &strings.Builder{}
			perPage[t.Page] = b
		}
		b.WriteString(t.Text)
		b.WriteByte(' ')
	}
	var thin []int
	for p := 1; p <= pages; p++ {
		if b, ok := perPage[p]; ok && !engine.NeedsOCR(b.String()) {
			continue
		}
		thin = append(thin, p)
	}
	return thin
}

func usable(text string) int {
	return ocr.UsableChars(text)
}

// readTextLayer returns word tokens with their page coordinates. The
// reader panics on some damaged files; that is reported as malformed input.
func readTextLayer(data []byte, maxPages int) (tokens []rfq.PdfToken, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.ErrMalformedInput.WithCause(fmt.Errorf("pdf reader: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, apperrors.ErrMalformedInput.WithCause(err)
	}
	pages = r.NumPage()
	for i := 1; i <= pages && i <= maxPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		tokens = append(tokens, glyphTokens(p.Content().Text, i)...)
	}
	return tokens, pages, nil
}

// glyphTokens merges the reader's per-glyph output into words. A word ends
// at a space, a baseline change or a horizontal jump.
func glyphTokens(glyphs []pdf.Text, page int) []rfq.PdfToken {
	var (
		out []rfq.PdfToken
		cur *rfq.PdfToken
		sb  strings.Builder
		end float64
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = sb.String()
		cur.Width = end - cur.X
		out = append(out, *cur)
		cur = nil
		sb.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		size := math.Max(g.FontSize, 1)
		w := g.W
		if w <= 0 {
			w = size * 0.5 * float64(len([]rune(g.S)))
		}
		if cur != nil {
			sameLine := math.Abs(g.Y-cur.Y) < size*0.5
			adjacent := g.X >= end-size*0.5 && g.X-end < size*0.25
			if !sameLine || !adjacent {
				flush()
			}
		}
		if cur == nil {
			cur = &rfq.PdfToken{X: g.X, Y: g.Y, Height: size, Page: page}
		}
		sb.WriteString(g.S)
		end = g.X + w
	}
	flush()
	return out
}

// rowsText renders rows one per line with a form feed between pages.
func rowsText(rows []rfq.PdfRow) string {
	var sb strings.Builder
	page := 0
	for i, r := range rows {
		if i > 0 {
			if r.Page != page {
				sb.WriteString("\n" + lineitems.PageBreak + "\n")
			} else {
				sb.WriteByte('\n')
			}
		}
		page = r.Page
		sb.WriteString(r.RawText)
	}
	return sb.String()
}

// inspectPDF reads the structure with pdfcpu: page count, whether pages
// carry images, and the text shown by the content streams.
func inspectPDF(data []byte, maxPages int) (info pdfInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.ErrMalformedInput.WithCause(fmt.Errorf("pdfcpu: %v", r))
		}
	}()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return info, apperrors.ErrMalformedInput.WithCause(err)
	}
	info.pages = ctx.PageCount

	var sb strings.Builder
	for p := 1; p <= ctx.PageCount && p <= maxPages; p++ {
		if ctx.Optimize != nil && len(pdfcpu.ImageObjNrs(ctx, p)) > 0 {
			info.images = true
		}
		r, err := pdfcpu.ExtractPageContent(ctx, p)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n" + lineitems.PageBreak + "\n")
		}
		sb.WriteString(streamText(content))
	}
	info.text = sb.String()
	return info, nil
}

var pdfLiteral = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// streamText pulls the literal strings shown by Tj, TJ, ' and " out of a
// content stream. Positioning operators become line breaks or spaces.
func streamText(content []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(content, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")),
			bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			for _, m := range pdfLiteral.FindAllSubmatch(line, -1) {
				sb.WriteString(unescapePDF(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")),
			bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			sb.WriteByte('\n')
		case bytes.HasSuffix(line, []byte("Tm")):
			sb.WriteByte(' ')
		}
	}
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func unescapePDF(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n', 'r':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte(' ')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			for n := 0; n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
				v = v*8 + int(raw[i]-'0')
				i++
			}
			i--
			sb.WriteByte(byte(v))
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
