// Package documents is the public face of the extraction pipeline: it
// classifies attachments, picks the extractor for each file, and always
// hands back a document with at least one line item.
package documents

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/classify"
	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/layout"
	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/metrics"
	"github.com/gmsas95/rfqextract/internal/ocr"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/toolexec"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Extractor turns one attachment into a document. Temporary files must be
// created through scope, which the pipeline closes on every exit path.
type Extractor interface {
	Extract(ctx context.Context, a rfq.Attachment, scope *tempfs.Scope) (*rfq.ExtractedDocument, error)
}

// Options configures a Pipeline. Zero values take defaults; Runner and OCR
// may be supplied to share them or to inject fakes.
type Options struct {
	Vocabulary   *vocab.Vocabulary
	Extraction   lineitems.Config
	Layout       layout.Options
	OCR          ocr.Config
	PDF          PDFConfig
	Tools        toolexec.Config
	Signature    classify.SignatureFilter
	TempDir      string
	AntiwordPath string
	// DisableOCR turns off the OCR tier, e.g. on hosts without tesseract.
	DisableOCR bool
	// Concurrency bounds ExtractAll; 0 means 4.
	Concurrency int

	Runner    *toolexec.Runner
	OCREngine *ocr.Engine
	Logger    *zap.Logger
}

type Pipeline struct {
	vocab       *vocab.Vocabulary
	classifier  *classify.Classifier
	signature   classify.SignatureFilter
	engine      *lineitems.Engine
	extractors  map[Kind]Extractor
	tempDir     string
	concurrency int
	logger      *zap.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := opts.Vocabulary
	if v == nil {
		v = vocab.Default()
	}
	if opts.Signature == (classify.SignatureFilter{}) {
		opts.Signature = classify.DefaultSignatureFilter()
	}
	def := DefaultPDFConfig()
	if opts.PDF.MinTextChars <= 0 {
		opts.PDF.MinTextChars = def.MinTextChars
	}
	if opts.PDF.MaxPages <= 0 {
		opts.PDF.MaxPages = def.MaxPages
	}
	if opts.PDF.PdftotextPath == "" {
		opts.PDF.PdftotextPath = def.PdftotextPath
	}
	if opts.AntiwordPath == "" {
		opts.AntiwordPath = "antiword"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	runner := opts.Runner
	if runner == nil {
		runner = toolexec.NewRunner(opts.Tools, logger.Named("tools"))
	}
	engineOCR := opts.OCREngine
	if engineOCR == nil && !opts.DisableOCR {
		engineOCR = ocr.NewEngine(opts.OCR, runner, logger.Named("ocr"))
	}
	engine := lineitems.New(v, opts.Extraction, logger.Named("lineitems"))

	pdfX := &pdfExtractor{
		config: opts.PDF,
		vocab:  v,
		engine: engine,
		layout: layout.New(opts.Layout),
		runner: runner,
		ocr:    engineOCR,
		logger: logger.Named("pdf"),
	}
	excelX := &excelExtractor{engine: engine, logger: logger.Named("excel")}
	wordX := &wordExtractor{engine: engine, runner: runner, antiwordPath: opts.AntiwordPath, logger: logger.Named("word")}
	imageX := &imageExtractor{vocab: v, filter: opts.Signature, ocr: engineOCR, logger: logger.Named("image")}

	return &Pipeline{
		vocab:      v,
		classifier: classify.New(v, opts.Signature, logger.Named("classify")),
		signature:  opts.Signature,
		engine:     engine,
		extractors: map[Kind]Extractor{
			KindPDF:   pdfX,
			KindXLSX:  excelX,
			KindXLS:   excelX,
			KindCSV:   excelX,
			KindDOCX:  wordX,
			KindODT:   wordX,
			KindDOC:   wordX,
			KindText:  wordX,
			KindHTML:  wordX,
			KindImage: imageX,
		},
		tempDir:     opts.TempDir,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// WithExtractor replaces the extractor used for kind.
func (p *Pipeline) WithExtractor(kind Kind, x Extractor) *Pipeline {
	cp := *p
	cp.extractors = make(map[Kind]Extractor, len(p.extractors)+1)
	for k, v := range p.extractors {
		cp.extractors[k] = v
	}
	cp.extractors[kind] = x
	return &cp
}

func (p *Pipeline) Engine() *lineitems.Engine { return p.engine }

// ClassifyAttachments sorts attachments into rfq, technical_sheet, image
// and unknown.
func (p *Pipeline) ClassifyAttachments(attachments []rfq.Attachment) []rfq.ClassifiedAttachment {
	return p.classifier.Classify(attachments)
}

// AllSameBrand reports whether the RFQ attachments share one brand.
func (p *Pipeline) AllSameBrand(classified []rfq.ClassifiedAttachment) bool {
	return classify.AllSameBrand(classified)
}

// ExtractDocument detects the format and runs its extractor. It never
// fails: unreadable files, extractor errors and panics all end in a
// document that carries file name hints or a placeholder item.
func (p *Pipeline) ExtractDocument(ctx context.Context, a rfq.Attachment) (doc *rfq.ExtractedDocument) {
	start := time.Now()
	defer metrics.TrackInFlight()()

	kind := DetectKind(a)
	log := p.logger.With(zap.String("file", a.Filename), zap.String("kind", string(kind)))
	scope := tempfs.NewScope(p.tempDir, log)

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic()
			err := apperrors.ErrExtractorPanic.WithCause(fmt.Errorf("%v", r))
			log.Error("Extractor panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			doc = p.fallback(a, kind, err)
		}
		if err := scope.Close(); err != nil {
			log.Warn("Temp cleanup incomplete", zap.Error(err))
		}
		p.finish(doc, time.Since(start))
	}()

	x, ok := p.extractors[kind]
	if !ok {
		return p.fallback(a, kind, apperrors.ErrUnsupportedFormat.WithCause(fmt.Errorf("%s", kind)))
	}
	d, err := x.Extract(ctx, a, scope)
	if err == nil && d == nil {
		err = apperrors.ErrNoText
	}
	if err != nil {
		log.Warn("Extraction failed", zap.Error(err), zap.String("code", apperrors.GetCode(err)))
		return p.fallback(a, kind, err)
	}
	return d
}

// fallback builds the document for a file whose content could not be
// read: whatever the file name says, flagged for review.
func (p *Pipeline) fallback(a rfq.Attachment, kind Kind, cause error) *rfq.ExtractedDocument {
	format := kind.Format()
	if format == "" {
		format = rfq.FormatWord
	}
	hints := ParseFilename(p.vocab, a.Filename)
	doc := &rfq.ExtractedDocument{
		Filename:          a.Filename,
		FormatKind:        format,
		Items:             hints.Items(),
		RFQNumber:         hints.Reference,
		NeedsVerification: true,
		ExtractionMethod:  MethodFilename,
	}
	if code := apperrors.GetCode(cause); code != "" {
		doc.ExtractionMethod = MethodFilename + ":" + code
	}
	return doc
}

// finish enforces the document invariants and records metrics.
func (p *Pipeline) finish(doc *rfq.ExtractedDocument, elapsed time.Duration) {
	if doc.RFQNumber == "" {
		doc.RFQNumber = ParseFilename(p.vocab, doc.Filename).Reference
	}
	doc.EnsureItems("no line item recognised, see attached document")

	placeholder := false
	for _, it := range doc.Items {
		if rfq.IsPlaceholder(it) {
			placeholder = true
		}
	}
	if placeholder {
		metrics.RecordPlaceholder()
	}
	metrics.RecordDocument(string(doc.FormatKind), doc.ExtractionMethod, elapsed)
	metrics.RecordLineItems(doc.Strategy, len(doc.Items))

	p.logger.Info("Document extracted",
		zap.String("file", doc.Filename),
		zap.String("format", string(doc.FormatKind)),
		zap.String("method", doc.ExtractionMethod),
		zap.String("strategy", doc.Strategy),
		zap.Int("items", len(doc.Items)),
		zap.Bool("needs_verification", doc.NeedsVerification),
		zap.Duration("elapsed", elapsed),
	)
}

// ExtractEmailBody extracts items from a mail body, trying request
// sentences before the generic cascade. The subject is only searched for
// the RFQ number. Body items always need verification.
func (p *Pipeline) ExtractEmailBody(ctx context.Context, body, subject string) (doc *rfq.ExtractedDocument) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic()
			p.logger.Error("Email extraction panicked", zap.Any("panic", r))
			doc = &rfq.ExtractedDocument{
				Filename:         "email",
				FormatKind:       rfq.FormatEmail,
				RawText:          body,
				ExtractionMethod: MethodEmailBody,
			}
		}
		doc.NeedsVerification = true
		p.finish(doc, time.Since(start))
	}()

	text := normalizeBody(body)
	res := p.engine.ExtractEmail(&lineitems.Input{Text: TrimReply(text), Format: rfq.FormatEmail})

	doc = &rfq.ExtractedDocument{
		Filename:         "email",
		FormatKind:       rfq.FormatEmail,
		RawText:          text,
		Items:            res.Items,
		Strategy:         res.Strategy,
		ExtractionMethod: MethodEmailBody,
		EmailMetadata:    ParseEmailMetadata(p.vocab, text, subject),
	}
	if doc.RFQNumber = FindReference(subject); doc.RFQNumber == "" {
		doc.RFQNumber = FindReference(text)
	}
	return doc
}
