// Package lineitems turns document text, or reconstructed PDF rows, into
// requested line items.
//
// Extraction is an ordered list of strategies, most specific first. The
// engine stops at the first strategy that yields a valid item, then applies
// the same cleanup, enrichment, validation and deduplication to whatever
// matched.
package lineitems

import (
	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

// Input is what a format extractor hands to the engine.
type Input struct {
	Text string
	// Rows are reconstructed PDF rows; empty for other formats.
	Rows []rfq.PdfRow
	// Tabular is set when the row layout was regular enough to trust cells.
	Tabular bool
	Format  rfq.FormatKind

	lines []string
}

// Lines returns the whitespace-normalized lines of Text. Page breaks become
// a lone PageBreak line.
func (in *Input) Lines() []string {
	if in.lines == nil {
		in.lines = splitLines(in.Text)
	}
	return in.lines
}

// Match is a strategy's raw output. Tier names the sub-strategy that
// produced it, when there is one.
type Match struct {
	Items []rfq.LineItem
	Tier  string
}

// Strategy is one way of reading items out of a document.
type Strategy interface {
	Name() string
	Extract(in *Input) Match
}

// codeKeyed is implemented by strategies whose items are deduplicated by
// internal code rather than by description and quantity.
type codeKeyed interface {
	DedupByCode() bool
}

type Config struct {
	MaxItems             int
	MaxQuantity          float64
	MinDescriptionLength int
}

func DefaultConfig() Config {
	return Config{
		MaxItems:             100,
		MaxQuantity:          rfq.MaxQuantity,
		MinDescriptionLength: rfq.MinDescriptionLength,
	}
}

// Result is the engine output for one document.
type Result struct {
	Items    []rfq.LineItem
	Strategy string
}

type Engine struct {
	config     Config
	vocab      *vocab.Vocabulary
	strategies []Strategy
	email      Strategy
	logger     *zap.Logger
}

// New builds the engine with the default cascade: purchase requisition,
// line-number parser, freeform patterns.
func New(v *vocab.Vocabulary, cfg Config, logger *zap.Logger) *Engine {
	if v == nil {
		v = vocab.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = def.MaxQuantity
	}
	if cfg.MinDescriptionLength <= 0 {
		cfg.MinDescriptionLength = def.MinDescriptionLength
	}

	e := &Engine{config: cfg, vocab: v, logger: logger}
	e.strategies = []Strategy{
		NewPurchaseRequisition(v, cfg),
		NewLineNumber(cfg),
		NewFreeform(v, cfg),
	}
	e.email = NewEmailSentences(v, cfg)
	return e
}

// WithStrategies returns a copy of the engine running the given cascade.
func (e *Engine) WithStrategies(s ...Strategy) *Engine {
	cp := *e
	cp.strategies = s
	return &cp
}

// Strategies lists the cascade in order.
func (e *Engine) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

func (e *Engine) Config() Config { return e.config }

func (e *Engine) Vocabulary() *vocab.Vocabulary { return e.vocab }

// Extract runs the cascade. An empty result means no strategy matched; the
// caller is responsible for the placeholder.
func (e *Engine) Extract(in *Input) Result {
	return e.run(e.strategies, in)
}

// ExtractEmail tries the email sentence patterns before the cascade.
func (e *Engine) ExtractEmail(in *Input) Result {
	return e.run(append([]Strategy{e.email}, e.strategies...), in)
}

func (e *Engine) run(strategies []Strategy, in *Input) Result {
	for _, s := range strategies {
		m := s.Extract(in)
		if len(m.Items) == 0 {
			continue
		}
		byCode := false
		if ck, ok := s.(codeKeyed); ok {
			byCode = ck.DedupByCode()
		}
		items := e.finalize(m.Items, in.Text, byCode)
		name := s.Name()
		if m.Tier != "" {
			name += "/" + m.Tier
		}
		e.logger.Debug("Strategy result",
			zap.String("strategy", name),
			zap.Int("candidates", len(m.Items)),
			zap.Int("kept", len(items)),
		)
		if len(items) > 0 {
			return Result{Items: items, Strategy: name}
		}
	}
	return Result{}
}

// Finalize applies post-processing to items built outside the cascade,
// e.g. by the spreadsheet reader.
func (e *Engine) Finalize(items []rfq.LineItem, text string, byCode bool) []rfq.LineItem {
	return e.finalize(items, text, byCode)
}
