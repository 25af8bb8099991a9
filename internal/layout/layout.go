// Package layout rebuilds table rows from positioned PDF text tokens.
//
// Tokens are grouped into rows by baseline proximity, then split into cells
// wherever the horizontal gap between neighbours exceeds a threshold. The
// threshold is either fixed or derived from the page's own gap distribution.
package layout

import (
	"sort"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

// Options tune row and cell detection.
type Options struct {
	// VerticalTolerance is the max y distance between tokens of one row.
	VerticalTolerance float64
	// MinGap is the fixed horizontal gap that starts a new cell.
	MinGap float64
	// DynamicGap derives the cell gap from the page median instead of MinGap.
	DynamicGap bool
	// GapMultiplier scales the page median gap when DynamicGap is on.
	GapMultiplier float64
}

// DefaultOptions returns the thresholds used for typical A4 purchase forms.
func DefaultOptions() Options {
	return Options{
		VerticalTolerance: 3,
		MinGap:            15,
		DynamicGap:        true,
		GapMultiplier:     1.8,
	}
}

// Stats summarises a reconstruction; the line-item engine uses it to decide
// whether the rows look like a table at all.
type Stats struct {
	RowCount       int
	AvgCellsPerRow float64
	MedianGap      float64
}

// LooksTabular reports whether the rows are regular enough to be read as
// a table: at least 3 rows averaging 3 or more cells.
func (s Stats) LooksTabular() bool {
	return s.RowCount >= 3 && s.AvgCellsPerRow >= 3
}

type Reconstructor struct {
	opts Options
}

func New(opts Options) *Reconstructor {
	def := DefaultOptions()
	if opts.VerticalTolerance <= 0 {
		opts.VerticalTolerance = def.VerticalTolerance
	}
	if opts.MinGap <= 0 {
		opts.MinGap = def.MinGap
	}
	if opts.GapMultiplier <= 0 {
		opts.GapMultiplier = def.GapMultiplier
	}
	return &Reconstructor{opts: opts}
}

// Reconstruct orders tokens top-to-bottom, left-to-right per page and
// returns one PdfRow per visual line. The input slice is not modified.
func (r *Reconstructor) Reconstruct(tokens []rfq.PdfToken) ([]rfq.PdfRow, Stats) {
	toks := make([]rfq.PdfToken, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) != "" {
			toks = append(toks, t)
		}
	}
	if len(toks) == 0 {
		return nil, Stats{}
	}

	// PDF y grows upward, so the top of the page comes first with y desc.
	sort.SliceStable(toks, func(i, j int) bool {
		a, b := toks[i], toks[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y != b.Y {
			return a.Y > b.Y
		}
		return a.X < b.X
	})

	lines := r.groupLines(toks)

	thresholds := make(map[int]float64)
	var allGaps []float64
	for page, pageLines := range byPage(lines) {
		gaps := collectGaps(pageLines)
		allGaps = append(allGaps, gaps...)
		thresholds[page] = r.threshold(gaps)
	}

	rows := make([]rfq.PdfRow, 0, len(lines))
	cellTotal := 0
	for i, line := range lines {
		row := splitCells(line, thresholds[line[0].Page])
		row.RowIndexWithinDocument = i
		cellTotal += len(row.Cells)
		rows = append(rows, row)
	}

	stats := Stats{RowCount: len(rows), MedianGap: median(allGaps)}
	if len(rows) > 0 {
		stats.AvgCellsPerRow = float64(cellTotal) / float64(len(rows))
	}
	return rows, stats
}

// groupLines clusters consecutive tokens whose y is within tolerance of the
// previous token, then sorts each line by x.
func (r *Reconstructor) groupLines(toks []rfq.PdfToken) [][]rfq.PdfToken {
	var lines [][]rfq.PdfToken
	var cur []rfq.PdfToken
	for _, t := range toks {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			if t.Page != prev.Page || abs(prev.Y-t.Y) >= r.opts.VerticalTolerance {
				lines = append(lines, cur)
				cur = nil
			}
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool { return l[i].X < l[j].X })
	}
	return lines
}

func (r *Reconstructor) threshold(gaps []float64) float64 {
	if !r.opts.DynamicGap {
		return r.opts.MinGap
	}
	m := median(positive(gaps))
	if m <= 0 {
		return r.opts.MinGap
	}
	t := m * r.opts.GapMultiplier
	// Floor: below MinGap/3 the threshold jumps back to MinGap, not to
	// MinGap/3. Tightly packed words would otherwise split into one cell
	// each, and MinGap is the only gap known to separate columns.
	if t < r.opts.MinGap/3 {
		return r.opts.MinGap
	}
	return t
}

func splitCells(line []rfq.PdfToken, threshold float64) rfq.PdfRow {
	row := rfq.PdfRow{Page: line[0].Page, Y: line[0].Y}
	var cell []string
	cellX := line[0].X
	texts := make([]string, 0, len(line))

	for i, t := range line {
		texts = append(texts, t.Text)
		if i > 0 && gap(line[i-1], t) > threshold {
			row.Cells = append(row.Cells, strings.Join(cell, " "))
			row.CellX = append(row.CellX, cellX)
			cell = nil
			cellX = t.X
		}
		cell = append(cell, t.Text)
	}
	row.Cells = append(row.Cells, strings.Join(cell, " "))
	row.CellX = append(row.CellX, cellX)
	row.RawText = strings.Join(texts, " ")
	return row
}

// gap is the white space between two tokens; without a width it falls back
// to the distance between their origins.
func gap(prev, next rfq.PdfToken) float64 {
	if prev.Width <= 0 {
		return next.X - prev.X
	}
	return next.X - (prev.X + prev.Width)
}

func collectGaps(lines [][]rfq.PdfToken) []float64 {
	var gaps []float64
	for _, l := range lines {
		for i := 1; i < len(l); i++ {
			gaps = append(gaps, gap(l[i-1], l[i]))
		}
	}
	return gaps
}

func byPage(lines [][]rfq.PdfToken) map[int][][]rfq.PdfToken {
	out := make(map[int][][]rfq.PdfToken)
	for _, l := range lines {
		out[l[0].Page] = append(out[l[0].Page], l)
	}
	return out
}

func positive(v []float64) []float64 {
	out := v[:0:0]
	for _, x := range v {
		if x > 0 {
			out = append(out, x)
		}
	}
	return out
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
