package ocr

import (
	"context"
	"os"
	"strconv"

	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/toolexec"
)

// Pdftoppm rasterizes pages with poppler's pdftoppm.
type Pdftoppm struct {
	Runner *toolexec.Runner
	Path   string
	DPI    int
}

func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath string, page int, scope *tempfs.Scope) (string, error) {
	prefix := scope.Name("page"+strconv.Itoa(page), "")
	out := prefix + ".png"
	// -singlefile appends only the extension to the prefix
	scope.Track(out)

	args := []string{
		"-png",
		"-r", strconv.Itoa(p.DPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		pdfPath,
		prefix,
	}
	if _, err := p.Runner.Run(ctx, p.Path, args...); err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", err
	}
	return out, nil
}

// Tesseract recognizes text, writing the result to stdout.
type Tesseract struct {
	Runner    *toolexec.Runner
	Path      string
	Languages string
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, err := t.Runner.Run(ctx, t.Path,
		imagePath,
		"stdout",
		"-l", t.Languages,
		"--psm", "6", // uniform block of text
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
