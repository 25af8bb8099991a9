package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/lineitems"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/tempfs"
	"github.com/gmsas95/rfqextract/internal/toolexec"
)

const (
	MethodDOCX     = "docx_xml"
	MethodODT      = "odt_xml"
	MethodAntiword = "antiword"
	MethodPlain    = "plain_text"
	MethodHTML     = "html"
)

// wordExtractor reads word-processor files, and plain text or HTML files,
// as raw text for the line-item cascade.
type wordExtractor struct {
	engine       *lineitems.Engine
	runner       *toolexec.Runner
	antiwordPath string
	logger       *zap.Logger
}

func (x *wordExtractor) Extract(ctx context.Context, a rfq.Attachment, scope *tempfs.Scope) (*rfq.ExtractedDocument, error) {
	var (
		text, method string
		err          error
	)
	switch DetectKind(a) {
	case KindDOCX:
		text, err = zipXMLText(a.Data, "word/document.xml", docxMarkup)
		method = MethodDOCX
	case KindODT:
		text, err = zipXMLText(a.Data, "content.xml", odtMarkup)
		method = MethodODT
	case KindDOC:
		text, err = x.antiword(ctx, a, scope)
		method = MethodAntiword
	case KindHTML:
		text, err = HTMLToText(string(a.Data))
		method = MethodHTML
	default:
		text = decodeText(a.Data)
		method = MethodPlain
	}
	if err != nil {
		return nil, err
	}

	res := x.engine.Extract(&lineitems.Input{Text: text, Format: rfq.FormatWord})
	return &rfq.ExtractedDocument{
		Filename:         a.Filename,
		FormatKind:       rfq.FormatWord,
		RawText:          text,
		Items:            res.Items,
		Strategy:         res.Strategy,
		ExtractionMethod: method,
		RFQNumber:        FindReference(text),
	}, nil
}

func (x *wordExtractor) antiword(ctx context.Context, a rfq.Attachment, scope *tempfs.Scope) (string, error) {
	if x.runner == nil {
		return "", apperrors.ErrToolMissing.WithCause(fmt.Errorf("no tool runner"))
	}
	path, err := scope.Write("rfq_doc", ".doc", a.Data)
	if err != nil {
		return "", err
	}
	out, err := x.runner.Run(ctx, x.antiwordPath, "-w", "0", path)
	if err != nil {
		return "", err
	}
	return decodeText(out), nil
}

// markup names the XML elements that shape the text of a document format.
type markup struct {
	paragraph string
	tab       string
	lineBreak string
	cell      string
	row       string
}

var (
	docxMarkup = markup{paragraph: "p", tab: "tab", lineBreak: "br", cell: "tc", row: "tr"}
	odtMarkup  = markup{paragraph: "p", tab: "tab", lineBreak: "line-break", cell: "table-cell", row: "table-row"}
)

// zipXMLText streams one XML part of an office archive into lines. Table
// cells of a row share a line so that rows read like the printed table.
func zipXMLText(data []byte, part string, m markup) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.ErrMalformedInput.WithCause(err, "open archive")
	}
	var f *zip.File
	for _, zf := range zr.File {
		if zf.Name == part {
			f = zf
			break
		}
	}
	if f == nil {
		return "", apperrors.ErrMalformedInput.WithCause(fmt.Errorf("%s not found in archive", part))
	}
	rc, err := f.Open()
	if err != nil {
		return "", apperrors.ErrMalformedInput.WithCause(err, "open "+part)
	}
	defer rc.Close()

	var (
		sb      strings.Builder
		line    strings.Builder
		inCell  int
		decoder = xml.NewDecoder(rc)
	)
	endLine := func() {
		if l := strings.Join(strings.Fields(line.String()), " "); l != "" {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
		line.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", apperrors.ErrMalformedInput.WithCause(err, "parse "+part)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case m.cell:
				inCell++
			case m.tab:
				line.WriteByte(' ')
			case m.lineBreak:
				if inCell > 0 {
					line.WriteByte(' ')
				} else {
					endLine()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case m.paragraph:
				if inCell > 0 {
					line.WriteByte(' ')
				} else {
					endLine()
				}
			case m.cell:
				inCell--
				line.WriteString("  ")
			case m.row:
				endLine()
			}
		case xml.CharData:
			line.Write(t)
		}
	}
	endLine()
	return sb.String(), nil
}

// decodeText returns data as UTF-8, reading Windows-1252 when it is not
// valid UTF-8 already.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	if dec, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return string(dec)
	}
	return string(data)
}
