package documents

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

// Kind is the concrete file type behind an attachment. Several kinds share
// one rfq.FormatKind (xlsx and csv are both excel).
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindXLSX    Kind = "xlsx"
	KindXLS     Kind = "xls"
	KindCSV     Kind = "csv"
	KindDOCX    Kind = "docx"
	KindODT     Kind = "odt"
	KindDOC     Kind = "doc"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindHTML    Kind = "html"
	KindUnknown Kind = "unknown"
)

// Format maps a kind to the extractor family reported on documents.
func (k Kind) Format() rfq.FormatKind {
	switch k {
	case KindPDF:
		return rfq.FormatPDF
	case KindXLSX, KindXLS, KindCSV:
		return rfq.FormatExcel
	case KindDOCX, KindODT, KindDOC, KindText, KindHTML:
		return rfq.FormatWord
	case KindImage:
		return rfq.FormatImage
	}
	return ""
}

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".xlsx": KindXLSX,
	".xlsm": KindXLSX,
	".xls":  KindXLS,
	".csv":  KindCSV,
	".docx": KindDOCX,
	".docm": KindDOCX,
	".odt":  KindODT,
	".doc":  KindDOC,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".webp": KindImage,
	".txt":  KindText,
	".htm":  KindHTML,
	".html": KindHTML,
}

func mimeKind(ct string) Kind {
	switch {
	case ct == "application/pdf":
		return KindPDF
	case ct == "application/vnd.ms-excel":
		return KindXLS
	case strings.Contains(ct, "spreadsheetml"):
		return KindXLSX
	case ct == "text/csv":
		return KindCSV
	case ct == "application/msword":
		return KindDOC
	case strings.Contains(ct, "wordprocessingml"):
		return KindDOCX
	case ct == "application/vnd.oasis.opendocument.text":
		return KindODT
	case ct == "text/plain":
		return KindText
	case ct == "text/html":
		return KindHTML
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	}
	return KindUnknown
}

var (
	magicPDF  = []byte("%PDF")
	magicZIP  = []byte("PK\x03\x04")
	magicOLE2 = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectKind picks the file type from magic bytes, then the extension,
// then the declared MIME type. Magic bytes win because mail clients often
// send generic or wrong content types.
func DetectKind(a rfq.Attachment) Kind {
	ext := strings.ToLower(filepath.Ext(a.Filename))
	byExt, hasExt := extKinds[ext]

	if k := sniff(a.Data, byExt); k != KindUnknown {
		return k
	}
	if hasExt {
		return byExt
	}
	if k := mimeKind(strings.ToLower(strings.TrimSpace(strings.SplitN(a.ContentType, ";", 2)[0]))); k != KindUnknown {
		return k
	}
	if looksLikeText(a.Data) {
		return KindText
	}
	return KindUnknown
}

// looksLikeText accepts UTF-8 or single-byte text without control bytes
// other than whitespace.
func looksLikeText(data []byte) bool {
	head := data[:min(len(data), 4096)]
	if len(bytes.TrimSpace(head)) == 0 {
		return false
	}
	for _, b := range head {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' {
			return false
		}
	}
	return true
}

// sniff reads the leading bytes. Zip and OLE2 containers are ambiguous on
// their own, so the extension hint decides between the formats they hold.
func sniff(data []byte, hint Kind) Kind {
	switch {
	case len(data) == 0:
		return KindUnknown
	case bytes.HasPrefix(data, magicPDF):
		return KindPDF
	case bytes.HasPrefix(data, magicZIP):
		switch {
		case hint == KindXLSX || hint == KindDOCX || hint == KindODT:
			return hint
		case bytes.Contains(data[:min(len(data), 4096)], []byte("word/")):
			return KindDOCX
		case bytes.Contains(data[:min(len(data), 4096)], []byte("xl/")):
			return KindXLSX
		case bytes.Contains(data[:min(len(data), 4096)], []byte("opendocument.text")):
			return KindODT
		}
		return KindUnknown
	case bytes.HasPrefix(data, magicOLE2):
		if hint == KindXLS || hint == KindDOC {
			return hint
		}
		return KindUnknown
	case isImageMagic(data):
		return KindImage
	}
	return KindUnknown
}

func isImageMagic(data []byte) bool {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")),
		bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}),
		bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")),
		bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")),
		bytes.HasPrefix(data, []byte("BM")) && len(data) > 14:
		return true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return true
	}
	return false
}
