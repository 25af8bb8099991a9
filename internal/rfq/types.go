// Package rfq holds the records exchanged by the extraction pipeline:
// attachments coming in, classified attachments, extracted documents and
// the normalized line items going out.
package rfq

// Category is the classification of an attachment
type Category string

const (
	CategoryRFQ            Category = "rfq"
	CategoryTechnicalSheet Category = "technical_sheet"
	CategoryImage          Category = "image"
	CategoryUnknown        Category = "unknown"
)

// FormatKind identifies the extractor that produced a document
type FormatKind string

const (
	FormatPDF   FormatKind = "pdf"
	FormatExcel FormatKind = "excel"
	FormatWord  FormatKind = "word"
	FormatEmail FormatKind = "email"
	FormatImage FormatKind = "image"
)

// Attachment is a raw file received with a request. It is never modified
// by the pipeline.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
	Size        int64  `json:"size"`
}

// Len returns the declared size, falling back to the payload length.
func (a Attachment) Len() int64 {
	if a.Size > 0 {
		return a.Size
	}
	return int64(len(a.Data))
}

// ClassifiedAttachment is an attachment with its category and the signals
// that led to it.
type ClassifiedAttachment struct {
	Attachment    Attachment `json:"attachment"`
	Category      Category   `json:"category"`
	Confidence    int        `json:"confidence"`
	Reason        string     `json:"reason"`
	RelatedTo     string     `json:"related_to,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	RFQNumberHint string     `json:"rfq_number_hint,omitempty"`
}

// EmailMetadata holds the contact and timing hints found in an email body
type EmailMetadata struct {
	Deadline     string `json:"deadline,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactRole  string `json:"contact_role,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	IsUrgent     bool   `json:"is_urgent"`
}

// ExtractedDocument is the result of running one attachment (or one email
// body) through its format extractor and the line-item engine.
type ExtractedDocument struct {
	Filename          string         `json:"filename"`
	FormatKind        FormatKind     `json:"format_kind"`
	RawText           string         `json:"raw_text"`
	Items             []LineItem     `json:"items"`
	RFQNumber         string         `json:"rfq_number,omitempty"`
	NeedsVerification bool           `json:"needs_verification"`
	ExtractionMethod  string         `json:"extraction_method"`
	Strategy          string         `json:"strategy,omitempty"`
	EmailMetadata     *EmailMetadata `json:"email_metadata,omitempty"`
}

// LineItem is one requested product row.
type LineItem struct {
	Description        string  `json:"description"`
	Quantity           float64 `json:"quantity"`
	Unit               string  `json:"unit"`
	InternalCode       string  `json:"internal_code,omitempty"`
	SupplierCode       string  `json:"supplier_code,omitempty"`
	Brand              string  `json:"brand,omitempty"`
	Reference          string  `json:"reference,omitempty"`
	SerialNumber       string  `json:"serial_number,omitempty"`
	OriginalLineNumber int     `json:"original_line_number,omitempty"`
	IsEstimated        bool    `json:"is_estimated"`
	NeedsManualReview  bool    `json:"needs_manual_review"`
	Notes              string  `json:"notes,omitempty"`
}

// PdfToken is a piece of text placed on a PDF page. Y grows upwards, as in
// PDF user space.
type PdfToken struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// PdfRow is a reconstructed table row. CellX holds the x of the first token
// of each cell, parallel to Cells.
type PdfRow struct {
	RawText                string    `json:"raw_text"`
	Cells                  []string  `json:"cells"`
	CellX                  []float64 `json:"cell_x,omitempty"`
	Page                   int       `json:"page"`
	RowIndexWithinDocument int       `json:"row_index"`
	Y                      float64   `json:"y"`
}
