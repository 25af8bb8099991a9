package classify

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gmsas95/rfqextract/internal/rfq"
)

// SignatureMaxBytes is the size under which an image is assumed to be a
// mail-client decoration rather than a photo or scan.
const SignatureMaxBytes = 10 * 1024

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true, ".jfif": true, ".heic": true,
}

var (
	genericImageName = regexp.MustCompile(`(?i)^image\d{1,4}\.[a-z]+$`)
	contentIDName    = regexp.MustCompile(`(?i)^(cid[:_]|.+@.+\.[a-z]+$|~wrl\d+)`)
	uuidName         = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-`)
	decorationName   = regexp.MustCompile(`(?i)(logo|signature|sig[_-]|banner|icon|pixel|spacer|footer|header|social|facebook|linkedin|twitter|instagram|youtube|whatsapp|outlook|emoji)`)
)

// SignatureFilter spots logos, signatures and tracking pixels among image
// attachments.
type SignatureFilter struct {
	MaxBytes int
	// CheckDimensions decodes the image header to catch pixels and banners.
	CheckDimensions bool
}

func DefaultSignatureFilter() SignatureFilter {
	return SignatureFilter{MaxBytes: SignatureMaxBytes, CheckDimensions: true}
}

// IsImage reports whether the attachment is a raster image by extension or
// MIME type.
func IsImage(a rfq.Attachment) bool {
	if imageExts[strings.ToLower(filepath.Ext(a.Filename))] {
		return true
	}
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// Check returns whether a is a decoration and, if so, why. Non-images are
// never decorations.
func (f SignatureFilter) Check(a rfq.Attachment) (bool, string) {
	if !IsImage(a) {
		return false, ""
	}
	name := filepath.Base(a.Filename)

	switch {
	case genericImageName.MatchString(name):
		return true, "signature: generic embedded image name"
	case contentIDName.MatchString(name):
		return true, "signature: inline content-id image"
	case uuidName.MatchString(name):
		return true, "signature: generated inline image name"
	case decorationName.MatchString(name):
		return true, "signature: logo or signature filename"
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = SignatureMaxBytes
	}
	if n := a.Len(); n > 0 && n < int64(limit) {
		return true, "signature: image too small to be a document"
	}

	if f.CheckDimensions && len(a.Data) > 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(a.Data)); err == nil {
			w, h := cfg.Width, cfg.Height
			switch {
			case w <= 2 && h <= 2:
				return true, "signature: tracking pixel"
			case w < 100 && h < 100:
				return true, "signature: icon-sized image"
			case h > 0 && float64(w)/float64(h) > 5 && h < 150:
				return true, "signature: banner proportions"
			}
		}
	}
	return false, ""
}
