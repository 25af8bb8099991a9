package documents

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/rfq"
	"github.com/gmsas95/rfqextract/internal/vocab"
)

const MethodEmailBody = "email_body"

var (
	htmlMarker = regexp.MustCompile(`(?i)<(?:html|body|div|p|br|table|span|font)\b`)

	// Matched on folded, lower-cased lines.
	quoteHeader = regexp.MustCompile(`^(?:-{2,}\s*(?:original message|message d'origine|forwarded message|message transfere)\s*-{2,}|le .{5,120} a ecrit\s*:|on .{5,120} wrote\s*:|(?:de|from)\s*:\s*.*@.*)$`)
	closingLine = regexp.MustCompile(`^(?:bien\s+)?(?:cordialement|salutations(?:\s+distinguees)?|bien\s+a\s+vous|sinceres\s+salutations|(?:best|kind|warm)\s+regards|regards|best|merci(?:\s+d'avance|\s+par\s+avance)?|thanks?(?:\s+you)?(?:\s+in\s+advance)?)[\s,.!]*$`)
	signatureCut = regexp.MustCompile(`^(?:--\s*|_{5,}|envoye de mon .*|sent from my .*)$`)

	phoneLabelled = regexp.MustCompile(`(?i)\b(?:tel|telephone|tél|téléphone|gsm|mobile|mob|portable|phone|cell|fixe)\b\.?\s*:?\s*(\+?\d[\d\s.()/-]{7,}\d)`)
	phoneBare     = regexp.MustCompile(`(\+\d{2,3}[\s.]?(?:\(0\)[\s.]?)?\d(?:[\s.-]?\d{2}){4}|\b0\d(?:[\s.-]?\d{2}){4}\b)`)

	deadlinePattern = regexp.MustCompile(`(?i)(?:avant\s+le|avant|d'ici\s+(?:le\s+)?|au\s+plus\s+tard\s+(?:le\s+)?|date\s+limite(?:\s+de\s+reponse)?\s*:?|delai\s+de\s+reponse\s*:?|deadline\s*:?|before|no\s+later\s+than|due\s+(?:date\s*:?|by))\s*((?:\d{1,2}[/.-]\d{1,2}(?:[/.-]\d{2,4})?)|(?:(?:lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche|monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s+\d{1,2}(?:er)?(?:\s+[a-z]+)?)?)|(?:\d{1,2}(?:er)?\s+(?:janvier|fevrier|mars|avril|mai|juin|juillet|aout|septembre|octobre|novembre|decembre|january|february|march|april|may|june|july|august|september|october|november|december)(?:\s+\d{4})?)|(?:demain|tomorrow|fin\s+de\s+semaine|end\s+of\s+(?:the\s+)?week))`)
	urgentPattern   = regexp.MustCompile(`(?i)\b(?:urgent|urgente|urgence|tres\s+urgent|asap|au\s+plus\s+vite|des\s+que\s+possible|dans\s+les\s+plus\s+brefs\s+delais|en\s+priorite|prioritaire|high\s+priority|immediately|as\s+soon\s+as\s+possible)\b`)

	rolePattern = regexp.MustCompile(`(?i)\b(?:responsable|acheteur|acheteuse|buyer|purchas\w*|procurement|approvisionnement|achats?|manager|ingenieur|engineer|technicien|technician|chef|directeur|directrice|director|gestionnaire|assistante?|maintenance|magasinier|superviseur|supervisor|service)\b`)
	nameLine    = regexp.MustCompile(`^[\p{Lu}][\p{L}'.-]*(?:\s+[\p{L}][\p{L}'.-]*){1,3}$`)
)

// HTMLToText flattens an HTML body: one line per block element, table rows
// as cells separated by two spaces, scripts and quoted blocks dropped.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", apperrors.ErrMalformedInput.WithCause(err, "parse html")
	}
	doc.Find("script, style, head, title, blockquote, .gmail_quote, #divRplyFwdMsg").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			if t := strings.Join(strings.Fields(c.Text()), " "); t != "" {
				cells = append(cells, t)
			}
		})
		tr.SetText(strings.Join(cells, "  ") + "\n")
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, l := range strings.Split(doc.Text(), "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// normalizeBody returns the body as plain text lines.
func normalizeBody(body string) string {
	if htmlMarker.MatchString(body) {
		if text, err := HTMLToText(body); err == nil {
			return text
		}
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\r", "\n")
}

// TrimReply keeps the newest message of a thread without its signature:
// everything from the first quoted header, the closing salutation or a
// signature separator is dropped, as are ">" quoted lines.
func TrimReply(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		k := strings.ToLower(vocab.Fold(trimmed))
		if quoteHeader.MatchString(k) || closingLine.MatchString(k) || signatureCut.MatchString(k) {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ParseEmailMetadata scans the whole body, signature included, for the
// contact, the deadline and urgency.
func ParseEmailMetadata(v *vocab.Vocabulary, body, subject string) *rfq.EmailMetadata {
	md := &rfq.EmailMetadata{}
	folded := strings.ToLower(vocab.Fold(subject + "\n" + body))

	if m := deadlinePattern.FindStringSubmatch(folded); m != nil {
		md.Deadline = strings.TrimSpace(m[1])
	}
	md.IsUrgent = urgentPattern.MatchString(folded)

	if m := phoneLabelled.FindStringSubmatch(body); m != nil {
		md.ContactPhone = strings.TrimSpace(m[1])
	} else if m := phoneBare.FindStringSubmatch(body); m != nil {
		md.ContactPhone = strings.TrimSpace(m[1])
	}

	md.ContactName, md.ContactRole = signatureContact(v, body)
	return md
}

// signatureContact reads the name on the first line after the closing
// salutation and the role on the line after it.
func signatureContact(v *vocab.Vocabulary, body string) (name, role string) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !closingLine.MatchString(strings.ToLower(vocab.Fold(strings.TrimSpace(line)))) {
			continue
		}
		var rest []string
		for _, l := range lines[i+1:] {
			if l = strings.TrimSpace(l); l != "" {
				rest = append(rest, l)
			}
			if len(rest) == 3 {
				break
			}
		}
		for j, l := range rest {
			if v.IsLetterhead(l) || hasDigit(l) {
				continue
			}
			if name == "" && nameLine.MatchString(l) && !rolePattern.MatchString(vocab.Fold(l)) && len(l) <= 40 {
				name = l
				continue
			}
			if name != "" && j > 0 && rolePattern.MatchString(vocab.Fold(l)) {
				role = l
				break
			}
		}
		if name != "" {
			return name, role
		}
	}
	return "", ""
}
