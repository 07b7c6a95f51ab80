package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"certverify/internal/models"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

var whitespaceRe = regexp.MustCompile(`\s+`)

// data islands often carry the certificate holder on script-rendered pages
const dataScripts = `script[type="application/ld+json"],script[type="application/json"]`

// Extract decodes an HTML document and returns its visible text. Scripts and
// styles are dropped except JSON data islands, which are kept verbatim.
func (p *Parser) Extract(r io.Reader, contentType string) (models.Page, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return models.Page{}, err
	}
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return models.Page{}, err
		}
		utf8data = data
	}

	if !looksLikeHTML(contentType, utf8data) {
		text := collapse(string(utf8data))
		return models.Page{Content: models.Content{Text: text, WordCount: wordCount(text)}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return models.Page{}, err
	}

	var islands []string
	doc.Find(dataScripts).Each(func(i int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			islands = append(islands, t)
		}
	})
	doc.Find("script,noscript,style,template").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())
	desc := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if desc == "" {
		desc = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	ogTitle := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	canonical := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))

	parts := []string{title, ogTitle, desc}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	// block elements are joined without separators by Text(); pad them first
	body.Find("p,div,li,h1,h2,h3,h4,h5,h6,td,th,span,br,section,article").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	parts = append(parts, body.Text())
	parts = append(parts, islands...)

	text := collapse(strings.Join(nonEmpty(parts), " "))
	lang := strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))

	return models.Page{
		Meta: models.Meta{
			Title:       title,
			Description: desc,
			Canonical:   canonical,
		},
		Content: models.Content{
			Text:      text,
			WordCount: wordCount(text),
			Language:  lang,
		},
	}, nil
}

func looksLikeHTML(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") || strings.Contains(ct, "xml") {
		return true
	}
	if ct != "" && !strings.HasPrefix(ct, "text/") {
		return false
	}
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype") || strings.Contains(head, "<body")
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func wordCount(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}
