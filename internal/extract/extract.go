package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/net/html"
)

// nonVisible lists elements whose text content never renders.
const nonVisible = "script, style, template"

// VisibleText parses page leniently and returns the concatenation of its
// text nodes, excluding script, style and template content. Comments and the
// doctype are not text. Scripting is disabled so <noscript> content is parsed
// as markup and kept.
func VisibleText(page []byte) (string, error) {
	root, err := html.ParseWithOptions(bytes.NewReader(page), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", err
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find(nonVisible).Remove()
	return doc.Text(), nil
}

// FlattenLines removes every line boundary from s, joining the pieces with no
// separator. Boundaries are \n, \r, \r\n, \v, \f, the file, group and record
// separators (\x1c-\x1e), NEL (\x85), and the Unicode line and paragraph
// separators.
func FlattenLines(s string) string {
	if strings.IndexFunc(s, isLineBoundary) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isLineBoundary(r) {
			return -1
		}
		return r
	}, s)
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// ExtractOne reduces one page to a single line of visible text. It never
// fails: a parser error or panic yields "". Text without markup or line
// breaks, including the fetch failure sentinel, comes back unchanged.
func ExtractOne(page string) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	visible, err := VisibleText([]byte(page))
	if err != nil {
		return ""
	}
	return FlattenLines(visible)
}

// ExtractAll runs ExtractOne over pages concurrently. The result has the same
// length and order as pages.
func ExtractAll(pages []string) []string {
	return ExtractAllWith(TextExtractor{}, pages)
}

// ExtractAllWith is ExtractAll with a caller-chosen strategy.
func ExtractAllWith(e Extractor, pages []string) []string {
	if len(pages) == 0 {
		return []string{}
	}
	return iter.Map(pages, func(p *string) string {
		return e.Extract(*p)
	})
}
