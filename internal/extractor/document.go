// Package extractor pulls product fields out of a fetched HTML page.
//
// Three independent stages read the same Document: structured data
// (JSON-LD), the marketplace-specific heuristics, and the generic meta/DOM
// heuristics. None of them mutate the document, so they can run concurrently.
package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Document is a parsed product page together with the URL it was served from
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// ParseDocument parses html and records finalURL as the base for relative links
func ParseDocument(html, finalURL string) (*Document, error) {
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse final url")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}

	return &Document{doc: doc, base: base}, nil
}

// Host returns the lower-cased hostname of the final URL
func (d *Document) Host() string {
	return strings.TrimSuffix(strings.ToLower(d.base.Hostname()), ".")
}

// resolve turns ref into an absolute URL against the final URL
func (d *Document) resolve(ref string) (string, bool) {
	return ResolveURL(d.base, ref)
}

// find runs a CSS selector over the whole document
func (d *Document) find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// metaContents returns the normalized, non-empty content attributes of every
// element matched by selector, in document order
func (d *Document) metaContents(selector string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if content := NormalizeText(s.AttrOr("content", "")); content != "" {
			out = append(out, content)
		}
	})
	return out
}

// metaContent returns the first non-empty content for selector
func (d *Document) metaContent(selector string) string {
	if values := d.metaContents(selector); len(values) > 0 {
		return values[0]
	}
	return ""
}

// metaSelector matches a meta tag keyed by property or name
func metaSelector(key string) string {
	return `meta[property="` + key + `"], meta[name="` + key + `"]`
}
