package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tallaby/backend/internal/domain"
)

// GenericProduct holds the site-agnostic signals. The embedded candidate
// carries the first value of each tier; the tiers themselves are kept so the
// merge step can rank structured data between them.
type GenericProduct struct {
	domain.CandidateProduct

	ItemPropDescription  string
	ContainerDescription string
	MetaDescription      string

	ProductCurrency string // product:price:currency
	OGCurrency      string // og:price:currency
}

const maxGenericBullets = 20

var genericDescriptionContainers = []string{
	`[itemprop="description"]:not(meta)`,
	"#product-description",
	".product-description",
	".product__description",
	"#description",
	".description",
}

// genericPriceSelectors are tried in order; the first positive amount wins
var genericPriceSelectors = []string{
	metaSelector("product:price:amount"),
	metaSelector("product:price"),
	metaSelector("og:price:amount"),
	metaSelector("og:price"),
	`meta[itemprop="price"]`,
	metaSelector("price"),
}

var genericImageSelector = strings.Join([]string{
	metaSelector("og:image"),
	metaSelector("og:image:url"),
	metaSelector("twitter:image"),
}, ", ")

var genericBulletContainers = strings.Join([]string{
	`[class*="description"] li`, `[id*="description"] li`,
	`[class*="spec"] li`, `[id*="spec"] li`,
	`[class*="feature"] li`, `[id*="feature"] li`,
	`[class*="attribute"] li`, `[id*="attribute"] li`,
}, ", ")

const headingSelector = "h1, h2, h3, h4, h5, h6"

// sectionBoundarySelector matches a heading or an element wrapping one
const sectionBoundarySelector = headingSelector + ", :has(h1), :has(h2), :has(h3), :has(h4), :has(h5), :has(h6)"

// ExtractGeneric reads meta tags and common content containers. Keywords are
// matched case-insensitively against section headings to find feature lists.
func ExtractGeneric(doc *Document, headingKeywords []string) *GenericProduct {
	out := &GenericProduct{
		ItemPropDescription:  doc.metaContent(`meta[itemprop="description"]`),
		ContainerDescription: genericContainerDescription(doc),
		MetaDescription: firstNonEmpty(
			doc.metaContent(metaSelector("og:description")),
			doc.metaContent(metaSelector("twitter:description")),
			doc.metaContent(`meta[name="description"]`),
		),
		ProductCurrency: doc.metaContent(metaSelector("product:price:currency")),
		OGCurrency:      doc.metaContent(metaSelector("og:price:currency")),
	}

	out.Name = firstNonEmpty(
		doc.metaContent(metaSelector("og:title")),
		doc.metaContent(metaSelector("twitter:title")),
		NormalizeText(doc.find("title").First().Text()),
	)
	out.Description = firstNonEmpty(out.ItemPropDescription, out.ContainerDescription, out.MetaDescription)
	out.PriceText, out.PriceAmount = genericPrice(doc)
	out.PriceCurrency = firstNonEmpty(out.ProductCurrency, out.OGCurrency)
	out.Images = genericImages(doc)
	out.BulletPoints = genericBullets(doc, headingKeywords)

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func genericContainerDescription(doc *Document) string {
	for _, selector := range genericDescriptionContainers {
		if text := NormalizeText(doc.find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// genericPrice returns the raw text and amount of the first meta price that parses positive
func genericPrice(doc *Document) (string, *float64) {
	for _, selector := range genericPriceSelectors {
		for _, content := range doc.metaContents(selector) {
			if amount := ParsePrice(content); amount != nil {
				return content, amount
			}
		}
	}
	return "", nil
}

func genericImages(doc *Document) []string {
	var out []string
	for _, ref := range doc.metaContents(genericImageSelector) {
		if abs, ok := doc.resolve(ref); ok {
			out = append(out, abs)
		}
	}
	return DedupeStrings(out)
}

func genericBullets(doc *Document, headingKeywords []string) []string {
	var out []string

	doc.find(genericBulletContainers).Each(func(_ int, item *goquery.Selection) {
		if text := NormalizeText(item.Text()); lengthBetween(text, minBulletLength, maxBulletLength) {
			out = append(out, text)
		}
	})

	keywords := make([]string, 0, len(headingKeywords))
	for _, k := range headingKeywords {
		if key := FoldKey(k); key != "" {
			keywords = append(keywords, key)
		}
	}

	if len(keywords) > 0 {
		doc.find(headingSelector).Each(func(_ int, heading *goquery.Selection) {
			if !matchesKeyword(FoldKey(heading.Text()), keywords) {
				return
			}
			sectionItems(heading).Each(func(_ int, item *goquery.Selection) {
				if text := NormalizeText(item.Text()); lengthBetween(text, minBulletLength, maxBulletLength) {
					out = append(out, text)
				}
			})
		})
	}

	out = DedupeFolded(out)
	if len(out) > maxGenericBullets {
		out = out[:maxGenericBullets]
	}
	return out
}

func matchesKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// sectionItems finds the list items belonging to a heading: those in the
// siblings before the next heading, else those inside the heading's own container.
// A container holding only the heading is a wrapper, so its siblings are walked instead.
func sectionItems(heading *goquery.Selection) *goquery.Selection {
	items := heading.NextUntil(headingSelector).Find("li")
	if items.Length() > 0 {
		return items
	}

	parent := heading.Parent()
	if parent.Length() == 0 || parent.Is("body, html") {
		return parent.Slice(0, 0)
	}
	if items := parent.Find("li"); items.Length() > 0 || parent.Children().Length() > 1 {
		return items
	}
	return parent.NextUntil(sectionBoundarySelector).Find("li")
}
