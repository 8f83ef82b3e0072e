package extractor

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/tallaby/backend/internal/domain"
)

// Marketplace describes the one marketplace whose page layout we know well
type Marketplace struct {
	SiteName        string
	Domain          string   // the apex and every subdomain match
	AlternateHosts  []string // exact host matches
	ShortLinkHosts  []string // exact host matches
	CountrySuffixes []string // e.g. ".ae" so "Amazon.ae" counts as the bare site name
}

// DefaultMarketplace is the marketplace profile used when none is configured
func DefaultMarketplace() Marketplace {
	return Marketplace{
		SiteName: "Amazon",
		Domain:   "amazon.com",
		AlternateHosts: []string{
			"amazon.ae", "www.amazon.ae",
			"amazon.sa", "www.amazon.sa",
			"amazon.eg", "www.amazon.eg",
		},
		ShortLinkHosts:  []string{"amzn.to", "amzn.eu", "a.co"},
		CountrySuffixes: []string{".ae", ".sa", ".eg", ".com"},
	}
}

const (
	minTitleLength         = 8
	maxDescriptionFeatures = 8
	minBulletLength        = 3
	maxBulletLength        = 180
	maxSpecValueLength     = 200
)

var marketplaceImageSelectors = []string{"#landingImage", "#imgBlkFront", "#ebooksImgBlkFront"}

var marketplacePriceSelectors = []string{
	"#corePrice_feature_div .a-price .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
	"#apex_desktop .a-price .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	"#price_inside_buybox",
	"#kindle-price",
	"#price",
	".a-price .a-offscreen",
}

var marketplaceLongDescriptionSelectors = []string{
	"#productDescription",
	"#bookDescription_feature_div",
	"#aplus_feature_div",
}

var marketplaceSpecRowSelectors = strings.Join([]string{
	"#productDetails_techSpec_section_1 tr",
	"#productDetails_techSpec_section_2 tr",
	"#productDetails_detailBullets_sections1 tr",
	"#technicalSpecifications_section_1 tr",
	"#prodDetails table tr",
}, ", ")

const (
	marketplaceTitleSelector        = "#productTitle"
	marketplaceFeatureSelector      = "#feature-bullets li:not(.aok-hidden)"
	marketplaceDetailBulletSelector = "#detailBullets_feature_div li"
)

// Matches reports whether host belongs to the marketplace
func (m Marketplace) Matches(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	apex := strings.ToLower(m.Domain)
	if apex != "" && (host == apex || strings.HasSuffix(host, "."+apex)) {
		return true
	}
	for _, h := range m.AlternateHosts {
		if host == strings.ToLower(h) {
			return true
		}
	}
	for _, h := range m.ShortLinkHosts {
		if host == strings.ToLower(h) {
			return true
		}
	}
	return false
}

// IsSiteName reports whether s is just the marketplace name, optionally with a country suffix
func (m Marketplace) IsSiteName(s string) bool {
	if m.SiteName == "" {
		return false
	}
	key := FoldKey(s)
	if key == FoldKey(m.SiteName) {
		return true
	}
	for _, suffix := range m.CountrySuffixes {
		if key == FoldKey(m.SiteName+suffix) {
			return true
		}
	}
	return false
}

// IsWeakTitle reports a title that says nothing about the product
func (m Marketplace) IsWeakTitle(title string) bool {
	title = NormalizeText(title)
	return title == "" || m.IsSiteName(title) || utf8.RuneCountInString(title) < minTitleLength
}

// Extract applies the marketplace layout heuristics. Returns nil when the
// document was not served by the marketplace. Missing elements leave fields empty.
func (m Marketplace) Extract(doc *Document) *domain.CandidateProduct {
	if !m.Matches(doc.Host()) {
		return nil
	}

	features := marketplaceFeatures(doc)

	return &domain.CandidateProduct{
		Name:         cleanLine(doc.find(marketplaceTitleSelector).First().Text()),
		Description:  marketplaceDescription(doc, features),
		PriceText:    marketplacePriceText(doc),
		Images:       marketplaceImages(doc),
		BulletPoints: marketplaceBullets(doc, features),
	}
}

// marketplaceFeatures returns the non-empty feature-bullet texts
func marketplaceFeatures(doc *Document) []string {
	var out []string
	doc.find(marketplaceFeatureSelector).Each(func(_ int, s *goquery.Selection) {
		if text := cleanLine(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func marketplaceImages(doc *Document) []string {
	for _, selector := range marketplaceImageSelectors {
		img := doc.find(selector).First()
		if img.Length() == 0 {
			continue
		}

		if raw := img.AttrOr("data-a-dynamic-image", ""); raw != "" {
			if keys, err := objectKeys(raw); err == nil && len(keys) > 0 {
				var out []string
				for _, key := range keys {
					if abs, ok := doc.resolve(key); ok {
						out = append(out, abs)
					}
				}
				if len(out) > 0 {
					return DedupeStrings(out)
				}
			}
		}

		if abs, ok := doc.resolve(img.AttrOr("data-old-hires", "")); ok {
			return []string{abs}
		}
	}
	return nil
}

// objectKeys returns the keys of a JSON object in document order
func objectKeys(raw string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("dynamic image map is not an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// marketplacePriceText returns the first price text holding a digit, else the first non-empty one
func marketplacePriceText(doc *Document) string {
	var fallback string
	for _, selector := range marketplacePriceSelectors {
		text := cleanLine(doc.find(selector).First().Text())
		if text == "" {
			continue
		}
		if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
			return text
		}
		if fallback == "" {
			fallback = text
		}
	}
	return fallback
}

func marketplaceDescription(doc *Document, features []string) string {
	var lines []string
	for _, feature := range features {
		if isBareLabel(feature) {
			continue
		}
		lines = append(lines, feature)
		if len(lines) == maxDescriptionFeatures {
			break
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}

	for _, selector := range marketplaceLongDescriptionSelectors {
		if text := cleanLine(doc.find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// isBareLabel reports a bullet like "About this item:" that carries no value
func isBareLabel(s string) bool {
	return strings.HasSuffix(s, ":") && strings.Count(s, ":") == 1
}

func marketplaceBullets(doc *Document, features []string) []string {
	var out []string

	for _, feature := range features {
		if lengthBetween(feature, minBulletLength, maxBulletLength) {
			out = append(out, feature)
		}
	}

	doc.find(marketplaceSpecRowSelectors).Each(func(_ int, row *goquery.Selection) {
		label := cleanLine(row.Find("th").First().Text())
		value := cleanLine(row.Find("td").First().Text())
		if label != "" && value != "" {
			out = append(out, label+": "+truncate(value, maxSpecValueLength))
		}
	})

	doc.find(marketplaceDetailBulletSelector).Each(func(_ int, item *goquery.Selection) {
		text := cleanLine(item.Text())
		if strings.Contains(text, ":") {
			out = append(out, truncate(tidyLabel(text), maxSpecValueLength))
		}
	})

	return DedupeFolded(out)
}
