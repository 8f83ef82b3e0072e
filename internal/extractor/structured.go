package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tallaby/backend/internal/domain"
)

// StructuredProduct is what the page's JSON-LD says about the product.
// Product-level price/currency sit in the embedded candidate; values taken
// from offers are kept apart because they rank lower when merging.
type StructuredProduct struct {
	domain.CandidateProduct
	OfferPrice    *float64
	OfferCurrency string
}

// IsEmpty reports whether no JSON-LD product node contributed anything
func (p *StructuredProduct) IsEmpty() bool {
	return p.CandidateProduct.IsEmpty() && p.OfferPrice == nil && p.OfferCurrency == ""
}

// maxGraphDepth bounds how deeply arrays and @graph wrappers are unpacked
const maxGraphDepth = 8

// ExtractStructuredData reads every JSON-LD block and folds the product nodes
// into one record. Blocks that fail to parse are skipped. Returns nil when no
// product node yielded any field.
func ExtractStructuredData(doc *Document) *StructuredProduct {
	out := &StructuredProduct{}

	doc.find(`script[type*="ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := jsonLDPayload(s.Text())
		if len(raw) == 0 || !json.Valid(raw) {
			return
		}

		var nodes []json.RawMessage
		collectNodes(raw, 0, &nodes)
		for _, node := range nodes {
			var product ldProduct
			if err := json.Unmarshal(node, &product); err != nil {
				continue
			}
			if !product.isProduct() {
				continue
			}
			out.absorb(doc, &product)
		}
	})

	out.Images = DedupeStrings(out.Images)
	out.BulletPoints = dedupeBy(filterProperties(out.BulletPoints), propertyKey)

	if out.IsEmpty() {
		return nil
	}
	return out
}

// absorb merges one product node into the record; earlier nodes win for scalars
func (p *StructuredProduct) absorb(doc *Document, node *ldProduct) {
	if p.Name == "" {
		p.Name = NormalizeText(string(node.Name))
	}
	if p.Description == "" {
		p.Description = NormalizeText(StripMarkup(string(node.Description)))
	}

	for _, ref := range node.Image {
		if abs, ok := doc.resolve(ref); ok {
			p.Images = append(p.Images, abs)
		}
	}

	p.BulletPoints = append(p.BulletPoints, node.AdditionalProperty...)

	if p.PriceAmount == nil {
		p.PriceAmount = node.Price.value
	}
	if p.PriceCurrency == "" {
		p.PriceCurrency = NormalizeText(string(node.PriceCurrency))
	}

	node.Offers.walk(func(offer *ldOffer) {
		if p.OfferPrice == nil {
			p.OfferPrice = offer.amount()
		}
		if p.OfferCurrency == "" {
			p.OfferCurrency = offer.currency()
		}
	})
}

// jsonLDPayload trims the script body, including legacy comment wrappers
func jsonLDPayload(text string) []byte {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "<!--")
	text = strings.TrimSuffix(text, "-->")
	return []byte(strings.TrimSpace(text))
}

// collectNodes flattens top-level arrays and @graph collections into candidate nodes
func collectNodes(raw json.RawMessage, depth int, out *[]json.RawMessage) {
	if depth > maxGraphDepth {
		return
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return
		}
		for _, item := range items {
			collectNodes(item, depth+1, out)
		}
	case '{':
		*out = append(*out, raw)
		var wrapper struct {
			Graph json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Graph) > 0 {
			collectNodes(wrapper.Graph, depth+1, out)
		}
	}
}

// filterProperties keeps "name: value" lines whose name and value are both present
func filterProperties(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		name, value, ok := splitLabel(line)
		if ok && name != "" && value != "" {
			out = append(out, line)
		}
	}
	return out
}

// propertyKey identifies a property line regardless of case and spacing
func propertyKey(line string) string {
	name, value, ok := splitLabel(line)
	if !ok {
		return FoldKey(line)
	}
	return FoldKey(name) + ":" + FoldKey(value)
}

// ldProduct is the typed view of a JSON-LD node. Every field decodes
// tolerantly: values of an unexpected shape are dropped, never fatal.
type ldProduct struct {
	Types              ldStrings    `json:"@type"`
	Name               ldText       `json:"name"`
	Description        ldText       `json:"description"`
	Image              ldImages     `json:"image"`
	AdditionalProperty ldProperties `json:"additionalProperty"`
	Offers             ldOffers     `json:"offers"`
	Price              ldPrice      `json:"price"`
	PriceCurrency      ldText       `json:"priceCurrency"`
}

func (p *ldProduct) isProduct() bool {
	for _, t := range p.Types {
		if strings.Contains(strings.ToLower(t), "product") {
			return true
		}
	}
	return false
}

type ldOffer struct {
	Price              ldPrice      `json:"price"`
	LowPrice           ldPrice      `json:"lowPrice"`
	PriceCurrency      ldText       `json:"priceCurrency"`
	PriceSpecification ldPriceSpecs `json:"priceSpecification"`
	Offers             ldOffers     `json:"offers"`
}

// amount prefers price, then priceSpecification.price, then an aggregate lowPrice
func (o *ldOffer) amount() *float64 {
	if o.Price.value != nil {
		return o.Price.value
	}
	for _, spec := range o.PriceSpecification {
		if spec.Price.value != nil {
			return spec.Price.value
		}
	}
	return o.LowPrice.value
}

func (o *ldOffer) currency() string {
	if c := NormalizeText(string(o.PriceCurrency)); c != "" {
		return c
	}
	for _, spec := range o.PriceSpecification {
		if c := NormalizeText(string(spec.PriceCurrency)); c != "" {
			return c
		}
	}
	return ""
}

type ldPriceSpec struct {
	Price         ldPrice `json:"price"`
	PriceCurrency ldText  `json:"priceCurrency"`
}

// ldStrings accepts a string or a list of strings
type ldStrings []string

func (s *ldStrings) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = ldStrings{one}
		return nil
	}
	var many []json.RawMessage
	if err := json.Unmarshal(data, &many); err == nil {
		for _, item := range many {
			var v string
			if err := json.Unmarshal(item, &v); err == nil {
				*s = append(*s, v)
			}
		}
	}
	return nil
}

// ldText accepts a string, a number, a {"@value": ...} object or a list holding one
type ldText string

func (t *ldText) UnmarshalJSON(data []byte) error {
	*t = ldText(textValue(data))
	return nil
}

func textValue(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String()
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		for _, item := range list {
			if v := textValue(item); v != "" {
				return v
			}
		}
		return ""
	}
	var obj struct {
		Value json.RawMessage `json:"@value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Value) > 0 {
		return textValue(obj.Value)
	}
	return ""
}

// ldPrice accepts a JSON number or a human price string
type ldPrice struct {
	value *float64
}

func (p *ldPrice) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		p.value = positive(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.value = ParsePrice(s)
	}
	return nil
}

// ldImages accepts a URL string, an ImageObject, or a list of either
type ldImages []string

func (im *ldImages) UnmarshalJSON(data []byte) error {
	*im = imageRefs(data)
	return nil
}

func imageRefs(data []byte) []string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, imageRefs(item)...)
		}
		return out
	}
	var obj struct {
		URL        ldText `json:"url"`
		ContentURL ldText `json:"contentUrl"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.URL != "" {
			return []string{string(obj.URL)}
		}
		if obj.ContentURL != "" {
			return []string{string(obj.ContentURL)}
		}
	}
	return nil
}

// ldProperties renders PropertyValue entries as "name: value" lines
type ldProperties []string

func (ps *ldProperties) UnmarshalJSON(data []byte) error {
	*ps = propertyLines(data)
	return nil
}

func propertyLines(data []byte) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, propertyLines(item)...)
		}
		return out
	}
	var prop struct {
		Name  ldText          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &prop); err != nil {
		return nil
	}
	return []string{NormalizeText(string(prop.Name)) + ": " + truncate(NormalizeText(propertyValue(prop.Value)), maxSpecValueLength)}
}

// propertyValue reads a scalar value or a nested object exposing name or value
func propertyValue(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err == nil {
			return strconv.FormatBool(b)
		}
	case '{':
		var nested struct {
			Name  ldText `json:"name"`
			Value ldText `json:"value"`
		}
		if err := json.Unmarshal(data, &nested); err == nil {
			if nested.Name != "" {
				return string(nested.Name)
			}
			return string(nested.Value)
		}
	}
	return textValue(data)
}

// ldPriceSpecs accepts one PriceSpecification or a list
type ldPriceSpecs []ldPriceSpec

func (ps *ldPriceSpecs) UnmarshalJSON(data []byte) error {
	var list []ldPriceSpec
	if err := json.Unmarshal(data, &list); err == nil {
		*ps = list
		return nil
	}
	var one ldPriceSpec
	if err := json.Unmarshal(data, &one); err == nil {
		*ps = ldPriceSpecs{one}
	}
	return nil
}

// ldOffers accepts one Offer, a list, or an AggregateOffer with nested offers
type ldOffers []ldOffer

func (offers *ldOffers) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		for _, item := range list {
			var offer ldOffer
			if err := json.Unmarshal(item, &offer); err == nil {
				*offers = append(*offers, offer)
			}
		}
		return nil
	}
	var one ldOffer
	if err := json.Unmarshal(data, &one); err == nil {
		*offers = ldOffers{one}
	}
	return nil
}

// walk visits offers depth-first, an aggregate before the offers it wraps
func (offers ldOffers) walk(fn func(*ldOffer)) {
	for i := range offers {
		fn(&offers[i])
		offers[i].Offers.walk(fn)
	}
}
