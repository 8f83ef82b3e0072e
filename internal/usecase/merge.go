package usecase

import (
	"github.com/tallaby/backend/internal/domain"
	"github.com/tallaby/backend/internal/extractor"
)

const (
	maxImages       = 10
	maxBulletPoints = 10
)

// extraction gathers the output of the three stages for one page.
// site is nil off-marketplace and structured is nil without JSON-LD product data.
type extraction struct {
	site       *domain.CandidateProduct
	structured *extractor.StructuredProduct
	generic    *extractor.GenericProduct
}

// mergeProduct resolves every field with a fixed precedence: the first
// non-empty source in each list wins.
func mergeProduct(finalURL string, ex extraction, market extractor.Marketplace) *domain.ProductResponse {
	site := ex.site
	if site == nil {
		site = &domain.CandidateProduct{}
	}
	sd := ex.structured
	if sd == nil {
		sd = &extractor.StructuredProduct{}
	}
	generic := ex.generic
	if generic == nil {
		generic = &extractor.GenericProduct{}
	}

	title := firstText(site.Name, sd.Name, generic.Name)
	if ex.site != nil && market.IsWeakTitle(title) {
		title = firstText(site.Name, generic.Name)
	}

	return &domain.ProductResponse{
		URL:   finalURL,
		Title: title,
		Description: firstText(
			site.Description,
			sd.Description,
			generic.ItemPropDescription,
			generic.ContainerDescription,
			generic.MetaDescription,
		),
		Price: firstText(site.PriceText, generic.PriceText),
		PriceAmount: firstPrice(
			sd.PriceAmount,
			sd.OfferPrice,
			extractor.ParsePrice(site.PriceText),
			extractor.ParsePrice(generic.PriceText),
		),
		PriceCurrency: firstText(
			sd.PriceCurrency,
			sd.OfferCurrency,
			generic.ProductCurrency,
			generic.OGCurrency,
		),
		Images:       mergeImages(site.Images, sd.Images, generic.Images),
		BulletPoints: mergeBullets(market, site.BulletPoints, sd.BulletPoints, generic.BulletPoints),
	}
}

func firstText(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPrice(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func mergeImages(sources ...[]string) []string {
	var all []string
	for _, source := range sources {
		all = append(all, source...)
	}
	images := extractor.DedupeStrings(all)
	if len(images) > maxImages {
		images = images[:maxImages]
	}
	return images
}

func mergeBullets(market extractor.Marketplace, sources ...[]string) []string {
	var all []string
	for _, source := range sources {
		for _, line := range source {
			line = extractor.NormalizeText(line)
			if line == "" || market.IsSiteName(line) {
				continue
			}
			all = append(all, line)
		}
	}
	bullets := extractor.DedupeFolded(all)
	if len(bullets) > maxBulletPoints {
		bullets = bullets[:maxBulletPoints]
	}
	return bullets
}
