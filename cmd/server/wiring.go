package main

import (
	"github.com/tallaby/backend/config"
	"github.com/tallaby/backend/internal/extractor"
	"github.com/tallaby/backend/internal/infrastructure/fetcher"
	"github.com/tallaby/backend/internal/usecase"
)

// fetchOptions maps the scraper config onto the page fetcher
func fetchOptions(c config.ScraperConfig) fetcher.Options {
	return fetcher.Options{
		Timeout:        c.Timeout,
		MaxRedirects:   c.MaxRedirects,
		MaxBodyBytes:   c.MaxBodyBytes,
		UserAgent:      c.UserAgent,
		AcceptLanguage: c.AcceptLanguage,
	}
}

func marketplaceFromConfig(c config.MarketplaceConfig) extractor.Marketplace {
	return extractor.Marketplace{
		SiteName:        c.SiteName,
		Domain:          c.Domain,
		AlternateHosts:  c.AlternateHosts,
		ShortLinkHosts:  c.ShortLinkHosts,
		CountrySuffixes: c.CountrySuffixes,
	}
}

// newProductService builds the fetcher and extraction pipeline from config
func newProductService(c *config.Config) *usecase.ProductService {
	return usecase.NewProductService(
		fetcher.NewClient(fetchOptions(c.Scraper)),
		usecase.ProductServiceConfig{
			Marketplace:     marketplaceFromConfig(c.Marketplace),
			HeadingKeywords: c.Scraper.HeadingKeywords,
		},
	)
}
