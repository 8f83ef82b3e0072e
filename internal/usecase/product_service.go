package usecase

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tallaby/backend/internal/domain"
	"github.com/tallaby/backend/internal/extractor"
)

// ProductServiceConfig holds configuration for the product service
type ProductServiceConfig struct {
	Marketplace     extractor.Marketplace
	HeadingKeywords []string
}

// ProductService fetches a product page and merges what the extractors find
type ProductService struct {
	fetcher         domain.PageFetcher
	marketplace     extractor.Marketplace
	headingKeywords []string
}

// NewProductService creates a new product service with dependencies
func NewProductService(fetcher domain.PageFetcher, config ProductServiceConfig) *ProductService {
	marketplace := config.Marketplace
	if marketplace.Domain == "" {
		marketplace = extractor.DefaultMarketplace()
	}

	return &ProductService{
		fetcher:         fetcher,
		marketplace:     marketplace,
		headingKeywords: config.HeadingKeywords,
	}
}

// FetchProduct validates the request, fetches the page and extracts the product.
// Flow: validate -> fetch -> parse -> run extractors -> merge
func (s *ProductService) FetchProduct(
	ctx context.Context,
	request *domain.ExtractionRequest,
) (*domain.ProductResponse, error) {
	if request == nil {
		return nil, domain.ErrInvalidURL
	}
	target, err := ValidateProductURL(request.URL)
	if err != nil {
		return nil, err
	}

	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	return s.Extract(ctx, page)
}

// Extract runs the three extraction stages over an already fetched page
func (s *ProductService) Extract(ctx context.Context, page *domain.FetchResult) (*domain.ProductResponse, error) {
	doc, err := extractor.ParseDocument(page.HTML, page.FinalURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse product page")
	}

	var ex extraction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(stage(gctx, "structured", func() {
		ex.structured = extractor.ExtractStructuredData(doc)
	}))
	g.Go(stage(gctx, "marketplace", func() {
		ex.site = s.marketplace.Extract(doc)
	}))
	g.Go(stage(gctx, "generic", func() {
		ex.generic = extractor.ExtractGeneric(doc, s.headingKeywords)
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	product := mergeProduct(page.FinalURL, ex, s.marketplace)

	zap.L().Debug("product extracted",
		zap.String("final_url", page.FinalURL),
		zap.Bool("marketplace", ex.site != nil),
		zap.Bool("structured_data", ex.structured != nil),
		zap.Bool("has_price", product.PriceAmount != nil),
		zap.Int("images", len(product.Images)),
		zap.Int("bullet_points", len(product.BulletPoints)),
	)

	return product, nil
}

// stage wraps an extractor so a cancelled request skips it and a panic only drops its result
func stage(ctx context.Context, name string, run func()) func() error {
	return func() error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "%s extractor", name)
		}
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("extractor stage panicked",
					zap.String("stage", name),
					zap.Any("panic", r),
				)
			}
		}()
		run()
		return nil
	}
}

// ValidateProductURL accepts only absolute http(s) URLs
func ValidateProductURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	return u.String(), nil
}
