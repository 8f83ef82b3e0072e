package domain

import (
	"context"
)

// PageFetcher retrieves the HTML of a product page
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// ProductExtractor turns a product URL into a merged product record
type ProductExtractor interface {
	FetchProduct(ctx context.Context, request *ExtractionRequest) (*ProductResponse, error)
}
