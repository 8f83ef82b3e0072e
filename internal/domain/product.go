package domain

// ExtractionRequest is the body accepted by the product fetch endpoint
type ExtractionRequest struct {
	URL string `json:"url"`
}

// FetchResult holds the raw page and the URL reached after redirects
type FetchResult struct {
	HTML     string
	FinalURL string
}

// CandidateProduct is the partial product produced by a single extraction stage.
// PriceAmount is nil unless a finite, strictly positive value was found.
type CandidateProduct struct {
	Name          string
	Description   string
	PriceText     string
	PriceAmount   *float64
	PriceCurrency string
	Images        []string
	BulletPoints  []string
}

// IsEmpty reports whether no field of the candidate was populated
func (c *CandidateProduct) IsEmpty() bool {
	return c.Name == "" &&
		c.Description == "" &&
		c.PriceText == "" &&
		c.PriceAmount == nil &&
		c.PriceCurrency == "" &&
		len(c.Images) == 0 &&
		len(c.BulletPoints) == 0
}

// ProductResponse is the merged product returned to API clients
type ProductResponse struct {
	URL           string   `json:"url"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Price         string   `json:"price,omitempty"`
	PriceAmount   *float64 `json:"priceAmount,omitempty"`
	PriceCurrency string   `json:"priceCurrency,omitempty"`
	Images        []string `json:"images"`
	BulletPoints  []string `json:"bulletPoints"`
}
