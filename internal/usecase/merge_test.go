package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallaby/backend/internal/domain"
	"github.com/tallaby/backend/internal/extractor"
)

func price(v float64) *float64 {
	return &v
}

func TestMergeProduct_TitlePrecedence(t *testing.T) {
	market := extractor.DefaultMarketplace()

	tests := []struct {
		name string
		ex   extraction
		want string
	}{
		{
			name: "site title wins",
			ex: extraction{
				site:       &domain.CandidateProduct{Name: "Acme Headphones X1"},
				structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{Name: "SD Name"}},
				generic:    &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{Name: "OG Name"}},
			},
			want: "Acme Headphones X1",
		},
		{
			name: "structured data before generic off-marketplace",
			ex: extraction{
				structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{Name: "SD Name"}},
				generic:    &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{Name: "OG Name"}},
			},
			want: "SD Name",
		},
		{
			name: "weak marketplace title falls back to generic",
			ex: extraction{
				site:       &domain.CandidateProduct{},
				structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{Name: "Amazon.ae"}},
				generic:    &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{Name: "Acme Headphones from og:title"}},
			},
			want: "Acme Headphones from og:title",
		},
		{
			name: "short title is kept off-marketplace",
			ex: extraction{
				generic: &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{Name: "Mug"}},
			},
			want: "Mug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeProduct("https://shop.example/p", tt.ex, market)
			assert.Equal(t, tt.want, got.Title)
		})
	}
}

func TestMergeProduct_DescriptionPrecedence(t *testing.T) {
	market := extractor.DefaultMarketplace()
	generic := &extractor.GenericProduct{
		ItemPropDescription:  "itemprop",
		ContainerDescription: "container",
		MetaDescription:      "meta",
	}

	got := mergeProduct("u", extraction{
		structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{Description: "structured"}},
		generic:    generic,
	}, market)
	assert.Equal(t, "structured", got.Description)

	got = mergeProduct("u", extraction{generic: generic}, market)
	assert.Equal(t, "itemprop", got.Description)

	generic.ItemPropDescription = ""
	got = mergeProduct("u", extraction{generic: generic}, market)
	assert.Equal(t, "container", got.Description)

	generic.ContainerDescription = ""
	got = mergeProduct("u", extraction{generic: generic}, market)
	assert.Equal(t, "meta", got.Description)
}

func TestMergeProduct_PricePrecedence(t *testing.T) {
	market := extractor.DefaultMarketplace()

	t.Run("site price text beats generic", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site:    &domain.CandidateProduct{PriceText: "AED 120.00"},
			generic: &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{PriceText: "99"}},
		}, market)

		assert.Equal(t, "AED 120.00", got.Price)
		require.NotNil(t, got.PriceAmount)
		assert.InDelta(t, 120.0, *got.PriceAmount, 1e-9)
	})

	t.Run("structured amount beats parsed text", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site: &domain.CandidateProduct{PriceText: "AED 120.00"},
			structured: &extractor.StructuredProduct{
				CandidateProduct: domain.CandidateProduct{PriceAmount: price(110)},
				OfferPrice:       price(100),
			},
		}, market)

		assert.Equal(t, "AED 120.00", got.Price)
		require.NotNil(t, got.PriceAmount)
		assert.InDelta(t, 110.0, *got.PriceAmount, 1e-9)
	})

	t.Run("offer price when product price missing", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			structured: &extractor.StructuredProduct{OfferPrice: price(100), OfferCurrency: "EUR"},
		}, market)

		require.NotNil(t, got.PriceAmount)
		assert.InDelta(t, 100.0, *got.PriceAmount, 1e-9)
		assert.Equal(t, "EUR", got.PriceCurrency)
		assert.Empty(t, got.Price)
	})

	t.Run("unparseable text leaves amount empty", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site: &domain.CandidateProduct{PriceText: "Currently unavailable"},
		}, market)

		assert.Equal(t, "Currently unavailable", got.Price)
		assert.Nil(t, got.PriceAmount)
	})

	t.Run("currency tiers", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			generic: &extractor.GenericProduct{ProductCurrency: "SAR", OGCurrency: "USD"},
		}, market)
		assert.Equal(t, "SAR", got.PriceCurrency)

		got = mergeProduct("u", extraction{
			generic: &extractor.GenericProduct{OGCurrency: "USD"},
		}, market)
		assert.Equal(t, "USD", got.PriceCurrency)
	})
}

func TestMergeProduct_ImagesDedupedAndCapped(t *testing.T) {
	var site []string
	for i := 0; i < 8; i++ {
		site = append(site, fmt.Sprintf("https://cdn.example/%d.jpg", i))
	}

	got := mergeProduct("u", extraction{
		site:       &domain.CandidateProduct{Images: site},
		structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{Images: []string{"https://cdn.example/0.jpg", "https://cdn.example/sd.jpg"}}},
		generic:    &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{Images: []string{"https://cdn.example/og.jpg", "https://cdn.example/extra.jpg"}}},
	}, extractor.DefaultMarketplace())

	require.Len(t, got.Images, maxImages)
	assert.Equal(t, "https://cdn.example/0.jpg", got.Images[0])
	assert.Equal(t, "https://cdn.example/sd.jpg", got.Images[8])
	assert.Equal(t, "https://cdn.example/og.jpg", got.Images[9])
}

func TestMergeProduct_Bullets(t *testing.T) {
	market := extractor.DefaultMarketplace()

	t.Run("conflicting sources merge in order", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site:    &domain.CandidateProduct{BulletPoints: []string{"A: 1"}},
			generic: &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{BulletPoints: []string{"A: 1", "B: 2"}}},
		}, market)

		assert.Equal(t, []string{"A: 1", "B: 2"}, got.BulletPoints)
	})

	t.Run("structured bullets sit between site and generic", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site:       &domain.CandidateProduct{BulletPoints: []string{"Site line"}},
			structured: &extractor.StructuredProduct{CandidateProduct: domain.CandidateProduct{BulletPoints: []string{"Color: Red"}}},
			generic:    &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{BulletPoints: []string{"color:  red", "Generic line"}}},
		}, market)

		assert.Equal(t, []string{"Site line", "Color: Red", "Generic line"}, got.BulletPoints)
	})

	t.Run("drops site name and case duplicates", func(t *testing.T) {
		got := mergeProduct("u", extraction{
			site:    &domain.CandidateProduct{BulletPoints: []string{"Amazon.ae", "Fast  charging"}},
			generic: &extractor.GenericProduct{CandidateProduct: domain.CandidateProduct{BulletPoints: []string{"fast charging", "  ", "Wireless"}}},
		}, market)

		assert.Equal(t, []string{"Fast charging", "Wireless"}, got.BulletPoints)
	})

	t.Run("caps at ten", func(t *testing.T) {
		var lines []string
		for i := 0; i < 15; i++ {
			lines = append(lines, fmt.Sprintf("Feature %d", i))
		}
		got := mergeProduct("u", extraction{site: &domain.CandidateProduct{BulletPoints: lines}}, market)

		assert.Len(t, got.BulletPoints, maxBulletPoints)
	})
}

func TestMergeProduct_EmptyExtraction(t *testing.T) {
	got := mergeProduct("https://shop.example/p", extraction{}, extractor.DefaultMarketplace())

	assert.Equal(t, "https://shop.example/p", got.URL)
	assert.Empty(t, got.Title)
	assert.Nil(t, got.PriceAmount)
	assert.NotNil(t, got.Images)
	assert.NotNil(t, got.BulletPoints)
	assert.Empty(t, got.Images)
	assert.Empty(t, got.BulletPoints)
}
