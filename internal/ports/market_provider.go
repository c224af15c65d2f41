package ports

import (
	"context"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// MarketDataProvider supplies input and commodity prices to the engine.
// The core never fetches prices itself.
type MarketDataProvider interface {
	// CurrentPrice devuelve el precio actual de un producto en una región.
	// found=false means the provider has no quote; that is not an error.
	CurrentPrice(ctx context.Context, product, region string) (price domain.Price, found bool, err error)

	// PriceHistory returns up to days daily prices, most recent last.
	PriceHistory(ctx context.Context, product, region string, days int) ([]domain.Price, error)

	// CommodityPrices returns crop → price for the crops the provider knows.
	// Crops without a quote are simply missing from the map.
	CommodityPrices(ctx context.Context, crops []string, region string) (map[string]domain.Price, error)
}
