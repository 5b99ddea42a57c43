package app

import (
	"context"

	"github.com/fd1az/cooler-keeper/business/pricing/domain"
)

// PriceSource fetches USD prices for coins by their coingecko identifier.
type PriceSource interface {
	// PriceUSD returns the current USD price for the given coin.
	PriceUSD(ctx context.Context, coinID string) (*domain.Price, error)
}
