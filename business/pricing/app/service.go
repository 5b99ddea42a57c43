// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/cooler-keeper/business/pricing/domain"
)

// PricingService resolves the two denominations the keeper cares about:
// the reward token and ether, both in USD.
type PricingService struct {
	source     PriceSource
	rewardCoin string
	gasCoin    string
}

// NewPricingService creates a PricingService bound to the given coin ids.
func NewPricingService(source PriceSource, rewardCoin, gasCoin string) *PricingService {
	return &PricingService{
		source:     source,
		rewardCoin: rewardCoin,
		gasCoin:    gasCoin,
	}
}

// RewardTokenUSD returns the current USD price of the reward token.
func (s *PricingService) RewardTokenUSD(ctx context.Context) (*domain.Price, error) {
	return s.source.PriceUSD(ctx, s.rewardCoin)
}

// EtherUSD returns the current USD price of ether, used to denominate gas.
func (s *PricingService) EtherUSD(ctx context.Context) (*domain.Price, error) {
	return s.source.PriceUSD(ctx, s.gasCoin)
}

// PriceUSD returns the current USD price for an arbitrary coin id.
func (s *PricingService) PriceUSD(ctx context.Context, coinID string) (*domain.Price, error) {
	return s.source.PriceUSD(ctx, coinID)
}
