// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/cooler-keeper/business/pricing/app"
	"github.com/fd1az/cooler-keeper/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	PriceSource = di.NewToken[app.PriceSource]("pricing:priceSource")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetPriceSource(c di.ServiceRegistry) app.PriceSource {
	return di.GetToken(c, PriceSource)
}
