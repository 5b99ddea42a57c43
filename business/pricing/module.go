// Package pricing implements the pricing bounded context for USD price feeds.
package pricing

import (
	"context"

	"github.com/fd1az/cooler-keeper/business/pricing/app"
	pricingDI "github.com/fd1az/cooler-keeper/business/pricing/di"
	"github.com/fd1az/cooler-keeper/business/pricing/infra/llama"
	"github.com/fd1az/cooler-keeper/internal/config"
	"github.com/fd1az/cooler-keeper/internal/di"
	"github.com/fd1az/cooler-keeper/internal/logger"
	"github.com/fd1az/cooler-keeper/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PriceSource (DefiLlama) - private dependency
	di.RegisterToken(c, pricingDI.PriceSource, func(sr di.ServiceRegistry) app.PriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := llama.DefaultClientConfig()
		if cfg.Pricing.BaseURL != "" {
			clientCfg.BaseURL = cfg.Pricing.BaseURL
		}
		if cfg.Pricing.CacheTTL > 0 {
			clientCfg.CacheTTL = cfg.Pricing.CacheTTL
		}
		if cfg.Pricing.RequestsPerMinute > 0 {
			clientCfg.RequestsPerMinute = cfg.Pricing.RequestsPerMinute
		}

		client, err := llama.NewClient(clientCfg, log)
		if err != nil {
			panic("failed to create price client: " + err.Error())
		}
		return client
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		source := pricingDI.GetPriceSource(sr)
		return app.NewPricingService(source, cfg.Pricing.RewardCoinID, cfg.Pricing.GasCoinID)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Warm the price cache so the first evaluation does not block on HTTP.
	svc := pricingDI.GetPricingService(mono.Services())
	if _, err := svc.RewardTokenUSD(ctx); err != nil {
		log.Warn(ctx, "reward token price warmup failed", "error", err)
	}
	if _, err := svc.EtherUSD(ctx); err != nil {
		log.Warn(ctx, "ether price warmup failed", "error", err)
	}

	log.Info(ctx, "pricing module started")
	return nil
}
