// Package claims implements the claims bounded context: watching for
// profitable defaults and submitting claim transactions.
package claims

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	blockchainDI "github.com/fd1az/cooler-keeper/business/blockchain/di"
	"github.com/fd1az/cooler-keeper/business/claims/app"
	claimsDI "github.com/fd1az/cooler-keeper/business/claims/di"
	"github.com/fd1az/cooler-keeper/business/claims/infra/ethereum"
	pricingDI "github.com/fd1az/cooler-keeper/business/pricing/di"
	protocolDI "github.com/fd1az/cooler-keeper/business/protocol/di"
	"github.com/fd1az/cooler-keeper/internal/config"
	"github.com/fd1az/cooler-keeper/internal/di"
	"github.com/fd1az/cooler-keeper/internal/logger"
	"github.com/fd1az/cooler-keeper/internal/monolith"
)

// Module implements the claims bounded context.
type Module struct{}

// RegisterServices registers all claims services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Signer (private - internal dependency)
	di.RegisterToken(c, claimsDI.Signer, func(sr di.ServiceRegistry) app.Signer {
		cfg := sr.Get("config").(*config.Config)

		signer, err := ethereum.NewSigner(cfg.Signer.PrivateKey, cfg.Ethereum.ChainID)
		if err != nil {
			panic("failed to create signer: " + err.Error())
		}
		return signer
	})

	// Register TransactionSubmitter (private - internal dependency)
	di.RegisterToken(c, claimsDI.Submitter, func(sr di.ServiceRegistry) app.TransactionSubmitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		readClient := sr.Get("ethClient").(*ethclient.Client)
		signer := claimsDI.GetSigner(sr)

		subCfg := ethereum.DefaultSubmitterConfig(cfg.Ethereum.SignURL)
		if cfg.Keeper.MaxAttempts > 0 {
			subCfg.MaxAttempts = cfg.Keeper.MaxAttempts
		}
		if cfg.Keeper.GasBumpPercent > 0 {
			subCfg.GasBumpPercent = cfg.Keeper.GasBumpPercent
		}
		if cfg.Keeper.ConfirmationBlocks > 0 {
			subCfg.ConfirmationBlocks = cfg.Keeper.ConfirmationBlocks
		}
		// Fit the whole submission cycle inside the expected claim cadence.
		if target := cfg.Keeper.RewardPeriodTarget; target > 0 {
			if perAttempt := target / time.Duration(subCfg.MaxAttempts); perAttempt < subCfg.AttemptTimeout {
				subCfg.AttemptTimeout = perAttempt
			}
		}

		submitter, err := ethereum.NewSubmitter(subCfg, readClient, signer, log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return submitter
	})

	// Register ProfitEstimator (private - internal dependency)
	di.RegisterToken(c, claimsDI.ProfitEstimator, func(sr di.ServiceRegistry) *app.ProfitEstimator {
		cfg := sr.Get("config").(*config.Config)
		blockchain := blockchainDI.GetBlockchainService(sr)
		pricing := pricingDI.GetPricingService(sr)

		return app.NewProfitEstimator(
			blockchain,
			pricing,
			cfg.Keeper.ExpectedGasUnits,
			cfg.Keeper.MinProfitUSDDecimal(),
		)
	})

	// Register ExecutionGate (private - internal dependency)
	di.RegisterToken(c, claimsDI.ExecutionGate, func(sr di.ServiceRegistry) *app.ExecutionGate {
		return app.NewExecutionGate()
	})

	// Register NonceSequencer (private - internal dependency)
	di.RegisterToken(c, claimsDI.NonceSequencer, func(sr di.ServiceRegistry) *app.NonceSequencer {
		blockchain := blockchainDI.GetBlockchainService(sr)
		signer := claimsDI.GetSigner(sr)
		return app.NewNonceSequencer(blockchain, signer.Address())
	})

	// Register OpportunityWatcher (public - the keeper's main loop)
	di.RegisterToken(c, claimsDI.OpportunityWatcher, func(sr di.ServiceRegistry) *app.OpportunityWatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		blockchain := blockchainDI.GetBlockchainService(sr)
		protocol := protocolDI.GetProtocolService(sr)
		pricing := pricingDI.GetPricingService(sr)

		watcher, err := app.NewOpportunityWatcher(
			app.WatcherConfig{DryRun: cfg.Keeper.DryRun},
			blockchain,
			protocol,
			pricing,
			blockchain,
			claimsDI.GetProfitEstimator(sr),
			claimsDI.GetExecutionGate(sr),
			claimsDI.GetNonceSequencer(sr),
			claimsDI.GetSubmitter(sr),
			log,
		)
		if err != nil {
			panic("failed to create opportunity watcher: " + err.Error())
		}
		return watcher
	})

	return nil
}

// Startup validates the keeper account before the watcher starts.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	signer := claimsDI.GetSigner(mono.Services())
	blockchain := blockchainDI.GetBlockchainService(mono.Services())

	balance, err := blockchain.Balance(ctx, signer.Address())
	if err != nil {
		log.Warn(ctx, "could not read keeper balance", "error", err)
	} else {
		log.Info(ctx, "keeper account ready",
			"address", signer.Address().Hex(),
			"balance_wei", balance.String())
	}

	log.Info(ctx, "claims module started")
	return nil
}
