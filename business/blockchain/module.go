// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/cooler-keeper/business/blockchain/app"
	blockchainDI "github.com/fd1az/cooler-keeper/business/blockchain/di"
	"github.com/fd1az/cooler-keeper/business/blockchain/infra/ethereum"
	"github.com/fd1az/cooler-keeper/internal/config"
	"github.com/fd1az/cooler-keeper/internal/di"
	"github.com/fd1az/cooler-keeper/internal/logger"
	"github.com/fd1az/cooler-keeper/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register BlockSubscriber (private - internal dependency)
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.ReadURL, cfg.Ethereum.ReadHTTPURL)
		if cfg.Ethereum.InitialBackoff > 0 {
			subCfg.ReconnectDelay = cfg.Ethereum.InitialBackoff
		}
		if cfg.Ethereum.MaxBackoff > 0 {
			subCfg.MaxBackoff = cfg.Ethereum.MaxBackoff
		}
		subCfg.MaxReconnects = cfg.Ethereum.MaxReconnects
		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rpcURL := cfg.Ethereum.ReadHTTPURL
		if rpcURL == "" {
			rpcURL = cfg.Ethereum.ReadURL
		}

		oracleCfg := ethereum.DefaultGasOracleConfig(rpcURL)
		oracle, err := ethereum.NewGasOracle(oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register AccountReader (private - internal dependency)
	di.RegisterToken(c, blockchainDI.AccountReader, func(sr di.ServiceRegistry) app.AccountReader {
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		return ethereum.NewAccountReader(ethClient)
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		sub := blockchainDI.GetBlockSubscriber(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		accounts := blockchainDI.GetAccountReader(sr)
		return app.NewBlockchainService(sub, oracle, accounts)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := blockchainDI.GetGasOracle(mono.Services())

	// Connect gas oracle now so the first evaluation cycle has prices.
	if connector, ok := oracle.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect gas oracle", "error", err)
		}
	}

	log.Info(ctx, "blockchain module started")
	return nil
}
