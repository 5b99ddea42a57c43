// Package protocol implements the protocol bounded context for Cooler Loans state.
package protocol

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/cooler-keeper/business/protocol/app"
	protocolDI "github.com/fd1az/cooler-keeper/business/protocol/di"
	"github.com/fd1az/cooler-keeper/business/protocol/infra/ethereum"
	"github.com/fd1az/cooler-keeper/internal/config"
	"github.com/fd1az/cooler-keeper/internal/di"
	"github.com/fd1az/cooler-keeper/internal/logger"
	"github.com/fd1az/cooler-keeper/internal/monolith"
)

// Module implements the protocol bounded context.
type Module struct{}

// RegisterServices registers all protocol services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register FactoryWatcher (private - internal dependency)
	di.RegisterToken(c, protocolDI.FactoryWatcher, func(sr di.ServiceRegistry) app.FactoryWatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		readClient := sr.Get("ethClient").(*ethclient.Client)

		// Live events need a websocket endpoint. Fall back to the shared
		// HTTP client when none is configured, backfill still works.
		subClient := readClient
		if cfg.Ethereum.ReadURL != "" {
			if wsClient, err := ethclient.Dial(cfg.Ethereum.ReadURL); err == nil {
				subClient = wsClient
			} else {
				log.Warn(context.Background(), "websocket dial failed, live events degraded", "error", err)
			}
		}

		watcher, err := ethereum.NewFactoryWatcher(readClient, subClient, cfg.Contracts.CoolerFactoryHex(), log)
		if err != nil {
			panic("failed to create factory watcher: " + err.Error())
		}
		return watcher
	})

	// Register LoanReader (private - internal dependency)
	di.RegisterToken(c, protocolDI.LoanReader, func(sr di.ServiceRegistry) app.LoanReader {
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		return ethereum.NewLoanReader(ethClient)
	})

	// Register ClaimEncoder (private - internal dependency)
	di.RegisterToken(c, protocolDI.ClaimEncoder, func(sr di.ServiceRegistry) app.ClaimEncoder {
		cfg := sr.Get("config").(*config.Config)
		return ethereum.NewClearinghouse(cfg.Contracts.ClearinghouseHex())
	})

	// Register ProtocolService (public - exposed to other modules)
	di.RegisterToken(c, protocolDI.ProtocolService, func(sr di.ServiceRegistry) *app.ProtocolService {
		log := sr.Get("logger").(logger.LoggerInterface)
		watcher := protocolDI.GetFactoryWatcher(sr)
		reader := protocolDI.GetLoanReader(sr)
		encoder := protocolDI.GetClaimEncoder(sr)

		svc, err := app.NewProtocolService(watcher, reader, encoder, log)
		if err != nil {
			panic("failed to create protocol service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup backfills the loan registry and starts the live event watch.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	svc := protocolDI.GetProtocolService(mono.Services())

	if err := svc.Backfill(ctx, cfg.Contracts.StartBlock); err != nil {
		return err
	}

	if err := svc.Watch(ctx); err != nil {
		log.Warn(ctx, "live loan events unavailable, registry updates on refresh only", "error", err)
	}

	log.Info(ctx, "protocol module started", "loans", svc.LoanCount())
	return nil
}
