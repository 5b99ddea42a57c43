// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/business/blockchain/domain"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
	accounts   AccountReader
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle, accounts AccountReader) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
		accounts:   accounts,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// LatestBlock retrieves the most recent block.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// PendingNonce returns the account's next nonce including mempool entries.
func (s *BlockchainService) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	return s.accounts.PendingNonce(ctx, account)
}

// Balance returns the account balance in wei.
func (s *BlockchainService) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.accounts.Balance(ctx, account)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// ConnectionStatus returns detailed connection status.
func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.subscriber.Status()
}
