package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/business/blockchain/domain"
)

// BlockSubscriber defines the interface for subscribing to new blocks.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Status returns detailed connection status, including the last block
	// seen and when it arrived.
	Status() domain.ConnectionStatus
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)
}

// AccountReader exposes per-account chain state needed for submission.
type AccountReader interface {
	// PendingNonce returns the next nonce for the account, including
	// transactions still in the mempool.
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)

	// Balance returns the account balance in wei.
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}
