// Package app contains application services and port definitions for the claims context.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	blockchaindomain "github.com/fd1az/cooler-keeper/business/blockchain/domain"
	"github.com/fd1az/cooler-keeper/business/claims/domain"
	pricingdomain "github.com/fd1az/cooler-keeper/business/pricing/domain"
	protocoldomain "github.com/fd1az/cooler-keeper/business/protocol/domain"
	"github.com/shopspring/decimal"
)

// Signer signs claim transactions with the keeper's key.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

// SubmitRequest describes one claim transaction to drive to a terminal
// outcome.
type SubmitRequest struct {
	WindowID uint64
	To       common.Address
	Calldata []byte
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int

	// Preflight runs before every broadcast, including rebroadcasts at
	// the same nonce. Returning an error aborts the cycle without
	// putting the transaction on the wire.
	Preflight func(ctx context.Context) error
}

// TransactionSubmitter drives a claim transaction to a terminal outcome,
// replacing it at the same nonce with bumped gas when it goes missing.
type TransactionSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.SubmissionResult, error)
}

// BlockStream delivers new chain heads to the watcher.
type BlockStream interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchaindomain.Block, error)
}

// GasPricer supplies current gas prices.
type GasPricer interface {
	GetGasPrice(ctx context.Context) (*blockchaindomain.GasPrice, error)
}

// NonceSource reads the account's next nonce from the chain.
type NonceSource interface {
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
}

// PriceFeed supplies USD prices for the reward token and ether.
type PriceFeed interface {
	RewardTokenUSD(ctx context.Context) (*pricingdomain.Price, error)
	EtherUSD(ctx context.Context) (*pricingdomain.Price, error)
}

// ProtocolState exposes the loan registry operations the watcher needs.
type ProtocolState interface {
	ClaimableBatch(ctx context.Context, now time.Time, gohmPriceUSD decimal.Decimal) (*protocoldomain.ClaimBatch, error)
	EncodeClaim(batch *protocoldomain.ClaimBatch) ([]byte, error)
	ClearinghouseAddress() common.Address
	RefreshLoan(ctx context.Context, cooler common.Address, loanID *big.Int) error
}
