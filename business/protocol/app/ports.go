package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/cooler-keeper/business/protocol/domain"
)

// LoanState is the mutable on-chain state of a single loan.
type LoanState struct {
	Collateral *big.Int
	Expiry     time.Time
}

// FactoryWatcher reads loan lifecycle events from the cooler factory.
type FactoryWatcher interface {
	// Backfill returns all lifecycle events from the given block to head.
	Backfill(ctx context.Context, fromBlock uint64) ([]domain.LoanEvent, error)

	// Subscribe streams live lifecycle events until the context ends.
	Subscribe(ctx context.Context) (<-chan domain.LoanEvent, error)
}

// LoanReader reads current loan state from a cooler escrow contract.
type LoanReader interface {
	ReadLoan(ctx context.Context, cooler common.Address, loanID *big.Int) (*LoanState, error)
}

// ClaimEncoder builds claimDefaulted call data against the clearinghouse.
type ClaimEncoder interface {
	// EncodeClaim returns the calldata claiming every loan in the batch.
	EncodeClaim(batch *domain.ClaimBatch) ([]byte, error)

	// ContractAddress returns the clearinghouse address the call targets.
	ContractAddress() common.Address
}
