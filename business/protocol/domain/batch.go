package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ClaimBatch is the set of claimable loans to pass to a single
// claimDefaulted call, with its aggregate reward valuation.
type ClaimBatch struct {
	Coolers        []common.Address
	LoanIDs        []*big.Int
	TotalRewardUSD decimal.Decimal
	EvaluatedAt    time.Time
}

// NewClaimBatch creates an empty batch stamped at the given time.
func NewClaimBatch(at time.Time) *ClaimBatch {
	return &ClaimBatch{
		TotalRewardUSD: decimal.Zero,
		EvaluatedAt:    at,
	}
}

// Add appends a loan and its USD reward to the batch.
func (b *ClaimBatch) Add(loan *Loan, rewardUSD decimal.Decimal) {
	b.Coolers = append(b.Coolers, loan.ID.Cooler)
	b.LoanIDs = append(b.LoanIDs, loan.ID.ID)
	b.TotalRewardUSD = b.TotalRewardUSD.Add(rewardUSD)
}

// Len returns the number of loans in the batch.
func (b *ClaimBatch) Len() int {
	return len(b.Coolers)
}

// IsEmpty reports whether the batch holds no loans.
func (b *ClaimBatch) IsEmpty() bool {
	return len(b.Coolers) == 0
}
