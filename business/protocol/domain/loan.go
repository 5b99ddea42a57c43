// Package domain contains the core domain types for the protocol context.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Reward schedule constants, denominated in gOHM wei.
var (
	// MaxRewardWei caps the per-loan reward at 0.1 gOHM.
	MaxRewardWei = big.NewInt(1e17)

	// auctionRewardBPS is the collateral share offered as reward (5%).
	auctionRewardBPS = big.NewInt(5e16)

	oneEther = big.NewInt(1e18)
)

// RewardRampPeriod is the time over which the reward ramps linearly from
// zero to its maximum after a loan expires.
const RewardRampPeriod = 7 * 24 * time.Hour

// LoanID uniquely identifies a loan across all cooler escrows.
type LoanID struct {
	Cooler common.Address
	ID     *big.Int
}

// String returns a stable key form, e.g. "0xabc..def#42".
func (id LoanID) String() string {
	return fmt.Sprintf("%s#%s", id.Cooler.Hex(), id.ID.String())
}

// Loan is a tracked lending position on a cooler escrow contract.
type Loan struct {
	ID         LoanID
	RequestID  *big.Int
	Collateral *big.Int // gOHM wei still held as collateral
	Expiry     time.Time
}

// NewLoan creates a tracked loan from on-chain state.
func NewLoan(cooler common.Address, requestID, loanID, collateral *big.Int, expiry time.Time) *Loan {
	return &Loan{
		ID:         LoanID{Cooler: cooler, ID: loanID},
		RequestID:  requestID,
		Collateral: collateral,
		Expiry:     expiry,
	}
}

// Refresh replaces the mutable on-chain state of the loan.
func (l *Loan) Refresh(collateral *big.Int, expiry time.Time) {
	l.Collateral = collateral
	l.Expiry = expiry
}

// IsClaimable reports whether the loan has expired with collateral still
// held, which makes its default claimable by anyone.
func (l *Loan) IsClaimable(now time.Time) bool {
	return l.Expiry.Before(now) && l.Collateral.Sign() > 0
}

// RewardWei returns the claim reward in gOHM wei at the given time. The
// reward is the smaller of 0.1 gOHM and 5% of the collateral, ramping
// linearly from zero over the first seven days after expiry.
func (l *Loan) RewardWei(now time.Time) *big.Int {
	if !l.IsClaimable(now) {
		return new(big.Int)
	}

	maxReward := new(big.Int).Set(MaxRewardWei)
	auctionReward := new(big.Int).Mul(l.Collateral, auctionRewardBPS)
	auctionReward.Div(auctionReward, oneEther)
	if auctionReward.Cmp(maxReward) < 0 {
		maxReward = auctionReward
	}

	elapsed := now.Sub(l.Expiry)
	if elapsed >= RewardRampPeriod {
		return maxReward
	}

	reward := new(big.Int).Mul(maxReward, big.NewInt(int64(elapsed/time.Second)))
	return reward.Div(reward, big.NewInt(int64(RewardRampPeriod/time.Second)))
}

// RewardUSD converts the reward at the given time into USD using the
// supplied gOHM price.
func (l *Loan) RewardUSD(now time.Time, gohmPriceUSD decimal.Decimal) decimal.Decimal {
	rewardWei := l.RewardWei(now)
	return decimal.NewFromBigInt(rewardWei, -18).Mul(gohmPriceUSD)
}
