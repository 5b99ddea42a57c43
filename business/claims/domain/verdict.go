package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitVerdict is the immutable result of one profitability evaluation.
// A claim is worth submitting when reward minus gas meets the minimum
// profit threshold; the boundary case counts as profitable.
type ProfitVerdict struct {
	RewardUSD    decimal.Decimal
	GasCostUSD   decimal.Decimal
	MinProfitUSD decimal.Decimal
	Profitable   bool
	EvaluatedAt  time.Time
}

// NewProfitVerdict evaluates the profit rule and freezes the inputs.
func NewProfitVerdict(rewardUSD, gasCostUSD, minProfitUSD decimal.Decimal, at time.Time) *ProfitVerdict {
	net := rewardUSD.Sub(gasCostUSD)
	return &ProfitVerdict{
		RewardUSD:    rewardUSD,
		GasCostUSD:   gasCostUSD,
		MinProfitUSD: minProfitUSD,
		Profitable:   net.GreaterThanOrEqual(minProfitUSD),
		EvaluatedAt:  at,
	}
}

// NetProfitUSD returns reward minus gas cost.
func (v *ProfitVerdict) NetProfitUSD() decimal.Decimal {
	return v.RewardUSD.Sub(v.GasCostUSD)
}
