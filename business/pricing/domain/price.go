// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is a USD price point for a single coin.
type Price struct {
	Coin       string // coingecko identifier, e.g. "ethereum"
	USD        decimal.Decimal
	Confidence float64 // source-reported confidence in [0, 1]
	Timestamp  time.Time
}

// NewPrice creates a Price stamped with the current time.
func NewPrice(coin string, usd decimal.Decimal, confidence float64) *Price {
	return &Price{
		Coin:       coin,
		USD:        usd,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// IsStale reports whether the price is older than maxAge.
func (p *Price) IsStale(maxAge time.Duration) bool {
	return time.Since(p.Timestamp) > maxAge
}

// ValueOf converts a token amount into its USD value at this price.
func (p *Price) ValueOf(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.USD)
}
