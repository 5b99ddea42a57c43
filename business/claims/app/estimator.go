package app

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/cooler-keeper/business/claims/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
)

// ProfitEstimator values a claim opportunity against its gas cost. Any
// missing input makes the evaluation fail closed: no verdict, no claim.
type ProfitEstimator struct {
	gas          GasPricer
	prices       PriceFeed
	gasUnits     uint64
	minProfitUSD decimal.Decimal
}

// NewProfitEstimator creates an estimator with a fixed expected gas usage
// and minimum profit threshold.
func NewProfitEstimator(gas GasPricer, prices PriceFeed, gasUnits uint64, minProfitUSD decimal.Decimal) *ProfitEstimator {
	return &ProfitEstimator{
		gas:          gas,
		prices:       prices,
		gasUnits:     gasUnits,
		minProfitUSD: minProfitUSD,
	}
}

// Evaluate produces a verdict for the given reward value. The returned
// verdict is immutable; callers re-evaluate rather than mutate.
func (e *ProfitEstimator) Evaluate(ctx context.Context, rewardUSD decimal.Decimal) (*domain.ProfitVerdict, error) {
	gasPrice, err := e.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEstimationUnavailable, "gas price unavailable")
	}

	ethPrice, err := e.prices.EtherUSD(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEstimationUnavailable, "ether price unavailable")
	}

	gasCostUSD := e.GasCostUSD(gasPrice.Wei, ethPrice.USD)

	return domain.NewProfitVerdict(rewardUSD, gasCostUSD, e.minProfitUSD, time.Now()), nil
}

// GasCostUSD converts a gas price into the USD cost of one claim call at
// the expected gas usage.
func (e *ProfitEstimator) GasCostUSD(gasPriceWei *big.Int, ethUSD decimal.Decimal) decimal.Decimal {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(e.gasUnits))
	return decimal.NewFromBigInt(totalWei, -18).Mul(ethUSD)
}
