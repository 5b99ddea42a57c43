package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	blockchaindomain "github.com/fd1az/cooler-keeper/business/blockchain/domain"
	pricingdomain "github.com/fd1az/cooler-keeper/business/pricing/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
)

type fakeGasPricer struct {
	wei *big.Int
	err error
}

func (f *fakeGasPricer) GetGasPrice(ctx context.Context) (*blockchaindomain.GasPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return blockchaindomain.NewGasPrice(f.wei), nil
}

type fakePriceFeed struct {
	rewardUSD decimal.Decimal
	ethUSD    decimal.Decimal
	rewardErr error
	ethErr    error
}

func (f *fakePriceFeed) RewardTokenUSD(ctx context.Context) (*pricingdomain.Price, error) {
	if f.rewardErr != nil {
		return nil, f.rewardErr
	}
	return pricingdomain.NewPrice("governance-ohm", f.rewardUSD, 0.99), nil
}

func (f *fakePriceFeed) EtherUSD(ctx context.Context) (*pricingdomain.Price, error) {
	if f.ethErr != nil {
		return nil, f.ethErr
	}
	return pricingdomain.NewPrice("ethereum", f.ethUSD, 0.99), nil
}

func TestEstimatorEvaluate(t *testing.T) {
	gwei := func(n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9))
	}

	tests := []struct {
		name           string
		gasPriceWei    *big.Int
		ethUSD         string
		rewardUSD      string
		minProfit      string
		gasUnits       uint64
		wantProfitable bool
		wantGasUSD     string
	}{
		{
			// 400k gas at 25 gwei = 0.01 ETH; at $4000 that is $40.
			name:           "boundary_net_equals_threshold",
			gasPriceWei:    gwei(25),
			ethUSD:         "4000",
			rewardUSD:      "140",
			minProfit:      "100",
			gasUnits:       400000,
			wantProfitable: true,
			wantGasUSD:     "40",
		},
		{
			name:           "below_threshold",
			gasPriceWei:    gwei(25),
			ethUSD:         "4000",
			rewardUSD:      "139",
			minProfit:      "100",
			gasUnits:       400000,
			wantProfitable: false,
			wantGasUSD:     "40",
		},
		{
			name:           "expensive_gas_eats_reward",
			gasPriceWei:    gwei(250),
			ethUSD:         "4000",
			rewardUSD:      "300",
			minProfit:      "0",
			gasUnits:       400000,
			wantProfitable: false,
			wantGasUSD:     "400",
		},
		{
			name:           "zero_reward_never_profitable",
			gasPriceWei:    gwei(1),
			ethUSD:         "4000",
			rewardUSD:      "0",
			minProfit:      "100",
			gasUnits:       400000,
			wantProfitable: false,
			wantGasUSD:     "1.6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewProfitEstimator(
				&fakeGasPricer{wei: tt.gasPriceWei},
				&fakePriceFeed{ethUSD: decimal.RequireFromString(tt.ethUSD)},
				tt.gasUnits,
				decimal.RequireFromString(tt.minProfit),
			)

			verdict, err := e.Evaluate(context.Background(), decimal.RequireFromString(tt.rewardUSD))
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if verdict.Profitable != tt.wantProfitable {
				t.Errorf("Profitable = %v, want %v (net %s)",
					verdict.Profitable, tt.wantProfitable, verdict.NetProfitUSD())
			}
			if !verdict.GasCostUSD.Equal(decimal.RequireFromString(tt.wantGasUSD)) {
				t.Errorf("GasCostUSD = %s, want %s", verdict.GasCostUSD, tt.wantGasUSD)
			}
		})
	}
}

func TestEstimatorFailsClosedWithoutGasPrice(t *testing.T) {
	e := NewProfitEstimator(
		&fakeGasPricer{err: errors.New("node down")},
		&fakePriceFeed{ethUSD: decimal.NewFromInt(4000)},
		400000,
		decimal.NewFromInt(100),
	)

	_, err := e.Evaluate(context.Background(), decimal.NewFromInt(1000))
	if err == nil {
		t.Fatal("expected error when gas price is unavailable")
	}
	if !apperror.IsCode(err, apperror.CodeEstimationUnavailable) {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeEstimationUnavailable)
	}
}

func TestEstimatorFailsClosedWithoutEthPrice(t *testing.T) {
	e := NewProfitEstimator(
		&fakeGasPricer{wei: big.NewInt(1e9)},
		&fakePriceFeed{ethErr: errors.New("oracle down")},
		400000,
		decimal.NewFromInt(100),
	)

	_, err := e.Evaluate(context.Background(), decimal.NewFromInt(1000))
	if err == nil {
		t.Fatal("expected error when ether price is unavailable")
	}
	if !apperror.IsCode(err, apperror.CodeEstimationUnavailable) {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeEstimationUnavailable)
	}
}
