package domain

import (
	"math/big"
	"testing"
)

func TestGasPriceBump(t *testing.T) {
	tests := []struct {
		name    string
		wei     int64
		percent int64
		want    int64
	}{
		{name: "fifteen_percent", wei: 100e9, percent: 15, want: 115e9},
		{name: "ten_percent", wei: 25e9, percent: 10, want: 275e8},
		{name: "zero_percent", wei: 100e9, percent: 0, want: 100e9},
		{name: "rounds_down", wei: 3, percent: 15, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGasPrice(big.NewInt(tt.wei)).Bump(tt.percent)
			if got.Wei.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("Bump(%d) = %s, want %d", tt.percent, got.Wei, tt.want)
			}
		})
	}
}

func TestNewGasPriceGwei(t *testing.T) {
	p := NewGasPrice(big.NewInt(25e9))
	if p.Gwei != 25 {
		t.Errorf("Gwei = %v, want 25", p.Gwei)
	}
}

func TestCalculateGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(25e9))
	est := CalculateGasEstimate(400000, price)

	want := new(big.Int).Mul(big.NewInt(25e9), big.NewInt(400000))
	if est.TotalWei.Cmp(want) != 0 {
		t.Errorf("TotalWei = %s, want %s", est.TotalWei, want)
	}
	if est.GasLimit != 400000 {
		t.Errorf("GasLimit = %d, want 400000", est.GasLimit)
	}
}
