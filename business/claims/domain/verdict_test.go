package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewProfitVerdict(t *testing.T) {
	tests := []struct {
		name       string
		rewardUSD  string
		gasCostUSD string
		minProfit  string
		want       bool
	}{
		{
			name:       "comfortably_profitable",
			rewardUSD:  "250",
			gasCostUSD: "40",
			minProfit:  "100",
			want:       true,
		},
		{
			name:       "net_exactly_at_threshold_is_profitable",
			rewardUSD:  "140",
			gasCostUSD: "40",
			minProfit:  "100",
			want:       true,
		},
		{
			name:       "one_cent_below_threshold",
			rewardUSD:  "139.99",
			gasCostUSD: "40",
			minProfit:  "100",
			want:       false,
		},
		{
			name:       "gas_exceeds_reward",
			rewardUSD:  "30",
			gasCostUSD: "40",
			minProfit:  "0",
			want:       false,
		},
		{
			name:       "zero_threshold_break_even_is_profitable",
			rewardUSD:  "40",
			gasCostUSD: "40",
			minProfit:  "0",
			want:       true,
		},
		{
			name:       "zero_reward",
			rewardUSD:  "0",
			gasCostUSD: "40",
			minProfit:  "100",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewProfitVerdict(
				decimal.RequireFromString(tt.rewardUSD),
				decimal.RequireFromString(tt.gasCostUSD),
				decimal.RequireFromString(tt.minProfit),
				time.Now(),
			)
			if v.Profitable != tt.want {
				t.Errorf("Profitable = %v, want %v (net %s, min %s)",
					v.Profitable, tt.want, v.NetProfitUSD(), tt.minProfit)
			}
		})
	}
}

func TestNetProfitUSD(t *testing.T) {
	v := NewProfitVerdict(
		decimal.RequireFromString("140"),
		decimal.RequireFromString("40"),
		decimal.RequireFromString("100"),
		time.Now(),
	)
	if !v.NetProfitUSD().Equal(decimal.NewFromInt(100)) {
		t.Errorf("NetProfitUSD() = %s, want 100", v.NetProfitUSD())
	}
}
