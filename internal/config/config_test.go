package config

import (
	"strings"
	"testing"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func validConfig() *Config {
	return &Config{
		Ethereum: EthereumConfig{
			ReadURL: "wss://eth.example.com/ws",
			SignURL: "https://eth.example.com",
			ChainID: 1,
		},
		Contracts: ContractsConfig{
			CoolerFactoryAddress: "0x30Ce56e80aA96EbbA1E1a74bC5c0FEB5B0dB4216",
			ClearinghouseAddress: "0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880",
		},
		Signer: SignerConfig{PrivateKey: testPrivateKey},
		Keeper: KeeperConfig{
			MinProfitUSD:     100,
			ExpectedGasUnits: 400000,
			MaxAttempts:      3,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "prefixed_private_key",
			mutate: func(c *Config) { c.Signer.PrivateKey = "0x" + testPrivateKey },
		},
		{
			name:    "missing_read_url",
			mutate:  func(c *Config) { c.Ethereum.ReadURL = "" },
			wantErr: "read_url",
		},
		{
			name:    "missing_sign_url",
			mutate:  func(c *Config) { c.Ethereum.SignURL = "" },
			wantErr: "sign_url",
		},
		{
			name:    "bad_factory_address",
			mutate:  func(c *Config) { c.Contracts.CoolerFactoryAddress = "not-an-address" },
			wantErr: "cooler_factory_address",
		},
		{
			name:    "bad_clearinghouse_address",
			mutate:  func(c *Config) { c.Contracts.ClearinghouseAddress = "0x123" },
			wantErr: "clearinghouse_address",
		},
		{
			name:    "missing_private_key",
			mutate:  func(c *Config) { c.Signer.PrivateKey = "" },
			wantErr: "private_key is required",
		},
		{
			name:    "malformed_private_key",
			mutate:  func(c *Config) { c.Signer.PrivateKey = "zzzz" },
			wantErr: "invalid signer.private_key",
		},
		{
			name:    "negative_min_profit",
			mutate:  func(c *Config) { c.Keeper.MinProfitUSD = -1 },
			wantErr: "min_profit_usd",
		},
		{
			name:    "zero_gas_units",
			mutate:  func(c *Config) { c.Keeper.ExpectedGasUnits = 0 },
			wantErr: "expected_gas_units",
		},
		{
			name:    "zero_max_attempts",
			mutate:  func(c *Config) { c.Keeper.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RPC_PROVIDER_READ", "wss://eth.example.com/ws")
	t.Setenv("RPC_PROVIDER_SIGN", "https://eth.example.com")
	t.Setenv("PRIVATE_KEY", testPrivateKey)
	t.Setenv("MIN_PROFIT", "250")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ethereum.ReadURL != "wss://eth.example.com/ws" {
		t.Errorf("ReadURL = %s", cfg.Ethereum.ReadURL)
	}
	if cfg.Keeper.MinProfitUSD != 250 {
		t.Errorf("MinProfitUSD = %v, want 250", cfg.Keeper.MinProfitUSD)
	}
	// Defaults fill everything not set in the environment.
	if cfg.Contracts.ClearinghouseAddress != "0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880" {
		t.Errorf("ClearinghouseAddress = %s", cfg.Contracts.ClearinghouseAddress)
	}
	if cfg.Keeper.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Keeper.MaxAttempts)
	}
	if cfg.Pricing.RewardCoinID != "governance-ohm" {
		t.Errorf("RewardCoinID = %s", cfg.Pricing.RewardCoinID)
	}
	if cfg.Telemetry.TraceProvider != "zipkin" {
		t.Errorf("TraceProvider = %s, want zipkin", cfg.Telemetry.TraceProvider)
	}
}
