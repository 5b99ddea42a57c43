// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Signer    SignerConfig    `mapstructure:"signer"`
	Keeper    KeeperConfig    `mapstructure:"keeper"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum endpoint configuration. The read endpoint
// must support newHeads subscriptions; the sign endpoint is where signed
// transactions are broadcast and may be a private relay.
type EthereumConfig struct {
	ReadURL        string        `mapstructure:"read_url"`
	ReadHTTPURL    string        `mapstructure:"read_http_url"`
	SignURL        string        `mapstructure:"sign_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// ContractsConfig holds target contract identities.
type ContractsConfig struct {
	CoolerFactoryAddress string `mapstructure:"cooler_factory_address"`
	ClearinghouseAddress string `mapstructure:"clearinghouse_address"`
	StartBlock           uint64 `mapstructure:"start_block"`
}

// CoolerFactoryHex returns the factory address as common.Address.
func (c *ContractsConfig) CoolerFactoryHex() common.Address {
	return common.HexToAddress(c.CoolerFactoryAddress)
}

// ClearinghouseHex returns the clearinghouse address as common.Address.
func (c *ContractsConfig) ClearinghouseHex() common.Address {
	return common.HexToAddress(c.ClearinghouseAddress)
}

// SignerConfig holds the signing credential. The key is opaque to every
// package except the signer itself.
type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// KeeperConfig holds claim-gating configuration.
type KeeperConfig struct {
	MinProfitUSD       float64       `mapstructure:"min_profit_usd"`
	RewardPeriodTarget time.Duration `mapstructure:"reward_period_target"`
	ExpectedGasUnits   uint64        `mapstructure:"expected_gas_units"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	ConfirmationBlocks uint64        `mapstructure:"confirmation_blocks"`
	GasBumpPercent     int64         `mapstructure:"gas_bump_percent"`
	DryRun             bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// MinProfitUSDDecimal returns the minimum profit threshold as decimal.Decimal.
func (c *KeeperConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// PricingConfig holds token price oracle configuration.
type PricingConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RewardCoinID      string        `mapstructure:"reward_coin_id"`
	GasCoinID         string        `mapstructure:"gas_coin_id"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin, newrelic, honeycomb, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("KEEPER")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "KEEPER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "KEEPER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "KEEPER_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum; the unprefixed names are the original deployment's.
	v.BindEnv("ethereum.read_url", "KEEPER_RPC_READ", "RPC_PROVIDER_READ")
	v.BindEnv("ethereum.read_http_url", "KEEPER_RPC_READ_HTTP", "RPC_PROVIDER_READ_HTTP")
	v.BindEnv("ethereum.sign_url", "KEEPER_RPC_SIGN", "RPC_PROVIDER_SIGN")
	v.BindEnv("ethereum.chain_id", "KEEPER_CHAIN_ID", "CHAIN_ID")

	// Contracts
	v.BindEnv("contracts.cooler_factory_address", "KEEPER_COOLER_FACTORY", "COOLER_FACTORY_ADDRESS")
	v.BindEnv("contracts.clearinghouse_address", "KEEPER_CLEARINGHOUSE", "CLEARINGHOUSE_ADDRESS")
	v.BindEnv("contracts.start_block", "KEEPER_START_BLOCK", "START_BLOCK")

	// Signer
	v.BindEnv("signer.private_key", "KEEPER_PRIVATE_KEY", "PRIVATE_KEY")

	// Keeper
	v.BindEnv("keeper.min_profit_usd", "KEEPER_MIN_PROFIT", "MIN_PROFIT")
	v.BindEnv("keeper.reward_period_target", "KEEPER_REWARD_PERIOD_TARGET", "REWARD_PERIOD_TARGET")
	v.BindEnv("keeper.expected_gas_units", "KEEPER_EXPECTED_GAS_UNITS")
	v.BindEnv("keeper.max_attempts", "KEEPER_MAX_ATTEMPTS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "KEEPER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "KEEPER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_provider", "KEEPER_OTEL_TRACE_PROVIDER", "OTEL_TRACE_PROVIDER")
	v.BindEnv("telemetry.otlp_endpoint", "KEEPER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "cooler-keeper")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Contract defaults: Cooler Loans V1 on mainnet
	v.SetDefault("contracts.cooler_factory_address", "0x30Ce56e80aA96EbbA1E1a74bC5c0FEB5B0dB4216")
	v.SetDefault("contracts.clearinghouse_address", "0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880")
	v.SetDefault("contracts.start_block", 17766000)

	// Keeper defaults
	v.SetDefault("keeper.min_profit_usd", 100)
	v.SetDefault("keeper.reward_period_target", "168h") // 7 day auction ramp
	v.SetDefault("keeper.expected_gas_units", 400000)
	v.SetDefault("keeper.max_attempts", 3)
	v.SetDefault("keeper.confirmation_blocks", 10)
	v.SetDefault("keeper.gas_bump_percent", 15)

	// Pricing defaults
	v.SetDefault("pricing.base_url", "https://coins.llama.fi")
	v.SetDefault("pricing.reward_coin_id", "governance-ohm")
	v.SetDefault("pricing.gas_coin_id", "ethereum")
	v.SetDefault("pricing.cache_ttl", "60s")
	v.SetDefault("pricing.requests_per_minute", 30)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "cooler-keeper")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.ReadURL == "" {
		return fmt.Errorf("ethereum.read_url is required")
	}
	if c.Ethereum.SignURL == "" {
		return fmt.Errorf("ethereum.sign_url is required")
	}
	if !common.IsHexAddress(c.Contracts.CoolerFactoryAddress) {
		return fmt.Errorf("invalid contracts.cooler_factory_address: %s", c.Contracts.CoolerFactoryAddress)
	}
	if !common.IsHexAddress(c.Contracts.ClearinghouseAddress) {
		return fmt.Errorf("invalid contracts.clearinghouse_address: %s", c.Contracts.ClearinghouseAddress)
	}
	if c.Signer.PrivateKey == "" {
		return fmt.Errorf("signer.private_key is required")
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Signer.PrivateKey, "0x")); err != nil {
		return fmt.Errorf("invalid signer.private_key: %w", err)
	}
	if c.Keeper.MinProfitUSD < 0 {
		return fmt.Errorf("keeper.min_profit_usd cannot be negative")
	}
	if c.Keeper.ExpectedGasUnits == 0 {
		return fmt.Errorf("keeper.expected_gas_units must be positive")
	}
	if c.Keeper.MaxAttempts < 1 {
		return fmt.Errorf("keeper.max_attempts must be at least 1")
	}
	return nil
}
