// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Network   NetworkConfig   `mapstructure:"network"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Store     StoreConfig     `mapstructure:"store"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds chain and account settings.
type ChainConfig struct {
	ChainID          uint64   `mapstructure:"chain_id"`
	Endpoints        []string `mapstructure:"endpoints"`          // RPC URLs, preference order
	WSEndpoint       string   `mapstructure:"ws_endpoint"`        // head stream for the primary
	Account          string   `mapstructure:"account"`            // operating account address
	Beneficiary      string   `mapstructure:"beneficiary"`        // residual profit recipient
	SettlementVault  string   `mapstructure:"settlement_vault"`   // deployed atomic settlement contract
	GasTrackerURL    string   `mapstructure:"gas_tracker_url"`    // optional gas price API
	PriorityFeeGwei  float64  `mapstructure:"priority_fee_gwei"`  // added on top of base fee
	GasLimit         uint64   `mapstructure:"gas_limit"`          // per-settlement gas budget
	MaxGasPriceGwei  float64  `mapstructure:"max_gas_price_gwei"` // safety ceiling
}

// TokenConfig describes one tracked token.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Native   bool   `mapstructure:"native"` // chain gas asset (wrapped)
}

// VenueConfig describes one constant-product venue.
type VenueConfig struct {
	Name    string `mapstructure:"name"`
	Family  string `mapstructure:"family"` // venue family for hop-depth limits
	Factory string `mapstructure:"factory"`
	Router  string `mapstructure:"router"`
	FeeBps  int64  `mapstructure:"fee_bps"`
}

// TriangularConfig controls three-hop cycle scanning.
type TriangularConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Exclusive bool `mapstructure:"exclusive"` // skip simple two-hop candidates
	TopK      int  `mapstructure:"top_k"`     // accepted candidates to log per tick
}

// ArbitrageConfig holds scanning and profitability settings.
type ArbitrageConfig struct {
	BorrowToken       string           `mapstructure:"borrow_token"`   // symbol of the credit-line asset
	MinProfit         float64          `mapstructure:"min_profit"`     // in borrow token units
	CreditFeeBps      int64            `mapstructure:"credit_fee_bps"` // flash credit premium
	SlippageBps       int64            `mapstructure:"slippage_bps"`
	SafetyFraction    float64          `mapstructure:"safety_fraction"` // max share of reserve_in per trade
	ScanBudget        time.Duration    `mapstructure:"scan_budget"`
	ScanInterval      time.Duration    `mapstructure:"scan_interval"`
	QuoteTTL          time.Duration    `mapstructure:"quote_ttl"`
	Triangular        TriangularConfig `mapstructure:"triangular"`
	MaxHopsPerFamily  int              `mapstructure:"max_hops_per_family"`
	EstimatedGasUnits uint64           `mapstructure:"estimated_gas_units"`
}

// NetworkConfig holds endpoint health monitor settings.
type NetworkConfig struct {
	ProbeInterval    time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	StagnationWindow time.Duration `mapstructure:"stagnation_window"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryStreak   int           `mapstructure:"recovery_streak"`
	FailoverCooldown time.Duration `mapstructure:"failover_cooldown"`
	MetricsInterval  time.Duration `mapstructure:"metrics_interval"` // persistence cadence
}

// ExecutionConfig holds coordinator and sequencing settings.
type ExecutionConfig struct {
	DryRun                 bool          `mapstructure:"dry_run"`
	ConfirmTimeout         time.Duration `mapstructure:"confirm_timeout"`
	DeadlineWindow         time.Duration `mapstructure:"deadline_window"` // settlement validity
	SubmitRetries          int           `mapstructure:"submit_retries"`
	MinNativeBalance       float64       `mapstructure:"min_native_balance"`
	AllowMultipleInstances bool          `mapstructure:"allow_multiple_instances"`
	GuardValidity          time.Duration `mapstructure:"guard_validity"`
}

// StoreConfig holds local persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // console | otlp | empty
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// MinProfitDecimal returns the minimum profit threshold as a decimal.
func (c *ArbitrageConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfit)
}

// MinNativeBalanceDecimal returns the native balance floor as a decimal.
func (c *ExecutionConfig) MinNativeBalanceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinNativeBalance)
}

// AccountAddress returns the operating account as common.Address.
func (c *ChainConfig) AccountAddress() common.Address {
	return common.HexToAddress(c.Account)
}

// BeneficiaryAddress returns the residual recipient as common.Address.
func (c *ChainConfig) BeneficiaryAddress() common.Address {
	if c.Beneficiary == "" {
		return c.AccountAddress()
	}
	return common.HexToAddress(c.Beneficiary)
}

// VaultAddress returns the settlement contract as common.Address.
func (c *ChainConfig) VaultAddress() common.Address {
	return common.HexToAddress(c.SettlementVault)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FLASHARB")
	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

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
	v.BindEnv("app.name", "FLASHARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASHARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASHARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("chain.endpoints", "FLASHARB_RPC_ENDPOINTS", "RPC_ENDPOINTS")
	v.BindEnv("chain.ws_endpoint", "FLASHARB_WS_ENDPOINT", "WS_ENDPOINT")
	v.BindEnv("chain.account", "FLASHARB_ACCOUNT", "WALLET_ADDRESS")
	v.BindEnv("chain.beneficiary", "FLASHARB_BENEFICIARY")
	v.BindEnv("chain.settlement_vault", "FLASHARB_SETTLEMENT_VAULT", "FLASHLOAN_CONTRACT_ADDRESS")
	v.BindEnv("chain.chain_id", "FLASHARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("chain.gas_tracker_url", "FLASHARB_GAS_TRACKER_URL")
	v.BindEnv("chain.priority_fee_gwei", "FLASHARB_PRIORITY_FEE_GWEI")

	v.BindEnv("arbitrage.borrow_token", "FLASHARB_BORROW_TOKEN")
	v.BindEnv("arbitrage.min_profit", "FLASHARB_MIN_PROFIT")
	v.BindEnv("arbitrage.triangular.enabled", "FLASHARB_TRIANGULAR")
	v.BindEnv("arbitrage.triangular.exclusive", "FLASHARB_TRIANGULAR_EXCLUSIVE")

	v.BindEnv("execution.dry_run", "FLASHARB_DRY_RUN", "DRY_RUN")
	v.BindEnv("execution.allow_multiple_instances", "FLASHARB_ALLOW_MULTIPLE_INSTANCES")
	v.BindEnv("execution.min_native_balance", "FLASHARB_MIN_NATIVE_BALANCE")

	v.BindEnv("store.path", "FLASHARB_STORE_PATH")

	v.BindEnv("telemetry.enabled", "FLASHARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASHARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASHARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("chain.chain_id", 137)
	v.SetDefault("chain.gas_limit", 1_200_000)
	v.SetDefault("chain.priority_fee_gwei", 30)
	v.SetDefault("chain.max_gas_price_gwei", 500)

	v.SetDefault("arbitrage.borrow_token", "USDC")
	v.SetDefault("arbitrage.min_profit", 0)
	v.SetDefault("arbitrage.credit_fee_bps", 9)
	v.SetDefault("arbitrage.slippage_bps", 50)
	v.SetDefault("arbitrage.safety_fraction", 0.3)
	v.SetDefault("arbitrage.scan_budget", "5s")
	v.SetDefault("arbitrage.scan_interval", "15s")
	v.SetDefault("arbitrage.quote_ttl", "2s")
	v.SetDefault("arbitrage.triangular.enabled", false)
	v.SetDefault("arbitrage.triangular.exclusive", false)
	v.SetDefault("arbitrage.triangular.top_k", 5)
	v.SetDefault("arbitrage.max_hops_per_family", 2)
	v.SetDefault("arbitrage.estimated_gas_units", 850_000)

	v.SetDefault("network.probe_interval", "10s")
	v.SetDefault("network.probe_timeout", "3s")
	v.SetDefault("network.stagnation_window", "120s")
	v.SetDefault("network.failure_threshold", 3)
	v.SetDefault("network.recovery_streak", 3)
	v.SetDefault("network.failover_cooldown", "120s")
	v.SetDefault("network.metrics_interval", "60s")

	v.SetDefault("execution.dry_run", false)
	v.SetDefault("execution.confirm_timeout", "180s")
	v.SetDefault("execution.deadline_window", "300s")
	v.SetDefault("execution.submit_retries", 3)
	v.SetDefault("execution.min_native_balance", 1)
	v.SetDefault("execution.allow_multiple_instances", false)
	v.SetDefault("execution.guard_validity", "5m")

	v.SetDefault("store.path", "flasharb.db")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.trace_provider", "empty")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Chain.Endpoints) == 0 {
		return fmt.Errorf("chain.endpoints cannot be empty")
	}
	if !common.IsHexAddress(c.Chain.Account) {
		return fmt.Errorf("invalid chain.account: %s", c.Chain.Account)
	}
	if c.Chain.SettlementVault != "" && !common.IsHexAddress(c.Chain.SettlementVault) {
		return fmt.Errorf("invalid chain.settlement_vault: %s", c.Chain.SettlementVault)
	}
	if !c.Execution.DryRun && c.Chain.SettlementVault == "" {
		return fmt.Errorf("chain.settlement_vault is required unless execution.dry_run is set")
	}
	if len(c.Tokens) < 2 {
		return fmt.Errorf("at least two tokens are required")
	}
	for _, t := range c.Tokens {
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid token address for %s: %s", t.Symbol, t.Address)
		}
	}
	if len(c.Venues) < 2 {
		return fmt.Errorf("at least two venues are required")
	}
	for _, d := range c.Venues {
		if !common.IsHexAddress(d.Factory) {
			return fmt.Errorf("invalid factory for venue %s: %s", d.Name, d.Factory)
		}
		if d.FeeBps < 0 || d.FeeBps >= 10_000 {
			return fmt.Errorf("venue %s fee_bps out of range: %d", d.Name, d.FeeBps)
		}
	}
	borrowKnown := false
	for _, t := range c.Tokens {
		if t.Symbol == c.Arbitrage.BorrowToken {
			borrowKnown = true
			break
		}
	}
	if !borrowKnown {
		return fmt.Errorf("arbitrage.borrow_token %s is not among configured tokens", c.Arbitrage.BorrowToken)
	}
	if c.Arbitrage.SafetyFraction <= 0 || c.Arbitrage.SafetyFraction > 1 {
		return fmt.Errorf("arbitrage.safety_fraction must be in (0, 1]")
	}
	// The validator's net > 0 floor is unconditional, so a negative
	// threshold could never take effect; reject it outright.
	if c.Arbitrage.MinProfit < 0 {
		return fmt.Errorf("arbitrage.min_profit cannot be negative")
	}
	return nil
}
