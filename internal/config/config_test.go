package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			Endpoints:       []string{"http://localhost:8545"},
			Account:         "0x00000000000000000000000000000000000000ee",
			SettlementVault: "0x00000000000000000000000000000000000000ff",
		},
		Tokens: []TokenConfig{
			{Symbol: "USDC", Address: "0x00000000000000000000000000000000000000a1", Decimals: 6},
			{Symbol: "WPOL", Address: "0x00000000000000000000000000000000000000a2", Decimals: 18, Native: true},
		},
		Venues: []VenueConfig{
			{Name: "quickswap", Family: "qs", Factory: "0x00000000000000000000000000000000000000b1", FeeBps: 30},
			{Name: "sushiswap", Family: "ss", Factory: "0x00000000000000000000000000000000000000b2", FeeBps: 30},
		},
		Arbitrage: ArbitrageConfig{
			BorrowToken:    "USDC",
			SafetyFraction: 0.3,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "no_endpoints",
			mutate:  func(c *Config) { c.Chain.Endpoints = nil },
			wantErr: "chain.endpoints",
		},
		{
			name:    "bad_account",
			mutate:  func(c *Config) { c.Chain.Account = "not-an-address" },
			wantErr: "chain.account",
		},
		{
			name: "live_mode_requires_vault",
			mutate: func(c *Config) {
				c.Chain.SettlementVault = ""
				c.Execution.DryRun = false
			},
			wantErr: "settlement_vault",
		},
		{
			name: "dry_run_without_vault",
			mutate: func(c *Config) {
				c.Chain.SettlementVault = ""
				c.Execution.DryRun = true
			},
		},
		{
			name:    "unknown_borrow_token",
			mutate:  func(c *Config) { c.Arbitrage.BorrowToken = "DAI" },
			wantErr: "borrow_token",
		},
		{
			name:    "safety_fraction_out_of_range",
			mutate:  func(c *Config) { c.Arbitrage.SafetyFraction = 1.5 },
			wantErr: "safety_fraction",
		},
		{
			name:    "negative_min_profit",
			mutate:  func(c *Config) { c.Arbitrage.MinProfit = -0.5 },
			wantErr: "min_profit",
		},
		{
			name:    "venue_fee_out_of_range",
			mutate:  func(c *Config) { c.Venues[0].FeeBps = 10_000 },
			wantErr: "fee_bps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
