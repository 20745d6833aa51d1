/*
Package config loads engine configuration from TOML.

The monthly interest rate and the withdrawal notice period are business
constants, not code: they are injected here and threaded into the engine
at construction. Deployments confirm the actual values against business
requirements; the defaults below are the documented reference values.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

type Config struct {
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
}

type EngineConfig struct {
	// MonthlyRate is the fixed monthly interest rate as a decimal string,
	// e.g. "0.01" for 1% per month (annual rate / 12).
	MonthlyRate string `toml:"monthly_rate"`

	// NoticePeriodDays is the withdrawal notice period.
	NoticePeriodDays int `toml:"notice_period_days"`

	// MinimumInvestment and AmountStep constrain the principal:
	// amount >= minimum and amount % step == 0.
	MinimumInvestment int64 `toml:"minimum_investment"`
	AmountStep        int64 `toml:"amount_step"`

	// Lockup lengths in months.
	OneYearLockupMonths   int `toml:"one_year_lockup_months"`
	ThreeYearLockupMonths int `toml:"three_year_lockup_months"`

	// AutoApproveDistributions settles monthly distribution entries
	// without manual admin review.
	AutoApproveDistributions bool `toml:"auto_approve_distributions"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	DB   string `toml:"db"`

	// ReconcileInterval is how often the background scheduler sweeps
	// active investments for due accrual periods.
	ReconcileInterval string `toml:"reconcile_interval"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			MonthlyRate:              "0.00666667", // 8% annual / 12
			NoticePeriodDays:         90,
			MinimumInvestment:        1000,
			AmountStep:               10,
			OneYearLockupMonths:      12,
			ThreeYearLockupMonths:    36,
			AutoApproveDistributions: false,
		},
		Server: ServerConfig{
			Port:              8080,
			DB:                "investments.db",
			ReconcileInterval: "1h",
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	rate, err := decimal.NewFromString(c.Engine.MonthlyRate)
	if err != nil {
		return fmt.Errorf("engine.monthly_rate %q: %w", c.Engine.MonthlyRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("engine.monthly_rate must not be negative")
	}
	if c.Engine.NoticePeriodDays < 0 {
		return fmt.Errorf("engine.notice_period_days must not be negative")
	}
	if c.Engine.MinimumInvestment <= 0 || c.Engine.AmountStep <= 0 {
		return fmt.Errorf("engine.minimum_investment and engine.amount_step must be positive")
	}
	if c.Engine.OneYearLockupMonths <= 0 || c.Engine.ThreeYearLockupMonths <= 0 {
		return fmt.Errorf("lockup months must be positive")
	}
	if _, err := time.ParseDuration(c.Server.ReconcileInterval); c.Server.ReconcileInterval != "" && err != nil {
		return fmt.Errorf("server.reconcile_interval %q: %w", c.Server.ReconcileInterval, err)
	}
	return nil
}

// MonthlyRate returns the parsed rate. Call Validate first.
func (c EngineConfig) Rate() decimal.Decimal {
	d, err := decimal.NewFromString(c.MonthlyRate)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NoticePeriod returns the notice period as a duration.
func (c EngineConfig) NoticePeriod() time.Duration {
	return time.Duration(c.NoticePeriodDays) * 24 * time.Hour
}

// ReconcileInterval returns the scheduler interval, defaulting to 1h.
func (c ServerConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.ReconcileInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
