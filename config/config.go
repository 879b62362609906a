// Package config loads the CDP engine's deployment-time configuration: the
// permitted collateral set, each asset's oracle parameters, and the
// engine's own identity.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// CollateralEntry names one permitted asset and the oracle that prices it.
type CollateralEntry struct {
	Asset         string `toml:"Asset"`
	OracleAddress string `toml:"OracleAddress"`
	TimeoutSecs   int64  `toml:"TimeoutSecs"`
	// DemoUSDPrice seeds the in-memory scripted oracle cmd/cdpctl wires up
	// for local smoke testing; a real deployment's OracleAddress would point
	// at a live Chainlink-style feed instead and this field is ignored.
	DemoUSDPrice int64 `toml:"DemoUSDPrice"`
}

// Timeout returns the configured freshness window, falling back to the
// oracle package's default when unset.
func (c CollateralEntry) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return time.Hour
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Config is the engine's deployment configuration.
type Config struct {
	EngineAddress string            `toml:"EngineAddress"`
	DataDir       string            `toml:"DataDir"`
	PoolID        string            `toml:"PoolID"`
	Collateral    []CollateralEntry `toml:"Collateral"`
	Metrics       MetricsConfig     `toml:"Metrics"`
}

// MetricsConfig holds Prometheus exporter settings. Nothing in this
// repository starts an exporter or reads ListenAddress.
type MetricsConfig struct {
	ListenAddress string `toml:"ListenAddress"`
}

// Load reads a TOML config file at path. If it does not exist, a default
// config is written to path and returned, mirroring the teacher's
// create-default-on-first-run convention.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a config that could not produce a constructible engine,
// catching misconfiguration before it reaches cdp.NewEngine's own checks.
func (c *Config) Validate() error {
	if len(c.Collateral) == 0 {
		return errors.New("config: at least one Collateral entry is required")
	}
	seen := make(map[string]bool, len(c.Collateral))
	for _, entry := range c.Collateral {
		if entry.Asset == "" || entry.OracleAddress == "" {
			return errors.New("config: Collateral entries require Asset and OracleAddress")
		}
		if seen[entry.Asset] {
			return errors.New("config: duplicate Collateral asset " + entry.Asset)
		}
		seen[entry.Asset] = true
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		EngineAddress: "0xe1e1e1e1e1e1e1e1e1e1e1e1e1e1e1e1e1e1e1e1",
		DataDir:       "./cdp-data",
		PoolID:        "default",
		Collateral: []CollateralEntry{
			{Asset: "WETH", OracleAddress: "0x0000000000000000000000000000000000000001", TimeoutSecs: 3600, DemoUSDPrice: 4000},
			{Asset: "WBTC", OracleAddress: "0x0000000000000000000000000000000000000002", TimeoutSecs: 3600, DemoUSDPrice: 60000},
		},
		Metrics: MetricsConfig{ListenAddress: ":9090"},
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
