package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
)

// CollateralConfig binds one approved collateral asset to its price feed.
// InitialPrice seeds the manual feed when no EVM endpoint is configured; it
// carries the oracle's quote decimals.
type CollateralConfig struct {
	Symbol       string `toml:"Symbol"`
	Asset        string `toml:"Asset"`
	Feed         string `toml:"Feed"`
	Decimals     uint8  `toml:"Decimals"`
	InitialPrice int64  `toml:"InitialPrice,omitempty"`
}

type Config struct {
	ListenAddress       string             `toml:"ListenAddress"`
	EVMEndpoint         string             `toml:"EVMEndpoint"`
	JournalPath         string             `toml:"JournalPath"`
	LogPath             string             `toml:"LogPath"`
	Environment         string             `toml:"Environment"`
	StaleTimeoutSeconds int64              `toml:"StaleTimeoutSeconds"`
	Collateral          []CollateralConfig `toml:"collateral"`
}

// Load loads the configuration from the given path. A missing file is
// written out with defaults so a fresh deployment starts from a template it
// can edit.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8548"
	}
	if strings.TrimSpace(cfg.JournalPath) == "" {
		cfg.JournalPath = "stablecoind.events.db"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.StaleTimeoutSeconds <= 0 {
		cfg.StaleTimeoutSeconds = int64(oracle.StaleTimeout / time.Second)
	}
}

// Validate checks address syntax and per-asset consistency.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Collateral))
	for i, entry := range c.Collateral {
		if strings.TrimSpace(entry.Symbol) == "" {
			return fmt.Errorf("collateral[%d]: Symbol is required", i)
		}
		if !common.IsHexAddress(entry.Asset) {
			return fmt.Errorf("collateral %s: invalid asset address %q", entry.Symbol, entry.Asset)
		}
		if c.EVMEndpoint != "" {
			if !common.IsHexAddress(entry.Feed) {
				return fmt.Errorf("collateral %s: invalid feed address %q", entry.Symbol, entry.Feed)
			}
		} else if entry.InitialPrice <= 0 {
			return fmt.Errorf("collateral %s: InitialPrice is required without an EVM endpoint", entry.Symbol)
		}
		key := strings.ToLower(entry.Asset)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("collateral %s: duplicate asset address %s", entry.Symbol, entry.Asset)
		}
		seen[key] = struct{}{}
		if entry.Decimals > 18 {
			return fmt.Errorf("collateral %s: decimals %d exceed the supported maximum of 18", entry.Symbol, entry.Decimals)
		}
	}
	return nil
}

// StaleTimeout returns the configured oracle freshness cutoff.
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutSeconds) * time.Second
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
