package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stablecoind.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8548", cfg.ListenAddress)
	require.Equal(t, "stablecoind.events.db", cfg.JournalPath)
	require.Equal(t, "local", cfg.Environment)
	require.Equal(t, 3*time.Hour, cfg.StaleTimeout())
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stablecoind.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8548", cfg.ListenAddress)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadCollateral(t *testing.T) {
	path := writeConfig(t, `
ListenAddress = ":9000"
EVMEndpoint = "wss://mainnet.example/ws"
StaleTimeoutSeconds = 1800

[[collateral]]
Symbol = "WETH"
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 18

[[collateral]]
Symbol = "WBTC"
Asset = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
Feed = "0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c"
Decimals = 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, 30*time.Minute, cfg.StaleTimeout())
	require.Len(t, cfg.Collateral, 2)
	require.Equal(t, "WETH", cfg.Collateral[0].Symbol)
	require.Equal(t, uint8(8), cfg.Collateral[1].Decimals)
}

func TestValidateRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{
			name: "invalid asset address",
			contents: `
[[collateral]]
Symbol = "WETH"
Asset = "not-an-address"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 18
`,
		},
		{
			name: "missing symbol",
			contents: `
[[collateral]]
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 18
`,
		},
		{
			name: "duplicate asset",
			contents: `
EVMEndpoint = "wss://mainnet.example/ws"

[[collateral]]
Symbol = "WETH"
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 18

[[collateral]]
Symbol = "WETH2"
Asset = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 18
`,
		},
		{
			name: "decimals too large",
			contents: `
EVMEndpoint = "wss://mainnet.example/ws"

[[collateral]]
Symbol = "WETH"
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Feed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
Decimals = 19
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.contents))
			require.Error(t, err)
		})
	}
}

func TestValidateSkipsFeedCheckWithoutEndpoint(t *testing.T) {
	// Feeds are manual when no EVM endpoint is configured, so the feed
	// column may be left blank; a seed price is required instead.
	path := writeConfig(t, `
[[collateral]]
Symbol = "WETH"
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Decimals = 18
InitialPrice = 200000000000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(200000000000), cfg.Collateral[0].InitialPrice)

	path = writeConfig(t, `
[[collateral]]
Symbol = "WETH"
Asset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
Decimals = 18
`)
	_, err = Load(path)
	require.Error(t, err)
}
