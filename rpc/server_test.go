package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/AndriyAntonenko/defi-stablecoin/engine"
	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/token"
)

var (
	testAsset   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testCustody = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testAccount = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func eth(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// newTestServer runs the API over a live engine holding one funded position:
// 15 WETH at 2000 USD against 10000 USD of debt.
func newTestServer(t *testing.T) (*httptest.Server, *oracle.ManualFeed) {
	t.Helper()
	feed := oracle.NewManualFeed(oracle.ExpectedDecimals)
	feed.SetAnswer(big.NewInt(2000_0000_0000), time.Now())
	gateway := oracle.NewGateway()
	registry, err := engine.NewRegistry(gateway, []common.Address{testAsset}, []oracle.Feed{feed})
	require.NoError(t, err)

	weth := token.NewBank(18, testCustody)
	weth.SetBalance(testAccount, eth(15))
	dsc := token.NewBank(18, testCustody)
	eng := engine.New(gateway, registry, engine.StaticBank{testAsset: weth}, dsc, testCustody)
	require.NoError(t, eng.DepositCollateralAndMintDebt(testAccount, testAsset, eth(15), eth(10000)))

	srv := httptest.NewServer(NewServer(eng, nil).Router())
	t.Cleanup(srv.Close)
	return srv, feed
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, get(t, srv, "/healthz", nil))
}

func TestAccountEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	var body struct {
		Address            string `json:"address"`
		Debt               string `json:"debt"`
		CollateralValueUSD string `json:"collateralValueUsd"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/v1/accounts/"+testAccount.Hex(), &body))
	require.Equal(t, testAccount.Hex(), body.Address)
	require.Equal(t, eth(10000).String(), body.Debt)
	require.Equal(t, eth(30000).String(), body.CollateralValueUSD)
}

func TestAccountEndpointRejectsBadAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusBadRequest, get(t, srv, "/v1/accounts/not-an-address", nil))
}

func TestHealthFactorEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	var body struct {
		HealthFactor string `json:"healthFactor"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/v1/accounts/"+testAccount.Hex()+"/health", &body))
	require.Equal(t, big.NewInt(15e17).String(), body.HealthFactor)
}

func TestStaleOracleMapsToServiceUnavailable(t *testing.T) {
	srv, feed := newTestServer(t)
	feed.SetAnswer(big.NewInt(2000_0000_0000), time.Now().Add(-oracle.StaleTimeout))
	require.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/v1/accounts/"+testAccount.Hex()+"/health", nil))
}

func TestCollateralEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/v1/accounts/" + testAccount.Hex() + "/collateral/" + testAsset.Hex()

	var balance struct {
		Balance string `json:"balance"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, base, &balance))
	require.Equal(t, eth(15).String(), balance.Balance)

	var overhead struct {
		RedeemableOverhead string `json:"redeemableOverhead"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, base+"/overhead", &overhead))
	// 5000 USD of headroom at 2000 USD per WETH.
	require.Equal(t, big.NewInt(25e17).String(), overhead.RedeemableOverhead)

	var liqPrice struct {
		LiquidationPrice string `json:"liquidationPrice"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, base+"/liquidation-price", &liqPrice))
	// 20000 USD of required value over 15 WETH.
	want, _ := new(big.Int).SetString("133333333333", 10)
	require.Equal(t, want.String(), liqPrice.LiquidationPrice)
}

func TestEstimateProfitEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	var body struct {
		SeizedFromDebt string `json:"seizedFromDebt"`
		Bonus          string `json:"bonus"`
		TotalSeized    string `json:"totalSeized"`
	}
	path := "/v1/liquidations/estimate?asset=" + testAsset.Hex() + "&debtToCover=" + eth(2000).String()
	require.Equal(t, http.StatusOK, get(t, srv, path, &body))
	require.Equal(t, eth(1).String(), body.SeizedFromDebt)
	require.Equal(t, big.NewInt(5e16).String(), body.Bonus)

	require.Equal(t, http.StatusBadRequest, get(t, srv, "/v1/liquidations/estimate?asset=nope&debtToCover=1", nil))
	require.Equal(t, http.StatusBadRequest, get(t, srv, "/v1/liquidations/estimate?asset="+testAsset.Hex()+"&debtToCover=abc", nil))
}

func TestAssetsAndConstants(t *testing.T) {
	srv, _ := newTestServer(t)
	var assets struct {
		Assets []string `json:"assets"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/v1/assets", &assets))
	require.Equal(t, []string{testAsset.Hex()}, assets.Assets)

	var constants struct {
		LiquidationThreshold uint64   `json:"liquidationThreshold"`
		MinHealthFactor      *big.Int `json:"minHealthFactor"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/v1/constants", &constants))
	require.Equal(t, uint64(50), constants.LiquidationThreshold)
	require.Equal(t, eth(1), constants.MinHealthFactor)
}
