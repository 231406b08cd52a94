package oracle

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	responses map[string][]byte
	calls     []ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	method, err := aggregatorABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	return f.responses[method.Name], nil
}

func TestChainlinkFeedLatestRoundData(t *testing.T) {
	updated := time.Now().Truncate(time.Second)
	payload, err := aggregatorABI.Methods["latestRoundData"].Outputs.Pack(
		big.NewInt(7),
		big.NewInt(200_000_000_000),
		big.NewInt(updated.Add(-time.Minute).Unix()),
		big.NewInt(updated.Unix()),
		big.NewInt(7),
	)
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{"latestRoundData": payload}}
	feed := NewChainlinkFeed(caller, common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"))

	round, err := feed.LatestRoundData()
	require.NoError(t, err)
	require.Equal(t, int64(7), round.RoundID.Int64())
	require.Equal(t, big.NewInt(200_000_000_000), round.Answer)
	require.True(t, round.UpdatedAt.Equal(updated))
	require.Len(t, caller.calls, 1)
	require.Equal(t, common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"), *caller.calls[0].To)
}

func TestChainlinkFeedDecimals(t *testing.T) {
	payload, err := aggregatorABI.Methods["decimals"].Outputs.Pack(uint8(8))
	require.NoError(t, err)

	caller := &fakeCaller{responses: map[string][]byte{"decimals": payload}}
	feed := NewChainlinkFeed(caller, common.Address{0x01})

	decimals, err := feed.Decimals()
	require.NoError(t, err)
	require.Equal(t, uint8(8), decimals)
}
