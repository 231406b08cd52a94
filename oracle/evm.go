package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const aggregatorABIJSON = `[
  {"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[
    {"name":"roundId","type":"uint80"},
    {"name":"answer","type":"int256"},
    {"name":"startedAt","type":"uint256"},
    {"name":"updatedAt","type":"uint256"},
    {"name":"answeredInRound","type":"uint80"}
  ]}
]`

var aggregatorABI = mustParseABI(aggregatorABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid aggregator ABI: %v", err))
	}
	return parsed
}

// ContractCaller is the subset of the Ethereum RPC surface the feed needs.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainlinkFeed reads an on-chain aggregator contract through an EVM RPC
// endpoint. Calls run against the latest block with a bounded timeout.
type ChainlinkFeed struct {
	caller  ContractCaller
	address common.Address
	timeout time.Duration
}

// NewChainlinkFeed binds a feed to the aggregator deployed at address.
func NewChainlinkFeed(caller ContractCaller, address common.Address) *ChainlinkFeed {
	return &ChainlinkFeed{caller: caller, address: address, timeout: 10 * time.Second}
}

func (f *ChainlinkFeed) call(method string) ([]interface{}, error) {
	if f == nil || f.caller == nil {
		return nil, fmt.Errorf("oracle: chainlink feed not configured")
	}
	data, err := aggregatorABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	raw, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: call %s: %w", method, err)
	}
	out, err := aggregatorABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("oracle: unpack %s: %w", method, err)
	}
	return out, nil
}

// LatestRoundData fetches the aggregator's freshest round.
func (f *ChainlinkFeed) LatestRoundData() (RoundData, error) {
	out, err := f.call("latestRoundData")
	if err != nil {
		return RoundData{}, err
	}
	if len(out) != 5 {
		return RoundData{}, fmt.Errorf("oracle: unexpected latestRoundData arity %d", len(out))
	}
	roundID, ok := out[0].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("oracle: unexpected roundId type %T", out[0])
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("oracle: unexpected answer type %T", out[1])
	}
	startedAt, ok := out[2].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("oracle: unexpected startedAt type %T", out[2])
	}
	updatedAt, ok := out[3].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("oracle: unexpected updatedAt type %T", out[3])
	}
	answeredIn, ok := out[4].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("oracle: unexpected answeredInRound type %T", out[4])
	}
	return RoundData{
		RoundID:         roundID,
		Answer:          answer,
		StartedAt:       time.Unix(startedAt.Int64(), 0),
		UpdatedAt:       time.Unix(updatedAt.Int64(), 0),
		AnsweredInRound: answeredIn,
	}, nil
}

// Decimals fetches the aggregator's quote precision.
func (f *ChainlinkFeed) Decimals() (uint8, error) {
	out, err := f.call("decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("oracle: unexpected decimals arity %d", len(out))
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("oracle: unexpected decimals type %T", out[0])
	}
	return decimals, nil
}
