// Package oracle wraps external price feeds and enforces the freshness and
// sanity rules the solvency core depends on. A quote older than the stale
// timeout freezes every operation touching the affected asset; the gateway
// never substitutes an estimate for missing data.
package oracle

import (
	"errors"
	"math/big"
	"time"
)

const (
	// StaleTimeout is the maximum quote age the gateway tolerates. Reads at
	// or beyond this age fail with ErrStalePrice.
	StaleTimeout = 3 * time.Hour
	// ExpectedDecimals is the decimal precision a feed must quote at to be
	// accepted during registration.
	ExpectedDecimals uint8 = 8
)

var (
	// ErrStalePrice indicates the freshest available quote is older than the
	// configured timeout.
	ErrStalePrice = errors.New("oracle: price data is stale")

	errNoAnswer = errors.New("oracle: feed returned no answer")
)

// RoundData mirrors the latestRoundData tuple exposed by aggregator feeds.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound *big.Int
}

// Feed is the read contract a price source has to satisfy.
type Feed interface {
	LatestRoundData() (RoundData, error)
	Decimals() (uint8, error)
}

// Gateway performs freshness-checked reads against registered feeds.
type Gateway struct {
	staleAfter time.Duration
	now        func() time.Time
}

// NewGateway constructs a gateway with the protocol default stale timeout.
func NewGateway() *Gateway {
	return NewGatewayWithTimeout(StaleTimeout)
}

// NewGatewayWithTimeout constructs a gateway with an operator-supplied stale
// timeout. Non-positive values fall back to the protocol default.
func NewGatewayWithTimeout(staleAfter time.Duration) *Gateway {
	if staleAfter <= 0 {
		staleAfter = StaleTimeout
	}
	return &Gateway{staleAfter: staleAfter, now: time.Now}
}

// LatestPrice returns the freshest quote from the feed together with its
// update timestamp. Quotes at or past the stale timeout fail with
// ErrStalePrice so downstream solvency math never runs on unsafe data.
func (g *Gateway) LatestPrice(feed Feed) (*big.Int, time.Time, error) {
	round, err := feed.LatestRoundData()
	if err != nil {
		return nil, time.Time{}, err
	}
	if round.Answer == nil {
		return nil, time.Time{}, errNoAnswer
	}
	if g.now().Sub(round.UpdatedAt) >= g.staleAfter {
		return nil, time.Time{}, ErrStalePrice
	}
	return new(big.Int).Set(round.Answer), round.UpdatedAt, nil
}

// Validate reports whether a feed is acceptable for registration. The check
// fails closed: any error, a non-positive price, or a decimal count other
// than ExpectedDecimals rejects the feed without surfacing the cause.
func (g *Gateway) Validate(feed Feed) bool {
	if feed == nil {
		return false
	}
	decimals, err := feed.Decimals()
	if err != nil || decimals != ExpectedDecimals {
		return false
	}
	round, err := feed.LatestRoundData()
	if err != nil {
		return false
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return false
	}
	return true
}
