package oracle

import (
	"math/big"
	"sync"
	"time"
)

// ManualFeed is an in-memory feed used by tests and for manual overrides
// during incident response. Every SetAnswer advances the round identifier.
type ManualFeed struct {
	mu       sync.RWMutex
	decimals uint8
	round    RoundData
}

// NewManualFeed constructs a feed quoting at the given decimal precision.
func NewManualFeed(decimals uint8) *ManualFeed {
	return &ManualFeed{decimals: decimals}
}

// SetAnswer records a new quote with the supplied update timestamp.
func (f *ManualFeed) SetAnswer(answer *big.Int, updatedAt time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := big.NewInt(1)
	if f.round.RoundID != nil {
		next = new(big.Int).Add(f.round.RoundID, big.NewInt(1))
	}
	f.round = RoundData{
		RoundID:         next,
		StartedAt:       updatedAt,
		UpdatedAt:       updatedAt,
		AnsweredInRound: new(big.Int).Set(next),
	}
	if answer != nil {
		f.round.Answer = new(big.Int).Set(answer)
	}
}

// LatestRoundData returns a defensive copy of the stored round.
func (f *ManualFeed) LatestRoundData() (RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	round := RoundData{StartedAt: f.round.StartedAt, UpdatedAt: f.round.UpdatedAt}
	if f.round.RoundID != nil {
		round.RoundID = new(big.Int).Set(f.round.RoundID)
	}
	if f.round.Answer != nil {
		round.Answer = new(big.Int).Set(f.round.Answer)
	}
	if f.round.AnsweredInRound != nil {
		round.AnsweredInRound = new(big.Int).Set(f.round.AnsweredInRound)
	}
	return round, nil
}

// Decimals reports the configured quote precision.
func (f *ManualFeed) Decimals() (uint8, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decimals, nil
}
