package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
)

// Registry is the immutable set of approved collateral assets, each bound to
// exactly one price feed. It is populated once at construction and read-only
// thereafter.
type Registry struct {
	assets []common.Address
	feeds  map[common.Address]oracle.Feed
}

// NewRegistry validates and binds the asset/oracle pairs. The gateway's
// registration-time validation runs against every feed; a single rejected
// entry fails the whole construction.
func NewRegistry(gateway *oracle.Gateway, assets []common.Address, feeds []oracle.Feed) (*Registry, error) {
	if len(assets) != len(feeds) {
		return nil, ErrLengthMismatch
	}
	registry := &Registry{
		assets: make([]common.Address, 0, len(assets)),
		feeds:  make(map[common.Address]oracle.Feed, len(assets)),
	}
	for i, asset := range assets {
		if asset == (common.Address{}) || feeds[i] == nil {
			return nil, ErrZeroAddress
		}
		if _, exists := registry.feeds[asset]; exists {
			return nil, ErrDuplicateAsset
		}
		if !gateway.Validate(feeds[i]) {
			return nil, ErrInvalidOracle
		}
		registry.assets = append(registry.assets, asset)
		registry.feeds[asset] = feeds[i]
	}
	return registry, nil
}

// IsAllowed reports whether the asset was registered.
func (r *Registry) IsAllowed(asset common.Address) bool {
	_, ok := r.feeds[asset]
	return ok
}

// FeedOf returns the price feed bound to the asset.
func (r *Registry) FeedOf(asset common.Address) (oracle.Feed, bool) {
	feed, ok := r.feeds[asset]
	return feed, ok
}

// Assets returns the registered assets in registration order.
func (r *Registry) Assets() []common.Address {
	return append([]common.Address{}, r.assets...)
}
