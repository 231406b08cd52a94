package engine

import "sync/atomic"

// reentryGuard enforces mutual exclusion across the state-mutating entry
// points. Once an operation has entered, any nested re-entry attempted by an
// untrusted external transfer implementation fails instead of observing
// in-flight state.
type reentryGuard struct {
	busy atomic.Bool
}

func (g *reentryGuard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *reentryGuard) exit() {
	g.busy.Store(false)
}
