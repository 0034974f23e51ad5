package bngov

import "context"

// Identity is the host-authenticated identity of an account,
// as presented to every mutating governance operation.
//
// Identities are opaque to the governance core.
// The only structure the core relies on is byte-wise ordering:
// miner sets are kept strictly ascending by identity value,
// which also guarantees uniqueness within a set.
type Identity string

// MinersStrictlyAscending reports whether miners is non-empty
// and strictly ascending by identity value.
//
// Strict ascent doubles as a uniqueness check,
// so callers validating a candidate miner set need no separate dedup pass.
func MinersStrictlyAscending(miners []Identity) bool {
	if len(miners) == 0 {
		return false
	}
	for i := 1; i < len(miners); i++ {
		if miners[i-1] >= miners[i] {
			return false
		}
	}
	return true
}

// BalanceSource reports the live balance of an identity.
//
// The balance ledger is owned by the host, not by the governance core;
// vote tallies are recomputed from live balances on every tally,
// so weight changes between casting and tallying are reflected.
type BalanceSource interface {
	Balance(ctx context.Context, id Identity) (uint64, error)
}

// HeightSource reports the chain height an operation executes at.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}
