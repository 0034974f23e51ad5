package bnstore

import (
	"context"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// GateStore stores the generic threshold gate's vote map:
// methodKey -> (voter -> paramKey).
//
// Entries persist until explicitly deleted.
// Votes from identities no longer on the committee are never swept;
// readers are expected to filter by current membership.
type GateStore interface {
	SaveGateVote(ctx context.Context, methodKey string, voter bngov.Identity, paramKey string) error

	// GateVotes returns a copy of the vote map for methodKey.
	// An unknown method key yields an empty map.
	GateVotes(ctx context.Context, methodKey string) (map[bngov.Identity]string, error)

	// DeleteGateVotes removes the entries of exactly the given voters
	// under methodKey. Absent voters are ignored.
	DeleteGateVotes(ctx context.Context, methodKey string, voters []bngov.Identity) error
}
