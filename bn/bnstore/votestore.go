package bnstore

import (
	"context"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// VoteStore records each identity's single active committee vote,
// maintaining a reverse index from draft id to voter set.
type VoteStore interface {
	// SaveVote records voter's active vote for draftID,
	// removing the voter from any previously voted draft's reverse index.
	SaveVote(ctx context.Context, voter bngov.Identity, draftID uint64) error

	// DeleteVote clears voter's active vote and its reverse index entry.
	// Deleting an absent vote is not an error.
	DeleteVote(ctx context.Context, voter bngov.Identity) error

	// VoteOf returns the draft id voter currently votes for,
	// or [ErrNoActiveVote].
	VoteOf(ctx context.Context, voter bngov.Identity) (uint64, error)

	// VotersOf returns the identities currently voting for draftID,
	// in ascending identity order. Empty slice for an unvoted draft.
	VotersOf(ctx context.Context, draftID uint64) ([]bngov.Identity, error)
}
