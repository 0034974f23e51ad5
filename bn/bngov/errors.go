package bngov

import "errors"

// Every precondition failure maps to exactly one of these sentinels,
// wrapped with call-specific detail.
// Match with [errors.Is].
//
// A failed precondition has zero side effects:
// validation completes before the first store write.
var (
	// ErrUnauthorized indicates the caller is not a member
	// of the currently active committee.
	ErrUnauthorized = errors.New("caller is not a current committee member")

	// ErrInvalidHeight indicates a proposed start height that is not
	// strictly in the future, or a proposal made before the chain height
	// has passed the most recently activated phase's start height.
	ErrInvalidHeight = errors.New("invalid height")

	// ErrInvalidMinerSet indicates an empty candidate miner set,
	// or one that is not strictly ascending by identity value.
	ErrInvalidMinerSet = errors.New("invalid miner set")

	// ErrInvalidDraftID indicates a vote or revocation referencing
	// a draft outside the active window.
	ErrInvalidDraftID = errors.New("draft id outside active window")

	// ErrInsufficientStake indicates a voter balance
	// below the minimum stake required to vote.
	ErrInsufficientStake = errors.New("balance below minimum vote stake")
)
