package bnstore

import "errors"

var (
	// ErrPhaseNotFound is returned by [PhaseStore.LoadPhase]
	// when no phase is stored at the requested start height.
	ErrPhaseNotFound = errors.New("no phase at requested start height")

	// ErrDraftNotFound is returned by [DraftStore.LoadDraft]
	// when no draft is stored under the requested id.
	ErrDraftNotFound = errors.New("no draft with requested id")

	// ErrNoActiveVote is returned by [VoteStore.VoteOf]
	// when the identity has no recorded active vote.
	ErrNoActiveVote = errors.New("identity has no active vote")
)
