package bnstore

import (
	"context"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// PhaseStore stores and retrieves activated committee phases,
// keyed by start height, plus the latest-activated-height pointer.
//
// Phases are written once and never modified;
// implementations may reject overwrites but are not required to.
type PhaseStore interface {
	SavePhase(ctx context.Context, p bngov.Phase) error

	// LoadPhase returns the phase whose StartHeight is exactly startHeight,
	// or [ErrPhaseNotFound].
	LoadPhase(ctx context.Context, startHeight uint64) (bngov.Phase, error)

	// LatestPhaseHeight returns the start height of the most recently
	// activated phase, or zero if no phase has ever been stored.
	// Zero is never a valid start height (genesis starts at 1).
	LatestPhaseHeight(ctx context.Context) (uint64, error)

	SetLatestPhaseHeight(ctx context.Context, startHeight uint64) error
}
