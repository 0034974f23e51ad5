package bnstore

import (
	"context"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// DraftStore stores pending committee drafts and the votable window bounds.
//
// The window is the contiguous id range [start, end];
// start > end denotes an empty window.
// Drafts outside the window remain stored but are no longer votable.
type DraftStore interface {
	SaveDraft(ctx context.Context, d bngov.Draft) error

	// LoadDraft returns the draft with the given id, or [ErrDraftNotFound].
	LoadDraft(ctx context.Context, id uint64) (bngov.Draft, error)

	// DraftWindow returns the current window bounds.
	// A store that has never seen a draft reports (1, 0): empty,
	// with the next draft to be assigned id 1.
	DraftWindow(ctx context.Context) (start, end uint64, err error)

	SetDraftWindow(ctx context.Context, start, end uint64) error
}
