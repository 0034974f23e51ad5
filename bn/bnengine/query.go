package bnengine

import (
	"context"
	"fmt"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// Drafts returns every draft in the active window in ascending id order,
// or an empty slice when the window is empty.
func (e *Engine) Drafts(ctx context.Context) ([]bngov.Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, end, err := e.drafts.DraftWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft window: %w", err)
	}
	if start > end {
		return []bngov.Draft{}, nil
	}

	out := make([]bngov.Draft, 0, end-start+1)
	for id := start; id <= end; id++ {
		d, err := e.drafts.LoadDraft(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load draft %d: %w", id, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// CurrentPhase returns the phase active at the current chain height.
func (e *Engine) CurrentPhase(ctx context.Context) (bngov.Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.currentPhase(ctx)
}

// PhaseByHeight returns the phase active at height:
// the stored phase with the largest start height <= height.
//
// Heights at or beyond the latest activation resolve in one load;
// earlier heights walk the PreHeight chain backward,
// terminating at the genesis phase.
func (e *Engine) PhaseByHeight(ctx context.Context, height uint64) (bngov.Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.phaseByHeight(ctx, height)
}

// IsMiner reports whether id is a member of the committee active now.
func (e *Engine) IsMiner(ctx context.Context, id bngov.Identity) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.currentPhase(ctx)
	if err != nil {
		return false, err
	}
	return p.Contains(id), nil
}

// CurrentMiners returns the miner set of the committee active now.
//
// This is the membership view the generic threshold gate consumes.
func (e *Engine) CurrentMiners(ctx context.Context) ([]bngov.Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.currentPhase(ctx)
	if err != nil {
		return nil, err
	}
	return p.Clone().Miners, nil
}

// currentPhase resolves the phase at the live chain height.
// Caller must hold e.mu.
func (e *Engine) currentPhase(ctx context.Context) (bngov.Phase, error) {
	h, err := e.heights.CurrentHeight(ctx)
	if err != nil {
		return bngov.Phase{}, fmt.Errorf("failed to read current height: %w", err)
	}
	return e.phaseByHeight(ctx, h)
}

// phaseByHeight is the unlocked phase lookup.
// Caller must hold e.mu.
func (e *Engine) phaseByHeight(ctx context.Context, height uint64) (bngov.Phase, error) {
	latest, err := e.phases.LatestPhaseHeight(ctx)
	if err != nil {
		return bngov.Phase{}, fmt.Errorf("failed to read latest phase height: %w", err)
	}

	p, err := e.phases.LoadPhase(ctx, latest)
	if err != nil {
		return bngov.Phase{}, fmt.Errorf("failed to load phase at %d: %w", latest, err)
	}

	// Iterative walk, not recursion: the history is unbounded.
	for p.StartHeight > height && p.PreHeight != 0 {
		pre := p.PreHeight
		p, err = e.phases.LoadPhase(ctx, pre)
		if err != nil {
			return bngov.Phase{}, fmt.Errorf("failed to load phase at %d: %w", pre, err)
		}
	}

	return p, nil
}
