package bnengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// Default vote thresholds, used when the corresponding
// [EngineConfig] fields are left zero.
const (
	// DefaultMinVoteStake is the minimum live balance
	// an identity must hold to cast a committee vote.
	DefaultMinVoteStake = 1_000

	// DefaultPassThreshold is the weighted tally at which
	// a draft activates into a phase.
	DefaultPassThreshold = 1_000_000
)

// Engine orchestrates committee governance:
// draft proposal, weighted voting, and the phase history
// that records committee membership over time.
//
// Engine methods are safe to call concurrently;
// a single mutex serializes every operation,
// preserving the single-writer invariant when the host
// does not already serialize calls.
type Engine struct {
	log *slog.Logger

	mu sync.Mutex

	phases bnstore.PhaseStore
	drafts bnstore.DraftStore
	votes  bnstore.VoteStore

	balances bngov.BalanceSource
	heights  bngov.HeightSource

	sink bngov.EventSink

	minVoteStake  uint64
	passThreshold uint64
}

// EngineConfig holds the collaborators required to start an [Engine].
type EngineConfig struct {
	PhaseStore bnstore.PhaseStore
	DraftStore bnstore.DraftStore
	VoteStore  bnstore.VoteStore

	Balances bngov.BalanceSource
	Heights  bngov.HeightSource

	// Sink optionally receives every emitted event.
	// May be nil.
	Sink bngov.EventSink

	// GenesisMiners is the committee seeded at height 1
	// when the phase store is empty.
	// Ignored when the store already holds a phase history.
	GenesisMiners []bngov.Identity

	// MinVoteStake and PassThreshold default to
	// [DefaultMinVoteStake] and [DefaultPassThreshold] when zero.
	MinVoteStake  uint64
	PassThreshold uint64
}

// NewEngine validates cfg, seeds the genesis phase
// if the phase store is empty, and returns a ready engine.
func NewEngine(ctx context.Context, log *slog.Logger, cfg EngineConfig) (*Engine, error) {
	e := &Engine{
		log: log,

		phases: cfg.PhaseStore,
		drafts: cfg.DraftStore,
		votes:  cfg.VoteStore,

		balances: cfg.Balances,
		heights:  cfg.Heights,

		sink: cfg.Sink,

		minVoteStake:  cfg.MinVoteStake,
		passThreshold: cfg.PassThreshold,
	}
	if e.minVoteStake == 0 {
		e.minVoteStake = DefaultMinVoteStake
	}
	if e.passThreshold == 0 {
		e.passThreshold = DefaultPassThreshold
	}

	latest, err := e.phases.LatestPhaseHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest phase height: %w", err)
	}
	if latest != 0 {
		return e, nil
	}

	if !bngov.MinersStrictlyAscending(cfg.GenesisMiners) {
		return nil, fmt.Errorf(
			"%w: genesis miners must be non-empty and strictly ascending",
			bngov.ErrInvalidMinerSet,
		)
	}

	genesis := bngov.Phase{
		StartHeight: bngov.GenesisPhaseHeight,
		Miners:      cfg.GenesisMiners,
		PreHeight:   0,
	}
	if err := e.phases.SavePhase(ctx, genesis); err != nil {
		return nil, fmt.Errorf("failed to seed genesis phase: %w", err)
	}
	if err := e.phases.SetLatestPhaseHeight(ctx, genesis.StartHeight); err != nil {
		return nil, fmt.Errorf("failed to set latest phase height: %w", err)
	}

	log.Info(
		"Seeded genesis committee",
		"n_miners", len(genesis.Miners),
		"miners_hash", bngov.MinerSetHash(genesis.Miners),
	)
	return e, nil
}

// Propose appends a new draft to the votable window.
//
// The caller must be a member of the current committee,
// startHeight must be strictly in the future,
// miners must be non-empty and strictly ascending,
// and the chain must have advanced past the most recently
// activated phase's start height.
func (e *Engine) Propose(
	ctx context.Context,
	caller bngov.Identity,
	startHeight uint64,
	miners []bngov.Identity,
) (bngov.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rcpt bngov.Receipt

	h, err := e.heights.CurrentHeight(ctx)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read current height: %w", err)
	}

	cur, err := e.phaseByHeight(ctx, h)
	if err != nil {
		return rcpt, err
	}
	if !cur.Contains(caller) {
		return rcpt, fmt.Errorf("propose: %w", bngov.ErrUnauthorized)
	}

	if startHeight <= h {
		return rcpt, fmt.Errorf(
			"propose: %w: start height %d not beyond current height %d",
			bngov.ErrInvalidHeight, startHeight, h,
		)
	}
	if !bngov.MinersStrictlyAscending(miners) {
		return rcpt, fmt.Errorf(
			"propose: %w: miners must be non-empty and strictly ascending",
			bngov.ErrInvalidMinerSet,
		)
	}

	latest, err := e.phases.LatestPhaseHeight(ctx)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read latest phase height: %w", err)
	}
	if h <= latest {
		// The chain has not yet reached the phase activated last;
		// proposing against a committee that never took effect is rejected.
		return rcpt, fmt.Errorf(
			"propose: %w: current height %d has not passed last activation height %d",
			bngov.ErrInvalidHeight, h, latest,
		)
	}

	start, end, err := e.drafts.DraftWindow(ctx)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read draft window: %w", err)
	}

	d := bngov.Draft{
		ID:          end + 1,
		StartHeight: startHeight,
		Miners:      miners,
	}
	if err := e.drafts.SaveDraft(ctx, d); err != nil {
		return rcpt, fmt.Errorf("failed to save draft: %w", err)
	}
	if err := e.drafts.SetDraftWindow(ctx, start, d.ID); err != nil {
		return rcpt, fmt.Errorf("failed to advance draft window: %w", err)
	}

	rcpt.Events = append(rcpt.Events, bngov.ProposeEvent{
		Proposer:    caller,
		DraftID:     d.ID,
		StartHeight: d.StartHeight,
		Miners:      d.Miners,
	})

	e.log.Info(
		"Draft proposed",
		"proposer", caller,
		"draft_id", d.ID,
		"start_height", d.StartHeight,
		"n_miners", len(d.Miners),
	)

	e.publish(rcpt)
	return rcpt, nil
}

// Vote records caller's weighted vote for draftID,
// implicitly revoking any prior vote for a different draft.
// Voting again for the already-voted draft is a no-op.
//
// After recording, the draft's tally is recomputed from the live
// balances of its current voter set; reaching the pass threshold
// activates the draft into a new phase and resets the window.
func (e *Engine) Vote(ctx context.Context, caller bngov.Identity, draftID uint64) (bngov.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rcpt bngov.Receipt

	start, end, err := e.drafts.DraftWindow(ctx)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read draft window: %w", err)
	}
	if draftID < start || draftID > end {
		return rcpt, fmt.Errorf(
			"vote: %w: draft %d not in window [%d, %d]",
			bngov.ErrInvalidDraftID, draftID, start, end,
		)
	}

	weight, err := e.balances.Balance(ctx, caller)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read voter balance: %w", err)
	}
	if weight < e.minVoteStake {
		return rcpt, fmt.Errorf(
			"vote: %w: balance %d below minimum %d",
			bngov.ErrInsufficientStake, weight, e.minVoteStake,
		)
	}

	prev, err := e.votes.VoteOf(ctx, caller)
	if err != nil && !errors.Is(err, bnstore.ErrNoActiveVote) {
		return rcpt, fmt.Errorf("failed to read active vote: %w", err)
	}
	if err == nil && prev == draftID {
		// Re-voting the same draft changes nothing and emits nothing.
		return rcpt, nil
	}

	// SaveVote drops the reverse-index entry for any prior draft,
	// so switching votes moves the caller's weight in one step.
	if err := e.votes.SaveVote(ctx, caller, draftID); err != nil {
		return rcpt, fmt.Errorf("failed to save vote: %w", err)
	}

	rcpt.Events = append(rcpt.Events, bngov.VoteEvent{Voter: caller, DraftID: draftID})

	tally, err := e.tally(ctx, draftID)
	if err != nil {
		return rcpt, err
	}

	e.log.Info(
		"Vote recorded",
		"voter", caller,
		"draft_id", draftID,
		"tally", tally,
	)

	if tally >= e.passThreshold {
		if err := e.activate(ctx, &rcpt, draftID, end, tally); err != nil {
			return rcpt, err
		}
	}

	e.publish(rcpt)
	return rcpt, nil
}

// activate converts a passed draft into the newest phase
// and resets the draft window past windowEnd.
// Caller must hold e.mu.
func (e *Engine) activate(
	ctx context.Context,
	rcpt *bngov.Receipt,
	draftID, windowEnd, tally uint64,
) error {
	d, err := e.drafts.LoadDraft(ctx, draftID)
	if err != nil {
		return fmt.Errorf("failed to load passing draft: %w", err)
	}

	latest, err := e.phases.LatestPhaseHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest phase height: %w", err)
	}

	p := bngov.Phase{
		StartHeight: d.StartHeight,
		Miners:      d.Miners,
		PreHeight:   latest,
	}
	if err := e.phases.SavePhase(ctx, p); err != nil {
		return fmt.Errorf("failed to save activated phase: %w", err)
	}
	if err := e.phases.SetLatestPhaseHeight(ctx, p.StartHeight); err != nil {
		return fmt.Errorf("failed to update latest phase height: %w", err)
	}

	// Only one draft may pass per window: discard the whole window,
	// losers included. Votes pointing into the old window become
	// unreachable through the window check, so they need no sweep.
	if err := e.drafts.SetDraftWindow(ctx, windowEnd+1, windowEnd); err != nil {
		return fmt.Errorf("failed to reset draft window: %w", err)
	}

	minersHash := bngov.MinerSetHash(p.Miners)
	rcpt.Events = append(rcpt.Events, bngov.VotePassEvent{
		Tally:       tally,
		StartHeight: p.StartHeight,
		Miners:      p.Miners,
		PreHeight:   p.PreHeight,
		MinersHash:  minersHash,
	})

	e.log.Info(
		"Draft passed, phase activated",
		"draft_id", d.ID,
		"start_height", p.StartHeight,
		"pre_height", p.PreHeight,
		"tally", tally,
		"miners_hash", minersHash,
	)
	return nil
}

// RevokeVote clears caller's active vote.
// The active vote must reference a draft inside the current window;
// votes stranded outside the window by a pass are already void
// and revoking them is rejected.
func (e *Engine) RevokeVote(ctx context.Context, caller bngov.Identity) (bngov.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rcpt bngov.Receipt

	prev, err := e.votes.VoteOf(ctx, caller)
	if errors.Is(err, bnstore.ErrNoActiveVote) {
		return rcpt, fmt.Errorf("revoke: %w: no active vote", bngov.ErrInvalidDraftID)
	}
	if err != nil {
		return rcpt, fmt.Errorf("failed to read active vote: %w", err)
	}

	start, end, err := e.drafts.DraftWindow(ctx)
	if err != nil {
		return rcpt, fmt.Errorf("failed to read draft window: %w", err)
	}
	if prev < start || prev > end {
		return rcpt, fmt.Errorf(
			"revoke: %w: draft %d not in window [%d, %d]",
			bngov.ErrInvalidDraftID, prev, start, end,
		)
	}

	if err := e.votes.DeleteVote(ctx, caller); err != nil {
		return rcpt, fmt.Errorf("failed to delete vote: %w", err)
	}

	// Draft id zero is the revocation sentinel.
	rcpt.Events = append(rcpt.Events, bngov.VoteEvent{Voter: caller, DraftID: 0})

	e.log.Info("Vote revoked", "voter", caller, "draft_id", prev)

	e.publish(rcpt)
	return rcpt, nil
}

// tally sums the live balances of every identity
// currently voting for draftID.
func (e *Engine) tally(ctx context.Context, draftID uint64) (uint64, error) {
	voters, err := e.votes.VotersOf(ctx, draftID)
	if err != nil {
		return 0, fmt.Errorf("failed to list voters: %w", err)
	}

	var total uint64
	for _, v := range voters {
		bal, err := e.balances.Balance(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("failed to read balance of %q: %w", v, err)
		}
		total += bal
	}
	return total, nil
}

func (e *Engine) publish(rcpt bngov.Receipt) {
	if e.sink == nil {
		return
	}
	for _, ev := range rcpt.Events {
		e.sink.Publish(ev)
	}
}
