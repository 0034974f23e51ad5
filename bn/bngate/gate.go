// Package bngate provides a reusable two-thirds-majority vote gate.
//
// The gate is independent of draft voting: any privileged operation
// keyed by an arbitrary (method, param) pair can require committee
// consensus before executing, by wrapping itself in [Gate.Require].
package bngate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// CommitteeSource reports the miner set of the committee active now,
// in ascending identity order.
//
// [github.com/Tobeyw/bane-labs/bn/bnengine.Engine] satisfies this.
type CommitteeSource interface {
	CurrentMiners(ctx context.Context) ([]bngov.Identity, error)
}

// Gate counts per-(method, param) votes from current committee members
// and admits a gated action once strictly more than two thirds
// of the committee have voted for the same pair.
//
// Stale votes from identities that have since left the committee
// remain in storage but are inert: counting and clearing both
// consider current members only.
//
// Gate methods are safe to call concurrently.
type Gate struct {
	log *slog.Logger

	mu sync.Mutex

	store     bnstore.GateStore
	committee CommitteeSource

	sink bngov.EventSink
}

// GateConfig holds the collaborators required to construct a [Gate].
type GateConfig struct {
	Store     bnstore.GateStore
	Committee CommitteeSource

	// Sink optionally receives every emitted event. May be nil.
	Sink bngov.EventSink
}

func New(log *slog.Logger, cfg GateConfig) *Gate {
	return &Gate{
		log: log,

		store:     cfg.Store,
		committee: cfg.Committee,

		sink: cfg.Sink,
	}
}

// Require records caller's vote for (methodKey, paramKey) and,
// once strictly more than two thirds of the current committee
// have voted for that exact pair, runs action and clears the
// method's votes for current members.
//
// The caller must be a current committee member.
// Below quorum, Require returns a successful receipt with the vote
// recorded and executed false; the gated action simply does not run.
func (g *Gate) Require(
	ctx context.Context,
	caller bngov.Identity,
	methodKey, paramKey string,
	action func(context.Context) error,
) (rcpt bngov.Receipt, executed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, err := g.committee.CurrentMiners(ctx)
	if err != nil {
		return rcpt, false, fmt.Errorf("failed to resolve current committee: %w", err)
	}
	if !contains(members, caller) {
		return rcpt, false, fmt.Errorf("gate vote: %w", bngov.ErrUnauthorized)
	}

	if err := g.store.SaveGateVote(ctx, methodKey, caller, paramKey); err != nil {
		return rcpt, false, fmt.Errorf("failed to save gate vote: %w", err)
	}

	rcpt.Events = append(rcpt.Events, bngov.GateVoteEvent{
		Voter:     caller,
		MethodKey: methodKey,
		ParamKey:  paramKey,
	})

	pass, err := g.checkVotes(ctx, members, methodKey, paramKey)
	if err != nil {
		return rcpt, false, err
	}

	g.log.Info(
		"Gate vote recorded",
		"voter", caller,
		"method_key", methodKey,
		"quorum", pass,
	)

	if pass {
		if err := action(ctx); err != nil {
			return rcpt, false, fmt.Errorf("gated action failed: %w", err)
		}
		if err := g.clearVotes(ctx, members, methodKey); err != nil {
			return rcpt, true, err
		}
		executed = true
	}

	g.publish(rcpt)
	return rcpt, executed, nil
}

// CheckVotes reports whether (methodKey, paramKey) currently has quorum,
// without recording or clearing anything.
func (g *Gate) CheckVotes(ctx context.Context, methodKey, paramKey string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, err := g.committee.CurrentMiners(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to resolve current committee: %w", err)
	}
	return g.checkVotes(ctx, members, methodKey, paramKey)
}

// ClearVotes deletes methodKey's vote entries for current committee members.
// Entries from identities no longer on the committee are left in place.
func (g *Gate) ClearVotes(ctx context.Context, methodKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, err := g.committee.CurrentMiners(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current committee: %w", err)
	}
	return g.clearVotes(ctx, members, methodKey)
}

// checkVotes counts members whose recorded param matches paramKey.
// Quorum requires count > (n*2)/3 with integer division:
// a committee of 3 needs all 3 votes, a committee of 4 needs 3.
// Caller must hold g.mu.
func (g *Gate) checkVotes(
	ctx context.Context,
	members []bngov.Identity,
	methodKey, paramKey string,
) (bool, error) {
	votes, err := g.store.GateVotes(ctx, methodKey)
	if err != nil {
		return false, fmt.Errorf("failed to load gate votes: %w", err)
	}

	voted := bitset.New(uint(len(members)))
	for i, m := range members {
		if p, ok := votes[m]; ok && p == paramKey {
			voted.Set(uint(i))
		}
	}

	n := uint(len(members))
	return voted.Count() > (n*2)/3, nil
}

// clearVotes removes methodKey's entries for exactly the given members.
// Caller must hold g.mu.
func (g *Gate) clearVotes(ctx context.Context, members []bngov.Identity, methodKey string) error {
	if err := g.store.DeleteGateVotes(ctx, methodKey, members); err != nil {
		return fmt.Errorf("failed to clear gate votes: %w", err)
	}
	return nil
}

func (g *Gate) publish(rcpt bngov.Receipt) {
	if g.sink == nil {
		return
	}
	for _, ev := range rcpt.Events {
		g.sink.Publish(ev)
	}
}

// contains reports membership in an ascending miner set.
func contains(members []bngov.Identity, id bngov.Identity) bool {
	return bngov.Phase{Miners: members}.Contains(id)
}
